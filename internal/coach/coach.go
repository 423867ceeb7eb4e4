// Package coach gives rule-based hints to the salesperson during a session.
package coach

import (
	"strings"

	"salescoach/internal/domain"
)

// Quality is a heuristic score of a transcript.
type Quality struct {
	Score       int      `json:"score"`
	Suggestions []string `json:"suggestions"`
}

const tipPrefix = "💡 "

// Tips returns hints for the current state of the conversation with the given persona.
// It looks at the last four turns only, except for the overall length checks.
func Tips(turns []domain.Turn, personaName string) []string {
	if len(turns) == 0 {
		return nil
	}
	recent := turns
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
	}
	customer := byRole(recent, domain.RoleCustomer)
	sales := byRole(recent, domain.RoleSalesperson)

	var tips []string
	add := func(s string) { tips = append(tips, tipPrefix+s) }

	switch {
	case strings.Contains(personaName, "预算敏感型"):
		if anyContains(customer, "价格", "多少钱") {
			add("客户关注价格，可以强调性价比和保值性")
		}
		if len(sales) > 2 && !anyContains(sales, "优惠", "活动") {
			add("可以适当提及优惠活动或赠品")
		}
	case strings.Contains(personaName, "追求独特设计型"):
		if anyContains(customer, "设计", "款式") {
			add("客户重视设计，可以介绍设计理念和工艺特色")
		}
		if len(sales) > 2 && !anyContains(sales, "设计师", "限量") {
			add("可以强调设计师背景或限量特性")
		}
	case strings.Contains(personaName, "犹豫不决型"):
		if anyContains(customer, "想想", "考虑") {
			add("客户在犹豫，可以提供更多安全感和确认")
		}
		if len(sales) > 2 {
			add("可以使用二选一法则帮助客户决策")
		}
	}

	if len(turns) > 6 && !anyContains(sales, "试戴") {
		add("可以邀请客户试戴，增加体验感")
	}
	if len(turns) > 8 && !anyContains(sales, "成交", "购买") {
		add("时机成熟，可以尝试推动成交")
	}
	return tips
}

// Analyze scores the whole transcript on a 0..10 scale.
func Analyze(turns []domain.Turn) Quality {
	if len(turns) < 4 {
		return Quality{Score: 0, Suggestions: []string{"对话轮数太少，无法分析"}}
	}
	sales := byRole(turns, domain.RoleSalesperson)
	customer := byRole(turns, domain.RoleCustomer)

	score := 5
	suggestions := []string{}

	questions := count(sales, "?", "吗")
	switch {
	case questions == 0:
		score -= 2
		suggestions = append(suggestions, "建议多使用开放式问题了解客户需求")
	case questions >= 2:
		score++
	}

	mentions := count(sales, "手镯", "款式", "系列", "克重")
	switch {
	case mentions == 0:
		score--
		suggestions = append(suggestions, "建议具体推荐产品")
	case mentions >= 3:
		score++
	}

	positive := count(customer, "好", "不错", "喜欢", "可以")
	negative := count(customer, "不", "算了", "贵", "考虑")
	switch {
	case positive > negative:
		score++
	case negative > positive:
		score--
		suggestions = append(suggestions, "客户反应较为消极，建议调整话术")
	}

	return Quality{Score: max(0, min(10, score)), Suggestions: suggestions}
}

// NextStep suggests what to do after the customer's latest line.
func NextStep(turns []domain.Turn) string {
	if len(turns) == 0 {
		return "开始与客户打招呼，了解基本需求"
	}
	last, ok := lastCustomer(turns)
	if !ok {
		return "等待客户回应"
	}
	switch {
	case containsAny(last, "价格", "多少钱", "贵"):
		return "客户关注价格，建议强调价值和性价比"
	case containsAny(last, "看看", "了解", "介绍"):
		return "客户有兴趣，可以详细介绍产品特色"
	case containsAny(last, "考虑", "想想", "犹豫"):
		return "客户在犹豫，建议提供更多信心支持"
	case containsAny(last, "喜欢", "不错", "好"):
		return "客户反应积极，可以推动试戴或成交"
	default:
		return "继续深入了解客户需求"
	}
}

func lastCustomer(turns []domain.Turn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleCustomer {
			return turns[i].Content, true
		}
	}
	return "", false
}

func byRole(turns []domain.Turn, role domain.Role) []string {
	var out []string
	for _, t := range turns {
		if t.Role == role {
			out = append(out, t.Content)
		}
	}
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func anyContains(lines []string, words ...string) bool {
	return count(lines, words...) > 0
}

// count returns how many lines contain at least one of words.
func count(lines []string, words ...string) int {
	n := 0
	for _, l := range lines {
		if containsAny(l, words...) {
			n++
		}
	}
	return n
}
