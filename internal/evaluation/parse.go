package evaluation

import (
	"regexp"
	"strconv"
	"strings"

	"salescoach/internal/domain"
)

var (
	overallRe = regexp.MustCompile(`综合评分\**\s*[:：]\s*(\d+(?:\.\d+)?)\s*/\s*10`)
	subRe     = map[string]*regexp.Regexp{
		"需求挖掘": regexp.MustCompile(`需求挖掘\s*[:：]\s*(\d+)\s*/\s*10`),
		"产品推荐": regexp.MustCompile(`产品推荐\s*[:：]\s*(\d+)\s*/\s*10`),
		"异议处理": regexp.MustCompile(`异议处理\s*[:：]\s*(\d+)\s*/\s*10`),
		"建立信任": regexp.MustCompile(`建立信任\s*[:：]\s*(\d+)\s*/\s*10`),
		"推动成交": regexp.MustCompile(`推动成交\s*[:：]\s*(\d+)\s*/\s*10`),
	}
	strengthsRe   = regexp.MustCompile(`(?s)\*\*优点\*\*\s*[:：]\s*(.*?)(?:\n\s*\*\*|$)`)
	suggestionsRe = regexp.MustCompile(`(?s)\*\*改进建议\*\*\s*[:：]\s*(.*?)(?:\n\s*\*\*|$)`)
	itemSplitRe   = regexp.MustCompile(`[\n；;]+|\s*\d+[.、]\s*`)
)

// ParseReport extracts the structured view of a report text.
// It reports false when the overall score is missing; evaluation never depends on it.
func ParseReport(text string) (domain.EvaluationReport, bool) {
	var r domain.EvaluationReport
	m := overallRe.FindStringSubmatch(text)
	if m == nil {
		return r, false
	}
	r.Overall, _ = strconv.ParseFloat(m[1], 64)
	r.DemandDiscovery = subScore(text, "需求挖掘")
	r.ProductRecommendation = subScore(text, "产品推荐")
	r.ObjectionHandling = subScore(text, "异议处理")
	r.TrustBuilding = subScore(text, "建立信任")
	r.Closing = subScore(text, "推动成交")
	r.Strengths = items(strengthsRe, text)
	r.Suggestions = items(suggestionsRe, text)
	return r, true
}

func subScore(text, name string) int {
	m := subRe[name].FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, _ := strconv.Atoi(m[1])
	if v > 10 {
		v = 10
	}
	return v
}

func items(re *regexp.Regexp, text string) []string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range itemSplitRe.Split(m[1], -1) {
		part = strings.Trim(strings.TrimSpace(part), "[]-•")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
