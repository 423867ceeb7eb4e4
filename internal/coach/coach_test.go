package coach

import (
	"testing"

	"github.com/stretchr/testify/require"

	"salescoach/internal/domain"
)

func s(text string) domain.Turn { return domain.Turn{Role: domain.RoleSalesperson, Content: text} }
func c(text string) domain.Turn { return domain.Turn{Role: domain.RoleCustomer, Content: text} }

func TestTipsEmpty(t *testing.T) {
	require.Nil(t, Tips(nil, "预算敏感型 (王女士)"))
}

func TestTipsBudgetPersona(t *testing.T) {
	turns := []domain.Turn{
		s("您好"), c("这个手镯多少钱？"),
	}
	require.Equal(t, []string{"💡 客户关注价格，可以强调性价比和保值性"}, Tips(turns, "预算敏感型 (王女士)"))
}

func TestTipsLengthRules(t *testing.T) {
	turns := []domain.Turn{
		s("a"), c("b"), s("c"), c("d"), s("e"), c("f"), s("g"), c("h"), s("i"), c("j"),
	}
	tips := Tips(turns, "犹豫不决型 (张阿姨)")
	require.Equal(t, []string{
		"💡 可以邀请客户试戴，增加体验感",
		"💡 时机成熟，可以尝试推动成交",
	}, tips)

	turns[8] = s("要不要试戴一下，喜欢就购买")
	require.Empty(t, Tips(turns, "犹豫不决型 (张阿姨)"))
}

func TestAnalyzeTooShort(t *testing.T) {
	q := Analyze([]domain.Turn{s("您好"), c("嗯")})
	require.Equal(t, Quality{Score: 0, Suggestions: []string{"对话轮数太少，无法分析"}}, q)
}

func TestAnalyzeScoring(t *testing.T) {
	good := []domain.Turn{
		s("您喜欢什么款式吗？"), c("喜欢简约的"),
		s("这款传承系列手镯怎么样？"), c("不错"),
		s("克重适中，您要试戴吗？"), c("好的"),
	}
	require.Equal(t, Quality{Score: 8, Suggestions: []string{}}, Analyze(good))

	bad := []domain.Turn{
		s("欢迎"), c("太贵了"),
		s("随便看"), c("算了"),
	}
	q := Analyze(bad)
	require.Equal(t, 1, q.Score)
	require.Equal(t, []string{
		"建议多使用开放式问题了解客户需求",
		"建议具体推荐产品",
		"客户反应较为消极，建议调整话术",
	}, q.Suggestions)
}

func TestNextStep(t *testing.T) {
	require.Equal(t, "开始与客户打招呼，了解基本需求", NextStep(nil))
	require.Equal(t, "等待客户回应", NextStep([]domain.Turn{s("您好")}))
	require.Equal(t, "客户关注价格，建议强调价值和性价比", NextStep([]domain.Turn{c("有点贵")}))
	require.Equal(t, "客户有兴趣，可以详细介绍产品特色", NextStep([]domain.Turn{c("我先看看")}))
	require.Equal(t, "客户在犹豫，建议提供更多信心支持", NextStep([]domain.Turn{c("我再想想")}))
	require.Equal(t, "客户反应积极，可以推动试戴或成交", NextStep([]domain.Turn{c("挺喜欢的")}))
	require.Equal(t, "继续深入了解客户需求", NextStep([]domain.Turn{c("嗯"), s("您看这款")}))
}
