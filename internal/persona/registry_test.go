package persona

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultNames(t *testing.T) {
	require.Equal(t, []string{"预算敏感型 (王女士)", "追求独特设计型 (李小姐)", "犹豫不决型 (张阿姨)"}, Default().Names())
}

func TestGetUnknownIsDescriptive(t *testing.T) {
	_, err := Default().Get("暴躁型 (赵先生)")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownPersona))
	require.Contains(t, err.Error(), "暴躁型 (赵先生)")
	require.Contains(t, err.Error(), "预算敏感型 (王女士)")
}

func TestRenderPlain(t *testing.T) {
	out, err := Default().Render("预算敏感型 (王女士)", false, Slots{History: "salesperson: 您好", Input: "这款6800"})
	require.NoError(t, err)
	require.Contains(t, out, "对话历史：salesperson: 您好\n销售：这款6800\n王女士：")
	require.NotContains(t, out, "相关产品信息")
}

func TestRenderAugmented(t *testing.T) {
	out, err := Default().Render("犹豫不决型 (张阿姨)", true, Slots{History: "", Input: "推荐这款", Context: "产品名称: 福运手镯"})
	require.NoError(t, err)
	require.Contains(t, out, "张阿姨：\n\n相关产品信息:\n产品名称: 福运手镯\n\n请简洁地以您的角色身份回应（控制在100字以内）：\n")
}

func TestRenderDoesNotEscapeOrMutate(t *testing.T) {
	r := Default()
	before, err := r.Get("追求独特设计型 (李小姐)")
	require.NoError(t, err)

	out, err := r.Render("追求独特设计型 (李小姐)", false, Slots{Input: `<限量> & "独家"`})
	require.NoError(t, err)
	require.Contains(t, out, `<限量> & "独家"`)

	after, err := r.Get("追求独特设计型 (李小姐)")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(Persona{Name: "a", Prompt: "x"}, Persona{Name: "a", Prompt: "y"})
	require.Error(t, err)
}

func TestRenderUnknown(t *testing.T) {
	_, err := Default().Render("nobody", true, Slots{})
	require.True(t, errors.Is(err, ErrUnknownPersona))
}
