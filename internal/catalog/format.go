package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"salescoach/internal/domain"
)

// Summary is the compact text embedded into the vector index. It leaves out the description.
func Summary(p domain.Product) string {
	return fmt.Sprintf("%s %s %s 价格%s元 %s", p.Name, p.Series, p.Craft, Number(p.PriceYuan), p.Meaning)
}

// Haystack is the lowercased text the keyword scorer matches against.
func Haystack(p domain.Product) string {
	return strings.ToLower(fmt.Sprintf("%s %s %s %s %s", p.Name, p.Series, p.Craft, p.Meaning, p.Description))
}

// Describe renders the full human-readable line used as retrieved context.
func Describe(p domain.Product) string {
	return fmt.Sprintf("产品名称: %s, 系列: %s, 工艺: %s, 寓意: %s, 价格: %s元, 重量: %s克, 描述: %s",
		p.Name, p.Series, p.Craft, p.Meaning, Number(p.PriceYuan), Number(p.WeightG), p.Description)
}

// Number formats v in its shortest form: 6800, 28.5.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
