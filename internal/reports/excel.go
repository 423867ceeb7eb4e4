package reports

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"salescoach/internal/evaluation"
)

// SheetName is the worksheet that holds exported reports.
const SheetName = "复盘报告"

var excelHeader = []any{"报告ID", "生成时间", "客户类型", "对话轮数", "综合评分", "完整报告"}

// WriteExcel writes one row per report. The score column is empty when the
// report text has no parseable overall score.
func WriteExcel(w io.Writer, reports []Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	if err := f.SetSheetRow(SheetName, "A1", &excelHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range reports {
		var score any = ""
		if parsed, ok := evaluation.ParseReport(r.Content); ok {
			score = parsed.Overall
		}
		row := []any{r.ID, r.Date(), r.Persona, r.ConversationLength, score, r.Content}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
