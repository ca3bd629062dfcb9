package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

// SheetName is the worksheet holding the statement.
const SheetName = "Income Statement"

const (
	numberFormat    = "#,##0.00"
	maxOutlineLevel = 7
)

// xlsxStyles creates cell styles on demand, keyed by depth and weight.
type xlsxStyles struct {
	f      *excelize.File
	labels map[[2]int]int
	values map[bool]int
}

func (s *xlsxStyles) label(depth int, bold bool) (int, error) {
	key := [2]int{depth, boolInt(bold)}
	if id, ok := s.labels[key]; ok {
		return id, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: bold},
		Alignment: &excelize.Alignment{Indent: depth},
	})
	if err != nil {
		return 0, err
	}
	s.labels[key] = id
	return id, nil
}

func (s *xlsxStyles) value(bold bool) (int, error) {
	if id, ok := s.values[bold]; ok {
		return id, nil
	}
	format := numberFormat
	id, err := s.f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: bold},
		CustomNumFmt: &format,
	})
	if err != nil {
		return 0, err
	}
	s.values[bold] = id
	return id, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// WriteXLSX writes rows as an Excel workbook.
//
// LAYOUT:
//   Column A: hier (hidden)
//   Column B: label, indented by depth
//   Column C onward: values formatted as #,##0.00
//   Row 1 holds the headers; each statement row's outline level is its depth.
func WriteXLSX(w io.Writer, rows []statement.Row, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if opts.Title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: opts.Title}); err != nil {
			return fmt.Errorf("failed to set title: %w", err)
		}
	}

	headers := append([]interface{}{"hier"}, toInterfaces(ColumnHeaders(opts))...)
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style headers: %w", err)
	}

	styles := &xlsxStyles{f: f, labels: make(map[[2]int]int), values: make(map[bool]int)}

	for i, r := range rows {
		rowNum := i + 2
		bold := statement.IsSection(r.Label)

		cells := []interface{}{r.Hier, r.Label}
		for _, v := range values(r, opts) {
			if v == nil {
				cells = append(cells, nil)
			} else {
				cells = append(cells, *v)
			}
		}

		start, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, start, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}

		labelStyle, err := styles.label(r.Depth(), bold)
		if err != nil {
			return fmt.Errorf("failed to create label style: %w", err)
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("B%d", rowNum), fmt.Sprintf("B%d", rowNum), labelStyle); err != nil {
			return err
		}

		valueStyle, err := styles.value(bold)
		if err != nil {
			return fmt.Errorf("failed to create value style: %w", err)
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("C%d", rowNum), fmt.Sprintf("%s%d", lastCol, rowNum), valueStyle); err != nil {
			return err
		}

		if depth := r.Depth(); depth > 0 {
			if depth > maxOutlineLevel {
				depth = maxOutlineLevel
			}
			if err := f.SetRowOutlineLevel(SheetName, rowNum, uint8(depth)); err != nil {
				return fmt.Errorf("failed to group row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.SetColVisible(SheetName, "A", false); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 48); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "C", lastCol, 18); err != nil {
		return err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
