package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

// WriteCSV writes rows as CSV with a hier column ahead of the label.
// Missing values are written as empty cells.
func WriteCSV(w io.Writer, rows []statement.Row, opts Options) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(append([]string{"hier"}, ColumnHeaders(opts)...)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		record := []string{r.Hier, r.Label}
		for _, v := range values(r, opts) {
			record = append(record, formatRaw(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatRaw(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type jsonRow struct {
	Hier    string   `json:"hier"`
	Label   string   `json:"label"`
	Section bool     `json:"section"`
	Actual  *float64 `json:"actual"`
	Budget  *float64 `json:"budget"`
}

type jsonRowYTD struct {
	jsonRow
	ActualYTD *float64 `json:"actual_ytd"`
	BudgetYTD *float64 `json:"budget_ytd"`
}

// WriteJSON writes rows as an indented JSON array of objects. Missing
// values are null. The YTD keys are present only with IncludeYTD.
func WriteJSON(w io.Writer, rows []statement.Row, opts Options) error {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		jr := jsonRow{
			Hier:    r.Hier,
			Label:   r.Label,
			Section: statement.IsSection(r.Label),
			Actual:  r.Actual,
			Budget:  r.Budget,
		}
		if opts.IncludeYTD {
			out = append(out, jsonRowYTD{jsonRow: jr, ActualYTD: r.ActualYTD, BudgetYTD: r.BudgetYTD})
		} else {
			out = append(out, jr)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
