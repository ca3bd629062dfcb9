// Package storage keeps ingested ledger lines in SQLite so statements can
// be regenerated for any stored month without the original export.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/income-statement-generator/internal/ledger"

	_ "modernc.org/sqlite"
)

// ErrNoLines is returned when there are no ledger lines to store or report.
var ErrNoLines = errors.New("no ledger lines")

// SQLiteRepository stores ledger lines in a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and applies
// pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection serializes writers from concurrent converters.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceMonths deletes the stored lines of every (month, cost center) pair
// present in lines and inserts lines in their place, in one transaction.
// Re-ingesting a corrected export therefore never double counts, and lines
// of cost centers the export does not cover are kept. It returns the number
// of rows deleted.
func (r *SQLiteRepository) ReplaceMonths(ctx context.Context, lines []ledger.Line) (int, error) {
	if len(lines) == 0 {
		return 0, ErrNoLines
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted := 0
	for _, p := range monthCostCenters(lines) {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM ledger_lines WHERE month = ? AND cost_center = ?`, p.month, p.costCenter)
		if err != nil {
			return 0, fmt.Errorf("delete %s %s: %w", p.month, p.costCenter, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete %s %s: %w", p.month, p.costCenter, err)
		}
		deleted += int(n)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_lines
			(month, account, cost_center, spend_category, revenue_category, actual, budget, actual_ytd, budget_ytd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range lines {
		if _, err := stmt.ExecContext(ctx,
			l.Month, l.Account, l.CostCenter, l.SpendCategory, l.RevenueCategory,
			nullFloat(l.Actual), nullFloat(l.Budget), nullFloat(l.ActualYTD), nullFloat(l.BudgetYTD),
		); err != nil {
			return 0, fmt.Errorf("insert line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return deleted, nil
}

// Lines returns the stored lines matching f, in insertion order.
func (r *SQLiteRepository) Lines(ctx context.Context, f ledger.Filter) ([]ledger.Line, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Month != "" {
		where = append(where, "month = ?")
		args = append(args, f.Month)
	}
	if clause, ccArgs := costCenterClause(f.CostCenters); clause != "" {
		where = append(where, clause)
		args = append(args, ccArgs...)
	}

	query := `SELECT month, account, cost_center, spend_category, revenue_category,
		actual, budget, actual_ytd, budget_ytd FROM ledger_lines`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		var l ledger.Line
		var actual, budget, actualYTD, budgetYTD sql.NullFloat64
		if err := rows.Scan(&l.Month, &l.Account, &l.CostCenter, &l.SpendCategory, &l.RevenueCategory,
			&actual, &budget, &actualYTD, &budgetYTD); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.Actual = floatPtr(actual)
		l.Budget = floatPtr(budget)
		l.ActualYTD = floatPtr(actualYTD)
		l.BudgetYTD = floatPtr(budgetYTD)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// Months returns the distinct stored months matching f, newest first.
// f.Month is ignored.
func (r *SQLiteRepository) Months(ctx context.Context, f ledger.Filter) ([]string, error) {
	where, args := costCenterClause(f.CostCenters)
	query := `SELECT DISTINCT month FROM ledger_lines`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY month DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

type monthCostCenter struct {
	month      string
	costCenter string
}

// monthCostCenters lists the distinct (month, cost center) pairs of lines
// in first-seen order.
func monthCostCenters(lines []ledger.Line) []monthCostCenter {
	seen := make(map[monthCostCenter]bool)
	var out []monthCostCenter
	for _, l := range lines {
		p := monthCostCenter{month: l.Month, costCenter: l.CostCenter}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// costCenterClause builds "cost_center IN (...)" for a non-empty list.
func costCenterClause(costCenters []string) (string, []interface{}) {
	if len(costCenters) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(costCenters))
	args := make([]interface{}, len(costCenters))
	for i, cc := range costCenters {
		placeholders[i] = "?"
		args[i] = cc
	}
	return "cost_center IN (" + strings.Join(placeholders, ", ") + ")", args
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return ledger.Float(v.Float64)
}
