// =============================================================================
// Income Statement Generator - Validation Engine
// =============================================================================
//
// This module validates statement definitions and department configurations
// before any statement is generated. The generator itself is permissive and
// never fails on a malformed definition; validation is where mistakes such as
// a typo in a total prefix or an empty group are surfaced.
//
// VALIDATION STRATEGY:
//   Issues are collected, not returned on the first failure:
//   1. Node-level: names, accounts and prefixes of each node
//   2. Definition-level: duplicate leaves and paths, prefixes that resolve
//      to nothing declared before the total
//   3. Department-level: definition reference, cost centers, file patterns
//
// ERROR HANDLING:
//   - "error" issues make the definition unusable (Err() returns non-nil)
//   - "warning" issues are reported but generation can proceed
//   - Each issue carries the hierarchy path of the offending node
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/income-statement-generator/internal/config"
	"github.com/ginjaninja78/income-statement-generator/internal/statement"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Severity indicates the severity of the issue.
	// "error" = the definition must not be used
	// "warning" = generation can continue
	Severity string

	// Source names the definition or department being validated.
	Source string

	// Path is the hierarchy path of the node the issue belongs to.
	Path string

	// Rule is the identifier of the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", strings.ToUpper(e.Severity), e.Source))
	if e.Path != "" {
		b.WriteString(fmt.Sprintf(" at %q", e.Path))
	}
	b.WriteString(fmt.Sprintf(": %s (%s)", e.Message, e.Rule))
	return b.String()
}

// ValidationResult collects the issues found for one source.
type ValidationResult struct {
	// Source names the definition or department that was validated.
	Source string

	// Errors are issues that make the source unusable.
	Errors []*ValidationError

	// Warnings are issues that do not block generation.
	Warnings []*ValidationError
}

// IsValid reports whether no error-level issues were found.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Issues returns errors followed by warnings.
func (r *ValidationResult) Issues() []*ValidationError {
	out := make([]*ValidationError, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Err returns nil when the result is valid, otherwise an error wrapping
// statement.ErrInvalidDefinition.
func (r *ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s: %d error(s), first: %s",
		statement.ErrInvalidDefinition, r.Source, len(r.Errors), r.Errors[0].Message)
}

func (r *ValidationResult) add(severity, path, rule, format string, args ...interface{}) {
	ve := &ValidationError{
		Severity: severity,
		Source:   r.Source,
		Path:     path,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
	}
	if severity == SeverityError {
		r.Errors = append(r.Errors, ve)
	} else {
		r.Warnings = append(r.Warnings, ve)
	}
}

// =============================================================================
// DEFINITION VALIDATION
// =============================================================================

var accountPattern = regexp.MustCompile(`^[0-9A-Za-z_-]+:.+$`)

// definitionWalker tracks the paths declared so far, in emission order.
type definitionWalker struct {
	result *ValidationResult

	// declared holds every hierarchy path emitted before the current node.
	declared []string

	// wildcards holds the header paths of wildcard leaves. Their children
	// are only known at generation time.
	wildcards []string

	leaves map[string]string
	paths  map[string]bool
}

// ValidateDefinition checks a statement definition.
//
// PARAMETERS:
//   - name: The definition name, used as the issue source.
//   - def: The definition to check.
//
// RETURNS:
//   - A ValidationResult. It never returns nil.
func ValidateDefinition(name string, def statement.Definition) *ValidationResult {
	w := &definitionWalker{
		result: &ValidationResult{Source: name},
		leaves: make(map[string]string),
		paths:  make(map[string]bool),
	}
	for _, n := range def {
		w.walk(n, "")
	}
	return w.result
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + statement.Delimiter + name
}

func (w *definitionWalker) declare(path string) {
	if w.paths[path] {
		w.result.add(SeverityWarning, path, "duplicate-path", "path is declared more than once")
	}
	w.paths[path] = true
	w.declared = append(w.declared, path)
}

func (w *definitionWalker) walk(n statement.Node, path string) {
	switch v := n.(type) {
	case statement.Group:
		cur := join(path, v.Name)
		if strings.TrimSpace(v.Name) == "" {
			w.result.add(SeverityError, cur, "group-name", "group has no name")
		}
		if len(v.Items) == 0 {
			w.result.add(SeverityWarning, cur, "empty-group", "group has no items and will only emit a header")
		}
		w.declare(cur)
		for _, child := range v.Items {
			w.walk(child, cur)
		}

	case statement.Leaf:
		w.checkLeaf(v, path)

	case statement.Total:
		w.checkTotal(v, path)

	case nil:
		w.result.add(SeverityError, path, "nil-node", "definition contains an empty node")

	default:
		w.result.add(SeverityError, path, "nil-node", "unsupported node type %T", n)
	}
}

func (w *definitionWalker) checkLeaf(l statement.Leaf, path string) {
	if strings.TrimSpace(l.Account) == "" {
		w.result.add(SeverityError, path, "leaf-account", "leaf has no account")
		return
	}
	if !accountPattern.MatchString(l.Account) {
		w.result.add(SeverityWarning, join(path, l.Account), "account-format",
			"account %q is not in <code>:<name> form", l.Account)
	}

	if l.Category == statement.Wildcard {
		cur := join(path, l.Account)
		if l.Negative {
			w.result.add(SeverityWarning, cur, "wildcard-negative",
				"negative is not applied to the rows of a wildcard leaf")
		}
		w.declare(cur)
		w.wildcards = append(w.wildcards, cur)
		w.trackLeaf(l.Account, l.Category, cur)
		return
	}

	suffix := l.Account
	if l.Category != "" {
		suffix = l.Account + "-" + l.Category
	}
	cur := join(path, suffix)
	w.declare(cur)
	w.trackLeaf(l.Account, l.Category, cur)
}

func (w *definitionWalker) trackLeaf(account, category, path string) {
	key := account + "\x00" + category
	if first, ok := w.leaves[key]; ok {
		w.result.add(SeverityWarning, path, "duplicate-leaf",
			"account %q is also pulled at %q and will be counted twice by enclosing totals", account, first)
		return
	}
	w.leaves[key] = path
}

func (w *definitionWalker) checkTotal(t statement.Total, path string) {
	cur := join(path, t.Name)
	if strings.TrimSpace(t.Name) == "" {
		w.result.add(SeverityError, cur, "group-name", "total has no name")
	}
	if len(t.Total) == 0 {
		w.result.add(SeverityError, cur, "empty-total", "total has no prefixes and will always be zero")
	}

	for _, p := range t.Total {
		prefix := strings.ReplaceAll(p, "/", statement.Delimiter)
		prefix = strings.TrimPrefix(prefix, "-")
		if prefix == "" {
			w.result.add(SeverityError, cur, "empty-total", "total has an empty prefix")
			continue
		}

		if !w.resolves(prefix) {
			w.result.add(SeverityWarning, cur, "unresolved-prefix",
				"prefix %q matches no row declared before this total", p)
			continue
		}

		if strings.HasSuffix(prefix, statement.Delimiter) {
			continue
		}
		for _, d := range w.declared {
			if strings.HasPrefix(d, prefix) && d != prefix && !strings.HasPrefix(d, prefix+statement.Delimiter) {
				w.result.add(SeverityWarning, cur, "ambiguous-prefix",
					"prefix %q also matches %q; end it with \"/\" to match whole segments", p, d)
				break
			}
		}
	}

	w.declare(cur)
}

func (w *definitionWalker) resolves(prefix string) bool {
	for _, d := range w.declared {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	// A prefix reaching below a wildcard header depends on the categories
	// present at generation time.
	for _, wc := range w.wildcards {
		if strings.HasPrefix(prefix, wc+statement.Delimiter) {
			return true
		}
	}
	return false
}

// =============================================================================
// DEPARTMENT VALIDATION
// =============================================================================

// ValidateDepartment checks a department configuration against the set of
// resolvable definitions.
func ValidateDepartment(dept *config.DepartmentConfig, defs *statement.Set) *ValidationResult {
	source := dept.DepartmentCode
	if source == "" {
		source = dept.DepartmentName
	}
	r := &ValidationResult{Source: "department " + source}

	if strings.TrimSpace(dept.DepartmentCode) == "" {
		r.add(SeverityError, "", "department-code", "department has no department_code")
	}
	if len(dept.CostCenters) == 0 {
		r.add(SeverityWarning, "", "cost-centers", "no cost_centers listed; every cost center will be included")
	}
	seen := make(map[string]bool)
	for _, cc := range dept.CostCenters {
		if seen[cc] {
			r.add(SeverityWarning, "", "cost-centers", "cost center %q is listed twice", cc)
		}
		seen[cc] = true
	}

	if _, err := defs.Lookup(dept.Statement); err != nil {
		r.add(SeverityError, "", "statement", "%v", err)
	}

	for _, pattern := range dept.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			r.add(SeverityError, "", "file-pattern", "invalid file_matching_patterns entry %q: %v", pattern, err)
		}
	}

	return r
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation issues for display or logging.
//
// PARAMETERS:
//   - errors: The validation issues to format.
//
// RETURNS:
//   - A formatted string containing all issues.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation issues to a log file.
//
// PARAMETERS:
//   - errors: The validation issues to write.
//   - filePath: The path to the output file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("Income Statement Generator - Validation Log\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString("================================================================================\n\n")
	b.WriteString(FormatErrors(errors))

	if err := os.WriteFile(filePath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}
