// Package bankimport turns bank statement CSV exports into journal entries.
package bankimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatementLine is one row of a bank statement. Positive amounts are money
// in, negative amounts money out.
type StatementLine struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// Parser converts a statement export into StatementLines.
type Parser interface {
	Parse(r io.Reader) ([]StatementLine, error)
	Format() string
}

// Registry holds parsers by format name.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		names = append(names, k)
	}
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&SimpleParser{})
	return r
}

// columns maps lower-cased header names to their index.
type columns map[string]int

func readHeader(cr *csv.Reader) (columns, error) {
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols, nil
}

func (c columns) require(names ...string) error {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return fmt.Errorf("missing column %q", n)
		}
	}
	return nil
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseRows reads every data row after the header and converts it with fn.
func parseRows(r io.Reader, required []string, fn func(columns, []string) (StatementLine, error)) ([]StatementLine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	cols, err := readHeader(cr)
	if err != nil || cols == nil {
		return nil, err
	}
	if err := cols.require(required...); err != nil {
		return nil, err
	}

	var lines []StatementLine
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		l, err := fn(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		lines = append(lines, l)
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return amt, nil
}

// ChaseParser parses Chase checking CSV exports.
type ChaseParser struct{}

const chaseDateFormat = "01/02/2006"

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase export. The posting date, description and amount
// columns are located by header name.
func (p *ChaseParser) Parse(r io.Reader) ([]StatementLine, error) {
	return parseRows(r, []string{"posting date", "description", "amount"}, func(c columns, rec []string) (StatementLine, error) {
		date, err := time.Parse(chaseDateFormat, c.get(rec, "posting date"))
		if err != nil {
			return StatementLine{}, fmt.Errorf("parsing date %q: %w", c.get(rec, "posting date"), err)
		}
		amt, err := parseAmount(c.get(rec, "amount"))
		if err != nil {
			return StatementLine{}, err
		}
		desc := c.get(rec, "description")
		ref := c.get(rec, "check or slip #")
		if ref == "" {
			ref = makeRef("chase", date, desc, amt)
		}
		return StatementLine{Date: date, Description: desc, Amount: amt, Reference: ref}, nil
	})
}

// SimpleParser reads "date,description,amount[,reference]" with ISO dates.
type SimpleParser struct{}

// Format returns the parser name.
func (p *SimpleParser) Format() string { return "simple" }

// Parse reads a simple export.
func (p *SimpleParser) Parse(r io.Reader) ([]StatementLine, error) {
	return parseRows(r, []string{"date", "description", "amount"}, func(c columns, rec []string) (StatementLine, error) {
		date, err := time.Parse("2006-01-02", c.get(rec, "date"))
		if err != nil {
			return StatementLine{}, fmt.Errorf("parsing date %q: %w", c.get(rec, "date"), err)
		}
		amt, err := parseAmount(c.get(rec, "amount"))
		if err != nil {
			return StatementLine{}, err
		}
		desc := c.get(rec, "description")
		ref := c.get(rec, "reference")
		if ref == "" {
			ref = makeRef("bank", date, desc, amt)
		}
		return StatementLine{Date: date, Description: desc, Amount: amt, Reference: ref}, nil
	})
}

// makeRef builds a stable reference like chase_20250103_GITHUBPROS_-4.00
// so re-importing the same statement can be detected.
func makeRef(source string, date time.Time, desc string, amt decimal.Decimal) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s_%s_%s_%s", source, date.Format("20060102"), prefix, amt.StringFixed(2))
}
