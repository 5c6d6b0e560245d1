package journal

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/cleared-dev/ledger/internal/calc"
	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/model"
)

// LineError describes a single rule a line item breaks.
type LineError struct {
	Line        int
	Description string
}

func (e LineError) Error() string {
	if e.Line == 0 {
		return e.Description
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Description)
}

// ValidateLines checks the rules an entry must satisfy before anything is
// written: at least two lines, every line with an account, a known side and a
// positive amount, and debits equal to credits within calc.BalanceTolerance.
// All violations are reported together, wrapped in errs.ErrValidationFailed.
func ValidateLines(lines []model.LineItem) error {
	var result *multierror.Error

	if len(lines) < 2 {
		result = multierror.Append(result, LineError{Description: fmt.Sprintf("entry needs at least 2 lines, got %d", len(lines))})
	}

	for i, l := range lines {
		n := i + 1
		if l.AccountID == 0 {
			result = multierror.Append(result, LineError{Line: n, Description: "missing account"})
		}
		if _, err := model.ParseEntryType(string(l.EntryType)); err != nil {
			result = multierror.Append(result, LineError{Line: n, Description: err.Error()})
		}
		if !l.Amount.IsPositive() {
			result = multierror.Append(result, LineError{Line: n, Description: fmt.Sprintf("amount %s must be positive", l.Amount)})
		}
	}

	if !calc.IsBalanced(lines) {
		result = multierror.Append(result, LineError{Description: fmt.Sprintf("debits (%s) != credits (%s)",
			calc.TotalDebits(lines).StringFixed(2), calc.TotalCredits(lines).StringFixed(2))})
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = joinErrors
	return fmt.Errorf("%w: %w", errs.ErrValidationFailed, result)
}

func joinErrors(es []error) string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
