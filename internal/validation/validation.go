// Package validation checks model drafts and turns them into entities.
// Every rule runs; problems come back as a list.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
)

// Tolerance is the allowed rounding gap when comparing computed totals.
var Tolerance = decimal.New(1, -2)

// Errors is a list of field problems.
type Errors []common.ValidationError

// Err returns a VALIDATION_ERROR AppError, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return common.NewValidationFailure("validation failed", e)
}

// Report holds blocking Errors and advisory Warnings.
type Report struct {
	Errors   Errors
	Warnings Errors
}

// OK reports whether there are no blocking errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Options tunes the invoice rules.
type Options struct {
	// StrictLineItems makes amount == quantity x unitPrice a blocking rule.
	StrictLineItems bool
}

// collector wraps common.Validator with the amount rules used here.
type collector struct {
	*common.Validator
}

func newCollector() collector {
	return collector{common.NewValidator()}
}

func (c collector) errors() Errors {
	return Errors(c.Errors())
}

// amount returns the value and whether it is usable. Absent values are
// reported as missing unless optional, in which case zero is returned.
func (c collector) amount(field string, a llm.Amount, optional bool) (decimal.Decimal, bool) {
	switch {
	case !a.Present && optional:
		return decimal.Zero, true
	case !a.Present:
		c.Add(field, nil, "is required")
		return decimal.Zero, false
	case !a.Valid:
		c.Add(field, a.Raw, "must be numeric")
		return decimal.Zero, false
	}
	return a.Value, true
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

func indexed(container string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", container, i, field)
}
