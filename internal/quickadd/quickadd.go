// Package quickadd resolves the quick-add expense form against the month
// being viewed: which date choices are offered, which dates are accepted,
// and what payload reaches the backend.
package quickadd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Jcruzb/controlants/internal/model"

	"github.com/shopspring/decimal"
)

// DateOption is the user's date choice.
type DateOption string

const (
	OptionToday     DateOption = "today"
	OptionYesterday DateOption = "yesterday"
	OptionCustom    DateOption = "custom"
)

// Label is the Spanish button text for the option.
func (o DateOption) Label() string {
	switch o {
	case OptionToday:
		return "Hoy"
	case OptionYesterday:
		return "Ayer"
	default:
		return "Otra fecha"
	}
}

var (
	ErrInvalidAmount    = errors.New("quickadd: amount must be greater than zero")
	ErrOptionDisabled   = errors.New("quickadd: date option outside the viewed month")
	ErrDateOutOfRange   = errors.New("quickadd: date outside the viewed month")
	ErrMissingDate      = errors.New("quickadd: missing date")
	ErrAmbiguousContext = errors.New("quickadd: context names both a planned and a recurring line")
)

// ValidationError is a precondition failure caught before any request.
// Message is meant to be shown next to Field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err was raised before dispatch.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Range is the inclusive [Min, Max] span of accepted dates.
type Range struct {
	Min time.Time
	Max time.Time
}

// Bounds returns the first and last day of the viewed month.
func Bounds(p model.Period) Range {
	first, last := p.Bounds()
	return Range{Min: first, Max: last}
}

// MinDate is the ISO first day.
func (r Range) MinDate() string { return r.Min.Format(model.ISODate) }

// MaxDate is the ISO last day.
func (r Range) MaxDate() string { return r.Max.Format(model.ISODate) }

// Contains compares calendar days only.
func (r Range) Contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(r.Min) && !day.After(r.Max)
}

// Availability says which relative options fall inside the viewed month.
type Availability struct {
	Today     bool
	Yesterday bool
}

// Available evaluates today and yesterday, in now's location, against p.
func Available(p model.Period, now time.Time) Availability {
	return Availability{
		Today:     p.Contains(now),
		Yesterday: p.Contains(now.AddDate(0, 0, -1)),
	}
}

// Enabled reports whether opt can be chosen.
func (a Availability) Enabled(opt DateOption) bool {
	switch opt {
	case OptionToday:
		return a.Today
	case OptionYesterday:
		return a.Yesterday
	case OptionCustom:
		return true
	}
	return false
}

// Options lists the selectable options in display order.
func (a Availability) Options() []DateOption {
	opts := make([]DateOption, 0, 3)
	if a.Today {
		opts = append(opts, OptionToday)
	}
	if a.Yesterday {
		opts = append(opts, OptionYesterday)
	}
	return append(opts, OptionCustom)
}

// DefaultOption is today when available, otherwise a custom date.
func (a Availability) DefaultOption() DateOption {
	if a.Today {
		return OptionToday
	}
	return OptionCustom
}

// DefaultCustomDate prefills the custom date: today if it is in the month,
// otherwise the first day of the month.
func DefaultCustomDate(p model.Period, now time.Time) string {
	if p.Contains(now) {
		return now.Format(model.ISODate)
	}
	return Bounds(p).MinDate()
}

// Context identifies the budget line the form was opened from.
// At most one of PlannedExpenseID and RecurringPaymentID is set.
type Context struct {
	Name               string
	Kind               model.LineKind
	Icon               string
	CategoryID         model.Ref
	PlannedExpenseID   *int64
	RecurringPaymentID *int64
}

// ContextFor builds the context of a snapshot line.
func ContextFor(line model.BudgetLine) Context {
	id := line.ID
	c := Context{
		Name:       line.Title(),
		Kind:       line.Kind,
		CategoryID: line.Category,
	}
	if line.Kind == model.KindRecurring {
		c.Icon = "🔁"
		c.RecurringPaymentID = &id
	} else {
		c.Icon = "🛒"
		c.PlannedExpenseID = &id
	}
	return c
}

// Payload is the resolved, validated submission.
type Payload struct {
	Amount             decimal.Decimal
	Date               string
	Note               string
	CategoryID         model.Ref
	PlannedExpenseID   *int64
	RecurringPaymentID *int64
}

// Expense converts the payload into the POST /expenses/ body.
func (p Payload) Expense() model.ExpenseCreate {
	return model.ExpenseCreate{
		Description:      p.Note,
		Amount:           p.Amount,
		Category:         p.CategoryID,
		Date:             p.Date,
		PlannedExpense:   p.PlannedExpenseID,
		RecurringPayment: p.RecurringPaymentID,
	}
}

// ParseAmount accepts "12.5" and "12,5" and requires a strictly positive value.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "El importe debe ser mayor que 0", Err: ErrInvalidAmount}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "El importe debe ser mayor que 0", Err: ErrInvalidAmount}
	}
	return d, nil
}

// Form holds the raw field values.
type Form struct {
	Amount     string
	Option     DateOption
	CustomDate string
	Note       string
}

// NewForm returns a form in its default state for the viewed month.
func NewForm(p model.Period, now time.Time) Form {
	var f Form
	f.Reset(p, now)
	return f
}

// Reset clears amount and note and restores the default date choice.
func (f *Form) Reset(p model.Period, now time.Time) {
	f.Amount = ""
	f.Note = ""
	f.Option = Available(p, now).DefaultOption()
	f.CustomDate = DefaultCustomDate(p, now)
}

// Resolve validates the form for period p and builds the payload.
// Relative options resolve to the real calendar day and are accepted only
// when that day lies in p, so every payload date lies in p.
func (f Form) Resolve(p model.Period, qc Context, now time.Time) (Payload, error) {
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return Payload{}, err
	}
	if qc.PlannedExpenseID != nil && qc.RecurringPaymentID != nil {
		return Payload{}, &ValidationError{Field: "context", Message: "El gasto no puede ser planificado y fijo a la vez", Err: ErrAmbiguousContext}
	}

	date, err := f.resolveDate(p, now)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Amount:             amount,
		Date:               date,
		Note:               strings.TrimSpace(f.Note),
		CategoryID:         qc.CategoryID,
		PlannedExpenseID:   qc.PlannedExpenseID,
		RecurringPaymentID: qc.RecurringPaymentID,
	}, nil
}

func (f Form) resolveDate(p model.Period, now time.Time) (string, error) {
	rng := Bounds(p)
	avail := Available(p, now)

	switch f.Option {
	case OptionToday, "":
		if !avail.Today {
			return "", &ValidationError{Field: "date", Message: "Hoy no pertenece a " + p.Label(), Err: ErrOptionDisabled}
		}
		return now.Format(model.ISODate), nil
	case OptionYesterday:
		if !avail.Yesterday {
			return "", &ValidationError{Field: "date", Message: "Ayer no pertenece a " + p.Label(), Err: ErrOptionDisabled}
		}
		return now.AddDate(0, 0, -1).Format(model.ISODate), nil
	case OptionCustom:
		return ValidateCustomDate(rng, f.CustomDate)
	}
	return "", &ValidationError{Field: "date", Message: "Opción de fecha desconocida", Err: ErrMissingDate}
}

// ValidateCustomDate checks an ISO date against the range and returns it normalized.
func ValidateCustomDate(rng Range, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "date", Message: "Elige una fecha", Err: ErrMissingDate}
	}
	d, err := time.Parse(model.ISODate, s)
	if err != nil {
		return "", &ValidationError{Field: "date", Message: "La fecha debe tener el formato AAAA-MM-DD", Err: ErrMissingDate}
	}
	if !rng.Contains(d) {
		return "", &ValidationError{
			Field:   "date",
			Message: "La fecha debe estar entre " + rng.MinDate() + " y " + rng.MaxDate(),
			Err:     ErrDateOutOfRange,
		}
	}
	return d.Format(model.ISODate), nil
}

// Submitter delivers a payload, typically to the budget coordinator.
type Submitter func(ctx context.Context, p Payload) error

// Submit resolves the form and hands the payload to submit. Validation
// failures never reach submit. The form is reset only after submit succeeds,
// so a failed submission keeps the user's input.
func (f *Form) Submit(ctx context.Context, p model.Period, qc Context, now time.Time, submit Submitter) error {
	payload, err := f.Resolve(p, qc, now)
	if err != nil {
		return err
	}
	if err := submit(ctx, payload); err != nil {
		return err
	}
	f.Reset(p, now)
	return nil
}
