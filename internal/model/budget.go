package model

import "github.com/shopspring/decimal"

// Status is the server-side classification of spend against plan.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusOver    Status = "over"
)

// LineKind distinguishes planned allocations from recurring payments.
type LineKind string

const (
	KindPlanned   LineKind = "planned"
	KindRecurring LineKind = "recurring"
)

// BudgetLine is one planned or recurring entry of a BudgetSnapshot.
// PercentageUsed is authoritative and never derived from the amounts.
type BudgetLine struct {
	ID              int64           `json:"id"`
	Category        Ref             `json:"category,omitempty"`
	Name            string          `json:"name,omitempty"`
	PlannedAmount   decimal.Decimal `json:"planned_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PercentageUsed  decimal.Decimal `json:"percentage_used"`
	Status          Status          `json:"status"`

	Kind LineKind `json:"-"`
}

// Title is the category for planned lines and the payment name for recurring ones.
func (l BudgetLine) Title() string {
	if l.Kind == KindRecurring {
		return l.Name
	}
	if l.Category != "" {
		return string(l.Category)
	}
	return l.Name
}

// BudgetSnapshot is the server-computed budget for one month.
// RemainingAmount is displayed as received; the client never recomputes it.
type BudgetSnapshot struct {
	Status          Status          `json:"status"`
	TotalPlanned    decimal.Decimal `json:"total_planned"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Planned         []BudgetLine    `json:"planned"`
	Recurring       []BudgetLine    `json:"recurring"`
	UnplannedTotal  decimal.Decimal `json:"unplanned_total"`
}

// Normalize tags every line with its kind. Decoders call it once after unmarshalling.
func (s *BudgetSnapshot) Normalize() {
	for i := range s.Planned {
		s.Planned[i].Kind = KindPlanned
	}
	for i := range s.Recurring {
		s.Recurring[i].Kind = KindRecurring
	}
}

// Lines returns planned lines followed by recurring lines.
func (s *BudgetSnapshot) Lines() []BudgetLine {
	if s == nil {
		return nil
	}
	lines := make([]BudgetLine, 0, len(s.Planned)+len(s.Recurring))
	lines = append(lines, s.Planned...)
	lines = append(lines, s.Recurring...)
	return lines
}

// FindLine looks up a line by kind and id.
func (s *BudgetSnapshot) FindLine(kind LineKind, id int64) (BudgetLine, bool) {
	for _, l := range s.Lines() {
		if l.Kind == kind && l.ID == id {
			return l, true
		}
	}
	return BudgetLine{}, false
}
