package budget

import (
	"math"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/shopspring/decimal"
)

// LoadErrorText is the banner shown when the snapshot cannot be fetched.
const LoadErrorText = "No se pudo cargar el presupuesto"

// Tone is the visual severity of a status.
type Tone int

const (
	ToneOK Tone = iota
	ToneWarning
	ToneOver
)

// String returns the palette name used by the web client: emerald, amber, red.
func (t Tone) String() string {
	switch t {
	case ToneOver:
		return "red"
	case ToneWarning:
		return "amber"
	default:
		return "emerald"
	}
}

// ToneFor maps a server status to a tone. Unknown statuses read as ok.
func ToneFor(s model.Status) Tone {
	switch s {
	case model.StatusOver:
		return ToneOver
	case model.StatusWarning:
		return ToneWarning
	default:
		return ToneOK
	}
}

// Style is the (badge, bar, hint) triple for a line.
type Style struct {
	Badge    Tone
	Bar      Tone
	Hint     Tone
	HintText string
}

// StyleFor returns the line style for a status.
func StyleFor(s model.Status) Style {
	tone := ToneFor(s)
	st := Style{Badge: tone, Bar: tone, Hint: tone}
	switch tone {
	case ToneOver:
		st.HintText = "Te has pasado"
	case ToneWarning:
		st.HintText = "Ojo, te queda poco margen"
	default:
		st.HintText = "Vas bien"
	}
	return st
}

// StatusText is the month-level headline for a snapshot status.
func StatusText(s model.Status) string {
	switch ToneFor(s) {
	case ToneOver:
		return "Te has pasado este mes"
	case ToneWarning:
		return "Ojo, estás cerca del límite"
	default:
		return "Vas bien este mes"
	}
}

// ClampPercent bounds a percentage to [0, 100] for progress bars.
func ClampPercent(pct float64) float64 {
	switch {
	case math.IsNaN(pct), pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// LineView is everything needed to draw one budget line.
type LineView struct {
	ID            int64
	Kind          model.LineKind
	Title         string
	Icon          string
	Fixed         bool // recurring lines carry a "Fijo" badge
	Style         Style
	Progress      float64
	ProgressLabel string
	SpentLabel    string
	Hint          string
	Context       quickadd.Context
}

// PresentLine maps a snapshot line to its display form.
func PresentLine(l model.BudgetLine) LineView {
	st := StyleFor(l.Status)
	qc := quickadd.ContextFor(l)
	pct := ClampPercent(l.PercentageUsed.InexactFloat64())

	v := LineView{
		ID:            l.ID,
		Kind:          l.Kind,
		Title:         l.Title(),
		Icon:          qc.Icon,
		Fixed:         l.Kind == model.KindRecurring,
		Style:         st,
		Progress:      pct,
		ProgressLabel: cli.FormatPercent(pct),
		SpentLabel:    cli.FormatEuro(l.SpentAmount) + " / " + cli.FormatEuro(l.PlannedAmount),
		Context:       qc,
	}
	v.Hint = RemainingHint(l.RemainingAmount, st)
	return v
}

// RemainingHint shows what is left when non-negative, else the status hint.
func RemainingHint(remaining decimal.Decimal, st Style) string {
	if !remaining.IsNegative() {
		return "Te quedan " + cli.FormatEuro(remaining)
	}
	return st.HintText
}

// SnapshotView is the rendered form of a whole month.
type SnapshotView struct {
	Tone          Tone
	StatusText    string
	Spent         string
	Remaining     string
	Planned       string
	PlannedLines  []LineView
	FixedLines    []LineView
	UnplannedText string
}

// PresentSnapshot maps a snapshot to its display form. Totals are shown
// exactly as the server computed them.
func PresentSnapshot(s *model.BudgetSnapshot) SnapshotView {
	if s == nil {
		return SnapshotView{}
	}
	v := SnapshotView{
		Tone:       ToneFor(s.Status),
		StatusText: StatusText(s.Status),
		Spent:      cli.FormatEuro(s.TotalSpent),
		Remaining:  cli.FormatEuro(s.RemainingAmount),
		Planned:    cli.FormatEuro(s.TotalPlanned),
	}
	for _, l := range s.Planned {
		v.PlannedLines = append(v.PlannedLines, PresentLine(l))
	}
	for _, l := range s.Recurring {
		v.FixedLines = append(v.FixedLines, PresentLine(l))
	}
	if s.UnplannedTotal.IsPositive() {
		v.UnplannedText = "Gastos no planificados este mes: " + cli.FormatEuro(s.UnplannedTotal)
	}
	return v
}
