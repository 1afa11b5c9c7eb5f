package budget

import (
	"math"
	"testing"

	"github.com/Jcruzb/controlants/internal/model"

	"github.com/shopspring/decimal"
)

func TestClampPercentStaysInRange(t *testing.T) {
	inputs := []float64{
		math.Inf(-1), -1e9, -0.01, 0, 42.5, 99.999, 100, 100.01, 1e12, math.Inf(1), math.NaN(),
	}
	for _, in := range inputs {
		got := ClampPercent(in)
		if got < 0 || got > 100 || math.IsNaN(got) {
			t.Fatalf("ClampPercent(%v) = %v, outside [0,100]", in, got)
		}
	}
	if ClampPercent(42.5) != 42.5 {
		t.Fatal("in-range value altered")
	}
}

func TestOverSnapshotScenario(t *testing.T) {
	snap := &model.BudgetSnapshot{
		Status:          model.StatusOver,
		TotalPlanned:    decimal.NewFromInt(500),
		TotalSpent:      decimal.NewFromInt(620),
		RemainingAmount: decimal.NewFromInt(-120),
	}
	v := PresentSnapshot(snap)
	if v.StatusText != "Te has pasado este mes" {
		t.Fatalf("status text = %q", v.StatusText)
	}
	if v.Tone != ToneOver || v.Tone.String() != "red" {
		t.Fatalf("tone = %v", v.Tone)
	}
	if v.Remaining != "-120,00 €" {
		t.Fatalf("remaining = %q", v.Remaining)
	}
	if v.UnplannedText != "" {
		t.Fatalf("unplanned text shown for zero total: %q", v.UnplannedText)
	}
}

func TestStatusTexts(t *testing.T) {
	tests := []struct {
		status   model.Status
		headline string
		hint     string
		tone     Tone
	}{
		{model.StatusOK, "Vas bien este mes", "Vas bien", ToneOK},
		{model.StatusWarning, "Ojo, estás cerca del límite", "Ojo, te queda poco margen", ToneWarning},
		{model.StatusOver, "Te has pasado este mes", "Te has pasado", ToneOver},
		{"mystery", "Vas bien este mes", "Vas bien", ToneOK},
	}
	for _, tt := range tests {
		if got := StatusText(tt.status); got != tt.headline {
			t.Errorf("StatusText(%q) = %q, want %q", tt.status, got, tt.headline)
		}
		st := StyleFor(tt.status)
		if st.HintText != tt.hint || st.Badge != tt.tone || st.Bar != tt.tone || st.Hint != tt.tone {
			t.Errorf("StyleFor(%q) = %+v", tt.status, st)
		}
	}
}

func TestPresentLineHints(t *testing.T) {
	ok := PresentLine(model.BudgetLine{
		ID:              1,
		Category:        "Alimentación",
		Kind:            model.KindPlanned,
		PlannedAmount:   decimal.NewFromInt(200),
		SpentAmount:     decimal.NewFromInt(50),
		RemainingAmount: decimal.NewFromInt(150),
		PercentageUsed:  decimal.NewFromInt(25),
		Status:          model.StatusOK,
	})
	if ok.Hint != "Te quedan 150,00 €" {
		t.Errorf("hint = %q", ok.Hint)
	}
	if ok.SpentLabel != "50,00 € / 200,00 €" {
		t.Errorf("spent label = %q", ok.SpentLabel)
	}
	if ok.ProgressLabel != "25.00%" || ok.Fixed {
		t.Errorf("line view = %+v", ok)
	}

	over := PresentLine(model.BudgetLine{
		ID:              2,
		Name:            "Gimnasio",
		Kind:            model.KindRecurring,
		RemainingAmount: decimal.NewFromInt(-5),
		PercentageUsed:  decimal.NewFromInt(160),
		Status:          model.StatusOver,
	})
	if over.Hint != "Te has pasado" {
		t.Errorf("over hint = %q", over.Hint)
	}
	if over.Progress != 100 || !over.Fixed || over.Title != "Gimnasio" {
		t.Errorf("over view = %+v", over)
	}
	if over.Context.RecurringPaymentID == nil || *over.Context.RecurringPaymentID != 2 {
		t.Errorf("context = %+v", over.Context)
	}

	zero := RemainingHint(decimal.Zero, StyleFor(model.StatusWarning))
	if zero != "Te quedan 0,00 €" {
		t.Errorf("zero remaining hint = %q", zero)
	}
}

func TestUnplannedSummary(t *testing.T) {
	v := PresentSnapshot(&model.BudgetSnapshot{UnplannedTotal: decimal.RequireFromString("35.5")})
	if v.UnplannedText != "Gastos no planificados este mes: 35,50 €" {
		t.Fatalf("unplanned = %q", v.UnplannedText)
	}
}
