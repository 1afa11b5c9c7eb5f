package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Jcruzb/controlants/internal/api"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/shopspring/decimal"
)

func TestExpenseInput(t *testing.T) {
	now := time.Date(2024, time.March, 3, 9, 0, 0, 0, time.Local)

	in, err := expenseInput("12,50", " 4 ", " Cine ", "", now)
	if err != nil {
		t.Fatalf("expenseInput: %v", err)
	}
	if !in.Amount.Equal(decimal.RequireFromString("12.5")) || in.Category != "4" || in.Date != "2024-03-03" || in.Description != "Cine" {
		t.Fatalf("body = %+v", in)
	}
	if in.PlannedExpense != nil || in.RecurringPayment != nil {
		t.Fatal("freestanding expense carries a line id")
	}

	if _, err := expenseInput("0", "4", "", "", now); !errors.Is(err, quickadd.ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v", err)
	}
	if _, err := expenseInput("5", "  ", "", "", now); err == nil {
		t.Fatal("missing category accepted")
	}
	if _, err := expenseInput("5", "4", "", "03/03/2024", now); err == nil {
		t.Fatal("bad date accepted")
	}
}

func TestDateOption(t *testing.T) {
	avail := quickadd.Availability{Today: true, Yesterday: true}
	tests := []struct {
		raw    string
		opt    quickadd.DateOption
		custom string
	}{
		{"", quickadd.OptionToday, ""},
		{"hoy", quickadd.OptionToday, ""},
		{"Yesterday", quickadd.OptionYesterday, ""},
		{"2024-02-03", quickadd.OptionCustom, "2024-02-03"},
	}
	for _, tt := range tests {
		opt, custom := dateOption(tt.raw, avail)
		if opt != tt.opt || custom != tt.custom {
			t.Errorf("dateOption(%q) = %q, %q", tt.raw, opt, custom)
		}
	}
	if opt, _ := dateOption("", quickadd.Availability{}); opt != quickadd.OptionCustom {
		t.Fatalf("past month default = %q, want custom", opt)
	}
}

func TestValidateRecurringCollectsProblems(t *testing.T) {
	end := "2024-01-01"
	err := validateRecurring(model.RecurringPaymentInput{
		DueDay:    32,
		StartDate: "2024-02-01",
		EndDate:   &end,
	})
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"name is required", "amount must be greater than 0", "due day 32", "category is required", "end date is before start date"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	ok := model.RecurringPaymentInput{
		Name:      "Gimnasio",
		Amount:    decimal.NewFromInt(30),
		DueDay:    5,
		Category:  "2",
		StartDate: "2024-01-01",
	}
	if err := validateRecurring(ok); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestPlanCreate(t *testing.T) {
	in, err := planCreate("1", "Supermercado", "one_month", 12, "200")
	if err != nil {
		t.Fatalf("planCreate: %v", err)
	}
	if in.PlanType != model.PlanOneMonth || in.StartMonth != 12 || !in.PlannedAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("body = %+v", in)
	}

	_, err = planCreate("", "", "WEEKLY", 0, "-1")
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"category is required", "name is required", "WEEKLY", "start month"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDescribeErrorHints(t *testing.T) {
	forbidden := &api.RequestError{Method: "GET", Path: "budget/", Status: 403}
	if got := describeError(forbidden); !strings.Contains(got, "session cookie") {
		t.Fatalf("403 hint missing: %q", got)
	}

	network := &api.NetworkError{Method: "GET", Path: "budget/", Message: "connection refused"}
	if got := describeError(network); !strings.Contains(got, "--api-url") {
		t.Fatalf("network hint missing: %q", got)
	}

	_, verr := quickadd.ParseAmount("0")
	if got := describeError(verr); got != "El importe debe ser mayor que 0" {
		t.Fatalf("validation message = %q", got)
	}
}

func TestReportErrorSkipsPrintedFailures(t *testing.T) {
	loadErr := &api.NetworkError{Method: "GET", Path: "budget/", Message: "connection refused"}

	var buf bytes.Buffer
	reportError(&buf, loadErr)
	if strings.Count(buf.String(), "--api-url") != 1 {
		t.Fatalf("unreported error output = %q", buf.String())
	}

	buf.Reset()
	reportError(&buf, fmt.Errorf("%w: %w", errReported, loadErr))
	if buf.Len() != 0 {
		t.Fatalf("banner error printed twice: %q", buf.String())
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"watch", "--detach", "--addr", ":9000", "--detach=true"})
	if strings.Join(got, " ") != "watch --addr :9000" {
		t.Fatalf("args = %v", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("abcdefghijklmnopqrstuvwxyz"); got != "abcdefgh...wxyz" {
		t.Fatalf("long = %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Fatalf("short = %q", got)
	}
}
