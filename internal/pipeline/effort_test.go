package pipeline

import (
	"reflect"
	"testing"

	"bcp-export/internal/domain"
)

func TestFlattenEfforts(t *testing.T) {
	events := []domain.DispositionEvent{
		{
			DebtorID:        "1001",
			ResultDate:      domain.Text("2024-06-03 09:15:00"),
			Agent:           domain.Text("agent07"),
			StatusCode:      domain.Text("PTP - NEW - 15 DAYS"),
			Amount:          domain.Text("12000.00"),
			PTPAmount:       domain.Text("2500.75"),
			PTPDate:         domain.Text("18/06/2024"),
			ClaimPaidAmount: domain.Text("N/A"),
			ClaimPaidDate:   domain.Field{},
			Notes:           domain.Text("promised\nto pay"),
			NumberContacted: domain.Text("09171234567"),
			BarcodedBy:      domain.Text("agent07"),
			ContactSource:   domain.Text("Follow Up"),
		},
		event("1001", "2024-06-02 09:15:00", "ptp", "filtered"),
	}

	rows := FlattenEfforts(events, DefaultNoiseFilter(), nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row; got %d", len(rows))
	}

	want := []string{
		"1001",
		"2024-06-03 09:15:00",
		"agent07",
		"PTP - NEW - 15 DAYS",
		"PTP",
		"15 DAYS",
		"12000.00",
		"2500",
		"2024-06-18",
		"0",
		"",
		"promised to pay",
		"09171234567",
		"agent07",
		"Follow Up",
	}
	if got := rows[0].Values(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v; got %v", want, got)
	}
	if len(rows[0].Values()) != len(EffortColumns) {
		t.Fatalf("values and columns differ in length")
	}
}

func TestWholeAmount(t *testing.T) {
	cases := map[string]int64{
		"100":    100,
		"99.99":  99,
		" 7 ":    7,
		"":       0,
		"abc":    0,
		"NaN":    0,
		"-12.50": -12,
	}
	for in, want := range cases {
		if got := wholeAmount(domain.Text(in)); got != want {
			t.Errorf("wholeAmount(%q): expected %d; got %d", in, want, got)
		}
	}
	if got := wholeAmount(domain.Field{}); got != 0 {
		t.Errorf("null amount: expected 0; got %d", got)
	}
}
