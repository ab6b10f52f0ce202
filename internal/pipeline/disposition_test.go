package pipeline

import (
	"fmt"
	"testing"
	"time"

	"bcp-export/internal/domain"
)

func event(id, at, status, notes string) domain.DispositionEvent {
	return domain.DispositionEvent{
		DebtorID:   id,
		ResultDate: domain.Text(at),
		Agent:      domain.Text("agent01"),
		StatusCode: domain.Text(status),
		Notes:      domain.Text(notes),
	}
}

func TestNoiseFilter_IsNoise(t *testing.T) {
	f := DefaultNoiseFilter()

	cases := []struct {
		name  string
		event domain.DispositionEvent
		noise bool
	}{
		{"ptp upper", event("1", "2024-01-01 10:00:00", "PTP", "promised"), true},
		{"ptp mixed", event("1", "2024-01-01 10:00:00", " Ptp ", "promised"), true},
		{"new", event("1", "2024-01-01 10:00:00", "new", "first call"), true},
		{"none", event("1", "2024-01-01 10:00:00", "NONE", "first call"), true},
		{"denylist phrase", event("1", "2024-01-01 10:00:00", "PAID - FULL", "System Auto Update Remarks For PD"), true},
		{"denylist phrase case", event("1", "2024-01-01 10:00:00", "PAID - FULL", "  system auto update remarks for pd "), true},
		{"blank remark", event("1", "2024-01-01 10:00:00", "PAID - FULL", "   "), true},
		{"null remark", domain.DispositionEvent{DebtorID: "1", StatusCode: domain.Text("PAID")}, true},
		{"blank status", event("1", "2024-01-01 10:00:00", "", "called"), true},
		{"pull out marker", event("1", "2024-01-01 10:00:00", "ACCOUNT - Pull Out", "called"), true},
		{"locked marker", event("1", "2024-01-01 10:00:00", "locked - by admin", "called"), true},
		{"ptp inside code", event("1", "2024-01-01 10:00:00", "PTP - NEW", "promised 5k"), false},
		{"regular", event("1", "2024-01-01 10:00:00", "RPC - CALLBACK", "will call back"), false},
		{"phrase as substring", event("1", "2024-01-01 10:00:00", "RPC - CALLBACK", "Address Updated and confirmed"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.IsNoise(tc.event); got != tc.noise {
				t.Fatalf("expected noise=%v; got %v", tc.noise, got)
			}
		})
	}
}

func TestNoiseFilter_CustomPhrases(t *testing.T) {
	f := NewNoiseFilter([]string{"skip me"}, nil)

	if !f.IsNoise(event("1", "2024-01-01 10:00:00", "RPC", "SKIP ME")) {
		t.Fatal("custom phrase should be noise")
	}
	if f.IsNoise(event("1", "2024-01-01 10:00:00", "ABORT - X", "call")) {
		t.Fatal("markers are not applied when none are configured")
	}
}

func TestNoiseFilter_CleanFlattensNotes(t *testing.T) {
	got := DefaultNoiseFilter().Clean([]domain.DispositionEvent{
		event("1", "2024-01-01 10:00:00", "RPC - CALLBACK", "line one\nline two"),
		event("1", "2024-01-01 10:00:00", "PTP", "dropped"),
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 event; got %d", len(got))
	}
	if got[0].Notes.Value != "line one line two" {
		t.Fatalf("unexpected notes %q", got[0].Notes.Value)
	}
}

func TestSplitStatus(t *testing.T) {
	cases := []struct {
		code, disposition, sub string
	}{
		{"RPC - CALLBACK", "RPC", "CALLBACK"},
		{"RPC - PTP - PARTIAL", "RPC", "PARTIAL"},
		{"BUSY", "BUSY", "BUSY"},
		{"A-B", "A-B", "A-B"},
	}

	for _, tc := range cases {
		d, s := SplitStatus(tc.code)
		if d != tc.disposition || s != tc.sub {
			t.Errorf("SplitStatus(%q): expected (%q, %q); got (%q, %q)", tc.code, tc.disposition, tc.sub, d, s)
		}
	}
}

func TestRankHistory_TopTenNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	var events []domain.DispositionEvent
	for i := 0; i < 15; i++ {
		at := base.Add(time.Duration(i) * time.Hour).Format(resultDateLayout)
		events = append(events, event("D1", at, "RPC - CALLBACK", fmt.Sprintf("call %d", i)))
	}

	got := RankHistory(events, DefaultNoiseFilter(), nil)["D1"]
	if len(got) != HistoryLimit {
		t.Fatalf("expected %d entries; got %d", HistoryLimit, len(got))
	}

	for i, h := range got {
		want := fmt.Sprintf("call %d", 14-i)
		if h.Notes != want {
			t.Fatalf("entry %d: expected %q; got %q", i, want, h.Notes)
		}
		if i > 0 && got[i-1].ResultDate <= h.ResultDate {
			t.Fatalf("entries not strictly descending at %d: %s then %s", i, got[i-1].ResultDate, h.ResultDate)
		}
	}
	if got[len(got)-1].Notes != "call 5" {
		t.Fatalf("expected calls 0-4 to be dropped; oldest kept is %q", got[len(got)-1].Notes)
	}
}

func TestRankHistory_UnparseableDatesSortLast(t *testing.T) {
	events := []domain.DispositionEvent{
		event("D1", "not a date", "RPC - A", "first"),
		event("D1", "2024-01-01 09:00:00", "RPC - B", "second"),
		event("D1", "2024-02-01 09:00:00", "RPC - C", "third"),
	}

	var stats DateStats
	got := RankHistory(events, DefaultNoiseFilter(), &stats)["D1"]

	order := []string{"third", "second", "first"}
	for i, want := range order {
		if got[i].Notes != want {
			t.Fatalf("position %d: expected %q; got %q", i, want, got[i].Notes)
		}
	}
	if got[2].ResultDate != "" {
		t.Fatalf("unparseable result date should render empty; got %q", got[2].ResultDate)
	}
	if stats.UnparseableDates != 1 {
		t.Fatalf("expected 1 unparseable date; got %d", stats.UnparseableDates)
	}
}

func TestRankHistory_EntryFields(t *testing.T) {
	e := domain.DispositionEvent{
		DebtorID:        "D9",
		ResultDate:      domain.Text("2024-03-05T14:07:09"),
		Agent:           domain.Text("jdoe"),
		StatusCode:      domain.Text("PTP - NEW - 30 DAYS"),
		Amount:          domain.Text("15000.50"),
		PTPAmount:       domain.Text("5000"),
		PTPDate:         domain.Text("25/12/2024"),
		ClaimPaidAmount: domain.Field{},
		ClaimPaidDate:   domain.Text("31/02/2024"),
		Notes:           domain.Text("promised"),
		NumberContacted: domain.Text("09171234567"),
		BarcodedBy:      domain.Text("jdoe"),
		ContactSource:   domain.Text("Follow Up"),
	}

	var stats DateStats
	got := RankHistory([]domain.DispositionEvent{e}, DefaultNoiseFilter(), &stats)["D9"]
	if len(got) != 1 {
		t.Fatalf("expected 1 entry; got %d", len(got))
	}

	want := HistoryEntry{
		ResultDate:      "2024-03-05 14:07:09",
		Agent:           "jdoe",
		Disposition:     "PTP",
		SubDisposition:  "30 DAYS",
		Amount:          "15000.50",
		PTPAmount:       "5000",
		PTPDate:         "12/25/24",
		ClaimPaidAmount: "",
		ClaimPaidDate:   "",
		Notes:           "promised",
		NumberContacted: "09171234567",
		BarcodedBy:      "jdoe",
		ContactSource:   "Follow Up",
	}
	if got[0] != want {
		t.Fatalf("expected %+v; got %+v", want, got[0])
	}
	if stats.UnparseableDates != 1 {
		t.Fatalf("expected the invalid claim date to be counted; got %d", stats.UnparseableDates)
	}
}

func TestEncodeHistory_Empty(t *testing.T) {
	if got := encodeHistory(nil); got != "[]" {
		t.Fatalf("expected []; got %s", got)
	}
}
