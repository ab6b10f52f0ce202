package pipeline

import (
	"sort"
	"strings"
	"time"

	"bcp-export/internal/domain"
)

// HistoryLimit is the number of dispositions kept per debtor.
const HistoryLimit = 10

const statusDelimiter = " - "

// DefaultNoisePhrases are remarks written by the collection system itself.
var DefaultNoisePhrases = []string{
	"System Auto Update Remarks For PD",
	"System Auto Update Remarks",
	"Account Reassigned By System",
	"Account has been reassigned",
	"Contact Number Updated",
	"New Contact Number Added",
	"Address Updated",
	"Broken Promise",
	"PTP Broken - System Generated",
	"Auto Update Status",
}

// DefaultStatusMarkers flag administrative status codes.
var DefaultStatusMarkers = []string{
	"ABORT",
	"REACTIVE",
	"PULLOUT",
	"PULL OUT",
	"HOLD EFFORT",
	"LOCKED",
}

var ignoredStatuses = map[string]struct{}{
	"new":  {},
	"ptp":  {},
	"none": {},
}

var historyKeys = []string{
	"RESULT DATE",
	"AGENT",
	"DISPOSITION",
	"SUB DISPOSITION",
	"AMOUNT",
	"PTP AMOUNT",
	"PTP DATE",
	"CLAIM PAID AMOUNT",
	"CLAIM PAID DATE",
	"NOTES",
	"NUMBER CONTACTED",
	"BARCODED BY",
	"CONTACT SOURCE",
}

// NoiseFilter drops system generated and administrative dispositions.
type NoiseFilter struct {
	phrases map[string]struct{}
	markers []string
}

func NewNoiseFilter(phrases, markers []string) NoiseFilter {
	f := NoiseFilter{phrases: make(map[string]struct{}, len(phrases))}
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			f.phrases[strings.ToLower(p)] = struct{}{}
		}
	}
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			f.markers = append(f.markers, strings.ToUpper(m))
		}
	}
	return f
}

func DefaultNoiseFilter() NoiseFilter {
	return NewNoiseFilter(DefaultNoisePhrases, DefaultStatusMarkers)
}

func (f NoiseFilter) IsNoise(e domain.DispositionEvent) bool {
	remark := strings.TrimSpace(e.Notes.String())
	if remark == "" {
		return true
	}
	if _, ok := f.phrases[strings.ToLower(remark)]; ok {
		return true
	}

	status := strings.TrimSpace(e.StatusCode.String())
	if status == "" {
		return true
	}
	if _, ok := ignoredStatuses[strings.ToLower(status)]; ok {
		return true
	}
	upper := strings.ToUpper(status)
	for _, m := range f.markers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// Clean returns the events that survive the filter, notes flattened to a
// single line.
func (f NoiseFilter) Clean(events []domain.DispositionEvent) []domain.DispositionEvent {
	out := make([]domain.DispositionEvent, 0, len(events))
	for _, e := range events {
		if f.IsNoise(e) {
			continue
		}
		e.Notes.Value = strings.ReplaceAll(e.Notes.Value, "\n", " ")
		out = append(out, e)
	}
	return out
}

// SplitStatus returns the text before the first and after the last
// delimiter. Without a delimiter both parts are the whole code.
func SplitStatus(code string) (disposition, sub string) {
	disposition = code
	if i := strings.Index(code, statusDelimiter); i >= 0 {
		disposition = code[:i]
	}
	sub = code
	if i := strings.LastIndex(code, statusDelimiter); i >= 0 {
		sub = code[i+len(statusDelimiter):]
	}
	return disposition, sub
}

// HistoryEntry is one rendered element of history_information.
type HistoryEntry struct {
	ResultDate      string
	Agent           string
	Disposition     string
	SubDisposition  string
	Amount          string
	PTPAmount       string
	PTPDate         string
	ClaimPaidAmount string
	ClaimPaidDate   string
	Notes           string
	NumberContacted string
	BarcodedBy      string
	ContactSource   string
}

func (h HistoryEntry) values() []string {
	return []string{
		h.ResultDate,
		h.Agent,
		h.Disposition,
		h.SubDisposition,
		h.Amount,
		h.PTPAmount,
		h.PTPDate,
		h.ClaimPaidAmount,
		h.ClaimPaidDate,
		h.Notes,
		h.NumberContacted,
		h.BarcodedBy,
		h.ContactSource,
	}
}

func (h HistoryEntry) object() jsonObject {
	obj := make(jsonObject, 0, len(historyKeys))
	for i, v := range h.values() {
		obj = append(obj, jsonField{Key: historyKeys[i], Value: v})
	}
	return obj
}

// DateStats counts dates that could not be parsed and were blanked.
type DateStats struct {
	UnparseableDates int
}

func (s *DateStats) reformat(f domain.Field, parse func(string) (time.Time, bool), layout string) string {
	if !f.Valid || strings.TrimSpace(f.Value) == "" {
		return ""
	}
	out, ok := reformat(f.Value, parse, layout)
	if !ok && s != nil {
		s.UnparseableDates++
	}
	return out
}

func newHistoryEntry(e domain.DispositionEvent, stats *DateStats) HistoryEntry {
	disposition, sub := "", ""
	if e.StatusCode.Valid {
		disposition, sub = SplitStatus(e.StatusCode.Value)
	}
	return HistoryEntry{
		ResultDate:      stats.reformat(e.ResultDate, parseTimestamp, resultDateLayout),
		Agent:           e.Agent.String(),
		Disposition:     disposition,
		SubDisposition:  sub,
		Amount:          e.Amount.String(),
		PTPAmount:       e.PTPAmount.String(),
		PTPDate:         stats.reformat(e.PTPDate, parseDayFirst, shortDateLayout),
		ClaimPaidAmount: e.ClaimPaidAmount.String(),
		ClaimPaidDate:   stats.reformat(e.ClaimPaidDate, parseDayFirst, shortDateLayout),
		Notes:           e.Notes.String(),
		NumberContacted: e.NumberContacted.String(),
		BarcodedBy:      e.BarcodedBy.String(),
		ContactSource:   e.ContactSource.String(),
	}
}

type rankedEvent struct {
	event domain.DispositionEvent
	at    time.Time
	ok    bool
}

// sortNewestFirst orders events by result date descending. Events with an
// unparseable date keep their relative order after the dated ones.
func sortNewestFirst(events []domain.DispositionEvent) []domain.DispositionEvent {
	ranked := make([]rankedEvent, len(events))
	for i, e := range events {
		at, ok := parseTimestamp(e.ResultDate.String())
		ranked[i] = rankedEvent{event: e, at: at, ok: ok}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ok != ranked[j].ok {
			return ranked[i].ok
		}
		return ranked[i].at.After(ranked[j].at)
	})

	out := make([]domain.DispositionEvent, len(ranked))
	for i, r := range ranked {
		out[i] = r.event
	}
	return out
}

// RankHistory filters the events and returns, per debtor, at most
// HistoryLimit entries newest first.
func RankHistory(events []domain.DispositionEvent, filter NoiseFilter, stats *DateStats) map[string][]HistoryEntry {
	return rankCleaned(filter.Clean(events), stats)
}

func rankCleaned(events []domain.DispositionEvent, stats *DateStats) map[string][]HistoryEntry {
	grouped := make(map[string][]HistoryEntry)
	for _, e := range sortNewestFirst(events) {
		if len(grouped[e.DebtorID]) >= HistoryLimit {
			continue
		}
		grouped[e.DebtorID] = append(grouped[e.DebtorID], newHistoryEntry(e, stats))
	}
	return grouped
}

func encodeHistory(entries []HistoryEntry) string {
	objs := make([]jsonObject, 0, len(entries))
	for _, h := range entries {
		objs = append(objs, h.object())
	}
	return encodeObjects(objs)
}
