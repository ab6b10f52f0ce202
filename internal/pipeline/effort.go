package pipeline

import (
	"math"
	"strconv"
	"strings"

	"bcp-export/internal/domain"
)

// EffortColumns is the column order of the efforts export.
var EffortColumns = []string{
	"ch_code",
	"BARCODE DATE",
	"AGENT",
	"STATUS CODE",
	"DISPOSITION",
	"SUB DISPOSITION",
	"AMOUNT",
	"PTP AMOUNT",
	"PTP DATE",
	"CLAIM PAID AMOUNT",
	"CLAIM PAID DATE",
	"REMARKS",
	"NUMBER CONTACTED",
	"BARCODED BY",
	"CONTACT SOURCE",
}

// EffortRow is one cleaned disposition flattened for the efforts export.
type EffortRow struct {
	ChCode          string
	BarcodeDate     string
	Agent           string
	StatusCode      string
	Disposition     string
	SubDisposition  string
	Amount          string
	PTPAmount       int64
	PTPDate         string
	ClaimPaidAmount int64
	ClaimPaidDate   string
	Remarks         string
	NumberContacted string
	BarcodedBy      string
	ContactSource   string
}

func (r EffortRow) Values() []string {
	return []string{
		r.ChCode,
		r.BarcodeDate,
		r.Agent,
		r.StatusCode,
		r.Disposition,
		r.SubDisposition,
		r.Amount,
		strconv.FormatInt(r.PTPAmount, 10),
		r.PTPDate,
		strconv.FormatInt(r.ClaimPaidAmount, 10),
		r.ClaimPaidDate,
		r.Remarks,
		r.NumberContacted,
		r.BarcodedBy,
		r.ContactSource,
	}
}

// wholeAmount truncates a decimal amount. Anything unparseable is 0.
func wholeAmount(f domain.Field) int64 {
	if !f.Valid {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}

// FlattenEfforts filters the events and flattens every survivor, keeping
// source order.
func FlattenEfforts(events []domain.DispositionEvent, filter NoiseFilter, stats *DateStats) []EffortRow {
	cleaned := filter.Clean(events)
	rows := make([]EffortRow, 0, len(cleaned))
	for _, e := range cleaned {
		disposition, sub := "", ""
		if e.StatusCode.Valid {
			disposition, sub = SplitStatus(e.StatusCode.Value)
		}
		rows = append(rows, EffortRow{
			ChCode:          e.DebtorID,
			BarcodeDate:     stats.reformat(e.ResultDate, parseTimestamp, resultDateLayout),
			Agent:           e.Agent.String(),
			StatusCode:      e.StatusCode.String(),
			Disposition:     disposition,
			SubDisposition:  sub,
			Amount:          e.Amount.String(),
			PTPAmount:       wholeAmount(e.PTPAmount),
			PTPDate:         stats.reformat(e.PTPDate, parseDayFirst, isoDateLayout),
			ClaimPaidAmount: wholeAmount(e.ClaimPaidAmount),
			ClaimPaidDate:   stats.reformat(e.ClaimPaidDate, parseDayFirst, isoDateLayout),
			Remarks:         e.Notes.String(),
			NumberContacted: e.NumberContacted.String(),
			BarcodedBy:      e.BarcodedBy.String(),
			ContactSource:   e.ContactSource.String(),
		})
	}
	return rows
}
