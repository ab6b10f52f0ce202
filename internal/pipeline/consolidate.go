package pipeline

import (
	"strings"

	"bcp-export/internal/domain"
	"bcp-export/internal/mapping"
)

type accountField struct {
	Key    string
	Column string
}

// accountFields is the fixed key set of account_information.
var accountFields = []accountField{
	{Key: "TAGGED USER", Column: "collector"},
	{Key: "OB", Column: "outstanding_balance"},
	{Key: "PRINCIPAL", Column: "principal"},
	{Key: "CARD_NO", Column: "card_no"},
	{Key: "PLACEMENT", Column: "placement"},
	{Key: "CYCLE", Column: "cycle"},
	{Key: "PRODUCT TYPE", Column: "product_type"},
	{Key: "PRIMARY ADDRESS", Column: "address1"},
	{Key: "SECONDARY ADDRESS", Column: "address2"},
	{Key: "TERTIARY ADDRESS", Column: "address3"},
	{Key: "PHONE1", Column: "phone1"},
	{Key: "PHONE2", Column: "phone2"},
	{Key: "PHONE3", Column: "phone3"},
	{Key: "PHONE4", Column: "phone4"},
	{Key: "PHONE5", Column: "phone5"},
}

// infoDateColumns are rewritten to MM/DD/YYYY on the base record.
var infoDateColumns = []string{"birthday", "endorsement_date", "cutoff_date"}

// Input holds the four result sets of one extraction run. A nil or empty
// side set means the set is absent.
type Input struct {
	Records      []domain.DebtorRecord
	Contacts     []domain.ContactEntry
	Addresses    []domain.AddressEntry
	Dispositions []domain.DispositionEvent
	Mapping      *mapping.Mapping
}

type Stats struct {
	Records        int
	DuplicateIDs   int
	FilteredEvents int
	Phone          PhoneStats
	Dates          DateStats
}

type Result struct {
	Rows  []ExportRow
	Stats Stats
}

type Consolidator struct {
	filter NoiseFilter
}

func NewConsolidator(filter NoiseFilter) *Consolidator {
	return &Consolidator{filter: filter}
}

// Consolidate joins the side sets onto the base records by debtor id and
// returns one row per distinct id, in base order.
func (c *Consolidator) Consolidate(in Input) Result {
	var res Result
	if len(in.Records) == 0 {
		return res
	}

	contacts := groupContacts(in.Contacts)
	addresses := groupAddresses(in.Addresses)

	cleaned := c.filter.Clean(in.Dispositions)
	res.Stats.FilteredEvents = len(in.Dispositions) - len(cleaned)
	history := rankCleaned(cleaned, &res.Stats.Dates)

	seen := make(map[string]struct{}, len(in.Records))
	res.Rows = make([]ExportRow, 0, len(in.Records))

	for _, rec := range in.Records {
		if _, dup := seen[rec.ChCode]; dup {
			res.Stats.DuplicateIDs++
			continue
		}
		seen[rec.ChCode] = struct{}{}

		var phones Phones
		if contacts != nil {
			phones = NormalizePhones(contacts[rec.ChCode], &res.Stats.Phone)
		}

		rec = withInfoDates(rec, &res.Stats.Dates)
		res.Rows = append(res.Rows, Assemble(rec, phones, addresses[rec.ChCode], history[rec.ChCode], in.Mapping))
	}

	res.Stats.Records = len(res.Rows)
	return res
}

// Assemble builds the export row of one debtor from already normalized
// parts. It has no side effects.
func Assemble(rec domain.DebtorRecord, phones Phones, addrs Addresses, history []HistoryEntry, m *mapping.Mapping) ExportRow {
	if history == nil {
		history = []HistoryEntry{}
	}
	return ExportRow{
		ChCode:             rec.ChCode,
		Name:               rec.Get("name").String(),
		ChName:             rec.Get("ch_name").String(),
		AccountNumber:      rec.Get("account_number").String(),
		OutstandingBalance: rec.Get("outstanding_balance").String(),
		Principal:          rec.Get("principal").String(),
		EndorsementDate:    rec.Get("endorsement_date").String(),
		CutoffDate:         rec.Get("cutoff_date").String(),

		Phones:    phones,
		Addresses: addrs,

		AccountInformation:    accountInformation(rec, phones, addrs),
		AdditionalInformation: additionalInformation(rec, m),
		HistoryInformation:    encodeHistory(history),
	}
}

func accountInformation(rec domain.DebtorRecord, phones Phones, addrs Addresses) string {
	slots := map[string]string{
		"address1": addrs[0],
		"address2": addrs[1],
		"address3": addrs[2],
		"phone1":   phones[0],
		"phone2":   phones[1],
		"phone3":   phones[2],
		"phone4":   phones[3],
		"phone5":   phones[4],
	}

	obj := make(jsonObject, 0, len(accountFields))
	for _, f := range accountFields {
		v, ok := slots[f.Column]
		if !ok {
			v = rec.Get(f.Column).String()
		}
		obj = append(obj, jsonField{Key: f.Key, Value: v})
	}
	return encodeObjects([]jsonObject{obj})
}

func additionalInformation(rec domain.DebtorRecord, m *mapping.Mapping) string {
	obj := jsonObject{}
	if m != nil {
		for _, col := range m.Additional() {
			obj.set(strings.ToUpper(col), rec.Get(col).String())
		}
	}
	return encodeObjects([]jsonObject{obj})
}

func withInfoDates(rec domain.DebtorRecord, stats *DateStats) domain.DebtorRecord {
	fields := make(map[string]domain.Field, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	for _, col := range infoDateColumns {
		f, ok := fields[col]
		if !ok {
			continue
		}
		fields[col] = domain.Field{
			Value: stats.reformat(f, parseTimestamp, infoDateLayout),
			Valid: f.Valid,
		}
	}
	rec.Fields = fields
	return rec
}

func groupContacts(entries []domain.ContactEntry) map[string][]domain.Field {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string][]domain.Field)
	for _, e := range entries {
		out[e.DebtorID] = append(out[e.DebtorID], e.Number)
	}
	return out
}

// groupAddresses keeps up to AddressSlots distinct non-blank addresses per
// debtor in source order.
func groupAddresses(entries []domain.AddressEntry) map[string]Addresses {
	out := make(map[string]Addresses)
	counts := make(map[string]int)
	seen := make(map[string]map[string]struct{})

	for _, e := range entries {
		addr := strings.TrimSpace(e.Address.String())
		if addr == "" {
			continue
		}
		n := counts[e.DebtorID]
		if n >= AddressSlots {
			continue
		}
		if seen[e.DebtorID] == nil {
			seen[e.DebtorID] = make(map[string]struct{})
		}
		if _, dup := seen[e.DebtorID][addr]; dup {
			continue
		}
		seen[e.DebtorID][addr] = struct{}{}

		slots := out[e.DebtorID]
		slots[n] = addr
		out[e.DebtorID] = slots
		counts[e.DebtorID] = n + 1
	}
	return out
}
