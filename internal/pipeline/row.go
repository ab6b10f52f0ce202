package pipeline

// AddressSlots is the number of address columns in the export.
const AddressSlots = 5

type Addresses [AddressSlots]string

// WorkflowColumns are filled downstream by the call-center workflow.
var WorkflowColumns = []string{
	"ptp_amount",
	"ptp_date_start",
	"ptp_date_end",
	"or_number",
	"new_contact",
	"new_email_address",
	"source_type",
	"agent",
	"new_address",
	"notes",
}

// ExportColumns is the column order of every leads export.
var ExportColumns = func() []string {
	cols := []string{
		"ch_code", "name", "ch_name", "account_number", "outstanding_balance", "principal",
		"endorsement_date", "cutoff_date",
		"phone1", "phone2", "phone3", "phone4", "phone5",
		"address1", "address2", "address3", "address4", "address5",
	}
	cols = append(cols, WorkflowColumns...)
	return append(cols,
		"account_information",
		"additional_information",
		"field_result_information",
		"history_information",
	)
}()

// ExportRow is the final flat record of one debtor.
type ExportRow struct {
	ChCode             string
	Name               string
	ChName             string
	AccountNumber      string
	OutstandingBalance string
	Principal          string
	EndorsementDate    string
	CutoffDate         string

	Phones    Phones
	Addresses Addresses

	AccountInformation    string
	AdditionalInformation string
	HistoryInformation    string
}

// Values returns the row in ExportColumns order.
func (r ExportRow) Values() []string {
	out := make([]string, 0, len(ExportColumns))
	out = append(out,
		r.ChCode, r.Name, r.ChName, r.AccountNumber, r.OutstandingBalance, r.Principal,
		r.EndorsementDate, r.CutoffDate,
	)
	out = append(out, r.Phones[:]...)
	out = append(out, r.Addresses[:]...)
	for range WorkflowColumns {
		out = append(out, "")
	}
	return append(out,
		r.AccountInformation,
		r.AdditionalInformation,
		"",
		r.HistoryInformation,
	)
}
