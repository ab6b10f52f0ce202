package domain

import "time"

// CallHistoryRow is one row of the call-center customer_history extraction.
type CallHistoryRow struct {
	DebtorID        Field
	AccountNumber   Field
	Name            Field
	StatusCode      Field
	Remarks         Field
	RemarksBy       Field
	RemarksDate     Field
	PhoneNo         Field
	PTPDate         Field
	PTPAmount       Field
	ClaimPaidDate   Field
	ClaimPaidAmount Field
}

var CallHistoryColumns = []string{
	"DEBTOR ID",
	"ACCOUNT NUMBER",
	"NAME",
	"STATUS CODE",
	"REMARKS",
	"REMARKS BY",
	"REMARKS DATE",
	"PHONE NO",
	"PTP DATE",
	"PTP AMOUNT",
	"CLAIM PAID DATE",
	"CLAIM PAID AMOUNT",
}

func (r CallHistoryRow) Values() []string {
	return []string{
		r.DebtorID.String(),
		r.AccountNumber.String(),
		r.Name.String(),
		r.StatusCode.String(),
		r.Remarks.String(),
		r.RemarksBy.String(),
		r.RemarksDate.String(),
		r.PhoneNo.String(),
		r.PTPDate.String(),
		r.PTPAmount.String(),
		r.ClaimPaidDate.String(),
		r.ClaimPaidAmount.String(),
	}
}

// ActiveUser is a signed-in SSO session.
type ActiveUser struct {
	Token     string
	Email     string
	LoginTime time.Time
}
