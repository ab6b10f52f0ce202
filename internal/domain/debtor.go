package domain

// Field is a nullable column value as the database returned it.
type Field struct {
	Value string
	Valid bool
}

// Text builds a valid Field.
func Text(v string) Field {
	return Field{Value: v, Valid: true}
}

// String renders the field, using "" for NULL.
func (f Field) String() string {
	if !f.Valid {
		return ""
	}
	return f.Value
}

type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DebtorRecord is one base row of the info query. Fields are keyed by the
// mapped (export) column name.
type DebtorRecord struct {
	ChCode string
	Fields map[string]Field
}

func (r DebtorRecord) Get(column string) Field {
	if r.Fields == nil {
		return Field{}
	}
	return r.Fields[column]
}

type ContactEntry struct {
	DebtorID string
	Number   Field
}

type AddressEntry struct {
	DebtorID string
	Address  Field
}

type DispositionEvent struct {
	DebtorID string

	ResultDate Field
	Agent      Field
	StatusCode Field
	Amount     Field

	PTPAmount       Field
	PTPDate         Field
	ClaimPaidAmount Field
	ClaimPaidDate   Field

	Notes           Field
	NumberContacted Field
	BarcodedBy      Field
	ContactSource   Field
}
