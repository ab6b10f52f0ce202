package mapping

import (
	"errors"
	"fmt"
	"strings"
)

// IDColumn is the export column every mapping must produce.
const IDColumn = "ch_code"

var ErrMappingNotFound = errors.New("field mapping not found")

// reservedColumns are placed in fixed export columns or in
// account_information and never repeated in additional_information.
var reservedColumns = map[string]struct{}{
	"collector":           {},
	"outstanding_balance": {},
	"principal":           {},
	"card_no":             {},
	"placement":           {},
	"cycle":               {},
	"product_type":        {},
	"address1":            {},
	"address2":            {},
	"address3":            {},
	"phone1":              {},
	"phone2":              {},
	"phone3":              {},
	"phone4":              {},
	"phone5":              {},
	"ch_code":             {},
	"name":                {},
	"ch_name":             {},
	"account_number":      {},
	"endorsement_date":    {},
	"cutoff_date":         {},
}

// IsReserved reports whether an export column is excluded from
// additional_information.
func IsReserved(column string) bool {
	_, ok := reservedColumns[column]
	return ok
}

// Pair maps a source SQL expression to an export column name.
type Pair struct {
	Source string
	Column string
}

// Mapping is the validated per-client column mapping of the info query.
type Mapping struct {
	Client string
	Sheet  string
	Pairs  []Pair

	additional []string
}

func New(client string, pairs []Pair) (*Mapping, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no columns for %q", ErrMappingNotFound, client)
	}

	hasID := false
	seen := make(map[string]struct{}, len(pairs))
	var additional []string

	for i, p := range pairs {
		if p.Source == "" || p.Column == "" {
			return nil, fmt.Errorf("mapping %q row %d: database and mapped column are required", client, i+1)
		}
		if strings.ContainsRune(p.Column, '`') {
			return nil, fmt.Errorf("mapping %q row %d: invalid mapped column %q", client, i+1, p.Column)
		}
		if p.Column == IDColumn {
			hasID = true
		}
		if _, dup := seen[p.Column]; dup {
			continue
		}
		seen[p.Column] = struct{}{}
		if !IsReserved(p.Column) {
			additional = append(additional, p.Column)
		}
	}

	if !hasID {
		return nil, fmt.Errorf("mapping %q: %s column is required", client, IDColumn)
	}

	return &Mapping{
		Client:     client,
		Pairs:      pairs,
		additional: additional,
	}, nil
}

// Additional returns the mapped columns that go to additional_information,
// in mapping order without duplicates.
func (m *Mapping) Additional() []string {
	return m.additional
}

// Columns returns every mapped export column in mapping order.
func (m *Mapping) Columns() []string {
	cols := make([]string, 0, len(m.Pairs))
	for _, p := range m.Pairs {
		cols = append(cols, p.Column)
	}
	return cols
}

// SelectClause renders the mapping as a SELECT list.
func (m *Mapping) SelectClause() string {
	parts := make([]string, 0, len(m.Pairs))
	for _, p := range m.Pairs {
		parts = append(parts, fmt.Sprintf("%s AS `%s`", p.Source, p.Column))
	}
	return strings.Join(parts, ",\n\t\t\t")
}
