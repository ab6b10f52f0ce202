package repository

import (
	"context"
	"database/sql"
	"fmt"

	"bcp-export/internal/domain"
)

// CallCenterRepository reads one campaign database of the call-center
// platform.
type CallCenterRepository struct {
	db *sql.DB
}

func NewCallCenterRepository(db *sql.DB) *CallCenterRepository {
	return &CallCenterRepository{db: db}
}

func (r *CallCenterRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Databases lists the campaign databases, cms_ prefixed, sorted by name.
func (r *CallCenterRepository) Databases(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT datname
		FROM pg_database
		WHERE datname LIKE 'cms\_%' AND NOT datistemplate
		ORDER BY datname
	`)
	if err != nil {
		return nil, fmt.Errorf("query databases: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CustomerHistory extracts every dispositioned call of the campaign.
func (r *CallCenterRepository) CustomerHistory(ctx context.Context) ([]domain.CallHistoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			ch_code::text,
			account_number::text,
			ch_name::text,
			CONCAT(disposition_status, ' - ', (regexp_split_to_array(disposition, ' - '))[1]),
			notes::text,
			agent::text,
			TO_CHAR(call_date::timestamp, 'YYYY-MM-DD HH24:MI:SS'),
			phoneoriginal::text,
			TO_CHAR(NULLIF(ptp_date_start, '')::date, 'YYYY-MM-DD'),
			ptp_amount::text,
			TO_CHAR(NULLIF(ptp_date_start, '')::date, 'YYYY-MM-DD'),
			ptp_amount::text
		FROM customer_history
		WHERE disposition_status IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query customer_history: %w", err)
	}
	defer rows.Close()

	var out []domain.CallHistoryRow
	var v [12]sql.NullString
	dest := make([]any, len(v))
	for i := range v {
		dest[i] = &v[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan customer_history: %w", err)
		}
		out = append(out, domain.CallHistoryRow{
			DebtorID:        nullField(v[0]),
			AccountNumber:   nullField(v[1]),
			Name:            nullField(v[2]),
			StatusCode:      nullField(v[3]),
			Remarks:         nullField(v[4]),
			RemarksBy:       nullField(v[5]),
			RemarksDate:     nullField(v[6]),
			PhoneNo:         nullField(v[7]),
			PTPDate:         nullField(v[8]),
			PTPAmount:       nullField(v[9]),
			ClaimPaidDate:   nullField(v[10]),
			ClaimPaidAmount: nullField(v[11]),
		})
	}
	return out, rows.Err()
}
