package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bcp-export/internal/domain"
	"bcp-export/internal/mapping"
)

// activeDebtor is the filter every volare query shares.
const activeDebtor = `client.id = ?
			AND debtor.is_aborted <> 1
			AND debtor.is_locked <> 1`

// VolareRepository reads debtor data from one environment's volare database.
type VolareRepository struct {
	db *sql.DB
}

func NewVolareRepository(db *sql.DB) *VolareRepository {
	return &VolareRepository{db: db}
}

func (r *VolareRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *VolareRepository) Clients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT client.id, client.name
		FROM `+"`client`"+`
		WHERE client.name IS NOT NULL AND client.name <> ''
		ORDER BY client.name
	`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveDebtorIDs lists the debtors of a client that are neither aborted nor
// locked.
func (r *VolareRepository) ActiveDebtorIDs(ctx context.Context, clientID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT debtor.id
		FROM debtor
			LEFT JOIN `+"`client`"+` ON client.id = debtor.client_id
		WHERE `+activeDebtor+`
		ORDER BY debtor.id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query active debtors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan debtor id: %w", err)
		}
		if id.Valid && id.String != "" {
			ids = append(ids, id.String)
		}
	}
	return ids, rows.Err()
}

// Info runs the mapped base query for one chunk of debtor ids.
func (r *VolareRepository) Info(ctx context.Context, clientID int64, m *mapping.Mapping, ids []string) ([]domain.DebtorRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT
			%s
		FROM debtor
			LEFT JOIN `+"`client`"+` ON client.id = debtor.client_id
		WHERE %s
			AND debtor.id IN (%s)
	`, m.SelectClause(), activeDebtor, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, withIDs(clientID, ids)...)
	if err != nil {
		return nil, fmt.Errorf("query info: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("info columns: %w", err)
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var out []domain.DebtorRecord
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan info: %w", err)
		}
		rec := domain.DebtorRecord{Fields: make(map[string]domain.Field, len(cols))}
		for i, c := range cols {
			rec.Fields[c] = domain.Field{Value: values[i].String, Valid: values[i].Valid}
		}
		rec.ChCode = rec.Get(mapping.IDColumn).String()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *VolareRepository) Contacts(ctx context.Context, clientID int64, ids []string) ([]domain.ContactEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT
			debtor.id,
			contact_number.contact_number
		FROM debtor
			LEFT JOIN debtor_followup ON debtor_followup.debtor_id = debtor.id
			LEFT JOIN followup ON followup.id = debtor_followup.followup_id
			LEFT JOIN `+"`client`"+` ON client.id = debtor.client_id
			LEFT JOIN contact_number ON contact_number.id = followup.contact_number_id
		WHERE %s
			AND debtor.id IN (%s)
			AND contact_number.contact_number <> 'NA'
			AND contact_number.contact_number IS NOT NULL
	`, activeDebtor, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, withIDs(clientID, ids)...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.ContactEntry
	for rows.Next() {
		var id, number sql.NullString
		if err := rows.Scan(&id, &number); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, domain.ContactEntry{DebtorID: id.String, Number: nullField(number)})
	}
	return out, rows.Err()
}

func (r *VolareRepository) Addresses(ctx context.Context, clientID int64, ids []string) ([]domain.AddressEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT
			debtor.id,
			address.address
		FROM debtor
			LEFT JOIN `+"`client`"+` ON client.id = debtor.client_id
			LEFT JOIN debtor_address ON debtor_address.debtor_id = debtor.id
			LEFT JOIN `+"`address`"+` ON address.id = debtor_address.address_id
		WHERE %s
			AND debtor.id IN (%s)
			AND address.address <> 'NA'
			AND address.address IS NOT NULL
	`, activeDebtor, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, withIDs(clientID, ids)...)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	var out []domain.AddressEntry
	for rows.Next() {
		var id, addr sql.NullString
		if err := rows.Scan(&id, &addr); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, domain.AddressEntry{DebtorID: id.String, Address: nullField(addr)})
	}
	return out, rows.Err()
}

// Dispositions returns at most depth latest followups per debtor. Events
// without a result date are excluded. Zero depth disables the cut.
func (r *VolareRepository) Dispositions(ctx context.Context, clientID int64, ids []string, depth int) ([]domain.DispositionEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT
				debtor.id AS ch_code,
				followup.datetime AS result_date,
				debtor.collector_user_name AS agent,
				followup.status_code AS status_code,
				debtor.balance AS amount,
				debtor_followup.ptp_amount AS ptp_amount,
				DATE_FORMAT(debtor_followup.ptp_date, '%%d/%%m/%%Y') AS ptp_date,
				debtor_followup.claim_paid_amount AS claim_paid_amount,
				DATE_FORMAT(debtor_followup.claim_paid_date, '%%d/%%m/%%Y') AS claim_paid_date,
				followup.remark AS notes,
				followup.contact_number AS number_contacted,
				followup.remark_by AS barcoded_by,
				CASE followup.remark_type_id
					WHEN 1 THEN 'Follow Up'
					WHEN 2 THEN 'Internal Remark'
					WHEN 3 THEN 'Payment'
					WHEN 4 THEN 'SMS'
					WHEN 5 THEN 'Field Visit'
					WHEN 6 THEN 'Legal'
					WHEN 7 THEN 'Letter Attachment & Email'
					WHEN 9 THEN 'Permanent Message'
				END AS contact_source,
				ROW_NUMBER() OVER (PARTITION BY debtor.id ORDER BY followup.datetime DESC) AS rn
			FROM debtor
				LEFT JOIN debtor_followup ON debtor_followup.debtor_id = debtor.id
				LEFT JOIN followup ON followup.id = debtor_followup.followup_id
				LEFT JOIN `+"`client`"+` ON client.id = debtor.client_id
			WHERE %s
				AND debtor.id IN (%s)
				AND followup.datetime IS NOT NULL
		)
		SELECT
			ch_code, result_date, agent, status_code, amount,
			ptp_amount, ptp_date, claim_paid_amount, claim_paid_date,
			notes, number_contacted, barcoded_by, contact_source
		FROM ranked
	`, activeDebtor, placeholders(len(ids)))

	args := withIDs(clientID, ids)
	if depth > 0 {
		query += "WHERE rn <= ?\n"
		args = append(args, depth)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispositions: %w", err)
	}
	defer rows.Close()

	var out []domain.DispositionEvent
	var v [13]sql.NullString
	dest := make([]any, len(v))
	for i := range v {
		dest[i] = &v[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan disposition: %w", err)
		}
		out = append(out, domain.DispositionEvent{
			DebtorID:        v[0].String,
			ResultDate:      nullField(v[1]),
			Agent:           nullField(v[2]),
			StatusCode:      nullField(v[3]),
			Amount:          nullField(v[4]),
			PTPAmount:       nullField(v[5]),
			PTPDate:         nullField(v[6]),
			ClaimPaidAmount: nullField(v[7]),
			ClaimPaidDate:   nullField(v[8]),
			Notes:           nullField(v[9]),
			NumberContacted: nullField(v[10]),
			BarcodedBy:      nullField(v[11]),
			ContactSource:   nullField(v[12]),
		})
	}
	return out, rows.Err()
}

func nullField(s sql.NullString) domain.Field {
	return domain.Field{Value: s.String, Valid: s.Valid}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func withIDs(clientID int64, ids []string) []any {
	args := make([]any, 0, len(ids)+1)
	args = append(args, clientID)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

// Chunk splits ids into consecutive groups of at most size.
func Chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 || size >= len(ids) {
		return [][]string{ids}
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
