package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	"bcp-export/internal/domain"
	"bcp-export/internal/mapping"

	_ "modernc.org/sqlite"
)

func TestChunk(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}

	cases := []struct {
		size int
		want [][]string
	}{
		{2, [][]string{{"1", "2"}, {"3", "4"}, {"5"}}},
		{5, [][]string{ids}},
		{10, [][]string{ids}},
		{0, [][]string{ids}},
	}
	for _, tc := range cases {
		if got := Chunk(ids, tc.size); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("size %d: expected %v; got %v", tc.size, tc.want, got)
		}
	}
	if got := Chunk(nil, 3); got != nil {
		t.Errorf("expected nil for no ids; got %v", got)
	}
}

func TestPlaceholdersAndArgs(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Fatalf("unexpected placeholders %q", got)
	}
	if got := placeholders(0); got != "" {
		t.Fatalf("unexpected placeholders %q", got)
	}

	args := withIDs(42, []string{"a", "b"})
	if !reflect.DeepEqual(args, []any{int64(42), "a", "b"}) {
		t.Fatalf("unexpected args %v", args)
	}
}

func volareFixture(t *testing.T) *VolareRepository {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "volare.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		"CREATE TABLE client (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE debtor (id INTEGER PRIMARY KEY, client_id INTEGER, name TEXT, balance TEXT, is_aborted INTEGER, is_locked INTEGER)",
		"CREATE TABLE followup (id INTEGER PRIMARY KEY, contact_number_id INTEGER)",
		"CREATE TABLE debtor_followup (debtor_id INTEGER, followup_id INTEGER)",
		"CREATE TABLE contact_number (id INTEGER PRIMARY KEY, contact_number TEXT)",
		"CREATE TABLE address (id INTEGER PRIMARY KEY, address TEXT)",
		"CREATE TABLE debtor_address (debtor_id INTEGER, address_id INTEGER)",

		"INSERT INTO client VALUES (1, 'RCBC'), (2, 'BPI'), (3, '')",
		"INSERT INTO debtor VALUES (10, 1, 'JUAN', '100.50', 0, 0), (11, 1, 'PEDRO', NULL, 1, 0), (12, 1, 'MARIA', '5', 0, 0), (20, 2, 'ANA', '1', 0, 0)",
		"INSERT INTO contact_number VALUES (1, '09171234567'), (2, 'NA'), (3, '0918 1112222')",
		"INSERT INTO followup VALUES (1, 1), (2, 2), (3, 3)",
		"INSERT INTO debtor_followup VALUES (10, 1), (10, 2), (12, 3)",
		"INSERT INTO address VALUES (1, 'MAKATI'), (2, 'NA')",
		"INSERT INTO debtor_address VALUES (10, 1), (12, 2)",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return NewVolareRepository(db)
}

func TestVolareRepository_ClientsAndActiveIDs(t *testing.T) {
	repo := volareFixture(t)
	ctx := context.Background()

	clients, err := repo.Clients(ctx)
	if err != nil {
		t.Fatalf("clients: %v", err)
	}
	want := []domain.Client{{ID: 2, Name: "BPI"}, {ID: 1, Name: "RCBC"}}
	if !reflect.DeepEqual(clients, want) {
		t.Fatalf("expected %v; got %v", want, clients)
	}

	ids, err := repo.ActiveDebtorIDs(ctx, 1)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"10", "12"}) {
		t.Fatalf("unexpected active ids %v", ids)
	}
}

func TestVolareRepository_InfoContactsAddresses(t *testing.T) {
	repo := volareFixture(t)
	ctx := context.Background()

	m, err := mapping.New("RCBC", []mapping.Pair{
		{Source: "debtor.id", Column: "ch_code"},
		{Source: "debtor.name", Column: "name"},
		{Source: "debtor.balance", Column: "outstanding_balance"},
	})
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}

	records, err := repo.Info(ctx, 1, m, []string{"10", "11", "12"})
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 active records; got %d", len(records))
	}
	byID := map[string]domain.DebtorRecord{}
	for _, r := range records {
		byID[r.ChCode] = r
	}
	if byID["10"].Get("name").String() != "JUAN" || byID["10"].Get("outstanding_balance").String() != "100.50" {
		t.Fatalf("unexpected record %+v", byID["10"])
	}

	contacts, err := repo.Contacts(ctx, 1, []string{"10", "12"})
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected NA numbers to be filtered; got %+v", contacts)
	}

	addrs, err := repo.Addresses(ctx, 1, []string{"10", "12"})
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	if len(addrs) != 1 || addrs[0].DebtorID != "10" || addrs[0].Address.String() != "MAKATI" {
		t.Fatalf("unexpected addresses %+v", addrs)
	}

	none, err := repo.Contacts(ctx, 1, nil)
	if err != nil || none != nil {
		t.Fatalf("expected no query for empty ids; got %v, %v", none, err)
	}
}
