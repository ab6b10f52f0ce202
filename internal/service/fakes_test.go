package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"bcp-export/internal/clients"
	"bcp-export/internal/config"
	"bcp-export/internal/domain"
	"bcp-export/internal/mapping"
)

type memoryStore struct {
	mu   sync.Mutex
	kv   map[string]string
	sets map[string]map[string]bool
	fail error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{kv: map[string]string{}, sets: map[string]map[string]bool{}}
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.kv[key] = value.(string)
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", clients.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryStore) SAdd(ctx context.Context, key string, members ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = map[string]bool{}
	}
	for _, v := range members {
		m.sets[key][v.(string)] = true
	}
	return nil
}

func (m *memoryStore) SRem(ctx context.Context, key string, members ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range members {
		delete(m.sets[key], v.(string))
	}
	return nil
}

func (m *memoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for v := range m.sets[key] {
		out = append(out, v)
	}
	return out, nil
}

type notification struct {
	kind, user, runID, detail string
	progress                  float64
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) NotifyRunProgress(ctx context.Context, user, runID string, progress float64, stage string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{kind: "progress", user: user, runID: runID, progress: progress, detail: stage})
	return nil
}

func (n *recordingNotifier) NotifyRunComplete(ctx context.Context, user, runID, url, filename string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{kind: "complete", user: user, runID: runID, detail: filename})
	return nil
}

func (n *recordingNotifier) NotifyRunFailed(ctx context.Context, user, runID, errMsg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{kind: "failed", user: user, runID: runID, detail: errMsg})
	return nil
}

func (n *recordingNotifier) last() notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return notification{}
	}
	return n.events[len(n.events)-1]
}

// fakeVolare serves fixed result sets and records the chunks it was asked
// for.
type fakeVolare struct {
	mu           sync.Mutex
	clients      []domain.Client
	ids          []string
	records      []domain.DebtorRecord
	contacts     []domain.ContactEntry
	addresses    []domain.AddressEntry
	events       []domain.DispositionEvent
	contactsErr  error
	infoChunks   [][]string
	depths       []int
	closed       int
	clientsCalls int
}

func (f *fakeVolare) Clients(ctx context.Context) ([]domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientsCalls++
	return f.clients, nil
}

func (f *fakeVolare) ActiveDebtorIDs(ctx context.Context, clientID int64) ([]string, error) {
	return f.ids, nil
}

func (f *fakeVolare) Info(ctx context.Context, clientID int64, m *mapping.Mapping, ids []string) ([]domain.DebtorRecord, error) {
	f.mu.Lock()
	f.infoChunks = append(f.infoChunks, ids)
	f.mu.Unlock()
	return pick(f.records, ids, func(r domain.DebtorRecord) string { return r.ChCode }), nil
}

func (f *fakeVolare) Contacts(ctx context.Context, clientID int64, ids []string) ([]domain.ContactEntry, error) {
	if f.contactsErr != nil {
		return nil, f.contactsErr
	}
	return pick(f.contacts, ids, func(c domain.ContactEntry) string { return c.DebtorID }), nil
}

func (f *fakeVolare) Addresses(ctx context.Context, clientID int64, ids []string) ([]domain.AddressEntry, error) {
	return pick(f.addresses, ids, func(a domain.AddressEntry) string { return a.DebtorID }), nil
}

func (f *fakeVolare) Dispositions(ctx context.Context, clientID int64, ids []string, depth int) ([]domain.DispositionEvent, error) {
	f.mu.Lock()
	f.depths = append(f.depths, depth)
	f.mu.Unlock()
	return pick(f.events, ids, func(e domain.DispositionEvent) string { return e.DebtorID }), nil
}

func (f *fakeVolare) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func pick[T any](rows []T, ids []string, key func(T) string) []T {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []T
	for _, r := range rows {
		if want[key(r)] {
			out = append(out, r)
		}
	}
	return out
}

type fakeCallCenter struct {
	databases []string
	rows      []domain.CallHistoryRow
	opened    []string
}

func (f *fakeCallCenter) open(ctx context.Context, database string) (CallCenterSource, error) {
	f.opened = append(f.opened, database)
	return f, nil
}

func (f *fakeCallCenter) Databases(ctx context.Context) ([]string, error) { return f.databases, nil }

func (f *fakeCallCenter) CustomerHistory(ctx context.Context) ([]domain.CallHistoryRow, error) {
	return f.rows, nil
}

func (f *fakeCallCenter) Close() error { return nil }

type fakeDeliverer struct {
	mu        sync.Mutex
	failing   map[string]error
	delivered map[string]string
	data      []byte
}

func (d *fakeDeliverer) Deliver(ctx context.Context, server clients.FTPServer, dir, base string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failing[server.Name]; err != nil {
		return "", err
	}
	if d.delivered == nil {
		d.delivered = map[string]string{}
	}
	remote := dir + "/" + base + ".zip"
	d.delivered[server.Name] = remote
	d.data = data
	return remote, nil
}

type fakeMappings struct {
	m   *mapping.Mapping
	err error
}

func (f fakeMappings) Load(client string) (*mapping.Mapping, error) {
	return f.m, f.err
}

var errBoom = errors.New("boom")

var testEnvs = []config.Environment{{Name: "ENV1", Port: 3306}, {Name: "ENV2", Port: 3307}}

func server(name string) clients.FTPServer {
	return clients.FTPServer{Name: name, Host: name + ".example.com", Username: "u", Password: "p"}
}
