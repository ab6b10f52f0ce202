package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bcp-export/internal/config"
	"bcp-export/internal/domain"
)

func newTestCatalog(v *fakeVolare, cc *fakeCallCenter, cache KeyValueStore) *Catalog {
	return NewCatalog(testEnvs, func(ctx context.Context, env config.Environment) (VolareSource, error) {
		return v, nil
	}, func(ctx context.Context, database string) (CallCenterSource, error) {
		return cc.open(ctx, database)
	}, "", cache, time.Minute)
}

func TestCatalog_Environment(t *testing.T) {
	c := newTestCatalog(&fakeVolare{}, &fakeCallCenter{}, nil)

	env, err := c.Environment("env2")
	if err != nil || env.Port != 3307 {
		t.Fatalf("expected ENV2 on 3307; got %+v, %v", env, err)
	}
	if _, err := c.Environment("ENV9"); !errors.Is(err, ErrUnknownEnvironment) {
		t.Fatalf("expected ErrUnknownEnvironment; got %v", err)
	}
}

func TestCatalog_ClientsCached(t *testing.T) {
	v := &fakeVolare{clients: []domain.Client{{ID: 7, Name: "RCBC"}, {ID: 9, Name: "BPI Cards"}}}
	cache := newMemoryStore()
	c := newTestCatalog(v, &fakeCallCenter{}, cache)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		list, err := c.Clients(ctx, "ENV1")
		if err != nil {
			t.Fatalf("clients: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 clients; got %d", len(list))
		}
	}
	if v.clientsCalls != 1 {
		t.Fatalf("expected one database query; got %d", v.clientsCalls)
	}
	if v.closed != 1 {
		t.Fatalf("expected the source to be closed once; got %d", v.closed)
	}
	if _, err := cache.Get(ctx, "clients:ENV1"); err != nil {
		t.Fatalf("expected cached entry: %v", err)
	}
}

func TestCatalog_ResolveClient(t *testing.T) {
	v := &fakeVolare{clients: []domain.Client{{ID: 7, Name: "RCBC"}, {ID: 9, Name: "BPI Cards"}}}
	c := newTestCatalog(v, &fakeCallCenter{}, nil)
	ctx := context.Background()

	cl, err := c.ResolveClient(ctx, "ENV1", 9, "")
	if err != nil || cl.Name != "BPI Cards" {
		t.Fatalf("by id: %+v, %v", cl, err)
	}
	cl, err = c.ResolveClient(ctx, "ENV1", 0, "bpi cards")
	if err != nil || cl.ID != 9 {
		t.Fatalf("by name: %+v, %v", cl, err)
	}
	if _, err := c.ResolveClient(ctx, "ENV1", 42, ""); !errors.Is(err, ErrUnknownClient) {
		t.Fatalf("expected ErrUnknownClient; got %v", err)
	}
}

func TestCatalog_Databases(t *testing.T) {
	cc := &fakeCallCenter{databases: []string{"cms_bpi", "cms_rcbc"}}
	c := newTestCatalog(&fakeVolare{}, cc, nil)

	dbs, err := c.Databases(context.Background())
	if err != nil {
		t.Fatalf("databases: %v", err)
	}
	if len(dbs) != 2 || len(cc.opened) != 1 || cc.opened[0] != "postgres" {
		t.Fatalf("unexpected databases %v opened %v", dbs, cc.opened)
	}
}
