package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bcp-export/internal/config"
	"bcp-export/internal/domain"
	"bcp-export/internal/mapping"

	"go.uber.org/zap"
)

// VolareSource reads one environment's volare database.
// repository.VolareRepository satisfies it.
type VolareSource interface {
	Clients(ctx context.Context) ([]domain.Client, error)
	ActiveDebtorIDs(ctx context.Context, clientID int64) ([]string, error)
	Info(ctx context.Context, clientID int64, m *mapping.Mapping, ids []string) ([]domain.DebtorRecord, error)
	Contacts(ctx context.Context, clientID int64, ids []string) ([]domain.ContactEntry, error)
	Addresses(ctx context.Context, clientID int64, ids []string) ([]domain.AddressEntry, error)
	Dispositions(ctx context.Context, clientID int64, ids []string, depth int) ([]domain.DispositionEvent, error)
	Close() error
}

type VolareOpener func(ctx context.Context, env config.Environment) (VolareSource, error)

// CallCenterSource reads one database of the call-center platform.
// repository.CallCenterRepository satisfies it.
type CallCenterSource interface {
	Databases(ctx context.Context) ([]string, error)
	CustomerHistory(ctx context.Context) ([]domain.CallHistoryRow, error)
	Close() error
}

type CallCenterOpener func(ctx context.Context, database string) (CallCenterSource, error)

// KeyValueStore caches catalog lookups. RedisClient satisfies it.
type KeyValueStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Catalog answers what can be exported: environments, their clients and
// the call-center databases.
type Catalog struct {
	envs           []config.Environment
	openVolare     VolareOpener
	openCallCenter CallCenterOpener
	adminDB        string
	cache          KeyValueStore
	ttl            time.Duration
}

func NewCatalog(
	envs []config.Environment,
	openVolare VolareOpener,
	openCallCenter CallCenterOpener,
	adminDB string,
	cache KeyValueStore,
	ttl time.Duration,
) *Catalog {
	if adminDB == "" {
		adminDB = "postgres"
	}
	return &Catalog{
		envs:           envs,
		openVolare:     openVolare,
		openCallCenter: openCallCenter,
		adminDB:        adminDB,
		cache:          cache,
		ttl:            ttl,
	}
}

func (c *Catalog) Environments() []config.Environment {
	return c.envs
}

func (c *Catalog) Environment(name string) (config.Environment, error) {
	for _, e := range c.envs {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return config.Environment{}, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
}

// Clients lists the clients of an environment, served from the cache when
// a fresh copy exists.
func (c *Catalog) Clients(ctx context.Context, envName string) ([]domain.Client, error) {
	env, err := c.Environment(envName)
	if err != nil {
		return nil, err
	}

	key := "clients:" + strings.ToUpper(env.Name)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var cached []domain.Client
			if json.Unmarshal([]byte(data), &cached) == nil {
				return cached, nil
			}
		}
	}

	src, err := c.openVolare(ctx, env)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	list, err := src.Clients(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(list) > 0 {
		data, _ := json.Marshal(list)
		if err := c.cache.Set(ctx, key, string(data), c.ttl); err != nil {
			zap.L().Warn("cache clients", zap.String("env", env.Name), zap.Error(err))
		}
	}
	return list, nil
}

// ResolveClient finds a client by id, or by name (case-insensitive) when id
// is zero.
func (c *Catalog) ResolveClient(ctx context.Context, envName string, id int64, name string) (domain.Client, error) {
	list, err := c.Clients(ctx, envName)
	if err != nil {
		return domain.Client{}, err
	}
	for _, cl := range list {
		if (id != 0 && cl.ID == id) || (id == 0 && strings.EqualFold(cl.Name, name)) {
			return cl, nil
		}
	}
	if id != 0 {
		return domain.Client{}, fmt.Errorf("%w: id %d in %s", ErrUnknownClient, id, envName)
	}
	return domain.Client{}, fmt.Errorf("%w: %q in %s", ErrUnknownClient, name, envName)
}

// Databases lists the cms_ campaign databases of the call-center platform.
func (c *Catalog) Databases(ctx context.Context) ([]string, error) {
	src, err := c.openCallCenter(ctx, c.adminDB)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Databases(ctx)
}
