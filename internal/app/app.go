package app

import (
	"context"
	"fmt"
	"time"

	"bcp-export/internal/clients"
	"bcp-export/internal/config"
	"bcp-export/internal/mapping"
	"bcp-export/internal/pipeline"
	"bcp-export/internal/repository"
	"bcp-export/internal/service"
	"bcp-export/pkg/database/mysql"
	"bcp-export/pkg/database/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Options select the optional parts of the graph. The server wants
// everything; the CLI runs without a notifier and tolerates a missing Redis.
type Options struct {
	Notifier      service.Notifier
	RedisOptional bool
}

// App holds the wired services shared by the server and the CLI.
type App struct {
	Config  config.AppConfig
	Catalog *service.Catalog
	Flows   *service.FlowService
	Tracker *service.RunTracker
	Storage *clients.StorageClient
	Redis   *clients.RedisClient

	closers []func()
}

func Build(ctx context.Context, cfg config.AppConfig, opts Options) (*App, error) {
	a := &App{Config: cfg}

	redisClient, err := clients.NewRedisClient(ctx, clients.RedisConfig{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		DialTimeout: time.Duration(cfg.Redis.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Redis.Timeout) * time.Second,
		Prefix:      cfg.Redis.Prefix,
	})
	switch {
	case err == nil:
		a.Redis = redisClient
		a.closers = append(a.closers, redisClient.Close)
	case opts.RedisOptional:
		zap.L().Warn("redis unavailable, run status will not be stored", zap.Error(err))
	default:
		return nil, fmt.Errorf("redis: %w", err)
	}

	storage, err := clients.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicPrefix, cfg.BaseURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.Storage = storage

	var mirror service.Mirror
	if cfg.S3.Enabled {
		s3, err := clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3: %w", err)
		}
		mirror = s3
	}

	// nil interfaces, not typed nils, when redis is missing
	var store service.StatusStore
	var cache service.KeyValueStore
	if a.Redis != nil {
		store = a.Redis
		cache = a.Redis
	}

	openVolare := VolareOpener(cfg)
	openCallCenter := CallCenterOpener(cfg)

	a.Tracker = service.NewRunTracker(store, opts.Notifier, cfg.RunTTL.Std())
	a.Catalog = service.NewCatalog(cfg.Environments, openVolare, openCallCenter,
		cfg.CallCenter.AdminDB, cache, cfg.ClientsTTL.Std())

	publisher := service.NewPublisher(
		clients.NewFTPDelivery(clients.DialFTP(cfg.FTPTimeout.Std())),
		storage,
		mirror,
		Destinations(cfg),
	)

	a.Flows = service.NewFlowService(service.FlowSettings{
		Flows:                cfg.Flows,
		IDChunkSize:          cfg.Pipeline.IDChunkSize,
		DispositionChunkSize: cfg.Pipeline.DispositionChunkSize,
		DispositionDepth:     cfg.Pipeline.DispositionDepth,
	}, service.FlowDeps{
		Catalog:        a.Catalog,
		OpenVolare:     openVolare,
		OpenCallCenter: openCallCenter,
		Mappings:       mapping.NewWorkbookLoader(cfg.Mapping.Workbook, cfg.Mapping.FallbackSheet),
		Filter:         NoiseFilter(cfg.Pipeline),
		Publisher:      publisher,
		Tracker:        a.Tracker,
	})

	return a, nil
}

// Close releases shared connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// VolareOpener connects to the volare database of an environment. Every
// call opens its own connection, closed by the caller.
func VolareOpener(cfg config.AppConfig) service.VolareOpener {
	return func(ctx context.Context, env config.Environment) (service.VolareSource, error) {
		db, err := mysql.NewMySQLConnection(ctx, mysql.ConnectionInfo{
			Host:     cfg.Volare.Host,
			Port:     env.Port,
			Username: cfg.Volare.Username,
			Password: cfg.Volare.Password,
			DBName:   cfg.Volare.DBName,
			Timeout:  cfg.Volare.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("volare %s: %w", env.Name, err)
		}
		return repository.NewVolareRepository(db), nil
	}
}

// CallCenterOpener connects to one database of the call-center cluster.
func CallCenterOpener(cfg config.AppConfig) service.CallCenterOpener {
	return func(ctx context.Context, database string) (service.CallCenterSource, error) {
		db, err := postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
			Host:     cfg.CallCenter.Host,
			Port:     cfg.CallCenter.Port,
			Username: cfg.CallCenter.User,
			Password: cfg.CallCenter.Password,
			DBName:   database,
			SSLMode:  cfg.CallCenter.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("call center %s: %w", database, err)
		}
		return repository.NewCallCenterRepository(db), nil
	}
}

// Destinations resolves the FTP servers of every configured flow.
func Destinations(cfg config.AppConfig) map[string][]clients.FTPServer {
	out := make(map[string][]clients.FTPServer, len(cfg.Flows))
	for name := range cfg.Flows {
		for _, s := range cfg.ServersFor(name) {
			out[name] = append(out[name], clients.FTPServer{
				Name:     s.Name,
				Host:     s.Host,
				Port:     s.Port,
				Username: s.Username,
				Password: s.Password,
			})
		}
	}
	return out
}

// NoiseFilter builds the disposition filter, keeping the built-in lists for
// whatever the configuration leaves empty.
func NoiseFilter(p config.PipelineConfig) pipeline.NoiseFilter {
	phrases := p.NoisePhrases
	if len(phrases) == 0 {
		phrases = pipeline.DefaultNoisePhrases
	}
	markers := p.StatusMarkers
	if len(markers) == 0 {
		markers = pipeline.DefaultStatusMarkers
	}
	return pipeline.NewNoiseFilter(phrases, markers)
}
