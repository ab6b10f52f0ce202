package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bcp-export/internal/clients"
	"bcp-export/internal/export"

	"go.uber.org/zap"
)

const mirrorURLTTL = 48 * time.Hour

// Deliverer uploads an archive to one FTP destination. FTPDelivery
// satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, server clients.FTPServer, dir, base string, data []byte) (string, error)
}

// ArchiveStore keeps a downloadable copy. StorageClient satisfies it.
type ArchiveStore interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	GetURL(fileName string) string
}

// Mirror copies the archive to object storage. S3Client satisfies it.
type Mirror interface {
	ObjectKey(flow, remoteDir, fileName string) string
	UploadArchive(ctx context.Context, key string, data []byte) error
	GetTemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type PublishResult struct {
	FileName     string
	URL          string
	Rows         int
	Destinations []DestinationResult
}

// Delivered counts the destinations that accepted the archive.
func (r *PublishResult) Delivered() int {
	n := 0
	for _, d := range r.Destinations {
		if d.Error == "" {
			n++
		}
	}
	return n
}

// Publisher sends an archive to every destination of a flow and keeps the
// local and mirrored copies.
type Publisher struct {
	deliverer    Deliverer
	store        ArchiveStore
	mirror       Mirror
	destinations map[string][]clients.FTPServer
}

func NewPublisher(deliverer Deliverer, store ArchiveStore, mirror Mirror, destinations map[string][]clients.FTPServer) *Publisher {
	return &Publisher{
		deliverer:    deliverer,
		store:        store,
		mirror:       mirror,
		destinations: destinations,
	}
}

// Publish fails only when no destination accepted the archive. Destinations
// with incomplete credentials are skipped.
func (p *Publisher) Publish(ctx context.Context, flow, dir string, archive *export.Archive) (*PublishResult, error) {
	log := zap.L().With(zap.String("flow", flow), zap.String("archive", archive.Name))

	var servers []clients.FTPServer
	for _, s := range p.destinations[flow] {
		if !s.Complete() {
			log.Warn("skipping destination with incomplete credentials", zap.String("destination", s.Name))
			continue
		}
		servers = append(servers, s)
	}
	if len(servers) == 0 {
		return nil, ErrMissingCredentials
	}

	res := &PublishResult{FileName: archive.Name, Rows: archive.Rows}
	var errs []error
	for _, s := range servers {
		remote, err := p.deliverer.Deliver(ctx, s, dir, archive.Base, archive.Data)
		if err != nil {
			log.Error("delivery failed", zap.String("destination", s.Name), zap.Error(err))
			res.Destinations = append(res.Destinations, DestinationResult{Name: s.Name, Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		res.Destinations = append(res.Destinations, DestinationResult{Name: s.Name, Path: remote})
	}
	if res.Delivered() == 0 {
		return res, fmt.Errorf("all destinations failed: %w", errors.Join(errs...))
	}

	if p.store != nil {
		stored, err := p.store.Save(ctx, archive.Name, archive.Data)
		if err != nil {
			log.Warn("local copy failed", zap.Error(err))
		} else {
			res.URL = p.store.GetURL(stored)
		}
	}

	if p.mirror != nil {
		key := p.mirror.ObjectKey(flow, dir, archive.Name)
		if err := p.mirror.UploadArchive(ctx, key, archive.Data); err != nil {
			log.Warn("mirror upload failed", zap.String("key", key), zap.Error(err))
		} else if url, err := p.mirror.GetTemporaryURL(ctx, key, mirrorURLTTL); err == nil {
			res.URL = url
		}
	}

	return res, nil
}
