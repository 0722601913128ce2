// Package storage selects the blob store that receives the run's artifacts.
// Backends live in sub-packages: local (filesystem), memory and gcs.
package storage

import (
	"context"
	"errors"
	"fmt"

	gcsclient "cloud.google.com/go/storage"

	"github.com/pjpmarques/Castelos/internal/fortification"
	"github.com/pjpmarques/Castelos/internal/storage/gcs"
	"github.com/pjpmarques/Castelos/internal/storage/local"
	"github.com/pjpmarques/Castelos/internal/storage/memory"
)

// Supported backend names.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string
	BaseDir   string
	GCSBucket string
	GCSPrefix string
}

// GCSClientFactory creates Cloud Storage clients. Tests substitute it to avoid
// real credentials.
type GCSClientFactory interface {
	NewClient(ctx context.Context) (*gcsclient.Client, error)
}

// DefaultGCSClientFactory uses Application Default Credentials.
type DefaultGCSClientFactory struct{}

// NewClient implements GCSClientFactory.
func (DefaultGCSClientFactory) NewClient(ctx context.Context) (*gcsclient.Client, error) {
	client, err := gcsclient.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return client, nil
}

// Backend is an opened blob store plus the resources it holds.
type Backend struct {
	fortification.BlobStore
	Name  string
	close func() error
}

// Close releases backend resources.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the configured backend. For gcs the bucket is checked up front
// so a misconfiguration fails before any network scraping starts.
func Open(ctx context.Context, cfg Config, factory GCSClientFactory) (*Backend, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		store, err := local.New(local.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("open local storage: %w", err)
		}
		return &Backend{BlobStore: store, Name: BackendLocal}, nil
	case BackendMemory:
		return &Backend{BlobStore: memory.NewBlobStore(), Name: BackendMemory}, nil
	case BackendGCS:
		return openGCS(ctx, cfg, factory)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openGCS(ctx context.Context, cfg Config, factory GCSClientFactory) (*Backend, error) {
	if factory == nil {
		factory = DefaultGCSClientFactory{}
	}
	client, err := factory.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	store, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
	if err == nil {
		err = store.CheckBucket(ctx)
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open gcs storage: %w", err), client.Close())
	}
	return &Backend{BlobStore: store, Name: BackendGCS, close: client.Close}, nil
}
