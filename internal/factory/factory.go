package factory

import (
	"fmt"
	"sync"

	"github.com/anime-shed/reply-assistant-go/internal/config"
	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// ParseStorageType maps a request's "source" field onto a StorageType.
// An empty value means HTTP.
func ParseStorageType(s string) (StorageType, error) {
	switch StorageType(s) {
	case "", HTTPStorage:
		return HTTPStorage, nil
	case AzureStorage:
		return AzureStorage, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("Unsupported image source %q.", s), nil)
	}
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageSource, error)
}

// storageFactory builds each source once and reuses it.
type storageFactory struct {
	cfg *config.Config

	mu      sync.Mutex
	sources map[StorageType]storage.ImageSource
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{
		cfg:     cfg,
		sources: make(map[StorageType]storage.ImageSource),
	}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if src, ok := f.sources[storageType]; ok {
		return src, nil
	}

	var (
		src storage.ImageSource
		err error
	)
	switch storageType {
	case HTTPStorage:
		src = storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout)
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, apperrors.NewConfigurationError("Azure storage is not configured.", nil)
		}
		src, err = storage.NewAzureBlobSource(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("Unsupported image source %q.", storageType), nil)
	}

	f.sources[storageType] = src
	return src, nil
}
