package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	backendMu      sync.RWMutex
	backendName    string
	backendFactory func() Store
)

// RegisterBackend registers the active storage backend.
// This is called by the postgres and mariadb packages to avoid import cycles.
func RegisterBackend(name string, factory func() Store) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = name
	backendFactory = factory
}

// ResetBackend removes the registered backend. Used by tests.
func ResetBackend() {
	RegisterBackend("", nil)
}

// IsInitialized returns whether a storage backend has been registered.
func IsInitialized() bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendFactory != nil
}

// BackendName returns the name of the registered backend, empty if none.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

func getStore() (Store, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backendFactory == nil {
		return nil, errors.New("storage backend not initialized: DATABASE_URL is required")
	}
	store := backendFactory()
	if store == nil {
		return nil, fmt.Errorf("%s backend returned no store", backendName)
	}
	return store, nil
}

// GetStore returns every repository of the registered backend
func GetStore(ctx context.Context) (Store, error) {
	return getStore()
}
