//go:build integration

// Package containers provides shared testcontainers instances for
// integration suites. Containers are started once per test process and
// shared across suites; Ryuk reaps them when the process exits.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out the shared containers. Suites call GetManager() in
// SetupSuite and truncate tables between tests instead of restarting
// containers.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres returns the shared Postgres container, starting it and
// applying the schema on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}
