package settings

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
)

// PersistenceError means the durable write failed and nothing was applied.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persist settings: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// ClientFactory builds a catalog client from complete credentials. It must
// not perform network I/O.
type ClientFactory func(Credentials) (catalog.Client, error)

type snapshot struct {
	creds    Credentials
	client   catalog.Client
	buildErr error
}

// Manager serves the current credentials and the client built from them.
// Each update replaces the snapshot as a whole, so a request that fetched a
// client keeps using one consistent set of credentials.
type Manager struct {
	store     Persister
	newClient ClientFactory

	mu      sync.Mutex // held across persist + swap
	current atomic.Pointer[snapshot]
}

func NewManager(store Persister, factory ClientFactory, initial Credentials) *Manager {
	m := &Manager{store: store, newClient: factory}
	m.current.Store(m.build(initial))
	return m
}

func (m *Manager) build(c Credentials) *snapshot {
	s := &snapshot{creds: c}
	if !c.Complete() {
		slog.Warn("WooCommerce API credentials are not set. Product features are disabled until they are saved.")
		return s
	}
	client, err := m.newClient(c)
	if err != nil {
		slog.Warn("Failed to build WooCommerce client", "credentials", c, "error", err)
		s.buildErr = err
		return s
	}
	s.client = client
	return s
}

// Credentials returns the credentials currently in effect.
func (m *Manager) Credentials() Credentials {
	return m.current.Load().creds
}

// Client implements catalog.ClientSource.
func (m *Manager) Client() (catalog.Client, error) {
	s := m.current.Load()
	if s.client != nil {
		return s.client, nil
	}
	if s.buildErr != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrConfigurationMissing, s.buildErr)
	}
	return nil, catalog.ErrConfigurationMissing
}

// Update persists c and only then swaps it in. If the write fails the
// previous credentials stay in effect and a *PersistenceError is returned.
func (m *Manager) Update(c Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(c); err != nil {
		slog.Error("Failed to persist settings", "credentials", c, "error", err)
		return &PersistenceError{Err: err}
	}
	m.current.Store(m.build(c))
	slog.Info("WooCommerce settings updated", "credentials", c)
	return nil
}

// LoadInitial resolves the startup credentials: the durable file first,
// then every non-empty environment field on top of it.
func LoadInitial(store Persister, env Credentials) (Credentials, error) {
	c, err := store.Load()
	if err != nil {
		return Credentials{}, err
	}
	if env.BaseURL != "" {
		c.BaseURL = env.BaseURL
	}
	if env.ConsumerKey != "" {
		c.ConsumerKey = env.ConsumerKey
	}
	if env.ConsumerSecret != "" {
		c.ConsumerSecret = env.ConsumerSecret
	}
	return c, nil
}

// Overridden names the credential fields the environment supplies.
func Overridden(env Credentials) []string {
	var fields []string
	if env.BaseURL != "" {
		fields = append(fields, "url")
	}
	if env.ConsumerKey != "" {
		fields = append(fields, "consumer key")
	}
	if env.ConsumerSecret != "" {
		fields = append(fields, "consumer secret")
	}
	return fields
}
