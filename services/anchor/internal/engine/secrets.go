package engine

import (
	"context"
	"sync"

	"github.com/redbco/redb-anchor/pkg/keyring"
	"github.com/redbco/redb-anchor/services/anchor/internal/config"
)

// lazySecrets opens the keyring on first use, so commands that never touch
// a password do not touch the system keyring.
type lazySecrets struct {
	cfg   *config.Config
	once  sync.Once
	store keyring.Store
}

func newLazySecrets(cfg *config.Config) *lazySecrets {
	return &lazySecrets{cfg: cfg}
}

func (l *lazySecrets) get() keyring.Store {
	l.once.Do(func() {
		k := l.cfg.Keyring
		l.store = keyring.Open(context.Background(), k.Service, k.Path, l.cfg.MasterPassword(), k.CheckTimeout)
	})
	return l.store
}

func (l *lazySecrets) Set(key, secret string) error {
	return l.get().Set(key, secret)
}

func (l *lazySecrets) Get(key string) (string, error) {
	return l.get().Get(key)
}

func (l *lazySecrets) Delete(key string) error {
	return l.get().Delete(key)
}
