// Package allowlist decides whether a URL belongs to a trusted domain and
// manages the per-user trusted domains on top of the built-in set.
package allowlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/sirupsen/logrus"
)

var (
	ErrExists        = errors.New("domain already in allowlist")
	ErrNotFound      = errors.New("domain not in allowlist")
	ErrBuiltin       = errors.New("domain is built in")
	ErrInvalidDomain = errors.New("invalid domain")
)

// Store persists user-added entries. Implementations return ErrExists for a
// duplicate (user, domain) pair and ErrNotFound when removing an unknown one.
type Store interface {
	ListAllowlist(ctx context.Context, user string) ([]types.AllowlistEntry, error)
	AddAllowlist(ctx context.Context, user string, entry types.AllowlistEntry) error
	RemoveAllowlist(ctx context.Context, user, domain string) error
}

// Manager combines the built-in entries with a user's stored entries.
type Manager struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewManager creates a manager backed by store. A nil logger discards output.
func NewManager(store Store, log logrus.FieldLogger) *Manager {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Manager{store: store, log: log, now: time.Now}
}

// Entries returns the built-in entries followed by the user's entries,
// sorted by domain. An anonymous user only sees the built-ins.
func (m *Manager) Entries(ctx context.Context, user string) ([]types.AllowlistEntry, error) {
	entries := Builtins()
	if user == "" {
		return entries, nil
	}

	own, err := m.store.ListAllowlist(ctx, user)
	if err != nil {
		return entries, fmt.Errorf("listing allowlist: %w", err)
	}
	sort.Slice(own, func(i, j int) bool { return own[i].Domain < own[j].Domain })
	return append(entries, own...), nil
}

// Gate returns a snapshot gate for the user. If the store fails, the gate
// still covers the built-ins and the error is returned alongside it.
func (m *Manager) Gate(ctx context.Context, user string) (*Gate, error) {
	entries, err := m.Entries(ctx, user)
	return NewGate(entries), err
}

// Add trusts domain for user.
func (m *Manager) Add(ctx context.Context, user, domain string) (types.AllowlistEntry, error) {
	if user == "" {
		return types.AllowlistEntry{}, auth.ErrUnauthenticated
	}

	normalized, err := NormalizeDomain(domain)
	if err != nil {
		return types.AllowlistEntry{}, err
	}
	if IsBuiltin(normalized) {
		return types.AllowlistEntry{}, fmt.Errorf("%w: %s", ErrBuiltin, normalized)
	}

	entry := types.AllowlistEntry{
		Domain:    normalized,
		AddedAt:   m.now().UTC(),
		UserAdded: true,
	}
	if err := m.store.AddAllowlist(ctx, user, entry); err != nil {
		return types.AllowlistEntry{}, fmt.Errorf("adding %s: %w", normalized, err)
	}

	m.log.WithFields(logrus.Fields{"user": user, "domain": normalized}).Info("allowlist entry added")
	return entry, nil
}

// Remove stops trusting domain for user. Built-in entries cannot be removed.
func (m *Manager) Remove(ctx context.Context, user, domain string) error {
	if user == "" {
		return auth.ErrUnauthenticated
	}

	normalized, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}
	if IsBuiltin(normalized) {
		return fmt.Errorf("%w: %s", ErrBuiltin, normalized)
	}

	if err := m.store.RemoveAllowlist(ctx, user, normalized); err != nil {
		return fmt.Errorf("removing %s: %w", normalized, err)
	}

	m.log.WithFields(logrus.Fields{"user": user, "domain": normalized}).Info("allowlist entry removed")
	return nil
}
