package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/strategiz-io/passkey-service/internal/models"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

// In-memory repository fakes mirroring the SQL semantics the services
// rely on: conditional counter updates, unique credential IDs, and
// delete-on-consume challenges.

type fakeChallengeRepo struct {
	mu    sync.Mutex
	items map[string]models.PasskeyChallenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{items: make(map[string]models.PasskeyChallenge)}
}

func (f *fakeChallengeRepo) Create(_ context.Context, c *models.PasskeyChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[c.Value] = *c
	return nil
}

func (f *fakeChallengeRepo) Consume(_ context.Context, value string) (*models.PasskeyChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[value]
	if !ok {
		return nil, nil
	}
	delete(f.items, value)
	return &c, nil
}

func (f *fakeChallengeRepo) CleanupExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for v, c := range f.items {
		if now.After(c.ExpiresAt) {
			delete(f.items, v)
			n++
		}
	}
	return n, nil
}

func (f *fakeChallengeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeCredentialRepo struct {
	mu      sync.Mutex
	byCred  map[string]*models.AuthMethod
	saveErr error
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{byCred: make(map[string]*models.AuthMethod)}
}

func (f *fakeCredentialRepo) Save(_ context.Context, m *models.AuthMethod) error {
	if err := m.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, exists := f.byCred[m.Passkey.CredentialID]; exists {
		return utils.ErrDuplicateCredential
	}
	clone := *m
	pk := *m.Passkey
	clone.Passkey = &pk
	f.byCred[pk.CredentialID] = &clone
	return nil
}

func (f *fakeCredentialRepo) FindByCredentialID(_ context.Context, credentialID string) (*models.AuthMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byCred[credentialID]
	if !ok {
		return nil, nil
	}
	clone := *m
	pk := *m.Passkey
	clone.Passkey = &pk
	return &clone, nil
}

func (f *fakeCredentialRepo) ListByUserID(_ context.Context, userID string) ([]*models.AuthMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuthMethod
	for _, m := range f.byCred {
		if m.UserID != userID {
			continue
		}
		clone := *m
		pk := *m.Passkey
		clone.Passkey = &pk
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeCredentialRepo) UpdateCounter(_ context.Context, credentialID string, newCounter uint32, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byCred[credentialID]
	if !ok || m.Passkey.SignatureCounter >= newCounter {
		return utils.ErrNoRowsUpdated
	}
	m.Passkey.SignatureCounter = newCounter
	m.LastUsedAt = &usedAt
	return nil
}

func (f *fakeCredentialRepo) TouchLastUsed(_ context.Context, credentialID string, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.byCred[credentialID]; ok {
		m.LastUsedAt = &usedAt
	}
	return nil
}

func (f *fakeCredentialRepo) Deactivate(_ context.Context, userID string, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byCred {
		if m.ID == id && m.UserID == userID && m.Active {
			m.Active = false
			return nil
		}
	}
	return utils.ErrNoRowsUpdated
}

func (f *fakeCredentialRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byCred)
}

func (f *fakeCredentialRepo) storedCounter(credentialID string) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.byCred[credentialID]; ok {
		return m.Passkey.SignatureCounter
	}
	return 0
}

type fakeTokenRepo struct {
	mu    sync.Mutex
	byRaw map[string]*models.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byRaw: make(map[string]*models.RefreshToken)}
}

func (f *fakeTokenRepo) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *t
	f.byRaw[t.Token] = &clone
	return nil
}

func (f *fakeTokenRepo) GetRefreshToken(_ context.Context, rawToken string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byRaw[rawToken]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTokenRepo) RemoveRefreshToken(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for raw, t := range f.byRaw {
		if t.ID == id {
			delete(f.byRaw, raw)
			return nil
		}
	}
	return nil
}

func (f *fakeTokenRepo) RemoveAllRefreshTokensByUserID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for raw, t := range f.byRaw {
		if t.UserID == userID {
			delete(f.byRaw, raw)
		}
	}
	return nil
}

func (f *fakeTokenRepo) CleanupExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for raw, t := range f.byRaw {
		if now.After(t.ExpiresAt) {
			delete(f.byRaw, raw)
			n++
		}
	}
	return n, nil
}
