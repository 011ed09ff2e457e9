package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"account-svc/internal/domain"
	"account-svc/internal/repository"
)

type mockAccountRepo struct {
	mu           sync.Mutex
	byID         map[string]domain.Account
	emailIndex   map[string]string
	findErr      error
	insertErr    error
	updateErr    error
	deleteErr    error
	insertCalled int
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		byID:       make(map[string]domain.Account),
		emailIndex: make(map[string]string),
	}
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.Account{}, m.findErr
	}
	id, ok := m.emailIndex[email]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return domain.Account{}, m.findErr
	}
	a, ok := m.byID[id]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAccountRepo) Insert(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalled++
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, taken := m.emailIndex[account.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	m.byID[account.ID] = account
	m.emailIndex[account.Email] = account.ID
	return nil
}

func (m *mockAccountRepo) UpdateVerified(_ context.Context, id string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Verified = true
	a.VerifiedAt = &verifiedAt
	m.byID[id] = a
	return nil
}

func (m *mockAccountRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if a, ok := m.byID[id]; ok {
		delete(m.emailIndex, a.Email)
		delete(m.byID, id)
	}
	return nil
}

func (m *mockAccountRepo) put(a domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	m.emailIndex[a.Email] = a.ID
}

func (m *mockAccountRepo) get(id string) (domain.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	return a, ok
}

type mockVerificationRepo struct {
	mu          sync.Mutex
	byUser      map[string][]domain.Verification
	findErr     error
	insertErr   error
	deleteErr   error
	deleteOneOK *bool
}

func newMockVerificationRepo() *mockVerificationRepo {
	return &mockVerificationRepo{byUser: make(map[string][]domain.Verification)}
}

func (m *mockVerificationRepo) FindByUserID(_ context.Context, userID string) ([]domain.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	return append([]domain.Verification(nil), m.byUser[userID]...), nil
}

func (m *mockVerificationRepo) Insert(_ context.Context, v domain.Verification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.byUser[v.UserID] = append(m.byUser[v.UserID], v)
	return nil
}

func (m *mockVerificationRepo) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.byUser, userID)
	return nil
}

func (m *mockVerificationRepo) DeleteOne(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteOneOK != nil {
		return *m.deleteOneOK, nil
	}
	list := m.byUser[userID]
	for i, v := range list {
		if v.ID == id {
			m.byUser[userID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVerificationRepo) DeleteExpired(_ context.Context, before time.Time) ([]domain.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []domain.Verification
	for userID, list := range m.byUser {
		kept := list[:0]
		for _, v := range list {
			if v.ExpiresAt.Before(before) {
				removed = append(removed, v)
				continue
			}
			kept = append(kept, v)
		}
		m.byUser[userID] = kept
	}
	return removed, nil
}

func (m *mockVerificationRepo) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser[userID])
}

type mockEmailSender struct {
	mu       sync.Mutex
	sent     int
	lastTo   string
	lastSubj string
	lastBody string
	err      error
}

func (m *mockEmailSender) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	m.lastTo = to
	m.lastSubj = subject
	m.lastBody = htmlBody
	return m.err
}

var otpInBody = regexp.MustCompile(`<b>(\d{4})</b>`)

// lastCode extrae el OTP del ultimo correo enviado.
func (m *mockEmailSender) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	match := otpInBody.FindStringSubmatch(m.lastBody)
	if len(match) != 2 {
		return ""
	}
	return match[1]
}

type failingHasher struct {
	hashErr    error
	compareErr error
}

func (f failingHasher) Hash(string) (string, error) {
	if f.hashErr != nil {
		return "", f.hashErr
	}
	return "hashed", nil
}

func (f failingHasher) Compare(string, string) (bool, error) {
	if f.compareErr != nil {
		return false, f.compareErr
	}
	return false, nil
}

type mockIssuer struct {
	calls    int
	lastKind domain.VerificationKind
	lastAcc  domain.Account
	err      error
}

func (m *mockIssuer) Issue(_ context.Context, kind domain.VerificationKind, account domain.Account) (domain.Verification, error) {
	m.calls++
	m.lastKind = kind
	m.lastAcc = account
	if m.err != nil {
		return domain.Verification{}, m.err
	}
	return domain.Verification{ID: "v1", UserID: account.ID, Kind: kind}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func boolPtr(b bool) *bool { return &b }
