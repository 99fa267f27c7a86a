package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"identity-server/shared/models"
)

// assertErr stands in for an infrastructure failure in the fakes.
var assertErr = errors.New("store failure")

// In-memory doubles for the storage interfaces. They mirror the Redis and
// Postgres semantics closely enough for the service-level contracts:
// TTL-driven absence, per-user index sets, first-writer window expiry.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return models.ErrUserAlreadyExists
		}
		if u.Email == user.Email {
			return models.ErrEmailAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *fakeUserRepo) ActivateUser(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Status = models.StatusActive
	u.EmailVerified = true
	return nil
}

type fakeRefreshTokenRepo struct {
	mu      sync.Mutex
	records map[string]*models.RefreshTokenRecord
	byUser  map[uuid.UUID]map[string]struct{}
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{
		records: make(map[string]*models.RefreshTokenRecord),
		byUser:  make(map[uuid.UUID]map[string]struct{}),
	}
}

func (r *fakeRefreshTokenRepo) Save(_ context.Context, record *models.RefreshTokenRecord, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records[record.TokenHash] = &clone
	if r.byUser[record.UserID] == nil {
		r.byUser[record.UserID] = make(map[string]struct{})
	}
	r.byUser[record.UserID][record.TokenHash] = struct{}{}
	return nil
}

func (r *fakeRefreshTokenRepo) Get(_ context.Context, tokenHash string) (*models.RefreshTokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[tokenHash]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, models.ErrTokenNotFound
}

func (r *fakeRefreshTokenRepo) Delete(_ context.Context, userID uuid.UUID, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, tokenHash)
	if set, ok := r.byUser[userID]; ok {
		delete(set, tokenHash)
	}
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byUser[userID]
	var deleted int64
	for hash := range set {
		if _, ok := r.records[hash]; ok {
			delete(r.records, hash)
			deleted++
		}
	}
	delete(r.byUser, userID)
	return deleted, nil
}

type fakeBlacklistRepo struct {
	mu      sync.Mutex
	entries map[string]time.Time
	failing bool
}

func newFakeBlacklistRepo() *fakeBlacklistRepo {
	return &fakeBlacklistRepo{entries: make(map[string]time.Time)}
}

func (r *fakeBlacklistRepo) Add(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return assertErr
	}
	if ttl <= 0 {
		return nil
	}
	r.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (r *fakeBlacklistRepo) Exists(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return false, assertErr
	}
	deadline, ok := r.entries[jti]
	if !ok || time.Now().After(deadline) {
		return false, nil
	}
	return true, nil
}

func (r *fakeBlacklistRepo) ttl(jti string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deadline, ok := r.entries[jti]; ok {
		return time.Until(deadline)
	}
	return 0
}

type fakeOtpRepo struct {
	mu     sync.Mutex
	nextID int64
	codes  []*models.OtpCode
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{}
}

func (r *fakeOtpRepo) Create(_ context.Context, otp *models.OtpCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	otp.ID = r.nextID
	otp.CreatedAt = time.Now()
	clone := *otp
	r.codes = append(r.codes, &clone)
	return nil
}

func (r *fakeOtpRepo) FindActive(_ context.Context, email, code string) (*models.OtpCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.Email == email && c.Code == code && !c.Verified {
			clone := *c
			return &clone, nil
		}
	}
	return nil, models.ErrOTPInvalid
}

func (r *fakeOtpRepo) MarkVerified(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.ID == id && !c.Verified {
			c.Verified = true
			return nil
		}
	}
	return models.ErrOTPInvalid
}

func (r *fakeOtpRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.OtpCode
	var deleted int64
	for _, c := range r.codes {
		if c.ExpiresAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	r.codes = kept
	return deleted, nil
}

type fakeOtpCache struct {
	mu       sync.Mutex
	codes    map[string]string
	counters map[string]int64
	reads    int
}

func newFakeOtpCache() *fakeOtpCache {
	return &fakeOtpCache{
		codes:    make(map[string]string),
		counters: make(map[string]int64),
	}
}

func (c *fakeOtpCache) SetCode(_ context.Context, email, code string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[email] = code
	return nil
}

func (c *fakeOtpCache) GetCode(_ context.Context, email string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if code, ok := c.codes[email]; ok {
		return code, nil
	}
	return "", models.ErrOTPInvalid
}

func (c *fakeOtpCache) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *fakeOtpCache) DeleteCode(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, email)
	return nil
}

func (c *fakeOtpCache) IncrementRequestCount(_ context.Context, email string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[email]++
	return c.counters[email], nil
}

func (c *fakeOtpCache) resetCounter(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, email)
}

type fakeServiceClientRepo struct {
	mu      sync.Mutex
	clients map[string]*models.ServiceClient
}

func newFakeServiceClientRepo() *fakeServiceClientRepo {
	return &fakeServiceClientRepo{clients: make(map[string]*models.ServiceClient)}
}

func (r *fakeServiceClientRepo) GetByClientID(_ context.Context, clientID string) (*models.ServiceClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[clientID]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, models.ErrClientNotFound
}

func (r *fakeServiceClientRepo) Create(_ context.Context, client *models.ServiceClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client.ClientID]; ok {
		return models.ErrClientAlreadyExists
	}
	client.CreatedAt = time.Now()
	clone := *client
	r.clients[client.ClientID] = &clone
	return nil
}

func (r *fakeServiceClientRepo) ExistsByClientID(_ context.Context, clientID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[clientID]
	return ok, nil
}

func (r *fakeServiceClientRepo) SetEnabled(_ context.Context, clientID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return models.ErrClientNotFound
	}
	c.Enabled = enabled
	return nil
}

type fakeEmailSender struct {
	mu    sync.Mutex
	sent  []string // codes in send order
	fail  bool
	email string
}

func (s *fakeEmailSender) SendOtpEmail(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assertErr
	}
	s.email = email
	s.sent = append(s.sent, code)
	return nil
}

func (s *fakeEmailSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []*models.UserVerifiedEvent
}

func (p *fakeEventPublisher) PublishUserVerified(_ context.Context, event *models.UserVerifiedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEventPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
