package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session ID does not resolve to
// a stored session.
var ErrSessionNotFound = errors.New("session not found")

// Hash fields of a session record.
const (
	fieldSubjectID       = "subjectId"
	fieldSavedPAN        = "savedPan"
	fieldSavedPhone      = "phoneNumber"
	fieldRegistryAddress = "registryAddress"
	fieldLastActivity    = "lastActivity"
)

// SessionStore keeps per-wizard-session state in Redis, one hash per
// session. It replaces ambient key-value lookups with typed accessors
// so the dependencies between steps stay visible.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore builds a store on the given client, defaulting to
// the package-level RedisClient when nil.
func NewSessionStore(client *redis.Client) *SessionStore {
	if client == nil {
		client = RedisClient
	}
	return &SessionStore{client: client}
}

func sessionKey(sessionID string) string {
	return "onboarding:session:" + sessionID
}

// Create allocates a new session and returns its identifier.
func (s *SessionStore) Create(ctx context.Context) (string, error) {
	sessionID := uuid.New().String()
	err := s.client.HSet(ctx, sessionKey(sessionID),
		fieldLastActivity, strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// Exists reports whether a session is present.
func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Touch updates the session's last-activity stamp.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	return s.client.HSet(ctx, sessionKey(sessionID),
		fieldLastActivity, strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
}

// LastActivity returns the session's last-activity time.
func (s *SessionStore) LastActivity(ctx context.Context, sessionID string) (time.Time, error) {
	val, err := s.client.HGet(ctx, sessionKey(sessionID), fieldLastActivity).Result()
	if err == redis.Nil {
		return time.Time{}, ErrSessionNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

func (s *SessionStore) getField(ctx context.Context, sessionID, field string) (string, error) {
	val, err := s.client.HGet(ctx, sessionKey(sessionID), field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *SessionStore) setField(ctx context.Context, sessionID, field, value string) error {
	return s.client.HSet(ctx, sessionKey(sessionID), field, value).Err()
}

// SubjectID returns the subject identifier recovered at OTP
// verification time, or "" when none has been stored yet.
func (s *SessionStore) SubjectID(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldSubjectID)
}

// SetSubjectID stores the subject identifier for later steps.
func (s *SessionStore) SetSubjectID(ctx context.Context, sessionID, subjectID string) error {
	return s.setField(ctx, sessionID, fieldSubjectID, subjectID)
}

// SavedPAN returns the tax identifier cached by the personal details
// step for the practice cascade.
func (s *SessionStore) SavedPAN(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldSavedPAN)
}

// SetSavedPAN caches the tax identifier.
func (s *SessionStore) SetSavedPAN(ctx context.Context, sessionID, pan string) error {
	return s.setField(ctx, sessionID, fieldSavedPAN, pan)
}

// SavedPhone returns the verified phone number for the session.
func (s *SessionStore) SavedPhone(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldSavedPhone)
}

// SetSavedPhone stores the verified phone number.
func (s *SessionStore) SetSavedPhone(ctx context.Context, sessionID, phone string) error {
	return s.setField(ctx, sessionID, fieldSavedPhone, phone)
}

// SetRegistryAddress caches a registry-derived address JSON blob as a
// one-shot prefill for the address step.
func (s *SessionStore) SetRegistryAddress(ctx context.Context, sessionID, addressJSON string) error {
	return s.setField(ctx, sessionID, fieldRegistryAddress, addressJSON)
}

// RegistryAddress returns the cached registry address without
// consuming it.
func (s *SessionStore) RegistryAddress(ctx context.Context, sessionID string) (string, error) {
	return s.getField(ctx, sessionID, fieldRegistryAddress)
}

// ConsumeRegistryAddress removes and returns the cached registry
// address. The cache is one-shot; a second call returns "".
func (s *SessionStore) ConsumeRegistryAddress(ctx context.Context, sessionID string) (string, error) {
	val, err := s.getField(ctx, sessionID, fieldRegistryAddress)
	if err != nil || val == "" {
		return "", err
	}
	if err := s.client.HDel(ctx, sessionKey(sessionID), fieldRegistryAddress).Err(); err != nil {
		return "", err
	}
	return val, nil
}

// ClearRegistryAddress drops the cached registry address.
func (s *SessionStore) ClearRegistryAddress(ctx context.Context, sessionID string) error {
	return s.client.HDel(ctx, sessionKey(sessionID), fieldRegistryAddress).Err()
}

var (
	deleteHooksMu sync.RWMutex
	deleteHooks   []func(sessionID string)
)

// OnSessionDelete registers a hook run after a session is removed.
// Hooks are package level because the store is constructed separately
// by the API layer and the cleanup job over the shared client.
func OnSessionDelete(hook func(sessionID string)) {
	deleteHooksMu.Lock()
	deleteHooks = append(deleteHooks, hook)
	deleteHooksMu.Unlock()
}

// Delete removes a session entirely and notifies the registered hooks
// so in-process state tied to the session is released with it.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return err
	}
	deleteHooksMu.RLock()
	hooks := deleteHooks
	deleteHooksMu.RUnlock()
	for _, hook := range hooks {
		hook(sessionID)
	}
	return nil
}

// SessionIDs lists the identifiers of all stored sessions.
func (s *SessionStore) SessionIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	prefix := sessionKey("")
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			ids = append(ids, key[len(prefix):])
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}
