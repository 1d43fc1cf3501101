package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telecom-relay/internal/client"
	"telecom-relay/internal/util"
)

const sessionPrefix = "telecom_session:"

// SessionTTL is how long a carrier token stays valid after login.
const SessionTTL = 24 * time.Hour

// SessionRecord tracks one carrier token per phone number. All times
// are epoch milliseconds.
type SessionRecord struct {
	Phonenum  string `json:"phonenum"`
	Token     string `json:"token"`
	LoginTime int64  `json:"loginTime"`
	ExpiresAt int64  `json:"expiresAt"`
	LastUsed  int64  `json:"lastUsed"`
	IP        string `json:"ip,omitempty"`
}

type SessionStats struct {
	TotalSessions   int            `json:"totalSessions"`
	ActiveSessions  int            `json:"activeSessions"`
	ExpiredSessions int            `json:"expiredSessions"`
	SessionsByPhone map[string]int `json:"sessionsByPhone"`
}

// SessionStore holds carrier-token sessions, one per phone. Expiry is
// pull-based: expired records stay until a validate/get touches them
// or CleanExpired sweeps.
type SessionStore struct {
	kv  kvStore
	ttl time.Duration
	now func() time.Time
}

func NewSessionStore(kv kvStore) *SessionStore {
	return &SessionStore{
		kv:  kv,
		ttl: SessionTTL,
		now: time.Now,
	}
}

func (s *SessionStore) key(phone string) string {
	return sessionPrefix + phone
}

// Create stores a new session, replacing any previous one for phone.
func (s *SessionStore) Create(ctx context.Context, phone, token, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := s.now().UnixMilli()
	record := SessionRecord{
		Phonenum:  phone,
		Token:     token,
		LoginTime: now,
		ExpiresAt: now + s.ttl.Milliseconds(),
		LastUsed:  now,
		IP:        ip,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.kv.Set(ctx, s.key(phone), string(raw), 0); err != nil {
		return fmt.Errorf("session write failed: %w", err)
	}

	util.Info("session created", util.Phonenum(phone))
	return nil
}

// Validate fails closed: any missing record, token mismatch, or
// backend error reads as invalid. An expired record is deleted as a
// side effect; a valid check refreshes lastUsed.
func (s *SessionStore) Validate(ctx context.Context, phone, token string) bool {
	record, err := s.load(ctx, phone)
	if err != nil || record == nil {
		return false
	}

	if record.Token != token {
		return false
	}

	if s.now().UnixMilli() > record.ExpiresAt {
		_ = s.Delete(ctx, phone)
		return false
	}

	record.LastUsed = s.now().UnixMilli()
	_ = s.store(ctx, record)
	return true
}

// Get returns the session for phone, deleting and reporting nil when
// it has expired.
func (s *SessionStore) Get(ctx context.Context, phone string) (*SessionRecord, error) {
	record, err := s.load(ctx, phone)
	if err != nil || record == nil {
		return nil, err
	}

	if s.now().UnixMilli() > record.ExpiresAt {
		_ = s.Delete(ctx, phone)
		return nil, nil
	}

	return record, nil
}

func (s *SessionStore) Delete(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.kv.Del(ctx, s.key(phone)); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	util.Info("session deleted", util.Phonenum(phone))
	return nil
}

// Refresh extends the session another full TTL from now.
func (s *SessionStore) Refresh(ctx context.Context, phone string) (bool, error) {
	record, err := s.Get(ctx, phone)
	if err != nil || record == nil {
		return false, err
	}

	now := s.now().UnixMilli()
	record.ExpiresAt = now + s.ttl.Milliseconds()
	record.LastUsed = now

	if err := s.store(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}

// CleanExpired sweeps every session and removes the expired ones.
func (s *SessionStore) CleanExpired(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	keys, err := s.kv.ScanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("session scan failed: %w", err)
	}

	now := s.now().UnixMilli()
	cleaned := 0
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var record SessionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		if now > record.ExpiresAt {
			if err := s.kv.Del(ctx, key); err == nil {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		util.Info("expired sessions cleaned", util.Int("count", cleaned))
	}
	return cleaned, nil
}

// ClearAll removes every session regardless of expiry.
func (s *SessionStore) ClearAll(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	keys, err := s.kv.ScanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("session scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.kv.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("session clear failed: %w", err)
	}
	return len(keys), nil
}

// Stats counts sessions without mutating them; expired records stay in
// place until a read or sweep removes them. Phone numbers are masked
// in the grouping.
func (s *SessionStore) Stats(ctx context.Context) (*SessionStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	stats := &SessionStats{SessionsByPhone: make(map[string]int)}

	keys, err := s.kv.ScanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("session scan failed: %w", err)
	}

	now := s.now().UnixMilli()
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var record SessionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}

		stats.TotalSessions++
		stats.SessionsByPhone[util.MaskPhoneNumber(record.Phonenum)]++

		if now > record.ExpiresAt {
			stats.ExpiredSessions++
		} else {
			stats.ActiveSessions++
		}
	}

	return stats, nil
}

func (s *SessionStore) load(ctx context.Context, phone string) (*SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := s.kv.Get(ctx, s.key(phone))
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session read failed: %w", err)
	}

	var record SessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		_ = s.kv.Del(ctx, s.key(phone))
		return nil, nil
	}
	return &record, nil
}

func (s *SessionStore) store(ctx context.Context, record *SessionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.kv.Set(ctx, s.key(record.Phonenum), string(raw), 0)
}
