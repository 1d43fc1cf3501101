package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"telecom-relay/internal/carrier"
	"telecom-relay/internal/client"
	"telecom-relay/internal/config"
)

// memKV is an in-memory stand-in for the Redis wrapper.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (f *memKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (f *memKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", client.ErrKeyNotFound, key)
	}
	return val, nil
}

func (f *memKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *memKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *memKV) IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = "counter"
	return 1, nil
}

// fakeGateway scripts carrier responses per endpoint.
type fakeGateway struct {
	mu sync.Mutex

	loginErr      error
	loginCalls    int
	summary       *carrier.Summary
	summaryErr    error
	summaryCalls  int
	fluxPackage   *carrier.FluxPackage
	fluxErr       error
	fluxCalls     int
	importantData *carrier.ImportantData
	importantErr  error
	shareUsage    *carrier.ShareUsage
	shareErr      error
	pingErr       error

	// errors consumed once, then cleared
	oneShotSummaryErr error
}

func (f *fakeGateway) Login(ctx context.Context, phone, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginErr
}

func (f *fakeGateway) Summary(ctx context.Context, phone, token string) (*carrier.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.oneShotSummaryErr != nil {
		err := f.oneShotSummaryErr
		f.oneShotSummaryErr = nil
		return nil, err
	}
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeGateway) FluxPackage(ctx context.Context, phone, token string) (*carrier.FluxPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fluxCalls++
	if f.fluxErr != nil {
		return nil, f.fluxErr
	}
	return f.fluxPackage, nil
}

func (f *fakeGateway) ImportantData(ctx context.Context, phone, token string) (*carrier.ImportantData, error) {
	if f.importantErr != nil {
		return nil, f.importantErr
	}
	return f.importantData, nil
}

func (f *fakeGateway) ShareUsage(ctx context.Context, phone, token string) (*carrier.ShareUsage, error) {
	if f.shareErr != nil {
		return nil, f.shareErr
	}
	return f.shareUsage, nil
}

func (f *fakeGateway) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeGateway) ProbeEndpoints(ctx context.Context, phone, token string) *carrier.EndpointHealth {
	health := &carrier.EndpointHealth{
		Summary:       f.summaryErr == nil,
		FluxPackage:   f.fluxErr == nil,
		ImportantData: f.importantErr == nil,
		ShareUsage:    f.shareErr == nil,
	}
	health.Overall = health.Summary && health.FluxPackage
	return health
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, subject string) (bool, error) { return true, nil }

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, subject string) (bool, error) { return false, nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telecom.PhoneNumbers = []string{"13800138000"}
	cfg.Telecom.Passwords = []string{"123456"}
	cfg.Telecom.APIBase = "https://example.invalid"
	cfg.Telecom.CacheMaxAge = 2 * time.Minute
	return cfg
}

func healthySummary() *carrier.Summary {
	return &carrier.Summary{
		Phonenum:    "13800138000",
		Balance:     12345,
		VoiceUsage:  100,
		VoiceTotal:  500,
		CommonUse:   5 * 1024 * 1024,
		CommonTotal: 20 * 1024 * 1024,
		CreateTime:  "2026-08-11 00:00:00",
	}
}

func healthyGateway() *fakeGateway {
	return &fakeGateway{
		summary:     healthySummary(),
		fluxPackage: &carrier.FluxPackage{},
	}
}
