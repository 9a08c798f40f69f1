//go:build smoke

// Smoke tests drive a running SafeOps server with concurrent virtual
// users. They exist to catch correctness bugs under load, not to
// measure performance: every test verifies that the data a user
// created is retrievable and consistent afterwards.
//
// Configuration comes from the environment:
//
//	SAFEOPS_URL          Server base URL (default http://localhost:8080)
//	SMOKE_NUM_USERS      Concurrent virtual users (default 10)
//	SMOKE_TIMEOUT        Overall test timeout (default 5m)
//	SMOKE_SUCCESS_RATE   Minimum success percentage (default 95)
//
// Example:
//
//	go test -tags smoke -run TestSmoke ./...
package safeops_test

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/safeopstesting"
)

type smokeConfig struct {
	BaseURL     string
	NumUsers    int
	Timeout     time.Duration
	SuccessRate float64
}

func smokeConfigFromEnv() smokeConfig {
	return smokeConfig{
		BaseURL:     envOr("SAFEOPS_URL", "http://localhost:8080"),
		NumUsers:    envOrInt("SMOKE_NUM_USERS", 10),
		Timeout:     envOrDuration("SMOKE_TIMEOUT", 5*time.Minute),
		SuccessRate: envOrFloat("SMOKE_SUCCESS_RATE", 95.0),
	}
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envOrInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func envOrDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func envOrFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// TestSmokeConcurrentUsers runs independent officer scenarios
// concurrently and verifies every user's data afterwards.
func TestSmokeConcurrentUsers(t *testing.T) {
	cfg := smokeConfigFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	users := make([]*safeopstesting.VirtualUser, cfg.NumUsers)
	errs := make([]error, cfg.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < cfg.NumUsers; i++ {
		users[i] = safeopstesting.NewVirtualUser(i, cfg.BaseURL)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = users[i].RunScenario(ctx)
		}(i)
		// Stagger launches slightly to avoid a thundering herd of
		// signups.
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err != nil {
			t.Logf("virtual user %d failed: %v", i, err)
			continue
		}
		succeeded++
	}

	rate := float64(succeeded) / float64(cfg.NumUsers) * 100
	require.GreaterOrEqual(t, rate, cfg.SuccessRate,
		"success rate %.1f%% below required %.1f%%", rate, cfg.SuccessRate)

	for i, vu := range users {
		if errs[i] != nil {
			continue
		}
		require.NoError(t, vu.VerifyAllData(ctx), "virtual user %d data verification", i)
	}
}
