package safeops

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/state"
	"github.com/safeops/safeops/pkg/store"
	"github.com/safeops/safeops/pkg/store/memory"
	"github.com/safeops/safeops/pkg/store/postgres"
	"github.com/safeops/safeops/pkg/store/surrealdb"
)

// Store backend selectors accepted by -store and SAFEOPS_STORE.
const (
	StoreSurrealDB = "surrealdb"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Config holds application configuration assembled from flags and
// environment variables.
type Config struct {
	// Server address, e.g. ":8080".
	Addr string

	// StoreKind selects the backend: surrealdb, postgres, or memory.
	StoreKind string

	PostgresDSN   string
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string

	// ReadOnly rejects all write operations while still serving reads,
	// for maintenance windows.
	ReadOnly bool

	LogLevel string
}

// App is the assembled application: the store behind a read-only
// guard, the risk scoring matrix, session registry, view state, and
// logger. Everything an App needs is carried on the struct so multiple
// instances can coexist in one process.
type App struct {
	store  store.Store
	config *Config
	log    zerolog.Logger

	// riskMatrix scores hazards; set explicitly at construction, never
	// inferred from data.
	riskMatrix models.RiskMatrix

	states *state.Set

	sessionMu sync.RWMutex
	sessions  map[string]*models.User

	readOnlyMu sync.RWMutex
	readOnly   bool
}

// New creates an application instance connected to the configured
// store. The store is wrapped with read-only protection controlled by
// App.SetReadOnly.
func New(ctx context.Context, config *Config) (*App, error) {
	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	matrix := models.DefaultRiskMatrix()
	if err := matrix.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk matrix: %w", err)
	}

	var backing store.Store
	switch config.StoreKind {
	case StoreSurrealDB:
		backing, err = surrealdb.NewSurrealStore(ctx,
			config.SurrealDBURL,
			config.SurrealDBNS,
			config.SurrealDBDB,
			config.SurrealDBUser,
			config.SurrealDBPass,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		logger.Info().Str("url", config.SurrealDBURL).Msg("connected to SurrealDB")
	case StorePostgres:
		backing, err = postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		logger.Info().Msg("connected to PostgreSQL")
	case StoreMemory:
		backing = memory.NewMemoryStore()
		logger.Info().Msg("using in-memory store")
	default:
		return nil, fmt.Errorf("unknown store kind: %q", config.StoreKind)
	}

	app := &App{
		config:     config,
		log:        logger,
		riskMatrix: matrix,
		states:     state.NewSet(),
		sessions:   make(map[string]*models.User),
		readOnly:   config.ReadOnly,
	}
	app.store = store.NewReadOnlyStore(backing, app.IsReadOnly)

	return app, nil
}

// newLogger builds a zerolog logger at the given level, defaulting to
// info on an empty level string.
func newLogger(level string) (zerolog.Logger, error) {
	if level == "" {
		level = zerolog.LevelInfoValue
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger(), nil
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the application store, useful for tests seeding data.
func (a *App) Store() store.Store {
	return a.store
}

// States returns the view state collections kept in sync by the
// realtime reconcilers.
func (a *App) States() *state.Set {
	return a.states
}

// SetReadOnly toggles read-only mode at runtime. Writes are rejected
// at the store wrapper, so the change takes effect immediately without
// a restart.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnlyMu.Lock()
	a.readOnly = readOnly
	a.readOnlyMu.Unlock()
	a.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

// IsReadOnly reports whether writes are currently rejected. Checked by
// the store wrapper on every write, so it stays cheap.
func (a *App) IsReadOnly() bool {
	a.readOnlyMu.RLock()
	defer a.readOnlyMu.RUnlock()
	return a.readOnly
}

// getEnv returns the environment variable value, or the default when
// unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
