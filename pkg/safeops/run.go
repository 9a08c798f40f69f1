package safeops

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/realtime"
	"github.com/safeops/safeops/pkg/store"
	surrealstore "github.com/safeops/safeops/pkg/store/surrealdb"
)

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
//
// # API Endpoints
//
// Health:
//
//	GET  /health, /api/health                  - Service health status
//	GET  /api/hello                            - Greeting used by connectivity checks
//
// Authentication:
//
//	POST /api/auth/signup                      - Register a user account
//	POST /api/auth/signin                      - Authenticate a user
//	POST /api/auth/signout                     - End the session
//	GET  /api/auth/me                          - Current authenticated user
//	POST /api/auth/refresh                     - Rotate the session token
//
// Venues:
//
//	POST   /api/venues                         - Create venue
//	GET    /api/venues                         - List venues (?search=, ?status=, ?created_by=)
//	GET    /api/venues/{id}                    - Get venue
//	PUT    /api/venues/{id}                    - Replace venue
//	PATCH  /api/venues/{id}                    - Partially update venue
//	DELETE /api/venues/{id}                    - Delete venue
//	GET    /api/venues/{id}/hazards            - List venue hazards, highest risk first
//	POST   /api/venues/{id}/hazards            - Report a hazard at the venue
//
// Venue hazards:
//
//	GET    /api/hazards/{id}                   - Get hazard
//	PUT    /api/hazards/{id}                   - Replace hazard
//	PATCH  /api/hazards/{id}                   - Partially update hazard
//	DELETE /api/hazards/{id}                   - Delete hazard
//
// Risk Assessment Workflows (RAWs):
//
//	POST   /api/raws                           - Create RAW (always starts as draft)
//	GET    /api/raws                           - List RAWs (?author_id=, ?status=, ?search=)
//	GET    /api/raws/{id}                      - Get RAW with hazards and venue name
//	PUT    /api/raws/{id}                      - Replace RAW
//	PATCH  /api/raws/{id}                      - Partially update RAW
//	DELETE /api/raws/{id}                      - Delete RAW
//	POST   /api/raws/{id}/submit               - Submit a draft for approval
//	POST   /api/raws/{id}/approve              - Approve a submitted RAW
//	POST   /api/raws/{id}/reject               - Reject a submitted RAW
//	POST   /api/raws/{id}/request-changes      - Send a submitted RAW back for changes
//	GET    /api/raws/{id}/hazards              - List RAW hazard entries
//	POST   /api/raws/{id}/hazards              - Add a hazard entry to the RAW
//
// RAW hazard entries:
//
//	GET    /api/raw-hazards/{id}               - Get entry
//	PUT    /api/raw-hazards/{id}               - Replace entry
//	PATCH  /api/raw-hazards/{id}               - Partially update entry
//	DELETE /api/raw-hazards/{id}               - Delete entry
//
// Notifications:
//
//	GET    /api/notifications                  - List notifications (?user_id= required)
//	POST   /api/notifications/{id}/read        - Mark a notification read
//
// Users:
//
//	POST   /api/users                          - Create user
//	GET    /api/users/{id}                     - Get user
//	PUT    /api/users/{id}                     - Update user
//
// When the store provides a change feed (SurrealDB live queries, or
// the in-memory store's local feed), Run also starts reconcilers that
// keep the venue and RAW view collections synchronized incrementally.
// On graceful shutdown active requests get up to 5 seconds to finish.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	router := a.Router()

	rtCtx, cancelRealtime := context.WithCancel(ctx)
	defer cancelRealtime()
	a.startReconcilers(rtCtx)

	server := &http.Server{
		Addr:    a.config.Addr,
		Handler: router,
	}

	a.log.Info().Str("addr", a.config.Addr).Str("store", a.config.StoreKind).Msg("starting SafeOps server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// Router builds the HTTP route table. Exposed so tests can drive the
// API through httptest without a listening socket.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")
	api.HandleFunc("/hello", a.handleHello).Methods("GET")

	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", a.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", a.handleGetCurrentUser).Methods("GET")
	api.HandleFunc("/auth/refresh", a.handleRefreshToken).Methods("POST")

	api.HandleFunc("/venues", a.handleCreateVenue).Methods("POST")
	api.HandleFunc("/venues", a.handleListVenues).Methods("GET")
	api.HandleFunc("/venues/{id}", a.handleGetVenue).Methods("GET")
	api.HandleFunc("/venues/{id}", a.handleUpdateVenue).Methods("PUT")
	api.HandleFunc("/venues/{id}", a.handlePatchVenue).Methods("PATCH")
	api.HandleFunc("/venues/{id}", a.handleDeleteVenue).Methods("DELETE")
	api.HandleFunc("/venues/{id}/hazards", a.handleListVenueHazards).Methods("GET")
	api.HandleFunc("/venues/{id}/hazards", a.handleCreateVenueHazard).Methods("POST")

	api.HandleFunc("/hazards/{id}", a.handleGetVenueHazard).Methods("GET")
	api.HandleFunc("/hazards/{id}", a.handleUpdateVenueHazard).Methods("PUT")
	api.HandleFunc("/hazards/{id}", a.handlePatchVenueHazard).Methods("PATCH")
	api.HandleFunc("/hazards/{id}", a.handleDeleteVenueHazard).Methods("DELETE")

	api.HandleFunc("/raws", a.handleCreateRAW).Methods("POST")
	api.HandleFunc("/raws", a.handleListRAWs).Methods("GET")
	api.HandleFunc("/raws/{id}", a.handleGetRAW).Methods("GET")
	api.HandleFunc("/raws/{id}", a.handleUpdateRAW).Methods("PUT")
	api.HandleFunc("/raws/{id}", a.handlePatchRAW).Methods("PATCH")
	api.HandleFunc("/raws/{id}", a.handleDeleteRAW).Methods("DELETE")
	api.HandleFunc("/raws/{id}/submit", a.handleSubmitRAW).Methods("POST")
	api.HandleFunc("/raws/{id}/approve", a.handleApproveRAW).Methods("POST")
	api.HandleFunc("/raws/{id}/reject", a.handleRejectRAW).Methods("POST")
	api.HandleFunc("/raws/{id}/request-changes", a.handleRequestChangesRAW).Methods("POST")
	api.HandleFunc("/raws/{id}/hazards", a.handleListRAWHazards).Methods("GET")
	api.HandleFunc("/raws/{id}/hazards", a.handleCreateRAWHazard).Methods("POST")

	api.HandleFunc("/raw-hazards/{id}", a.handleGetRAWHazard).Methods("GET")
	api.HandleFunc("/raw-hazards/{id}", a.handleUpdateRAWHazard).Methods("PUT")
	api.HandleFunc("/raw-hazards/{id}", a.handlePatchRAWHazard).Methods("PATCH")
	api.HandleFunc("/raw-hazards/{id}", a.handleDeleteRAWHazard).Methods("DELETE")

	api.HandleFunc("/notifications", a.handleListNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", a.handleMarkNotificationRead).Methods("POST")

	api.HandleFunc("/users", a.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", a.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{id}", a.handleUpdateUser).Methods("PUT")

	// Health check outside the /api prefix for load balancers.
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}

// startReconcilers launches background reconcilers for venues and
// RAWs when the backing store exposes a change feed. Stores without a
// feed serve the API only; view collections then stay empty.
func (a *App) startReconcilers(ctx context.Context) {
	feed := a.changeFeed()
	if feed == nil {
		a.log.Debug().Msg("store has no change feed, realtime disabled")
		return
	}

	venues := realtime.NewReconciler(
		feed, models.TableVenues, a.states.Venues,
		func(ctx context.Context) ([]*models.Venue, error) {
			return a.store.ListVenues(ctx, store.VenueFilter{})
		},
		a.venueDecoder(), a.log,
	)
	raws := realtime.NewReconciler(
		feed, models.TableRAWSubmissions, a.states.RAWs,
		func(ctx context.Context) ([]*models.RAW, error) {
			return a.store.ListRAWs(ctx, store.RAWFilter{})
		},
		a.rawDecoder(), a.log,
	)

	go a.runReconciler(ctx, models.TableVenues, venues.Run)
	go a.runReconciler(ctx, models.TableRAWSubmissions, raws.Run)
}

func (a *App) runReconciler(ctx context.Context, table string, run func(context.Context) error) {
	if err := run(ctx); err != nil && ctx.Err() == nil {
		a.log.Error().Err(err).Str("table", table).Msg("reconciler stopped")
	}
}

// changeFeed returns the backing store's feed, reaching through the
// read-only wrapper.
func (a *App) changeFeed() store.ChangeFeed {
	s := a.store
	if ro, ok := s.(*store.ReadOnlyStore); ok {
		s = ro.Unwrap()
	}
	if feed, ok := s.(store.ChangeFeed); ok {
		return feed
	}
	return nil
}

func (a *App) venueDecoder() func(map[string]any) (*models.Venue, error) {
	if a.config.StoreKind == StoreSurrealDB {
		return surrealstore.RecordDecoder[*models.Venue]()
	}
	return realtime.JSONDecoder[*models.Venue]()
}

func (a *App) rawDecoder() func(map[string]any) (*models.RAW, error) {
	if a.config.StoreKind == StoreSurrealDB {
		return surrealstore.RecordDecoder[*models.RAW]()
	}
	return realtime.JSONDecoder[*models.RAW]()
}
