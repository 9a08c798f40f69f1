// Package surrealdb implements the [github.com/safeops/safeops/pkg/store.Store]
// interface against SurrealDB using native SurrealQL.
//
// The store uses the surrealcbor codec for all marshaling. SurrealDB
// speaks CBOR internally, and the default Go marshaling does not
// produce compatible representations of time.Time or record IDs. With
// the codec in place the typed IDs in pkg/models marshal straight to
// SurrealDB RecordIDs, so entity structs are written and read without
// a translation layer.
//
// All queries are parameterized ($param syntax). User-provided values
// are never interpolated into query strings.
//
// This store also implements [github.com/safeops/safeops/pkg/store.ChangeFeed]
// through SurrealDB live queries; see live.go.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// SurrealStore implements store.Store and store.ChangeFeed on a single
// SurrealDB WebSocket connection. The connection is shared by all
// operations; the SDK serializes RPC calls internally.
type SurrealStore struct {
	db       *surrealdb.DB
	ns       string
	database string
}

var _ store.Store = (*SurrealStore)(nil)
var _ store.ChangeFeed = (*SurrealStore)(nil)

// NewSurrealStore connects to SurrealDB over WebSocket, authenticates
// when credentials are given, and selects the namespace and database.
//
// The connection config is built manually rather than from the
// endpoint URL so the surrealcbor codec can be installed as the
// marshaler; without it time.Time values fail with invalid datetime
// errors and typed IDs are not recognized as RecordIDs.
func NewSurrealStore(ctx context.Context, wsURL, namespace, database, username, password string) (*SurrealStore, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealStore{
		db:       db,
		ns:       namespace,
		database: database,
	}, nil
}

// Migrate defines the unique email index on users. SurrealDB creates
// tables implicitly on first insert, so no other schema work is
// needed; the index is the one constraint the application relies on.
func (s *SurrealStore) Migrate(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		"DEFINE INDEX IF NOT EXISTS users_email ON TABLE users COLUMNS email UNIQUE", nil)
	if err != nil {
		return fmt.Errorf("failed to define users email index: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SurrealStore) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps the SDK's empty-result errors to nil so callers
// can treat missing records as absent rather than failed.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// first returns the first row of a query result, or nil when empty.
func first[T any](result *[]surrealdb.QueryResult[[]T]) *T {
	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0]
	}
	return nil
}

// rows collects every row of a query result into a pointer slice,
// never returning nil.
func rows[T any](result *[]surrealdb.QueryResult[[]T]) []*T {
	out := []*T{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			out = append(out, &(*result)[0].Result[i])
		}
	}
	return out
}

// Venue operations

func (s *SurrealStore) CreateVenue(ctx context.Context, venue *models.Venue) error {
	if venue.ID.IsZero() {
		venue.ID = models.NewVenueID()
	}
	if venue.Status == "" {
		venue.Status = models.VenueStatusSafe
	}
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = time.Now()
	}
	if venue.UpdatedAt.IsZero() {
		venue.UpdatedAt = time.Now()
	}

	// Typed IDs marshal to RecordIDs via their MarshalCBOR, so the
	// model goes in directly.
	_, err := surrealdb.Create[models.Venue](ctx, s.db, models.TableVenues, venue)
	if err != nil {
		return fmt.Errorf("failed to create venue: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetVenue(ctx context.Context, id models.VenueID) (*models.Venue, error) {
	venue, err := surrealdb.Select[models.Venue](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return venue, nil
}

func (s *SurrealStore) UpdateVenue(ctx context.Context, venue *models.Venue) error {
	venue.UpdatedAt = time.Now()
	_, err := surrealdb.Update[models.Venue](ctx, s.db, venue.ID.RecordID(), venue)
	if err != nil {
		return fmt.Errorf("failed to update venue: %w", err)
	}
	return nil
}

func (s *SurrealStore) MergeVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error) {
	fields["updated_at"] = time.Now()
	venue, err := surrealdb.Merge[models.Venue](ctx, s.db, id.RecordID(), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge venue: %w", err)
	}
	return venue, nil
}

func (s *SurrealStore) DeleteVenue(ctx context.Context, id models.VenueID) error {
	// SurrealDB record links do not enforce referential integrity, so
	// dependents are checked explicitly before the delete.
	query := `SELECT count() AS n FROM venue_hazards WHERE venue_id = $venue GROUP ALL;
		SELECT count() AS n FROM raw_submissions WHERE venue_id = $venue GROUP ALL`
	params := map[string]any{"venue": id.RecordID()}
	type countRow struct {
		N int `json:"n"`
	}
	result, err := surrealdb.Query[[]countRow](ctx, s.db, query, params)
	if err != nil {
		return fmt.Errorf("failed to check venue references: %w", err)
	}
	if result != nil {
		for _, qr := range *result {
			if len(qr.Result) > 0 && qr.Result[0].N > 0 {
				return fmt.Errorf("venue %s still has dependent records: %w", id, store.ErrConflict)
			}
		}
	}

	_, err = surrealdb.Delete[models.Venue](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStore) ListVenues(ctx context.Context, filter store.VenueFilter) ([]*models.Venue, error) {
	var conds []string
	params := map[string]any{}
	if filter.Search != "" {
		conds = append(conds, "(string::lowercase(name) CONTAINS $search OR string::lowercase(address) CONTAINS $search)")
		params["search"] = strings.ToLower(filter.Search)
	}
	if filter.Status != "" {
		conds = append(conds, "status = $status")
		params["status"] = string(filter.Status)
	}
	if !filter.CreatedBy.IsZero() {
		conds = append(conds, "created_by = $created_by")
		params["created_by"] = filter.CreatedBy.RecordID()
	}

	query := "SELECT * FROM venues"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC"

	result, err := surrealdb.Query[[]models.Venue](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	return rows(result), nil
}

// Venue hazard operations

func (s *SurrealStore) CreateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	parent, err := s.GetVenue(ctx, hazard.VenueID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("venue %s does not exist", hazard.VenueID)
	}

	if hazard.ID.IsZero() {
		hazard.ID = models.NewVenueHazardID()
	}
	if hazard.Status == "" {
		hazard.Status = models.HazardStatusOpen
	}
	if hazard.CreatedAt.IsZero() {
		hazard.CreatedAt = time.Now()
	}
	if hazard.UpdatedAt.IsZero() {
		hazard.UpdatedAt = time.Now()
	}

	_, err = surrealdb.Create[models.VenueHazard](ctx, s.db, models.TableVenueHazards, hazard)
	if err != nil {
		return fmt.Errorf("failed to create venue hazard: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetVenueHazard(ctx context.Context, id models.VenueHazardID) (*models.VenueHazard, error) {
	hazard, err := surrealdb.Select[models.VenueHazard](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get venue hazard: %w", err)
	}
	return hazard, nil
}

func (s *SurrealStore) UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	hazard.UpdatedAt = time.Now()
	_, err := surrealdb.Update[models.VenueHazard](ctx, s.db, hazard.ID.RecordID(), hazard)
	if err != nil {
		return fmt.Errorf("failed to update venue hazard: %w", err)
	}
	return nil
}

func (s *SurrealStore) MergeVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error) {
	fields["updated_at"] = time.Now()
	hazard, err := surrealdb.Merge[models.VenueHazard](ctx, s.db, id.RecordID(), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge venue hazard: %w", err)
	}
	return hazard, nil
}

func (s *SurrealStore) DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error {
	_, err := surrealdb.Delete[models.VenueHazard](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStore) ListVenueHazards(ctx context.Context, venueID models.VenueID) ([]*models.VenueHazard, error) {
	query := "SELECT * FROM venue_hazards WHERE venue_id = $venue ORDER BY rpn DESC"
	params := map[string]any{"venue": venueID.RecordID()}
	result, err := surrealdb.Query[[]models.VenueHazard](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list venue hazards: %w", err)
	}
	return rows(result), nil
}

// RAW operations

func (s *SurrealStore) CreateRAW(ctx context.Context, raw *models.RAW) error {
	parent, err := s.GetVenue(ctx, raw.VenueID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("venue %s does not exist", raw.VenueID)
	}

	if raw.ID.IsZero() {
		raw.ID = models.NewRAWID()
	}
	if raw.Status == "" {
		raw.Status = models.RAWStatusDraft
	}
	if raw.RiskLevel == "" {
		raw.RiskLevel = models.RiskLevelMedium
	}
	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = time.Now()
	}
	if raw.UpdatedAt.IsZero() {
		raw.UpdatedAt = time.Now()
	}

	// The view-model fields must not be persisted.
	persist := *raw
	persist.VenueName = ""
	persist.Hazards = nil

	_, err = surrealdb.Create[models.RAW](ctx, s.db, models.TableRAWSubmissions, &persist)
	if err != nil {
		return fmt.Errorf("failed to create RAW: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetRAW(ctx context.Context, id models.RAWID) (*models.RAW, error) {
	// Record-link traversal pulls the venue name in the same query.
	query := "SELECT *, venue_id.name AS venue_name FROM ONLY $raw"
	params := map[string]any{"raw": id.RecordID()}
	result, err := surrealdb.Query[models.RAW](ctx, s.db, query, params)
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get RAW: %w", err)
	}
	if result == nil || len(*result) == 0 {
		return nil, nil
	}
	raw := (*result)[0].Result
	if raw.ID.IsZero() {
		return nil, nil
	}

	hazards, err := s.ListRAWHazards(ctx, id)
	if err != nil {
		return nil, err
	}
	raw.Hazards = make([]models.RAWHazard, 0, len(hazards))
	for _, h := range hazards {
		raw.Hazards = append(raw.Hazards, *h)
	}
	return &raw, nil
}

func (s *SurrealStore) UpdateRAW(ctx context.Context, raw *models.RAW) error {
	raw.UpdatedAt = time.Now()
	persist := *raw
	persist.VenueName = ""
	persist.Hazards = nil
	_, err := surrealdb.Update[models.RAW](ctx, s.db, raw.ID.RecordID(), &persist)
	if err != nil {
		return fmt.Errorf("failed to update RAW: %w", err)
	}
	return nil
}

func (s *SurrealStore) MergeRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error) {
	fields["updated_at"] = time.Now()
	raw, err := surrealdb.Merge[models.RAW](ctx, s.db, id.RecordID(), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge RAW: %w", err)
	}
	return raw, nil
}

func (s *SurrealStore) DeleteRAW(ctx context.Context, id models.RAWID) error {
	query := "SELECT count() AS n FROM raw_hazards WHERE raw_id = $raw GROUP ALL"
	params := map[string]any{"raw": id.RecordID()}
	type countRow struct {
		N int `json:"n"`
	}
	result, err := surrealdb.Query[[]countRow](ctx, s.db, query, params)
	if err != nil {
		return fmt.Errorf("failed to check RAW references: %w", err)
	}
	if row := first(result); row != nil && row.N > 0 {
		return fmt.Errorf("RAW %s still has hazard entries: %w", id, store.ErrConflict)
	}

	_, err = surrealdb.Delete[models.RAW](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStore) ListRAWs(ctx context.Context, filter store.RAWFilter) ([]*models.RAW, error) {
	var conds []string
	params := map[string]any{}
	if !filter.AuthorID.IsZero() {
		conds = append(conds, "author_id = $author")
		params["author"] = filter.AuthorID.RecordID()
	}
	if filter.Status != "" {
		conds = append(conds, "status = $status")
		params["status"] = string(filter.Status)
	}
	if filter.Search != "" {
		conds = append(conds, "string::lowercase(event_title) CONTAINS $search")
		params["search"] = strings.ToLower(filter.Search)
	}

	query := "SELECT *, venue_id.name AS venue_name FROM raw_submissions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC"

	result, err := surrealdb.Query[[]models.RAW](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list RAWs: %w", err)
	}
	return rows(result), nil
}

// RAW hazard operations

func (s *SurrealStore) CreateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	query := "SELECT id FROM ONLY $raw"
	params := map[string]any{"raw": hazard.RAWID.RecordID()}
	type idRow struct {
		ID models.RAWID `json:"id"`
	}
	result, err := surrealdb.Query[idRow](ctx, s.db, query, params)
	if err != nil && handleNotFound(err) != nil {
		return fmt.Errorf("failed to check RAW existence: %w", err)
	}
	if result == nil || len(*result) == 0 || (*result)[0].Result.ID.IsZero() {
		return fmt.Errorf("RAW %s does not exist", hazard.RAWID)
	}

	if hazard.ID.IsZero() {
		hazard.ID = models.NewRAWHazardID()
	}
	if hazard.CreatedAt.IsZero() {
		hazard.CreatedAt = time.Now()
	}

	_, err = surrealdb.Create[models.RAWHazard](ctx, s.db, models.TableRAWHazards, hazard)
	if err != nil {
		return fmt.Errorf("failed to create RAW hazard: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetRAWHazard(ctx context.Context, id models.RAWHazardID) (*models.RAWHazard, error) {
	hazard, err := surrealdb.Select[models.RAWHazard](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get RAW hazard: %w", err)
	}
	return hazard, nil
}

func (s *SurrealStore) UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	_, err := surrealdb.Update[models.RAWHazard](ctx, s.db, hazard.ID.RecordID(), hazard)
	if err != nil {
		return fmt.Errorf("failed to update RAW hazard: %w", err)
	}
	return nil
}

func (s *SurrealStore) MergeRAWHazard(ctx context.Context, id models.RAWHazardID, fields map[string]any) (*models.RAWHazard, error) {
	hazard, err := surrealdb.Merge[models.RAWHazard](ctx, s.db, id.RecordID(), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to merge RAW hazard: %w", err)
	}
	return hazard, nil
}

func (s *SurrealStore) DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error {
	_, err := surrealdb.Delete[models.RAWHazard](ctx, s.db, id.RecordID())
	return err
}

func (s *SurrealStore) ListRAWHazards(ctx context.Context, rawID models.RAWID) ([]*models.RAWHazard, error) {
	query := "SELECT * FROM raw_hazards WHERE raw_id = $raw ORDER BY rpn DESC"
	params := map[string]any{"raw": rawID.RecordID()}
	result, err := surrealdb.Query[[]models.RAWHazard](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list RAW hazards: %w", err)
	}
	return rows(result), nil
}

// User operations

func (s *SurrealStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.Role == "" {
		user.Role = models.RoleSafetyOfficer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.User](ctx, s.db, models.TableUsers, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SurrealStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *SurrealStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT * FROM users WHERE string::lowercase(email) = $email"
	params := map[string]any{"email": strings.ToLower(email)}
	result, err := surrealdb.Query[[]models.User](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return first(result), nil
}

func (s *SurrealStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := surrealdb.Update[models.User](ctx, s.db, user.ID.RecordID(), user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *SurrealStore) ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	query := "SELECT * FROM users WHERE role = $role"
	params := map[string]any{"role": string(role)}
	result, err := surrealdb.Query[[]models.User](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return rows(result), nil
}

// Notification operations

func (s *SurrealStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = models.NewNotificationID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.Notification](ctx, s.db, models.TableNotifications, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *SurrealStore) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	query := "SELECT * FROM notifications WHERE user_id = $user ORDER BY created_at DESC"
	params := map[string]any{"user": userID.RecordID()}
	result, err := surrealdb.Query[[]models.Notification](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return rows(result), nil
}

func (s *SurrealStore) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	_, err := surrealdb.Merge[models.Notification](ctx, s.db, id.RecordID(), map[string]any{
		"read": true,
	})
	return err
}
