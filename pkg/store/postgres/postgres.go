// Package postgres implements the [github.com/safeops/safeops/pkg/store.Store]
// interface on PostgreSQL using GORM.
//
// The relational schema maps the pkg/models entities one to one:
// venues, venue_hazards, raw_submissions, raw_hazards, users and
// notifications, with foreign keys enforcing the parent-must-exist
// invariants that the SurrealDB store checks explicitly. Schema setup
// goes through GORM's AutoMigrate, which only adds missing elements
// and is safe to run repeatedly.
//
// This store does not implement a change feed; realtime reconciliation
// is only available on backends that can push changes.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// PostgresStore implements the Store interface using PostgreSQL with GORM.
type PostgresStore struct {
	db *gorm.DB
}

var _ store.Store = (*PostgresStore)(nil)

// NewPostgresStore connects to PostgreSQL with the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates or updates the schema through GORM AutoMigrate.
// Users first so the foreign keys on venues and worksheets resolve.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Venue{},
		&models.VenueHazard{},
		&models.RAW{},
		&models.RAWHazard{},
		&models.Notification{},
	)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) getDB() *gorm.DB {
	return s.db
}

// Venue operations

func (s *PostgresStore) CreateVenue(ctx context.Context, venue *models.Venue) error {
	if venue.Status == "" {
		venue.Status = models.VenueStatusSafe
	}
	return s.getDB().WithContext(ctx).Create(venue).Error
}

func (s *PostgresStore) GetVenue(ctx context.Context, id models.VenueID) (*models.Venue, error) {
	var venue models.Venue
	err := s.getDB().WithContext(ctx).First(&venue, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &venue, nil
}

func (s *PostgresStore) UpdateVenue(ctx context.Context, venue *models.Venue) error {
	return s.getDB().WithContext(ctx).Save(venue).Error
}

func (s *PostgresStore) MergeVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error) {
	res := s.getDB().WithContext(ctx).Model(&models.Venue{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("venue %s does not exist", id)
	}
	return s.GetVenue(ctx, id)
}

func (s *PostgresStore) DeleteVenue(ctx context.Context, id models.VenueID) error {
	// Foreign keys from venue_hazards and raw_submissions reject the
	// delete while dependents remain.
	return s.getDB().WithContext(ctx).Delete(&models.Venue{}, "id = ?", id).Error
}

func (s *PostgresStore) ListVenues(ctx context.Context, filter store.VenueFilter) ([]*models.Venue, error) {
	q := s.getDB().WithContext(ctx).Model(&models.Venue{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR address ILIKE ?", pattern, pattern)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.CreatedBy.IsZero() {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	venues := []*models.Venue{}
	err := q.Order("updated_at DESC, created_at DESC").Find(&venues).Error
	return venues, err
}

// Venue hazard operations

func (s *PostgresStore) CreateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	if hazard.Status == "" {
		hazard.Status = models.HazardStatusOpen
	}
	return s.getDB().WithContext(ctx).Create(hazard).Error
}

func (s *PostgresStore) GetVenueHazard(ctx context.Context, id models.VenueHazardID) (*models.VenueHazard, error) {
	var hazard models.VenueHazard
	err := s.getDB().WithContext(ctx).First(&hazard, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hazard, nil
}

func (s *PostgresStore) UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	return s.getDB().WithContext(ctx).Save(hazard).Error
}

func (s *PostgresStore) MergeVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error) {
	res := s.getDB().WithContext(ctx).Model(&models.VenueHazard{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("venue hazard %s does not exist", id)
	}
	return s.GetVenueHazard(ctx, id)
}

func (s *PostgresStore) DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error {
	return s.getDB().WithContext(ctx).Delete(&models.VenueHazard{}, "id = ?", id).Error
}

func (s *PostgresStore) ListVenueHazards(ctx context.Context, venueID models.VenueID) ([]*models.VenueHazard, error) {
	hazards := []*models.VenueHazard{}
	err := s.getDB().WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("rpn DESC").
		Find(&hazards).Error
	return hazards, err
}

// RAW operations

func (s *PostgresStore) CreateRAW(ctx context.Context, raw *models.RAW) error {
	if raw.Status == "" {
		raw.Status = models.RAWStatusDraft
	}
	if raw.RiskLevel == "" {
		raw.RiskLevel = models.RiskLevelMedium
	}
	// Hazards are created through their own operations; Omit keeps a
	// populated view model from cascading inserts.
	return s.getDB().WithContext(ctx).Omit("Hazards").Create(raw).Error
}

func (s *PostgresStore) GetRAW(ctx context.Context, id models.RAWID) (*models.RAW, error) {
	var raw models.RAW
	err := s.getDB().WithContext(ctx).First(&raw, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var venue models.Venue
	if err := s.getDB().WithContext(ctx).Select("name").First(&venue, "id = ?", raw.VenueID).Error; err == nil {
		raw.VenueName = venue.Name
	}

	hazards := []models.RAWHazard{}
	if err := s.getDB().WithContext(ctx).
		Where("raw_id = ?", id).
		Order("rpn DESC").
		Find(&hazards).Error; err != nil {
		return nil, err
	}
	raw.Hazards = hazards
	return &raw, nil
}

func (s *PostgresStore) UpdateRAW(ctx context.Context, raw *models.RAW) error {
	return s.getDB().WithContext(ctx).Omit("Hazards").Save(raw).Error
}

func (s *PostgresStore) MergeRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error) {
	res := s.getDB().WithContext(ctx).Model(&models.RAW{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("RAW %s does not exist", id)
	}
	return s.GetRAW(ctx, id)
}

func (s *PostgresStore) DeleteRAW(ctx context.Context, id models.RAWID) error {
	return s.getDB().WithContext(ctx).Delete(&models.RAW{}, "id = ?", id).Error
}

func (s *PostgresStore) ListRAWs(ctx context.Context, filter store.RAWFilter) ([]*models.RAW, error) {
	q := s.getDB().WithContext(ctx).Model(&models.RAW{}).
		Select("raw_submissions.*, venues.name AS venue_name").
		Joins("LEFT JOIN venues ON venues.id = raw_submissions.venue_id")
	if !filter.AuthorID.IsZero() {
		q = q.Where("raw_submissions.author_id = ?", filter.AuthorID)
	}
	if filter.Status != "" {
		q = q.Where("raw_submissions.status = ?", filter.Status)
	}
	if filter.Search != "" {
		q = q.Where("raw_submissions.event_title ILIKE ?", "%"+filter.Search+"%")
	}
	raws := []*models.RAW{}
	err := q.Order("raw_submissions.updated_at DESC, raw_submissions.created_at DESC").Find(&raws).Error
	return raws, err
}

// RAW hazard operations

func (s *PostgresStore) CreateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	return s.getDB().WithContext(ctx).Create(hazard).Error
}

func (s *PostgresStore) GetRAWHazard(ctx context.Context, id models.RAWHazardID) (*models.RAWHazard, error) {
	var hazard models.RAWHazard
	err := s.getDB().WithContext(ctx).First(&hazard, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hazard, nil
}

func (s *PostgresStore) UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	return s.getDB().WithContext(ctx).Save(hazard).Error
}

func (s *PostgresStore) MergeRAWHazard(ctx context.Context, id models.RAWHazardID, fields map[string]any) (*models.RAWHazard, error) {
	res := s.getDB().WithContext(ctx).Model(&models.RAWHazard{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("RAW hazard %s does not exist", id)
	}
	return s.GetRAWHazard(ctx, id)
}

func (s *PostgresStore) DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error {
	return s.getDB().WithContext(ctx).Delete(&models.RAWHazard{}, "id = ?", id).Error
}

func (s *PostgresStore) ListRAWHazards(ctx context.Context, rawID models.RAWID) ([]*models.RAWHazard, error) {
	hazards := []*models.RAWHazard{}
	err := s.getDB().WithContext(ctx).
		Where("raw_id = ?", rawID).
		Order("rpn DESC").
		Find(&hazards).Error
	return hazards, err
}

// User operations

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleSafetyOfficer
	}
	return s.getDB().WithContext(ctx).Create(user).Error
}

func (s *PostgresStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.getDB().WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.getDB().WithContext(ctx).First(&user, "LOWER(email) = LOWER(?)", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	return s.getDB().WithContext(ctx).Save(user).Error
}

func (s *PostgresStore) ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	users := []*models.User{}
	err := s.getDB().WithContext(ctx).Where("role = ?", role).Find(&users).Error
	return users, err
}

// Notification operations

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.getDB().WithContext(ctx).Create(n).Error
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	notifications := []*models.Notification{}
	err := s.getDB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	res := s.getDB().WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %s does not exist", id)
	}
	return nil
}
