// Package memory implements the [github.com/safeops/safeops/pkg/store.Store]
// interface with in-process maps.
//
// The store backs unit tests and the `-store memory` run mode, where a
// demo server needs no external database. It mirrors the semantics of
// the database-backed stores: nil results for missing records, parent
// existence checks before hazard creation, unique emails, and
// most-recent-first listing. It also implements
// [github.com/safeops/safeops/pkg/store.ChangeFeed] by broadcasting
// every local write to subscribers, so realtime reconciliation can be
// exercised without a SurrealDB instance.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// MemoryStore implements store.Store and store.ChangeFeed in memory.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	venues        map[models.VenueID]*models.Venue
	venueHazards  map[models.VenueHazardID]*models.VenueHazard
	raws          map[models.RAWID]*models.RAW
	rawHazards    map[models.RAWHazardID]*models.RAWHazard
	users         map[models.UserID]*models.User
	notifications map[models.NotificationID]*models.Notification

	// seq breaks ordering ties for records written in the same
	// timestamp tick, standing in for backend insertion order.
	seq     uint64
	seqs    map[string]uint64
	subsMu  sync.Mutex
	subs    map[string][]*subscriber
	nextSub int
}

type subscriber struct {
	id int
	ch chan store.Change
}

var _ store.Store = (*MemoryStore)(nil)
var _ store.ChangeFeed = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		venues:        map[models.VenueID]*models.Venue{},
		venueHazards:  map[models.VenueHazardID]*models.VenueHazard{},
		raws:          map[models.RAWID]*models.RAW{},
		rawHazards:    map[models.RAWHazardID]*models.RAWHazard{},
		users:         map[models.UserID]*models.User{},
		notifications: map[models.NotificationID]*models.Notification{},
		seqs:          map[string]uint64{},
		subs:          map[string][]*subscriber{},
	}
}

// Migrate is a no-op; there is no schema to prepare.
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close drops all subscribers. The data stays available so tests can
// still assert on it after shutdown.
func (s *MemoryStore) Close() error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, subs := range s.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	s.subs = map[string][]*subscriber{}
	return nil
}

// Subscribe registers a change feed on the table. The channel is
// buffered so writers never block on slow consumers; it closes when
// ctx is done.
func (s *MemoryStore) Subscribe(ctx context.Context, table string) (<-chan store.Change, error) {
	sub := &subscriber{ch: make(chan store.Change, 64)}

	s.subsMu.Lock()
	s.nextSub++
	sub.id = s.nextSub
	s.subs[table] = append(s.subs[table], sub)
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		subs := s.subs[table]
		for i, candidate := range subs {
			if candidate.id == sub.id {
				s.subs[table] = append(subs[:i], subs[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}()

	return sub.ch, nil
}

// publish broadcasts a change to every subscriber of the table. The
// record body round-trips through JSON so subscribers get the same
// loosely typed maps a backend feed would deliver.
func (s *MemoryStore) publish(action store.ChangeAction, table, id string, record any) {
	change := store.Change{Action: action, Table: table, ID: id}
	if action != store.ChangeDelete && record != nil {
		if b, err := json.Marshal(record); err == nil {
			var data map[string]any
			if json.Unmarshal(b, &data) == nil {
				change.Data = data
			}
		}
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs[table] {
		select {
		case sub.ch <- change:
		default:
			// Drop on a full buffer; the reconciler converges on the
			// next event or full reload.
		}
	}
}

func (s *MemoryStore) nextSeq(key string) {
	s.seq++
	s.seqs[key] = s.seq
}

// Venue operations

func (s *MemoryStore) CreateVenue(ctx context.Context, venue *models.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if venue.ID.IsZero() {
		venue.ID = models.NewVenueID()
	}
	if _, exists := s.venues[venue.ID]; exists {
		return fmt.Errorf("venue %s already exists", venue.ID)
	}
	if venue.Status == "" {
		venue.Status = models.VenueStatusSafe
	}
	now := time.Now()
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	if venue.UpdatedAt.IsZero() {
		venue.UpdatedAt = now
	}

	cp := *venue
	s.venues[venue.ID] = &cp
	s.nextSeq(venue.ID.String())
	s.publish(store.ChangeCreate, models.TableVenues, venue.ID.String(), cp)
	return nil
}

func (s *MemoryStore) GetVenue(ctx context.Context, id models.VenueID) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	venue, ok := s.venues[id]
	if !ok {
		return nil, nil
	}
	cp := *venue
	return &cp, nil
}

func (s *MemoryStore) UpdateVenue(ctx context.Context, venue *models.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[venue.ID]; !ok {
		return fmt.Errorf("venue %s does not exist", venue.ID)
	}
	venue.UpdatedAt = time.Now()
	cp := *venue
	s.venues[venue.ID] = &cp
	s.nextSeq(venue.ID.String())
	s.publish(store.ChangeUpdate, models.TableVenues, venue.ID.String(), cp)
	return nil
}

func (s *MemoryStore) MergeVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	venue, ok := s.venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %s does not exist", id)
	}
	merged := *venue
	if err := applyFields(&merged, fields); err != nil {
		return nil, err
	}
	merged.UpdatedAt = time.Now()
	s.venues[id] = &merged
	s.nextSeq(id.String())
	s.publish(store.ChangeUpdate, models.TableVenues, id.String(), merged)
	cp := merged
	return &cp, nil
}

func (s *MemoryStore) DeleteVenue(ctx context.Context, id models.VenueID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[id]; !ok {
		return fmt.Errorf("venue %s does not exist", id)
	}
	for _, h := range s.venueHazards {
		if h.VenueID == id {
			return fmt.Errorf("venue %s still has dependent records: %w", id, store.ErrConflict)
		}
	}
	for _, r := range s.raws {
		if r.VenueID == id {
			return fmt.Errorf("venue %s still has dependent records: %w", id, store.ErrConflict)
		}
	}
	delete(s.venues, id)
	s.publish(store.ChangeDelete, models.TableVenues, id.String(), nil)
	return nil
}

func (s *MemoryStore) ListVenues(ctx context.Context, filter store.VenueFilter) ([]*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Venue{}
	search := strings.ToLower(filter.Search)
	for _, venue := range s.venues {
		if search != "" &&
			!strings.Contains(strings.ToLower(venue.Name), search) &&
			!strings.Contains(strings.ToLower(venue.Address), search) {
			continue
		}
		if filter.Status != "" && venue.Status != filter.Status {
			continue
		}
		if !filter.CreatedBy.IsZero() && venue.CreatedBy != filter.CreatedBy {
			continue
		}
		cp := *venue
		out = append(out, &cp)
	}
	sortNewestFirst(s.seqs, out, func(v *models.Venue) (time.Time, string) { return v.UpdatedAt, v.ID.String() })
	return out, nil
}

// Venue hazard operations

func (s *MemoryStore) CreateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.venues[hazard.VenueID]; !ok {
		return fmt.Errorf("venue %s does not exist", hazard.VenueID)
	}
	if hazard.ID.IsZero() {
		hazard.ID = models.NewVenueHazardID()
	}
	if hazard.Status == "" {
		hazard.Status = models.HazardStatusOpen
	}
	now := time.Now()
	if hazard.CreatedAt.IsZero() {
		hazard.CreatedAt = now
	}
	if hazard.UpdatedAt.IsZero() {
		hazard.UpdatedAt = now
	}

	cp := *hazard
	s.venueHazards[hazard.ID] = &cp
	s.nextSeq(hazard.ID.String())
	s.publish(store.ChangeCreate, models.TableVenueHazards, hazard.ID.String(), cp)
	return nil
}

func (s *MemoryStore) GetVenueHazard(ctx context.Context, id models.VenueHazardID) (*models.VenueHazard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hazard, ok := s.venueHazards[id]
	if !ok {
		return nil, nil
	}
	cp := *hazard
	return &cp, nil
}

func (s *MemoryStore) UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venueHazards[hazard.ID]; !ok {
		return fmt.Errorf("venue hazard %s does not exist", hazard.ID)
	}
	hazard.UpdatedAt = time.Now()
	cp := *hazard
	s.venueHazards[hazard.ID] = &cp
	s.publish(store.ChangeUpdate, models.TableVenueHazards, hazard.ID.String(), cp)
	return nil
}

func (s *MemoryStore) MergeVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.venueHazards[id]
	if !ok {
		return nil, fmt.Errorf("venue hazard %s does not exist", id)
	}
	merged := *hazard
	if err := applyFields(&merged, fields); err != nil {
		return nil, err
	}
	merged.UpdatedAt = time.Now()
	s.venueHazards[id] = &merged
	s.publish(store.ChangeUpdate, models.TableVenueHazards, id.String(), merged)
	cp := merged
	return &cp, nil
}

func (s *MemoryStore) DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venueHazards[id]; !ok {
		return fmt.Errorf("venue hazard %s does not exist", id)
	}
	delete(s.venueHazards, id)
	s.publish(store.ChangeDelete, models.TableVenueHazards, id.String(), nil)
	return nil
}

func (s *MemoryStore) ListVenueHazards(ctx context.Context, venueID models.VenueID) ([]*models.VenueHazard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.VenueHazard{}
	for _, hazard := range s.venueHazards {
		if hazard.VenueID != venueID {
			continue
		}
		cp := *hazard
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RPN > out[j].RPN })
	return out, nil
}

// RAW operations

func (s *MemoryStore) CreateRAW(ctx context.Context, raw *models.RAW) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.venues[raw.VenueID]; !ok {
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
	now := time.Now()
	if raw.CreatedAt.IsZero() {
		raw.CreatedAt = now
	}
	if raw.UpdatedAt.IsZero() {
		raw.UpdatedAt = now
	}

	cp := *raw
	cp.VenueName = ""
	cp.Hazards = nil
	s.raws[raw.ID] = &cp
	s.nextSeq(raw.ID.String())
	s.publish(store.ChangeCreate, models.TableRAWSubmissions, raw.ID.String(), cp)
	return nil
}

func (s *MemoryStore) GetRAW(ctx context.Context, id models.RAWID) (*models.RAW, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.raws[id]
	if !ok {
		return nil, nil
	}
	cp := *raw
	if venue, ok := s.venues[raw.VenueID]; ok {
		cp.VenueName = venue.Name
	}
	hazards := []models.RAWHazard{}
	for _, hazard := range s.rawHazards {
		if hazard.RAWID == id {
			hazards = append(hazards, *hazard)
		}
	}
	sort.SliceStable(hazards, func(i, j int) bool { return hazards[i].RPN > hazards[j].RPN })
	cp.Hazards = hazards
	return &cp, nil
}

func (s *MemoryStore) UpdateRAW(ctx context.Context, raw *models.RAW) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.raws[raw.ID]; !ok {
		return fmt.Errorf("RAW %s does not exist", raw.ID)
	}
	raw.UpdatedAt = time.Now()
	cp := *raw
	cp.VenueName = ""
	cp.Hazards = nil
	s.raws[raw.ID] = &cp
	s.nextSeq(raw.ID.String())
	s.publish(store.ChangeUpdate, models.TableRAWSubmissions, raw.ID.String(), cp)
	return nil
}

func (s *MemoryStore) MergeRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error) {
	s.mu.Lock()
	raw, ok := s.raws[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("RAW %s does not exist", id)
	}
	merged := *raw
	if err := applyFields(&merged, fields); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	merged.UpdatedAt = time.Now()
	s.raws[id] = &merged
	s.nextSeq(id.String())
	s.publish(store.ChangeUpdate, models.TableRAWSubmissions, id.String(), merged)
	s.mu.Unlock()

	return s.GetRAW(ctx, id)
}

func (s *MemoryStore) DeleteRAW(ctx context.Context, id models.RAWID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.raws[id]; !ok {
		return fmt.Errorf("RAW %s does not exist", id)
	}
	for _, hazard := range s.rawHazards {
		if hazard.RAWID == id {
			return fmt.Errorf("RAW %s still has hazard entries: %w", id, store.ErrConflict)
		}
	}
	delete(s.raws, id)
	s.publish(store.ChangeDelete, models.TableRAWSubmissions, id.String(), nil)
	return nil
}

func (s *MemoryStore) ListRAWs(ctx context.Context, filter store.RAWFilter) ([]*models.RAW, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.RAW{}
	search := strings.ToLower(filter.Search)
	for _, raw := range s.raws {
		if !filter.AuthorID.IsZero() && raw.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Status != "" && raw.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(raw.EventTitle), search) {
			continue
		}
		cp := *raw
		if venue, ok := s.venues[raw.VenueID]; ok {
			cp.VenueName = venue.Name
		}
		out = append(out, &cp)
	}
	sortNewestFirst(s.seqs, out, func(r *models.RAW) (time.Time, string) { return r.UpdatedAt, r.ID.String() })
	return out, nil
}

// RAW hazard operations

func (s *MemoryStore) CreateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.raws[hazard.RAWID]; !ok {
		return fmt.Errorf("RAW %s does not exist", hazard.RAWID)
	}
	if hazard.ID.IsZero() {
		hazard.ID = models.NewRAWHazardID()
	}
	if hazard.CreatedAt.IsZero() {
		hazard.CreatedAt = time.Now()
	}

	cp := *hazard
	s.rawHazards[hazard.ID] = &cp
	s.publish(store.ChangeCreate, models.TableRAWHazards, hazard.ID.String(), cp)
	return nil
}

func (s *MemoryStore) GetRAWHazard(ctx context.Context, id models.RAWHazardID) (*models.RAWHazard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hazard, ok := s.rawHazards[id]
	if !ok {
		return nil, nil
	}
	cp := *hazard
	return &cp, nil
}

func (s *MemoryStore) UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rawHazards[hazard.ID]; !ok {
		return fmt.Errorf("RAW hazard %s does not exist", hazard.ID)
	}
	cp := *hazard
	s.rawHazards[hazard.ID] = &cp
	s.publish(store.ChangeUpdate, models.TableRAWHazards, hazard.ID.String(), cp)
	return nil
}

func (s *MemoryStore) MergeRAWHazard(ctx context.Context, id models.RAWHazardID, fields map[string]any) (*models.RAWHazard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.rawHazards[id]
	if !ok {
		return nil, fmt.Errorf("RAW hazard %s does not exist", id)
	}
	merged := *hazard
	if err := applyFields(&merged, fields); err != nil {
		return nil, err
	}
	s.rawHazards[id] = &merged
	s.publish(store.ChangeUpdate, models.TableRAWHazards, id.String(), merged)
	cp := merged
	return &cp, nil
}

func (s *MemoryStore) DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rawHazards[id]; !ok {
		return fmt.Errorf("RAW hazard %s does not exist", id)
	}
	delete(s.rawHazards, id)
	s.publish(store.ChangeDelete, models.TableRAWHazards, id.String(), nil)
	return nil
}

func (s *MemoryStore) ListRAWHazards(ctx context.Context, rawID models.RAWID) ([]*models.RAWHazard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.RAWHazard{}
	for _, hazard := range s.rawHazards {
		if hazard.RAWID != rawID {
			continue
		}
		cp := *hazard
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RPN > out[j].RPN })
	return out, nil
}

// User operations

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return fmt.Errorf("email %s is already registered: %w", user.Email, store.ErrConflict)
		}
	}
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.Role == "" {
		user.Role = models.RoleSafetyOfficer
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	cp := *user
	s.users[user.ID] = &cp
	s.publish(store.ChangeCreate, models.TableUsers, user.ID.String(), cp)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user %s does not exist", user.ID)
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	s.publish(store.ChangeUpdate, models.TableUsers, user.ID.String(), cp)
	return nil
}

func (s *MemoryStore) ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.User{}
	for _, user := range s.users {
		if user.Role != role {
			continue
		}
		cp := *user
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Notification operations

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = models.NewNotificationID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	cp := *n
	s.notifications[n.ID] = &cp
	s.publish(store.ChangeCreate, models.TableNotifications, n.ID.String(), cp)
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Notification{}
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s does not exist", id)
	}
	n.Read = true
	s.publish(store.ChangeUpdate, models.TableNotifications, id.String(), *n)
	return nil
}

// Helpers

// sortNewestFirst orders entities by UpdatedAt descending, falling
// back to insertion sequence for records updated in the same tick.
// Callers must hold at least the read lock.
func sortNewestFirst[T any](seqs map[string]uint64, items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, ki := key(items[i])
		tj, kj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return seqs[ki] > seqs[kj]
	})
}

// applyFields merges a partial field map onto an entity through JSON,
// matching the shallow-merge semantics of the database stores.
func applyFields(entity any, fields map[string]any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("invalid field map: %w", err)
	}
	if err := json.Unmarshal(b, entity); err != nil {
		return fmt.Errorf("failed to apply fields: %w", err)
	}
	return nil
}
