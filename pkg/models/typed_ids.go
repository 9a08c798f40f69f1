package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// VenueID is a typed ID for venues
type VenueID struct {
	uuid uuid.UUID
}

func NewVenueID() VenueID {
	return VenueID{uuid: uuid.New()}
}

func NewVenueIDFromUUID(id uuid.UUID) VenueID {
	return VenueID{uuid: id}
}

func ParseVenueID(s string) (VenueID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return VenueID{}, fmt.Errorf("invalid venue ID: %w", err)
	}
	return VenueID{uuid: id}, nil
}

func (v VenueID) UUID() uuid.UUID { return v.uuid }
func (v VenueID) String() string  { return v.uuid.String() }
func (v VenueID) IsZero() bool    { return v.uuid == uuid.Nil }

func (v VenueID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableVenues,
		ID:    v.uuid.String(),
	}
}

func (v VenueID) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.uuid.String())
}

func (v *VenueID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	v.uuid = id
	return nil
}

func (v VenueID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableVenues, v.uuid.String()},
	})
}

func (v *VenueID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableVenues, &v.uuid)
}

func (v VenueID) Value() (driver.Value, error) {
	if v.IsZero() {
		return nil, nil
	}
	return v.uuid.String(), nil
}

func (v *VenueID) Scan(value any) error {
	return scanUUID(value, &v.uuid)
}

func (VenueID) GormDataType() string { return "uuid" }

// VenueHazardID is a typed ID for venue hazards
type VenueHazardID struct {
	uuid uuid.UUID
}

func NewVenueHazardID() VenueHazardID {
	return VenueHazardID{uuid: uuid.New()}
}

func NewVenueHazardIDFromUUID(id uuid.UUID) VenueHazardID {
	return VenueHazardID{uuid: id}
}

func ParseVenueHazardID(s string) (VenueHazardID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return VenueHazardID{}, fmt.Errorf("invalid venue hazard ID: %w", err)
	}
	return VenueHazardID{uuid: id}, nil
}

func (h VenueHazardID) UUID() uuid.UUID { return h.uuid }
func (h VenueHazardID) String() string  { return h.uuid.String() }
func (h VenueHazardID) IsZero() bool    { return h.uuid == uuid.Nil }

func (h VenueHazardID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableVenueHazards,
		ID:    h.uuid.String(),
	}
}

func (h VenueHazardID) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.uuid.String())
}

func (h *VenueHazardID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	h.uuid = id
	return nil
}

func (h VenueHazardID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableVenueHazards, h.uuid.String()},
	})
}

func (h *VenueHazardID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableVenueHazards, &h.uuid)
}

func (h VenueHazardID) Value() (driver.Value, error) {
	if h.IsZero() {
		return nil, nil
	}
	return h.uuid.String(), nil
}

func (h *VenueHazardID) Scan(value any) error {
	return scanUUID(value, &h.uuid)
}

func (VenueHazardID) GormDataType() string { return "uuid" }

// RAWID is a typed ID for risk assessment worksheet submissions
type RAWID struct {
	uuid uuid.UUID
}

func NewRAWID() RAWID {
	return RAWID{uuid: uuid.New()}
}

func NewRAWIDFromUUID(id uuid.UUID) RAWID {
	return RAWID{uuid: id}
}

func ParseRAWID(s string) (RAWID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RAWID{}, fmt.Errorf("invalid RAW ID: %w", err)
	}
	return RAWID{uuid: id}, nil
}

func (r RAWID) UUID() uuid.UUID { return r.uuid }
func (r RAWID) String() string  { return r.uuid.String() }
func (r RAWID) IsZero() bool    { return r.uuid == uuid.Nil }

func (r RAWID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableRAWSubmissions,
		ID:    r.uuid.String(),
	}
}

func (r RAWID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.uuid.String())
}

func (r *RAWID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	r.uuid = id
	return nil
}

func (r RAWID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableRAWSubmissions, r.uuid.String()},
	})
}

func (r *RAWID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableRAWSubmissions, &r.uuid)
}

func (r RAWID) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return r.uuid.String(), nil
}

func (r *RAWID) Scan(value any) error {
	return scanUUID(value, &r.uuid)
}

func (RAWID) GormDataType() string { return "uuid" }

// RAWHazardID is a typed ID for hazards attached to a RAW
type RAWHazardID struct {
	uuid uuid.UUID
}

func NewRAWHazardID() RAWHazardID {
	return RAWHazardID{uuid: uuid.New()}
}

func NewRAWHazardIDFromUUID(id uuid.UUID) RAWHazardID {
	return RAWHazardID{uuid: id}
}

func ParseRAWHazardID(s string) (RAWHazardID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RAWHazardID{}, fmt.Errorf("invalid RAW hazard ID: %w", err)
	}
	return RAWHazardID{uuid: id}, nil
}

func (h RAWHazardID) UUID() uuid.UUID { return h.uuid }
func (h RAWHazardID) String() string  { return h.uuid.String() }
func (h RAWHazardID) IsZero() bool    { return h.uuid == uuid.Nil }

func (h RAWHazardID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableRAWHazards,
		ID:    h.uuid.String(),
	}
}

func (h RAWHazardID) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.uuid.String())
}

func (h *RAWHazardID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	h.uuid = id
	return nil
}

func (h RAWHazardID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableRAWHazards, h.uuid.String()},
	})
}

func (h *RAWHazardID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableRAWHazards, &h.uuid)
}

func (h RAWHazardID) Value() (driver.Value, error) {
	if h.IsZero() {
		return nil, nil
	}
	return h.uuid.String(), nil
}

func (h *RAWHazardID) Scan(value any) error {
	return scanUUID(value, &h.uuid)
}

func (RAWHazardID) GormDataType() string { return "uuid" }

// UserID is a typed ID for users
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableUsers,
		ID:    u.uuid.String(),
	}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	u.uuid = id
	return nil
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableUsers, u.uuid.String()},
	})
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableUsers, &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// NotificationID is a typed ID for notifications
type NotificationID struct {
	uuid uuid.UUID
}

func NewNotificationID() NotificationID {
	return NotificationID{uuid: uuid.New()}
}

func NewNotificationIDFromUUID(id uuid.UUID) NotificationID {
	return NotificationID{uuid: id}
}

func ParseNotificationID(s string) (NotificationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification ID: %w", err)
	}
	return NotificationID{uuid: id}, nil
}

func (n NotificationID) UUID() uuid.UUID { return n.uuid }
func (n NotificationID) String() string  { return n.uuid.String() }
func (n NotificationID) IsZero() bool    { return n.uuid == uuid.Nil }

func (n NotificationID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: TableNotifications,
		ID:    n.uuid.String(),
	}
}

func (n NotificationID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.uuid.String())
}

func (n *NotificationID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	n.uuid = id
	return nil
}

func (n NotificationID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{TableNotifications, n.uuid.String()},
	})
}

func (n *NotificationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableNotifications, &n.uuid)
}

func (n NotificationID) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	return n.uuid.String(), nil
}

func (n *NotificationID) Scan(value any) error {
	return scanUUID(value, &n.uuid)
}

func (NotificationID) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner interface for PostgreSQL/GORM
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

// unmarshalCBORID is a helper for unmarshaling SurrealDB RecordID from CBOR.
// SurrealDB uses CBOR tag 8 to identify RecordID types in its binary protocol.
// The RecordID is encoded as [table_name, id_string] within the tag.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Check if this is a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	// SurrealDB uses tag 8 for RecordID
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}

	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsedUUID, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsedUUID
	return nil
}
