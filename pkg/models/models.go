package models

import (
	"time"

	"gorm.io/gorm"
)

// Table names shared by the SurrealDB and PostgreSQL stores and the
// realtime change feed.
const (
	TableVenues         = "venues"
	TableVenueHazards   = "venue_hazards"
	TableRAWSubmissions = "raw_submissions"
	TableRAWHazards     = "raw_hazards"
	TableUsers          = "users"
	TableNotifications  = "notifications"
)

// VenueStatus is the derived safety status of a venue
type VenueStatus string

const (
	VenueStatusSafe       VenueStatus = "safe"
	VenueStatusWarning    VenueStatus = "warning"
	VenueStatusCritical   VenueStatus = "critical"
	VenueStatusRestricted VenueStatus = "restricted"
)

// Severity grades how bad a hazard's consequence would be
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Likelihood grades how probable a hazard's occurrence is
type Likelihood string

const (
	LikelihoodLow      Likelihood = "low"
	LikelihoodMedium   Likelihood = "medium"
	LikelihoodHigh     Likelihood = "high"
	LikelihoodVeryHigh Likelihood = "very_high"
)

// HazardStatus is the lifecycle state of a venue hazard
type HazardStatus string

const (
	HazardStatusOpen     HazardStatus = "open"
	HazardStatusPending  HazardStatus = "pending"
	HazardStatusResolved HazardStatus = "resolved"
)

// RAWStatus is the approval lifecycle state of a risk assessment worksheet
type RAWStatus string

const (
	RAWStatusDraft            RAWStatus = "draft"
	RAWStatusSubmitted        RAWStatus = "submitted"
	RAWStatusApproved         RAWStatus = "approved"
	RAWStatusRejected         RAWStatus = "rejected"
	RAWStatusChangesRequested RAWStatus = "changes_requested"
)

// RiskLevel is the author-assessed overall risk of the event covered by a RAW
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// UserRole gates which operations a user may perform
type UserRole string

const (
	RoleSafetyOfficer   UserRole = "safety_officer"
	RoleFacilityManager UserRole = "facility_manager"
	RoleApprover        UserRole = "approver"
	RoleAdmin           UserRole = "admin"
)

// NotificationType classifies a notification for client-side routing
type NotificationType string

const (
	NotificationRAWSubmitted        NotificationType = "raw_submitted"
	NotificationRAWApproved         NotificationType = "raw_approved"
	NotificationRAWRejected         NotificationType = "raw_rejected"
	NotificationRAWChangesRequested NotificationType = "raw_changes_requested"
)

// Venue represents a physical location tracked for safety status.
// Status and CriticalIssuesCount are recomputed from the venue's open
// hazards on every hazard write. Status stays patchable so operators
// can restrict a venue by hand; the count is server-owned.
type Venue struct {
	ID                  VenueID     `gorm:"type:uuid;primary_key" json:"id"`
	Name                string      `gorm:"not null" json:"name"`
	Address             string      `gorm:"not null" json:"address"`
	PostalCode          string      `json:"postal_code,omitempty"`
	Latitude            float64     `json:"latitude,omitempty"`
	Longitude           float64     `json:"longitude,omitempty"`
	Status              VenueStatus `gorm:"not null;default:safe" json:"status"`
	CriticalIssuesCount int         `gorm:"not null;default:0" json:"critical_issues_count"`
	CreatedBy           UserID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (v *Venue) BeforeCreate(tx *gorm.DB) error {
	if v.ID.IsZero() {
		v.ID = NewVenueID()
	}
	return nil
}

// VenueHazard represents a hazard observed at a venue. RPN is derived
// from Severity and Likelihood through the configured risk matrix and
// is recomputed whenever either input changes.
type VenueHazard struct {
	ID          VenueHazardID `gorm:"type:uuid;primary_key" json:"id"`
	VenueID     VenueID       `gorm:"type:uuid;not null" json:"venue_id"`
	Venue       *Venue        `gorm:"foreignKey:VenueID" json:"venue,omitempty"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Severity    Severity      `gorm:"not null" json:"severity"`
	Likelihood  Likelihood    `gorm:"not null" json:"likelihood"`
	RPN         int           `gorm:"not null" json:"rpn"`
	Status      HazardStatus  `gorm:"not null;default:open" json:"status"`
	ReportedBy  UserID        `gorm:"type:uuid" json:"reported_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (h *VenueHazard) BeforeCreate(tx *gorm.DB) error {
	if h.ID.IsZero() {
		h.ID = NewVenueHazardID()
	}
	return nil
}

// RAW represents a risk assessment worksheet submission tied to a venue
// and an author.
//
// SubmittedAt is set exactly once, at the draft to submitted
// transition, and is nil otherwise. An approved or rejected RAW always
// carries ApproverID; rejection additionally carries ApproverComments.
type RAW struct {
	ID               RAWID      `gorm:"type:uuid;primary_key" json:"id"`
	VenueID          VenueID    `gorm:"type:uuid;not null" json:"venue_id"`
	Venue            *Venue     `gorm:"foreignKey:VenueID" json:"venue,omitempty"`
	AuthorID         UserID     `gorm:"type:uuid;not null" json:"author_id"`
	Author           *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	EventTitle       string     `gorm:"not null" json:"event_title"`
	Status           RAWStatus  `gorm:"not null;default:draft" json:"status"`
	RiskLevel        RiskLevel  `gorm:"not null;default:medium" json:"risk_level"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	ApproverID       *UserID    `gorm:"type:uuid" json:"approver_id,omitempty"`
	ApproverComments string     `gorm:"type:text" json:"approver_comments,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// View-model fields populated by reads, not persisted as columns.
	VenueName string      `gorm:"-" json:"venue_name,omitempty"`
	Hazards   []RAWHazard `gorm:"foreignKey:RAWID" json:"hazards,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (r *RAW) BeforeCreate(tx *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = NewRAWID()
	}
	return nil
}

// RAWHazard represents a hazard entry scoped to one RAW. Same
// severity/likelihood/RPN shape as VenueHazard but tied to a specific
// assessment rather than a venue.
type RAWHazard struct {
	ID                RAWHazardID `gorm:"type:uuid;primary_key" json:"id"`
	RAWID             RAWID       `gorm:"type:uuid;not null" json:"raw_id"`
	HazardDescription string      `gorm:"type:text;not null" json:"hazard_description"`
	ControlMeasures   string      `gorm:"type:text" json:"control_measures,omitempty"`
	Severity          Severity    `gorm:"not null" json:"severity"`
	Likelihood        Likelihood  `gorm:"not null" json:"likelihood"`
	RPN               int         `gorm:"not null" json:"rpn"`
	CreatedAt         time.Time   `json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (h *RAWHazard) BeforeCreate(tx *gorm.DB) error {
	if h.ID.IsZero() {
		h.ID = NewRAWHazardID()
	}
	return nil
}

// User represents an account. Role gating is enforced by the HTTP
// layer; the store treats Role as data.
type User struct {
	ID                UserID    `gorm:"type:uuid;primary_key" json:"id"`
	Email             string    `gorm:"unique;not null" json:"email"`
	Name              string    `gorm:"not null" json:"full_name"`
	Phone             string    `json:"phone,omitempty"`
	Role              UserRole  `gorm:"not null;default:safety_officer" json:"role"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// Notification represents an in-app notification delivered to one user.
// RelatedID is the string form of the entity the notification refers
// to, typed loosely because the referent table varies by Type.
type Notification struct {
	ID        NotificationID   `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID           `gorm:"type:uuid;not null" json:"user_id"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Type      NotificationType `gorm:"not null" json:"type"`
	RelatedID string           `json:"related_id,omitempty"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNotificationID()
	}
	return nil
}
