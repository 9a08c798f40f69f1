// Package safeopstesting provides testing utilities for the SafeOps
// application.
//
// [VirtualUser] simulates a field safety officer driving the REST API
// through the [github.com/safeops/safeops/pkg/client] package: signing
// up, registering venues, reporting hazards, drafting risk assessment
// workflows, and pushing them through submission and review. Each
// virtual user keeps a deterministic random number generator seeded
// with its index, so scenarios replay identically run to run while
// still exercising varied paths. Multiple virtual users can run
// concurrently against one server for load testing.
package safeopstesting

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/safeops/safeops/pkg/client"
	"github.com/safeops/safeops/pkg/models"
)

// VirtualUser is a stateful simulated safety officer. It tracks every
// entity it creates so scenarios can verify and clean up afterwards.
type VirtualUser struct {
	Index    int // virtual user index, not the database user ID
	Name     string
	Email    string
	Password string
	Client   *client.Client
	RNG      *rand.Rand

	// Session state
	User *models.User

	// Entities created by this user
	Venues  []*models.Venue
	Hazards map[models.VenueID][]*models.VenueHazard
	RAWs    []*models.RAW
	Entries map[models.RAWID][]*models.RAWHazard

	mu sync.RWMutex
}

// NewVirtualUser creates a virtual user targeting the given server.
// The index seeds the RNG; the timestamp keeps emails unique across
// test runs.
func NewVirtualUser(index int, baseURL string) *VirtualUser {
	timestamp := time.Now().UnixNano()
	return &VirtualUser{
		Index:    index,
		Name:     fmt.Sprintf("Virtual Officer %d", index),
		Email:    fmt.Sprintf("officer%d-%d@test.com", index, timestamp),
		Password: fmt.Sprintf("password%d", index),
		Client:   client.NewClient(baseURL),
		RNG:      rand.New(rand.NewSource(int64(index))),
		Hazards:  make(map[models.VenueID][]*models.VenueHazard),
		Entries:  make(map[models.RAWID][]*models.RAWHazard),
	}
}

// SignUp creates the account for this virtual user.
func (vu *VirtualUser) SignUp(ctx context.Context) error {
	authResp, err := vu.Client.SignUp(ctx, client.SignUpRequest{
		Email:    vu.Email,
		Name:     vu.Name,
		Password: vu.Password,
	})
	if err != nil {
		return fmt.Errorf("virtual user %d signup failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = authResp.User
	vu.mu.Unlock()
	return nil
}

// SignIn authenticates this virtual user.
func (vu *VirtualUser) SignIn(ctx context.Context) error {
	authResp, err := vu.Client.SignIn(ctx, vu.Email, vu.Password)
	if err != nil {
		return fmt.Errorf("virtual user %d signin failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = authResp.User
	vu.mu.Unlock()
	return nil
}

// SignOut ends the session.
func (vu *VirtualUser) SignOut(ctx context.Context) error {
	if err := vu.Client.SignOut(ctx); err != nil {
		return fmt.Errorf("virtual user %d signout failed: %w", vu.Index, err)
	}
	vu.mu.Lock()
	vu.User = nil
	vu.mu.Unlock()
	return nil
}

// CreateVenue registers a venue owned by this user.
func (vu *VirtualUser) CreateVenue(ctx context.Context, name string) (*models.Venue, error) {
	venue := &models.Venue{
		Name:      name,
		Address:   fmt.Sprintf("%d Test Street", vu.RNG.Intn(900)+100),
		CreatedBy: vu.User.ID,
	}

	created, err := vu.Client.CreateVenue(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to create venue: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Venues = append(vu.Venues, created)
	vu.mu.Unlock()
	return created, nil
}

var severities = []models.Severity{
	models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical,
}

var likelihoods = []models.Likelihood{
	models.LikelihoodLow, models.LikelihoodMedium, models.LikelihoodHigh, models.LikelihoodVeryHigh,
}

// ReportHazard reports a randomly graded hazard at the venue.
func (vu *VirtualUser) ReportHazard(ctx context.Context, venueID models.VenueID) (*models.VenueHazard, error) {
	hazard := &models.VenueHazard{
		Description: fmt.Sprintf("Hazard observed by officer %d", vu.Index),
		Severity:    severities[vu.RNG.Intn(len(severities))],
		Likelihood:  likelihoods[vu.RNG.Intn(len(likelihoods))],
		ReportedBy:  vu.User.ID,
	}

	created, err := vu.Client.CreateVenueHazard(ctx, venueID, hazard)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to report hazard: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Hazards[venueID] = append(vu.Hazards[venueID], created)
	vu.mu.Unlock()
	return created, nil
}

// DraftRAW creates a draft risk assessment workflow for the venue.
func (vu *VirtualUser) DraftRAW(ctx context.Context, venueID models.VenueID, title string) (*models.RAW, error) {
	raw := &models.RAW{
		VenueID:    venueID,
		AuthorID:   vu.User.ID,
		EventTitle: title,
	}

	created, err := vu.Client.CreateRAW(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to draft RAW: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.RAWs = append(vu.RAWs, created)
	vu.mu.Unlock()
	return created, nil
}

// AddRAWHazard adds a hazard entry with control measures to the RAW.
func (vu *VirtualUser) AddRAWHazard(ctx context.Context, rawID models.RAWID) (*models.RAWHazard, error) {
	entry := &models.RAWHazard{
		HazardDescription: fmt.Sprintf("Assessed hazard %d", vu.RNG.Intn(1000)),
		ControlMeasures:   "Barriers, signage, trained marshals",
		Severity:          severities[vu.RNG.Intn(len(severities))],
		Likelihood:        likelihoods[vu.RNG.Intn(len(likelihoods))],
	}

	created, err := vu.Client.CreateRAWHazard(ctx, rawID, entry)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to add RAW hazard: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Entries[rawID] = append(vu.Entries[rawID], created)
	vu.mu.Unlock()
	return created, nil
}

// SubmitRAW submits a drafted RAW for approval.
func (vu *VirtualUser) SubmitRAW(ctx context.Context, rawID models.RAWID) (*models.RAW, error) {
	submitted, err := vu.Client.SubmitRAW(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to submit RAW: %w", vu.Index, err)
	}
	return submitted, nil
}

// RunScenario drives a full officer workflow: sign up, register a
// venue, report hazards, draft a RAW with entries, and submit it.
func (vu *VirtualUser) RunScenario(ctx context.Context) error {
	if err := vu.SignUp(ctx); err != nil {
		return err
	}

	venue, err := vu.CreateVenue(ctx, fmt.Sprintf("Venue %d", vu.Index))
	if err != nil {
		return err
	}

	hazardCount := vu.RNG.Intn(3) + 1
	for i := 0; i < hazardCount; i++ {
		if _, err := vu.ReportHazard(ctx, venue.ID); err != nil {
			return err
		}
	}

	raw, err := vu.DraftRAW(ctx, venue.ID, fmt.Sprintf("Event %d", vu.Index))
	if err != nil {
		return err
	}
	entryCount := vu.RNG.Intn(2) + 1
	for i := 0; i < entryCount; i++ {
		if _, err := vu.AddRAWHazard(ctx, raw.ID); err != nil {
			return err
		}
	}

	if _, err := vu.SubmitRAW(ctx, raw.ID); err != nil {
		return err
	}

	return nil
}

// VerifyAllData re-reads everything this user created and checks it is
// still present and consistent.
func (vu *VirtualUser) VerifyAllData(ctx context.Context) error {
	vu.mu.RLock()
	defer vu.mu.RUnlock()

	for _, venue := range vu.Venues {
		got, err := vu.Client.GetVenue(ctx, venue.ID)
		if err != nil {
			return fmt.Errorf("virtual user %d: venue %s missing: %w", vu.Index, venue.ID, err)
		}
		if got.Name != venue.Name {
			return fmt.Errorf("virtual user %d: venue %s name mismatch: got %q want %q", vu.Index, venue.ID, got.Name, venue.Name)
		}

		hazards, err := vu.Client.ListVenueHazards(ctx, venue.ID)
		if err != nil {
			return fmt.Errorf("virtual user %d: listing hazards for %s: %w", vu.Index, venue.ID, err)
		}
		if len(hazards) < len(vu.Hazards[venue.ID]) {
			return fmt.Errorf("virtual user %d: venue %s has %d hazards, expected at least %d",
				vu.Index, venue.ID, len(hazards), len(vu.Hazards[venue.ID]))
		}
	}

	for _, raw := range vu.RAWs {
		got, err := vu.Client.GetRAW(ctx, raw.ID)
		if err != nil {
			return fmt.Errorf("virtual user %d: RAW %s missing: %w", vu.Index, raw.ID, err)
		}
		if len(got.Hazards) != len(vu.Entries[raw.ID]) {
			return fmt.Errorf("virtual user %d: RAW %s has %d hazard entries, expected %d",
				vu.Index, raw.ID, len(got.Hazards), len(vu.Entries[raw.ID]))
		}
	}

	return nil
}
