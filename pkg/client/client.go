// Package client provides a Go HTTP client for the SafeOps REST API.
//
// The client mirrors the server's endpoint structure with
// strongly-typed methods for venues, venue hazards, risk assessment
// workflows (RAWs) and their hazard entries, notifications, and user
// accounts, plus the authentication endpoints. It uses the same
// [github.com/safeops/safeops/pkg/models] entities as the server, so
// types stay consistent across the API boundary.
//
// Authentication is token based: SignUp and SignIn store the returned
// token on the client, and every subsequent request carries it as a
// bearer token until SignOut.
//
// Error responses use the server's unified envelope
// {"error":{"code","message"}} and are surfaced as [*APIError], so
// callers can branch on the machine-readable code:
//
//	_, err := c.ApproveRAW(ctx, id, decision)
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == "invalid_transition" {
//	    // RAW was not in the submitted state
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safeops/safeops/pkg/models"
)

// APIError is an error response from the SafeOps API. Code is stable
// across releases; Message is informational.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// Client provides typed access to the SafeOps REST API. Instances are
// safe for concurrent use once authenticated; SetAuthToken and the
// auth methods must not race with requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates an API client. baseURL includes protocol and host
// (e.g. "http://localhost:8080") without a trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the bearer token used for subsequent requests.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes a JSON response into target, converting
// error statuses into *APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Health checks the health status of the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Hello performs the connectivity check used by client apps on
// startup.
func (c *Client) Hello(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/hello", nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := decodeResponse(resp, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// Venue management

// VenueListOptions filters ListVenues. Zero values mean no filter.
type VenueListOptions struct {
	Search  string
	Status  models.VenueStatus
	Created models.UserID
}

func (o VenueListOptions) query() string {
	q := url.Values{}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if !o.Created.IsZero() {
		q.Set("created_by", o.Created.String())
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// CreateVenue creates a new venue.
func (c *Client) CreateVenue(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/venues", venue)
	if err != nil {
		return nil, err
	}

	var result models.Venue
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVenue retrieves a venue by ID.
func (c *Client) GetVenue(ctx context.Context, id models.VenueID) (*models.Venue, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/venues/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.Venue
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListVenues lists venues matching the options, most recently updated
// first.
func (c *Client) ListVenues(ctx context.Context, opts VenueListOptions) ([]*models.Venue, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/venues"+opts.query(), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Venue
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateVenue replaces an existing venue.
func (c *Client) UpdateVenue(ctx context.Context, venue *models.Venue) (*models.Venue, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/venues/%s", venue.ID), venue)
	if err != nil {
		return nil, err
	}

	var result models.Venue
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PatchVenue applies a partial update and returns the updated venue.
func (c *Client) PatchVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, fmt.Sprintf("/api/venues/%s", id), fields)
	if err != nil {
		return nil, err
	}

	var result models.Venue
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteVenue deletes a venue. Venues with hazards or RAWs cannot be
// deleted.
func (c *Client) DeleteVenue(ctx context.Context, id models.VenueID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/venues/%s", id), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Venue hazard management

// CreateVenueHazard reports a hazard at a venue. The server computes
// the risk priority number.
func (c *Client) CreateVenueHazard(ctx context.Context, venueID models.VenueID, hazard *models.VenueHazard) (*models.VenueHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/venues/%s/hazards", venueID), hazard)
	if err != nil {
		return nil, err
	}

	var result models.VenueHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListVenueHazards lists a venue's hazards, highest risk first.
func (c *Client) ListVenueHazards(ctx context.Context, venueID models.VenueID) ([]*models.VenueHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/venues/%s/hazards", venueID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.VenueHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetVenueHazard retrieves a hazard by ID.
func (c *Client) GetVenueHazard(ctx context.Context, id models.VenueHazardID) (*models.VenueHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/hazards/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.VenueHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateVenueHazard replaces an existing hazard.
func (c *Client) UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) (*models.VenueHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/hazards/%s", hazard.ID), hazard)
	if err != nil {
		return nil, err
	}

	var result models.VenueHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PatchVenueHazard applies a partial update, typically a status
// change.
func (c *Client) PatchVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, fmt.Sprintf("/api/hazards/%s", id), fields)
	if err != nil {
		return nil, err
	}

	var result models.VenueHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteVenueHazard deletes a hazard.
func (c *Client) DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/hazards/%s", id), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// RAW management

// RAWListOptions filters ListRAWs. Zero values mean no filter.
type RAWListOptions struct {
	AuthorID models.UserID
	Status   models.RAWStatus
	Search   string
}

func (o RAWListOptions) query() string {
	q := url.Values{}
	if !o.AuthorID.IsZero() {
		q.Set("author_id", o.AuthorID.String())
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// CreateRAW creates a risk assessment workflow, always in draft.
func (c *Client) CreateRAW(ctx context.Context, raw *models.RAW) (*models.RAW, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/raws", raw)
	if err != nil {
		return nil, err
	}

	var result models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRAW retrieves a RAW with its hazard entries and venue name.
func (c *Client) GetRAW(ctx context.Context, id models.RAWID) (*models.RAW, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/raws/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRAWs lists RAWs matching the options.
func (c *Client) ListRAWs(ctx context.Context, opts RAWListOptions) ([]*models.RAW, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/raws"+opts.query(), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateRAW replaces a RAW's content. Workflow fields are preserved
// server side.
func (c *Client) UpdateRAW(ctx context.Context, raw *models.RAW) (*models.RAW, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/raws/%s", raw.ID), raw)
	if err != nil {
		return nil, err
	}

	var result models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PatchRAW applies a partial content update.
func (c *Client) PatchRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error) {
	resp, err := c.doRequest(ctx, http.MethodPatch, fmt.Sprintf("/api/raws/%s", id), fields)
	if err != nil {
		return nil, err
	}

	var result models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteRAW deletes a draft RAW and its hazard entries.
func (c *Client) DeleteRAW(ctx context.Context, id models.RAWID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/raws/%s", id), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Workflow transitions

// SubmitRAW submits a draft for approval.
func (c *Client) SubmitRAW(ctx context.Context, id models.RAWID) (*models.RAW, error) {
	return c.transitionRAW(ctx, id, "submit", nil)
}

// ApproveRAW approves a submitted RAW.
func (c *Client) ApproveRAW(ctx context.Context, id models.RAWID, decision DecisionRequest) (*models.RAW, error) {
	return c.transitionRAW(ctx, id, "approve", decision)
}

// RejectRAW rejects a submitted RAW.
func (c *Client) RejectRAW(ctx context.Context, id models.RAWID, decision DecisionRequest) (*models.RAW, error) {
	return c.transitionRAW(ctx, id, "reject", decision)
}

// RequestChanges sends a submitted RAW back to its author.
func (c *Client) RequestChanges(ctx context.Context, id models.RAWID, decision DecisionRequest) (*models.RAW, error) {
	return c.transitionRAW(ctx, id, "request-changes", decision)
}

func (c *Client) transitionRAW(ctx context.Context, id models.RAWID, action string, body any) (*models.RAW, error) {
	if body == nil {
		// Transition endpoints expect a JSON object even when empty.
		body = map[string]any{}
	}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/raws/%s/%s", id, action), body)
	if err != nil {
		return nil, err
	}

	var result models.RAW
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RAW hazard entries

// CreateRAWHazard adds a hazard entry to a RAW.
func (c *Client) CreateRAWHazard(ctx context.Context, rawID models.RAWID, hazard *models.RAWHazard) (*models.RAWHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/raws/%s/hazards", rawID), hazard)
	if err != nil {
		return nil, err
	}

	var result models.RAWHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRAWHazards lists a RAW's hazard entries, highest risk first.
func (c *Client) ListRAWHazards(ctx context.Context, rawID models.RAWID) ([]*models.RAWHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/raws/%s/hazards", rawID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.RAWHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetRAWHazard retrieves a hazard entry by ID.
func (c *Client) GetRAWHazard(ctx context.Context, id models.RAWHazardID) (*models.RAWHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/raw-hazards/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.RAWHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateRAWHazard replaces a hazard entry.
func (c *Client) UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) (*models.RAWHazard, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/raw-hazards/%s", hazard.ID), hazard)
	if err != nil {
		return nil, err
	}

	var result models.RAWHazard
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteRAWHazard removes a hazard entry.
func (c *Client) DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/raw-hazards/%s", id), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Notifications

// ListNotifications lists a user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/notifications?user_id="+userID.String(), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Notification
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkNotificationRead marks a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/notifications/%s/read", id), map[string]any{})
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// User management

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users", user)
	if err != nil {
		return nil, err
	}

	var result models.User
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/users/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.User
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateUser updates a user's profile.
func (c *Client) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/users/%s", user.ID), user)
	if err != nil {
		return nil, err
	}

	var result models.User
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
