package client

import (
	"context"
	"net/http"

	"github.com/safeops/safeops/pkg/models"
)

// SignUpRequest registers a new account. Role defaults to
// safety_officer when empty.
type SignUpRequest struct {
	Email    string          `json:"email"`
	Name     string          `json:"full_name"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role,omitempty"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token and the authenticated user.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// DecisionRequest carries an approver's verdict on a submitted RAW.
type DecisionRequest struct {
	ApproverID models.UserID `json:"approver_id"`
	Comments   string        `json:"comments"`
}

// SignUp registers a new user and stores the returned session token
// on the client.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signup", req)
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	c.authToken = result.Token
	return &result, nil
}

// SignIn authenticates and stores the returned session token on the
// client.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signin", SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	c.authToken = result.Token
	return &result, nil
}

// SignOut ends the session and clears the stored token.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signout", nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return err
	}
	c.authToken = ""
	return nil
}

// GetCurrentUser returns the user for the stored session token.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var result models.User
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken rotates the session token, storing the new one.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/refresh", nil)
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	c.authToken = result.Token
	return &result, nil
}
