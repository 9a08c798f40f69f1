package safeops

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/safeops/safeops/pkg/client"
	"github.com/safeops/safeops/pkg/models"
)

// Sessions live in the App's in-memory registry, keyed by bearer
// token. Suitable for a single server instance; a multi-instance
// deployment would move this to a shared session store.

// generateToken returns a 64-character hex token with 256 bits of
// entropy from crypto/rand.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (a *App) putSession(token string, user *models.User) {
	a.sessionMu.Lock()
	a.sessions[token] = user
	a.sessionMu.Unlock()
}

func (a *App) getSession(token string) (*models.User, bool) {
	a.sessionMu.RLock()
	user, ok := a.sessions[token]
	a.sessionMu.RUnlock()
	return user, ok
}

func (a *App) dropSession(token string) {
	a.sessionMu.Lock()
	delete(a.sessions, token)
	a.sessionMu.Unlock()
}

// getTokenFromHeader extracts the bearer token from the Authorization
// header, accepting bare tokens for convenience.
func getTokenFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// handleSignUp registers a user and signs them in immediately.
func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if err := decodeBody(r, &req); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if req.Email == "" {
		a.respondDomainError(w, r, validationErrorf("email", "is required"))
		return
	}

	user := &models.User{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	token, err := generateToken()
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	a.putSession(token, user)

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

// handleSignIn authenticates by email. Password verification is out
// of scope for this deployment; accounts are provisioned internally.
func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if err := decodeBody(r, &req); err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	token, err := generateToken()
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	a.putSession(token, user)

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: user})
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := getTokenFromHeader(r); token != "" {
		a.dropSession(token)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (a *App) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	token := getTokenFromHeader(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing token")
		return
	}
	user, ok := a.getSession(token)
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *App) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	oldToken := getTokenFromHeader(r)
	if oldToken == "" {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "missing token")
		return
	}
	user, ok := a.getSession(oldToken)
	if !ok {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
		return
	}

	newToken, err := generateToken()
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	a.dropSession(oldToken)
	a.putSession(newToken, user)

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: newToken, User: user})
}
