package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator handles registration, login, and token issuance. Tokens are
// not checked on the WebSocket; the board trusts the username each message
// carries, so a token only gates the HTTP surface.
type Authenticator struct {
	users  *UserStore
	secret []byte
	ttl    time.Duration
}

func newAuthenticator(users *UserStore, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *Authenticator) register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return a.users.Create(username, string(hash))
}

func (a *Authenticator) login(username, password string) (string, error) {
	user, err := a.users.FindByUsername(username)
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrUserNotFound
	}

	return a.issueToken(user.Username)
}

func (a *Authenticator) issueToken(username string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    "pixelboard",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// validateToken parses a token and returns the username it was issued to.
func (a *Authenticator) validateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}

	return claims.Subject, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeCredentials(r *http.Request) (credentialsRequest, bool) {
	var creds credentialsRequest

	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, false
	}
	if creds.Username == "" || creds.Password == "" || len(creds.Password) > 72 {
		return creds, false
	}

	return creds, true
}

// whoamiHandler resolves a bearer token back to its username, so the
// browser client can confirm a stored token is still good.
func whoamiHandler(cfg *Config, auth *Authenticator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		username, err := auth.validateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"username": username})
	}
}

func registerHandler(cfg *Config, auth *Authenticator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		creds, ok := decodeCredentials(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
			return
		}

		err := auth.register(creds.Username, creds.Password)
		switch {
		case errors.Is(err, ErrDuplicateUser):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "that username is already taken"})
			return
		case err != nil:
			logf(cfg, "AUTH: Registration for %q failed: %v", creds.Username, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
			return
		}

		logf(cfg, "AUTH: Registered user %q from %s", creds.Username, realIP(r))

		writeJSON(w, http.StatusCreated, map[string]string{"username": creds.Username})
	}
}

func loginHandler(cfg *Config, auth *Authenticator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		creds, ok := decodeCredentials(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
			return
		}

		token, err := auth.login(creds.Username, creds.Password)
		if err != nil {
			// Unknown user and bad password get the same answer.
			logf(cfg, "AUTH: Login for %q from %s failed", creds.Username, realIP(r))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
			return
		}

		logf(cfg, "AUTH: Issued token for %q from %s", creds.Username, realIP(r))

		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	}
}
