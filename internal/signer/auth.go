package signer

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/saingsab/jaamlong/internal/config"
	"github.com/saingsab/jaamlong/internal/models"
)

// Claims is the bearer token payload. Only role admin may invoke signing.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates the signer's bearer tokens.
type Authenticator struct {
	cfg    config.SignerConfig
	logger zerolog.Logger
}

// NewAuthenticator creates an authenticator from the signer configuration.
func NewAuthenticator(cfg config.SignerConfig, logger zerolog.Logger) *Authenticator {
	return &Authenticator{cfg: cfg, logger: logger}
}

// IssueToken signs an HS256 token for the configured operator.
func (a *Authenticator) IssueToken(now time.Time) (string, error) {
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.cfg.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.SecretKey))
}

// Login exchanges operator credentials for a bearer token.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.FailMessage("malformed login request"))
		return
	}
	if req.Username != a.cfg.Username || req.Password != a.cfg.Password {
		a.logger.Warn().Str("username", req.Username).Msg("login rejected")
		writeJSON(w, http.StatusUnauthorized, models.FailMessage("invalid credentials"))
		return
	}
	token, err := a.IssueToken(time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.FailMessage("token issuance failed"))
		return
	}
	writeJSON(w, http.StatusOK, models.Success(map[string]string{"token": token}))
}

// Middleware rejects requests without a valid admin bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, models.FailMessage("You are not logged in, please provide token"))
			return
		}
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.cfg.SecretKey), nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, models.FailMessage("Invalid token"))
			return
		}
		if claims.Role != "admin" || claims.Subject != a.cfg.UserID {
			writeJSON(w, http.StatusUnauthorized, models.FailMessage("Insufficient role"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
