package testserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type claims struct {
	Role   string `json:"role"`
	Office string `json:"office,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// principal is the authenticated caller of a request.
type principal struct {
	id     string
	role   string
	office string
}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func (s *Server) issue(subject, role, office string) (string, error) {
	now := s.cfg.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:   role,
		Office: office,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}).SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.issued++
	s.mu.Unlock()
	return token, nil
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	username := gjson.GetBytes(body, "username").String()
	password := gjson.GetBytes(body, "password").String()

	s.mu.Lock()
	u, ok := s.users[username]
	valid := ok && u.password == password
	s.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}

	if s.cfg.RequireVerification {
		nonce := uuid.NewString()
		s.mu.Lock()
		s.nonces[nonce] = username
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"nonce": nonce, "mobile": "+260711111111"})
		return
	}
	s.writeUserToken(w, u)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	nonce := gjson.GetBytes(body, "nonce").String()
	code := gjson.GetBytes(body, "code").String()

	s.mu.Lock()
	username, ok := s.nonces[nonce]
	if ok && code == s.cfg.VerificationCode {
		delete(s.nonces, nonce)
	}
	u := s.users[username]
	s.mu.Unlock()

	if !ok || code != s.cfg.VerificationCode || u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid verification code"})
		return
	}
	s.writeUserToken(w, u)
}

func (s *Server) writeUserToken(w http.ResponseWriter, u *user) {
	token, err := s.issue(u.id, u.role, u.office)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAuthenticateSystemClient(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	id := gjson.GetBytes(body, "client_id").String()
	secret := gjson.GetBytes(body, "client_secret").String()

	s.mu.Lock()
	c, ok := s.clients[id]
	valid := ok && c.secret == secret
	s.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid client credentials"})
		return
	}
	token, err := s.issue(c.id, "SYSTEM_"+c.scope, c.office)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// requireToken rejects requests without a valid, unexpired bearer token
// issued by this server.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
			return
		}
		c := &claims{}
		_, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return s.cfg.SigningKey, nil
		}, jwt.WithTimeFunc(s.cfg.Now))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token has expired"
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": msg})
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal{id: c.Subject, role: c.Role, office: c.Office})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRegisterSystemClient(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.role != "LOCAL_SYSTEM_ADMIN" && p.role != "NATIONAL_SYSTEM_ADMIN" {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
		return
	}
	body, _ := io.ReadAll(r.Body)
	scope := gjson.GetBytes(body, "scope").String()
	if scope == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "scope is required"})
		return
	}
	c := &systemClient{id: uuid.NewString(), secret: uuid.NewString(), scope: scope, office: p.office}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{
		"client_id":     c.id,
		"client_secret": c.secret,
		"sha_secret":    uuid.NewString(),
	})
}
