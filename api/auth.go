package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xopoww/canteen/core"
	"github.com/xopoww/canteen/types"
)

// sessionStore keeps bearer tokens for logged-in accounts. Tokens are
// opaque uuids; losing the process logs everyone out, which is fine for
// a canteen front desk.
type sessionStore struct {
	mu     sync.RWMutex
	tokens map[string]core.Principal
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]core.Principal)}
}

func (s *sessionStore) create(p core.Principal) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = p
	s.mu.Unlock()
	return token
}

func (s *sessionStore) lookup(token string) (core.Principal, bool) {
	s.mu.RLock()
	p, ok := s.tokens[token]
	s.mu.RUnlock()
	return p, ok
}

type ctxKey int

const principalKey ctxKey = iota

func principalFrom(r *http.Request) (core.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(core.Principal)
	return p, ok
}

// 	Wrap a handler so that only authenticated clients reach it.
// The resolved principal is stored in the request context; all role
// decisions stay in the core.
func (s *Server) mustAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		p, ok := s.sessions.lookup(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

type registerRequest struct {
	Name      string     `json:"name"`
	Password  string     `json:"password"`
	Role      types.Role `json:"role"`
	Allergens string     `json:"allergens"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name and password are required")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	account, err := s.svc.Register(req.Name, hash, req.Role, req.Allergens, 0)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := s.svc.AccountByName(req.Name)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeFailure(w, err)
		return
	}
	if !account.Active || bcrypt.CompareHashAndPassword(account.PassHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token := s.sessions.create(core.Principal{AccountID: account.ID, Role: account.Role})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"account": account,
	})
}
