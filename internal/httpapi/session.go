package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"papertrade/internal/domain"
	"papertrade/internal/gamify"
)

const sessionCookie = "session_id"

type ctxKey int

const accountIDKey ctxKey = 0

// accountID returns the session account for a request. Only handlers behind
// withSession see a non-empty value.
func accountID(r *http.Request) string {
	id, _ := r.Context().Value(accountIDKey).(string)
	return id
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// withSession resolves the session cookie to an account, provisioning a new
// account with the starting balance on first visit.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, created, err := s.resolveSession(w, r)
		if err != nil {
			s.log.Error("resolving session", "error", err)
			writeError(w, http.StatusInternalServerError, "session unavailable")
			return
		}
		if created {
			s.log.Info("account created", "account", id, "platform", string(s.platform))
		}
		next(w, r.WithContext(context.WithValue(r.Context(), accountIDKey, id)))
	}
}

func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (id string, created bool, err error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if _, err := s.store.GetAccount(r.Context(), c.Value); err == nil {
			return c.Value, false, nil
		} else if !errors.Is(err, domain.ErrAccountNotFound) {
			return "", false, err
		}
		// Stale cookie for an account we no longer have: reprovision.
		id = c.Value
	}

	if id == "" {
		id, err = newSessionID()
		if err != nil {
			return "", false, err
		}
	}

	acct := &domain.Account{
		ID:          id,
		Platform:    s.platform,
		InitialCash: s.startingCash,
		Cash:        s.startingCash,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateAccount(r.Context(), acct); err != nil {
		return "", false, err
	}

	// Everyone starts at exactly $100K, so the portfolio milestone is
	// unlocked at account creation.
	if s.platform == domain.PlatformGamified {
		if _, err := s.achievements.UnlockAchievement(r.Context(), id, gamify.AchHundredK); err != nil {
			s.log.Warn("unlocking starting achievement", "account", id, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true, nil
}
