package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mockmate/mockmate/internal/auth"
	"github.com/mockmate/mockmate/internal/domain"
	"github.com/mockmate/mockmate/internal/interview"
	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/store"
	"github.com/mockmate/mockmate/internal/version"
)

// oauthStateCookie carries the CSRF state between signin and callback.
const oauthStateCookie = "mockmate_oauth_state"

// callbackPage closes the sign-in popup; the opener learns about the new
// identity over the event feed.
const callbackPage = `<!doctype html>
<html><body>Signed in. You can close this window.<script>window.close()</script></body></html>`

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// stateResponse is the common reply shape for interview operations: the
// controller snapshot, plus the error text when the operation failed.
type stateResponse struct {
	State interview.Snapshot `json:"state"`
	Error string             `json:"error,omitempty"`
}

// controllerFor resolves the controller for this UI instance and pins
// the request's identity onto it.
func (s *Server) controllerFor(r *http.Request) *interview.Controller {
	ctrl := s.interviews.Controller(uiInstanceFrom(r))
	ctrl.SetIdentity(identityFrom(r))
	return ctrl
}

// statusFor maps controller and adapter failures onto HTTP status codes.
func statusFor(err error) int {
	var te *llm.TransportError
	switch {
	case errors.Is(err, interview.ErrEmptyProblem),
		errors.Is(err, interview.ErrEmptyCode),
		errors.Is(err, interview.ErrEmptyMessage),
		errors.Is(err, interview.ErrNotStarted),
		errors.Is(err, interview.ErrAlreadyActive):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrBusy),
		errors.Is(err, interview.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrEmptyOrBlocked), errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondState(w http.ResponseWriter, snap interview.Snapshot, err error) {
	if err != nil {
		respondJSON(w, statusFor(err), stateResponse{State: snap, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, stateResponse{State: snap})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"model":   s.modelName,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	respondJSON(w, http.StatusOK, map[string]any{
		"signedIn": identity.SignedIn(),
		"identity": identity,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"url": s.auth.SignInURL(state)})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Value != state {
		respondError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing code")
		return
	}

	identity, cookieValue, err := s.auth.HandleCallback(r.Context(), code)
	if err != nil {
		s.log.Warn().Err(err).Msg("oauth callback failed")
		respondError(w, http.StatusBadGateway, "sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// The popup shares the opener's UI instance cookie, so this reaches
	// exactly the browser that started the sign-in.
	s.notifier.Publish(uiInstanceFrom(r), identity)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(callbackPage))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.auth.SignOut(identity)
	s.notifier.Publish(uiInstanceFrom(r), domain.Identity{})
	respondJSON(w, http.StatusOK, map[string]bool{"signedOut": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Problem string `json:"problem"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	snap, err := s.controllerFor(r).Start(r.Context(), req.Problem, req.Code)
	respondState(w, snap, err)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	snap, err := s.controllerFor(r).Send(r.Context(), req.Text)
	respondState(w, snap, err)
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	respondState(w, s.controllerFor(r).NewChat(), nil)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	snap, err := s.controllerFor(r).SelectSession(r.Context(), req.SessionID)
	respondState(w, snap, err)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondState(w, s.controllerFor(r).Snapshot(), nil)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if !identity.SignedIn() {
		respondError(w, http.StatusUnauthorized, "sign in to list sessions")
		return
	}
	sessions, err := s.sessions.List(r.Context(), identity.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("listing sessions failed")
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
