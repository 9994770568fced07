package server

import (
	"net/http"
	"time"

	"github.com/marspr/srp-web/pkg/protocol"
)

// handleSession serves the authenticated session resource: GET returns
// who the bearer is, DELETE logs out. Runs behind requireSession.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, protocol.NewUnauthorizedError())
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, &protocol.SessionInfo{
			Username:  session.Username,
			ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		})

	case http.MethodDelete:
		if err := s.deps.Sessions.Invalidate(session.Token); err != nil {
			writeAPIError(w, http.StatusUnauthorized, protocol.NewSessionInvalidError())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeAPIError(w, http.StatusMethodNotAllowed, protocol.NewInvalidRequestError("method not allowed"))
	}
}

// handleHealthz reports liveness. No authentication; the body carries no
// state beyond "ok".
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeAPIError(w, http.StatusMethodNotAllowed, protocol.NewInvalidRequestError("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
