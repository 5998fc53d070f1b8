package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
)

const keepAliveInterval = 25 * time.Second

type SessionHandler struct {
	sessions ports.SessionService
}

func NewSessionHandler(sessions ports.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// sessionView is the snapshot plus the side-menu flag, which is derived from
// the role alone.
type sessionView struct {
	domain.SessionState
	IsHR bool `json:"isHR"`
}

func view(st domain.SessionState) sessionView {
	return sessionView{SessionState: st, IsHR: st.User.IsHR()}
}

// State returns the current session snapshot.
func (h *SessionHandler) State(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, view(h.sessions.Snapshot()))
}

// Stream pushes every session change as a server-sent event until the client
// goes away. The first event is the current state.
func (h *SessionHandler) Stream(c echo.Context) error {
	updates, cancel := h.sessions.Subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			raw, err := json.Marshal(view(st))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", raw); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
