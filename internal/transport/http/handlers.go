package httptransport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"caro-arena/internal/game"
	"caro-arena/internal/store"
	"caro-arena/internal/ws"
)

const guestTokenTTL = 24 * time.Hour

type Handlers struct {
	store  *store.Store
	signer *ws.HMACVerifier
}

func NewHandlers(st *store.Store, signer *ws.HMACVerifier) *Handlers {
	return &Handlers{store: st, signer: signer}
}

func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// GuestToken mints a signed connection token for a display name. Accounts
// and login live elsewhere; this is the minimal identity the engine needs.
func (h *Handlers) GuestToken() http.HandlerFunc {
	type request struct {
		Username string `json:"username"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Username) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_username")
			return
		}
		userID := uuid.NewString()
		token := h.signer.Sign(userID, strings.TrimSpace(req.Username), guestTokenTTL)
		WriteJSON(w, http.StatusOK, map[string]any{
			"userId":   userID,
			"username": strings.TrimSpace(req.Username),
			"token":    token,
		})
	}
}

func (h *Handlers) ListRooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		rooms, err := h.store.ListRooms(r.Context(), status, queryLimit(r, 50))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "list_rooms_failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	}
}

func (h *Handlers) GetRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := h.store.GetRoom(r.Context(), chi.URLParam(r, "room_id"))
		if err != nil {
			if err == store.ErrNotFound {
				WriteHTTPError(w, http.StatusNotFound, "room_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "get_room_failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"room": room})
	}
}

// CreateRoom opens a room with the caller as host. The caller still joins
// over the websocket afterwards; creation only reserves the seat.
func (h *Handlers) CreateRoom() http.HandlerFunc {
	type request struct {
		Name          string    `json:"name"`
		Password      string    `json:"password,omitempty"`
		TurnTimeLimit int       `json:"turnTimeLimit,omitempty"`
		FirstMark     game.Mark `json:"firstTurn,omitempty"`
		BoardSize     int       `json:"boardSize,omitempty"`
		VsEngine      bool      `json:"vsEngine,omitempty"`
		EngineLevel   string    `json:"engineLevel,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		var req request
		if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_room_name")
			return
		}
		room, err := h.store.CreateRoom(r.Context(), store.CreateRoomParams{
			Name:          strings.TrimSpace(req.Name),
			Password:      req.Password,
			HostID:        id.UserID,
			HostUsername:  id.Username,
			MaxSeats:      2,
			TurnTimeLimit: req.TurnTimeLimit,
			FirstMark:     req.FirstMark,
			BoardSize:     req.BoardSize,
			VsEngine:      req.VsEngine,
			EngineLevel:   req.EngineLevel,
		})
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "create_room_failed")
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]any{"room": room})
	}
}

func (h *Handlers) PlayerStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.store.GetStats(r.Context(), chi.URLParam(r, "user_id"))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "stats_failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"stats": stats})
	}
}

func (h *Handlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := h.store.Leaderboard(r.Context(), queryLimit(r, 20))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "leaderboard_failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
	}
}

func (h *Handlers) RoomHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.store.ListGameHistory(r.Context(), chi.URLParam(r, "room_id"), queryLimit(r, 20))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "history_failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"games": records})
	}
}

func queryLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	return limit
}
