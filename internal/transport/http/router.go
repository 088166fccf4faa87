package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"caro-arena/internal/store"
	"caro-arena/internal/ws"
)

func NewRouter(st *store.Store, signer *ws.HMACVerifier, wsServer *ws.Server) *chi.Mux {
	handlers := NewHandlers(st, signer)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", handlers.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/auth/guest", handlers.GuestToken())
		r.Get("/public/rooms", handlers.ListRooms())
		r.Get("/public/leaderboard", handlers.Leaderboard())
		r.Get("/public/players/{user_id}/stats", handlers.PlayerStats())
		r.Get("/rooms/{room_id}", handlers.GetRoom())
		r.Get("/rooms/{room_id}/history", handlers.RoomHistory())

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(signer))
			r.Post("/rooms", handlers.CreateRoom())
		})
	})

	r.Get("/ws", wsServer.HandleWS)
	return r
}

func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
