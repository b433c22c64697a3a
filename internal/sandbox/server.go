package sandbox

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/models"
)

// Server bundles the stores, hub and routes behind one handler.
type Server struct {
	Rooms *RoomStore
	Notes *NotificationStore
	Blobs *BlobStore

	hub     *Hub
	handler http.Handler
	log     zerolog.Logger
}

func NewServer(log zerolog.Logger) *Server {
	s := &Server{
		Rooms: NewRoomStore(),
		Notes: NewNotificationStore(),
		Blobs: NewBlobStore(),
		hub:   NewHub(),
		log:   log,
	}
	h := NewHandler(s.Rooms, s.Notes, s.Blobs, s.hub, log)
	s.handler = withCORS(withLogging(log, h.Routes()))
	return s
}

// Start launches the hub pump. It must be called before any websocket or
// send traffic arrives.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
}

// Handler exposes the routes for embedding, httptest included.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe runs the sandbox on addr until ctx is cancelled, then
// drains with a short shutdown window.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", addr).Msg("sandbox listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Seed loads a demo brand/influencer conversation and a starter notification
// feed so the CLI has something to show on first run.
func (s *Server) Seed() (roomID string) {
	influencer := models.Participant{ID: "inf-ava", DisplayName: "Ava Chen", Role: "influencer"}
	brand := models.Participant{ID: "brand-glow", DisplayName: "Glow Cosmetics", Role: "brand"}
	room := s.Rooms.EnsureRoom(influencer, brand)

	first := s.seedMessage(room.ID, brand.ID, "Hi Ava! We loved your skincare series. Would you be open to a collaboration for our new serum launch?", "")
	s.seedMessage(room.ID, influencer.ID, "Thanks for reaching out! I'd love to hear more about the campaign scope and timeline.", first)
	s.seedMessage(room.ID, brand.ID, "Great! Three posts and one reel over four weeks. Sending the brief over now.", "")

	s.Notes.Add("influencer", models.Notification{
		Title:      "New campaign invite",
		Body:       "Glow Cosmetics invited you to their serum launch campaign",
		ActionType: "campaign",
		EntityID:   "camp-serum-01",
		ActionPath: "/campaigns/camp-serum-01",
	})
	s.Notes.Add("influencer", models.Notification{
		Title: "Payout processed",
		Body:  "Your August payout of $1,250 is on its way",
		Read:  true,
	})
	s.Notes.Add("brand", models.Notification{
		Title:      "New applicant",
		Body:       "Ava Chen applied to your serum launch campaign",
		ActionType: "applicant",
		EntityID:   "inf-ava",
	})
	return room.ID
}

func (s *Server) seedMessage(roomID, senderID, text, replyToID string) string {
	msg, ok := s.Rooms.NewMessage(roomID, senderID, text, replyToID, "", nil)
	if !ok {
		return ""
	}
	return msg.ID
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withLogging(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
