package authserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const successHTML = `<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial; text-align: center; padding: 50px;">
	<h1>✅ Успішно!</h1>
	<p>Google Classroom підключено.</p>
	<p>Можете закрити це вікно і повернутись до бота.</p>
</body>
</html>`

type Service interface {
	CompleteAuth(ctx context.Context, telegramID int64, code string) error
}

// Server handles the Google OAuth redirect. The state parameter carries the
// telegram id handed out with the consent URL.
type Server struct {
	svc  Service
	http *http.Server
}

func New(addr string, svc Service) *Server {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/auth/callback", s.handleCallback)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	zap.L().Info("oauth callback server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("oauth callback server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		http.Error(w, "missing code or state parameter", http.StatusBadRequest)
		return
	}

	telegramID, err := strconv.ParseInt(state, 10, 64)
	if err != nil {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	if err := s.svc.CompleteAuth(r.Context(), telegramID, code); err != nil {
		zap.L().Error("complete auth", zap.Error(err), zap.Int64("telegram_id", telegramID))
		http.Error(w, "authorization failed, please retry from the bot", http.StatusBadGateway)
		return
	}

	zap.L().Info("classroom connected", zap.Int64("telegram_id", telegramID))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(successHTML))
}
