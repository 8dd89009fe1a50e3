package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"healthchat/internal/util"
	"healthchat/pkg/domain"
	"healthchat/services/chat/internal/app"
)

const (
	serviceName  = "chat"
	maxBodyBytes = 1 << 20

	msgServerError   = "Server error"
	msgInvalidBody   = "Invalid request body"
	msgChatFailed    = "Failed to process chat message. Please try again."
	msgHistoryFailed = "Failed to fetch chat history"
	msgClearFailed   = "Failed to clear chat history"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
}

// Server exposes HTTP endpoints for the chat service.
type Server struct {
	app    *app.App
	router chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{app: cfg.App, router: chi.NewRouter()}
	s.middleware(cfg.CORSOrigins)
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) middleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(
		util.WithRequestID,
		func(next http.Handler) http.Handler { return util.WithRequestLog(serviceName, next) },
		util.WithRecover,
		util.WithSecurityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", util.RequestIDHeader},
			ExposedHeaders: []string{util.RequestIDHeader},
			MaxAge:         300,
		}),
	)
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.mountAPI(s.router)
	// Legacy clients call everything under /api.
	s.router.Route("/api", s.mountAPI)
}

func (s *Server) mountAPI(r chi.Router) {
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireIdentity)
		r.Post("/chat", s.handleChat)
		r.Get("/chat/history", s.handleHistory)
		r.Delete("/chat/history", s.handleClearHistory)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type historyResponse struct {
	Messages []domain.Message `json:"messages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, err := s.app.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, messageResponse{Message: "User created successfully"})
	case errors.Is(err, app.ErrUserExists), errors.Is(err, app.ErrMissingFields):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("register failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{
			Token: token,
			User:  userResponse{ID: user.ID, Username: user.Username, Email: user.Email},
		})
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, app.ErrInvalidCredentials.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Chat(r.Context(), identity, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chatResponse{Response: res.Response})
	case errors.Is(err, app.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, app.ErrEmptyMessage.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("chat failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgChatFailed)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	msgs, err := s.app.History(r.Context(), identity.UserID)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("fetch history failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgHistoryFailed)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: msgs})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	if err := s.app.ClearHistory(r.Context(), identity.UserID); err != nil {
		util.LoggerFromContext(r.Context()).Error("clear history failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgClearFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Chat history cleared"})
}

type identityContextKey struct{}

// requireIdentity rejects requests without a valid bearer token:
// missing token is 401, anything else wrong with it is 403.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := bearerToken(r)
		identity, err := s.app.Authenticate(token)
		if err != nil {
			if errors.Is(err, app.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, app.ErrUnauthenticated.Error())
				return
			}
			util.LoggerFromContext(r.Context()).Debug("token rejected", "err", err)
			writeError(w, http.StatusForbidden, app.ErrForbidden.Error())
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
		ctx = util.ContextWithLogger(ctx, util.LoggerFromContext(ctx).With("user_id", identity.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return identity, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme name is matched case-insensitively; any other scheme counts as
// no token at all.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
