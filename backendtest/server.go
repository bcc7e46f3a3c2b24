// Package backendtest runs an in-process stand-in for the event hub REST
// backend. It serves every route the Store calls, can be scripted per route
// with canned replies or dropped connections, and records each request.
package backendtest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goEventHub/bearer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Route names one backend endpoint, relative to the API prefix.
type Route string

const (
	RouteLogin           Route = "/login"
	RouteValidToken      Route = "/valid-token"
	RouteResetPassword   Route = "/reset-password"
	RouteRecoverPassword Route = "/recover-password"
	RouteHello           Route = "/hello"
	RouteEvents          Route = "/events"
	RouteEventsJoined    Route = "/events/joined"
	RouteEventsMine      Route = "/events/mine"
)

// Reply is a canned answer. Body is marshalled to JSON unless it is a string
// or []byte, which are written as is.
type Reply struct {
	Status int
	Body   any
}

// Request is one recorded call.
type Request struct {
	Method        string
	Route         Route
	Authorization string
	RequestID     string
	Body          []byte
}

// Bearer returns the token of the Authorization header, if any.
func (r Request) Bearer() string {
	token, _ := bearer.FromHeader(r.Authorization)
	return token
}

// JSON decodes the recorded request body into v.
func (r Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Options configures a Server.
type Options struct {
	// Prefix is the API mount point. Defaults to "/api".
	Prefix string
	// Secret signs the tokens issued by the login route.
	Secret []byte
	// TokenTTL is the lifetime of issued tokens. Defaults to one hour.
	TokenTTL time.Duration
	// RequestLogging adds chi's request logger.
	RequestLogging bool
}

// Server is a scriptable fake backend.
type Server struct {
	opts   Options
	router chi.Router
	http   *httptest.Server

	mu       sync.Mutex
	replies  map[Route]Reply
	failing  map[Route]bool
	users    map[string]string
	events   map[Route]any
	greeting string
	log      []Request
}

// New starts a Server on a loopback port. Call Close when done.
func New() *Server {
	return NewWithOptions(Options{})
}

// NewWithOptions starts a Server configured by opts.
func NewWithOptions(opts Options) *Server {
	s := NewUnstarted(opts)
	s.http = httptest.NewServer(s.router)
	return s
}

// NewUnstarted builds the Server without listening, for callers that serve
// Handler themselves.
func NewUnstarted(opts Options) *Server {
	if opts.Prefix == "" {
		opts.Prefix = "/api"
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("backendtest-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	s := &Server{
		opts:     opts,
		replies:  map[Route]Reply{},
		failing:  map[Route]bool{},
		users:    map[string]string{},
		events:   map[Route]any{},
		greeting: "Hello! I'm a message that came from the backend",
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.opts.RequestLogging {
		r.Use(middleware.Logger)
	}

	r.Route(s.opts.Prefix, func(r chi.Router) {
		r.Use(s.record)
		r.Post(string(RouteLogin), s.handleLogin)
		r.Get(string(RouteValidToken), s.handleValidToken)
		r.Put(string(RouteResetPassword), s.handleResetPassword)
		r.Post(string(RouteRecoverPassword), s.handleRecoverPassword)
		r.Get(string(RouteHello), s.handleHello)
		r.Get(string(RouteEvents), s.handleEvents(RouteEvents))
		r.Get(string(RouteEventsJoined), s.handleEvents(RouteEventsJoined))
		r.Get(string(RouteEventsMine), s.handleEvents(RouteEventsMine))
	})
	return r
}

// URL is the base URL of the running server, without the API prefix.
func (s *Server) URL() string {
	if s.http == nil {
		return ""
	}
	return s.http.URL
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Client returns an http.Client wired to the test server.
func (s *Server) Client() *http.Client {
	if s.http == nil {
		return http.DefaultClient
	}
	return s.http.Client()
}

// Close stops the server.
func (s *Server) Close() {
	if s.http != nil {
		s.http.Close()
	}
}

// AddUser registers credentials accepted by the login route.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(email)] = password
}

// SetGreeting changes the hello message.
func (s *Server) SetGreeting(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greeting = msg
}

// SetEvents sets the JSON payload of a feed route.
func (s *Server) SetEvents(route Route, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[route] = payload
}

// Reply makes route answer with a fixed reply until Reset.
func (s *Server) Reply(route Route, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[route] = Reply{Status: status, Body: body}
	delete(s.failing, route)
}

// Fail makes route drop the connection without answering until Reset.
func (s *Server) Fail(route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[route] = true
	delete(s.replies, route)
}

// Reset clears scripted replies and failures. Users, events and the request
// log are kept.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = map[Route]Reply{}
	s.failing = map[Route]bool{}
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.log...)
}

// LastRequest returns the most recent request to route.
func (s *Server) LastRequest(route Route) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].Route == route {
			return s.log[i], true
		}
	}
	return Request{}, false
}

// IssueToken signs a token the valid-token route accepts.
func (s *Server) IssueToken(subject string) (string, error) {
	return bearer.Issue(s.opts.Secret, subject, s.opts.TokenTTL, time.Now())
}

// record logs the request and applies scripted replies before the route
// handler runs.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		_ = r.Body.Close()
		route := Route(strings.TrimPrefix(r.URL.Path, s.opts.Prefix))

		s.mu.Lock()
		s.log = append(s.log, Request{
			Method:        r.Method,
			Route:         route,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          body,
		})
		reply, scripted := s.replies[route]
		fail := s.failing[route]
		s.mu.Unlock()

		if fail {
			dropConnection(w)
			return
		}
		if scripted {
			writeReply(w, reply)
			return
		}

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next.ServeHTTP(w, r)
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	_ = conn.Close()
}

func writeReply(w http.ResponseWriter, reply Reply) {
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch body := reply.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, body)
	case []byte:
		_, _ = w.Write(body)
	default:
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	writeReply(w, Reply{Status: status, Body: body})
}

type msg struct {
	Msg string `json:"msg"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, msg{Msg: "Invalid request body"})
		return
	}

	s.mu.Lock()
	want, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || want != req.Password {
		writeJSON(w, http.StatusUnauthorized, msg{Msg: "Bad email or password"})
		return
	}

	token, err := s.IssueToken(req.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, msg{Msg: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleValidToken(w http.ResponseWriter, r *http.Request) {
	if status, m, ok := s.checkBearer(r); !ok {
		writeJSON(w, status, msg{Msg: m})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_logged": true})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if status, m, ok := s.checkBearer(r); !ok {
		writeJSON(w, status, msg{Msg: m})
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, msg{Msg: "Password required"})
		return
	}
	writeJSON(w, http.StatusOK, msg{Msg: "Password updated"})
}

func (s *Server) handleRecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		FrontendURL string `json:"frontend_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, msg{Msg: "Email required"})
		return
	}
	writeJSON(w, http.StatusOK, msg{Msg: "Recovery email sent"})
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	greeting := s.greeting
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": greeting})
}

func (s *Server) handleEvents(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if route != RouteEvents {
			if status, m, ok := s.checkBearer(r); !ok {
				writeJSON(w, status, msg{Msg: m})
				return
			}
		}
		s.mu.Lock()
		payload, ok := s.events[route]
		s.mu.Unlock()
		if !ok {
			payload = []any{}
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *Server) checkBearer(r *http.Request) (int, string, bool) {
	token, ok := bearer.FromHeader(r.Header.Get("Authorization"))
	if !ok {
		return http.StatusUnauthorized, "Missing Authorization Header", false
	}
	if _, err := bearer.Verify(s.opts.Secret, token, 0); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return http.StatusUnauthorized, "Token has expired", false
		}
		return http.StatusUnprocessableEntity, "Signature verification failed", false
	}
	return 0, "", true
}
