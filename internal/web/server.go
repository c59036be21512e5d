// Package web provides the HTTP interface of the predictor service:
// liveness, phase predictions, speed advisories and a status page.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/glosa-predictor/internal/mqtt"
	"github.com/sweeney/glosa-predictor/internal/status"
)

var log = logrus.WithField("module", "web")

// HeaderRequestID carries the ID assigned to every request.
const HeaderRequestID = "X-Request-ID"

// Server serves the prediction API and status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	now        func() time.Time
}

// New creates a Server that records activity in tracker. Served
// predictions are published through publisher unless it is nil.
func New(addr string, tracker *status.Tracker, publisher mqtt.Publisher) *Server {
	s := &Server{
		tracker:   tracker,
		publisher: publisher,
		now:       time.Now,
	}

	r := mux.NewRouter()
	r.Use(s.requestID)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/advisory", s.handleAdvisory).Methods(http.MethodPost)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.NotFoundHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	}))
	r.MethodNotAllowedHandler = s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID tags each request with a fresh UUID, exposed in the response
// header and the request context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(HeaderRequestID, id)
		log.WithField("request_id", id).Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
