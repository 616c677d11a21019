package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/intelguardhq/controller/internal/admission"
	"github.com/intelguardhq/controller/internal/alerting"
	"github.com/intelguardhq/controller/internal/metrics"
	"github.com/intelguardhq/controller/pkg/types"
)

// Config controls HTTP server settings.
type Config struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int
}

// Dependencies holds external collaborators required by the server.
type Dependencies struct {
	Logger    *log.Logger
	Admission *admission.Controller
	Alerting  alerting.Service
	Metrics   *metrics.Store
}

// Server wraps http.Server for convenience.
type Server struct {
	*http.Server
	cfg  Config
	deps Dependencies
}

// New constructs an HTTP server with the threat-intel monitor endpoints.
func New(cfg Config, deps Dependencies) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewStore()
	}

	write := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.RateLimitEnabled {
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		write = func(h http.HandlerFunc) http.Handler { return rateLimited(limiter, h) }
	}

	r := mux.NewRouter()
	r.Handle("/api/v1/threat-intel/monitors", write(createMonitorHandler(deps))).Methods(http.MethodPost)
	r.Handle("/api/v1/threat-intel/monitors/{id}", write(updateMonitorHandler(deps))).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/threat-intel/monitors", listMonitorsHandler(deps)).Methods(http.MethodGet)
	r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	s := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return &Server{Server: s, cfg: cfg, deps: deps}
}

func createMonitorHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var def types.ThreatIntelMonitor
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		resp, err := deps.Admission.Handle(r.Context(), types.MonitorRequest{
			Operation: types.OperationCreate,
			Monitor:   def,
		}, userFromHeaders(r))
		if err != nil {
			writeAdmissionError(w, deps, err)
			return
		}

		deps.Metrics.RecordCreated()
		writeJSON(w, deps.Logger, http.StatusCreated, resp)
	}
}

func updateMonitorHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var def types.ThreatIntelMonitor
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		resp, err := deps.Admission.Handle(r.Context(), types.MonitorRequest{
			Operation: types.OperationUpdate,
			ID:        id,
			Monitor:   def,
		}, userFromHeaders(r))
		if err != nil {
			writeAdmissionError(w, deps, err)
			return
		}

		deps.Metrics.RecordUpdated()
		writeJSON(w, deps.Logger, http.StatusOK, resp)
	}
}

func listMonitorsHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits, err := deps.Alerting.SearchMonitors(r.Context(), alerting.MonitorFilter{
			Owner:       alerting.PluginOwner,
			MonitorType: alerting.MonitorTypeThreatIntel,
		})
		if err != nil && !admission.IsStoreMissing(err) {
			deps.Logger.Printf("list monitors failed: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.ID)
		}
		writeJSON(w, deps.Logger, http.StatusOK, struct {
			MonitorIDs []string `json:"monitor_ids"`
		}{MonitorIDs: ids})
	}
}

func writeAdmissionError(w http.ResponseWriter, deps Dependencies, err error) {
	var aerr *admission.Error
	if !errors.As(err, &aerr) {
		deps.Logger.Printf("admission failed with untyped error: %v", err)
		deps.Metrics.RecordFailure()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	switch aerr.Kind {
	case admission.KindForbidden:
		deps.Metrics.RecordForbidden()
	case admission.KindAlreadyExists:
		deps.Metrics.RecordConflict()
	case admission.KindBadRequest:
		deps.Metrics.RecordRejected()
	default:
		deps.Metrics.RecordFailure()
		deps.Logger.Printf("admission failed: %v", aerr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(aerr.Status)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string `json:"error"`
		MonitorID string `json:"monitor_id,omitempty"`
	}{Error: aerr.Message, MonitorID: aerr.MonitorID})
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Printf("encode response failed: %v", err)
	}
}

// userFromHeaders reads the caller identity resolved by the upstream auth
// proxy. A missing name header means the request is unauthenticated.
func userFromHeaders(r *http.Request) *types.User {
	name := strings.TrimSpace(r.Header.Get("X-User-Name"))
	if name == "" {
		return nil
	}
	return &types.User{
		Name:         name,
		BackendRoles: splitHeaderList(r.Header.Get("X-User-Backend-Roles")),
		Roles:        splitHeaderList(r.Header.Get("X-User-Roles")),
	}
}

func splitHeaderList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func rateLimited(limiter *rate.Limiter, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	})
}
