package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leaveplan/internal/config"
	"leaveplan/internal/ics"
	appLog "leaveplan/internal/log"
	"leaveplan/internal/model"
	"leaveplan/internal/report"
	"leaveplan/internal/store"
)

// Records is the read side of the record store.
type Records interface {
	LoadMonth(key string) ([]model.Record, error)
	LoadYear(year int) ([]model.Record, error)
	Meta() (store.Meta, error)
}

// Refresher runs a collection in the background. Trigger returns false when
// one is already running.
type Refresher interface {
	Trigger() bool
}

// Server provides the HTTP API over stored records.
type Server struct {
	cfg     *config.Config
	recs    Records
	refresh Refresher
	router  chi.Router
	now     func() time.Time

	// Small in-memory cache for computed responses. Records only change on
	// refresh, which calls Invalidate.
	cacheMu sync.RWMutex
	cache   map[cacheKey]cachedResponse
}

// maxCacheEntries bounds the response cache; uid filters make the key space
// open-ended.
const maxCacheEntries = 128

// cacheKey identifies a response by what it was built from, not by the raw
// query string.
type cacheKey struct {
	endpoint string
	period   string // YYYY-MM or YYYY
	uid      string
}

type cachedResponse struct {
	contentType string
	body        []byte
	updatedAt   time.Time
}

// NewServer constructs a new Server. refresh may be nil.
func NewServer(cfg *config.Config, recs Records, refresh Refresher) *Server {
	s := &Server{
		cfg:     cfg,
		recs:    recs,
		refresh: refresh,
		now:     time.Now,
		cache:   map[cacheKey]cachedResponse{},
	}
	s.router = s.routes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Invalidate drops every cached response.
func (s *Server) Invalidate() {
	s.cacheMu.Lock()
	s.cache = map[cacheKey]cachedResponse{}
	s.cacheMu.Unlock()
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "auth", s.cfg.BasicAuth.Enabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:           300,
		}))
	}
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger)

	// /health is always exposed without authentication.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.BasicAuth.Enabled() {
			r.Use(s.basicAuth)
		}
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/report.xlsx", s.handleReport)
		r.Get("/calendar.ics", s.handleCalendar)

		r.Route("/api", func(r chi.Router) {
			r.Get("/months", s.handleMonths)
			r.Get("/records", s.handleRecords)
			r.Get("/codes", s.handleCodes)
			r.Get("/summary", s.handleSummary)
			r.Post("/refresh", s.handleRefresh)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="leaveplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleMonths(w http.ResponseWriter, _ *http.Request) {
	meta, err := s.recs.Meta()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleRecords returns the records of one month.
//
// GET /api/records?month=2026-02[&uid=460606]
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	uid := r.URL.Query().Get("uid")

	s.cached(w, cacheKey{endpoint: "records", period: month, uid: uid}, "", func() (string, []byte, error) {
		recs, err := s.recs.LoadMonth(month)
		if err != nil {
			return "", nil, err
		}
		recs = filterUID(recs, uid)
		return jsonBody(recordsResponse{Month: month, Records: recs})
	})
}

type recordsResponse struct {
	Month   string         `json:"month"`
	Records []model.Record `json:"records"`
}

type employeeCodes struct {
	Name  string            `json:"name"`
	UID   string            `json:"uid"`
	Codes map[string]string `json:"codes"`
}

// handleCodes returns the day codes of one month per employee.
//
// GET /api/codes?month=2026-02
func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")

	s.cached(w, cacheKey{endpoint: "codes", period: month}, "", func() (string, []byte, error) {
		recs, err := s.recs.LoadMonth(month)
		if err != nil {
			return "", nil, err
		}
		codes := report.Codes(recs)

		seen := map[string]bool{}
		out := []employeeCodes{}
		for _, rec := range recs {
			emp := rec.EmployeeRef()
			if seen[emp.Key()] {
				continue
			}
			seen[emp.Key()] = true
			out = append(out, employeeCodes{Name: emp.Name, UID: emp.UID, Codes: codes[emp.Key()]})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return jsonBody(out)
	})
}

type summaryResponse struct {
	Year      int                    `json:"year"`
	Rules     report.Rules           `json:"rules"`
	Employees []report.EmployeeStats `json:"employees"`
}

// handleSummary returns per-employee statistics and HR rule results.
//
// GET /api/summary?year=2026
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, err := s.year(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.cached(w, cacheKey{endpoint: "summary", period: strconv.Itoa(year)}, "", func() (string, []byte, error) {
		recs, err := s.recs.LoadYear(year)
		if err != nil {
			return "", nil, err
		}
		stats, err := report.Analyze(recs, year, s.cfg.Rules)
		if err != nil {
			return "", nil, err
		}
		return jsonBody(summaryResponse{Year: year, Rules: s.cfg.Rules, Employees: stats})
	})
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /report.xlsx?year=2026
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, err := s.year(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filename := fmt.Sprintf("rapport_conges_%d.xlsx", year)
	s.cached(w, cacheKey{endpoint: "report", period: strconv.Itoa(year)}, filename, func() (string, []byte, error) {
		recs, err := s.recs.LoadYear(year)
		if err != nil {
			return "", nil, err
		}
		var buf bytes.Buffer
		opts := report.Options{Year: year, Rules: s.cfg.Rules, Styles: s.cfg.Styles}
		if err := report.Write(&buf, recs, opts); err != nil {
			return "", nil, err
		}
		return xlsxType, buf.Bytes(), nil
	})
}

// GET /calendar.ics?year=2026[&uid=460606]
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := s.year(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := r.URL.Query().Get("uid")
	s.cached(w, cacheKey{endpoint: "calendar", period: strconv.Itoa(year), uid: uid}, "", func() (string, []byte, error) {
		recs, err := s.recs.LoadYear(year)
		if err != nil {
			return "", nil, err
		}
		recs = filterUID(recs, uid)
		name := fmt.Sprintf("Planning %d", year)
		if uid != "" && len(recs) > 0 {
			name = fmt.Sprintf("Planning %d - %s", year, recs[0].Employee)
		}
		var buf bytes.Buffer
		if err := ics.Write(&buf, recs, ics.Options{Name: name, Now: s.now()}); err != nil {
			return "", nil, err
		}
		return "text/calendar; charset=utf-8", buf.Bytes(), nil
	})
}

// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh is not configured")
		return
	}
	if !s.refresh.Trigger() {
		writeError(w, http.StatusConflict, "a refresh is already running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// cached serves a response built by build, reusing a previous one for the
// same key while it is younger than the configured TTL. A non-empty filename
// marks a successful response as a download; errors never carry it.
func (s *Server) cached(w http.ResponseWriter, key cacheKey, filename string, build func() (string, []byte, error)) {
	now := s.now()
	ttl := s.cfg.CacheTTL

	s.cacheMu.RLock()
	c, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if ok && now.Sub(c.updatedAt) < ttl {
		download(w, filename)
		write(w, c.contentType, c.body)
		return
	}

	contentType, body, err := build()
	if err != nil {
		s.fail(w, err)
		return
	}

	if ttl > 0 {
		s.cacheMu.Lock()
		s.evict(now, ttl)
		s.cache[key] = cachedResponse{contentType: contentType, body: body, updatedAt: now}
		s.cacheMu.Unlock()
	}

	download(w, filename)
	write(w, contentType, body)
}

// evict drops expired entries and, if the cache is still full, the oldest
// one. Callers hold cacheMu.
func (s *Server) evict(now time.Time, ttl time.Duration) {
	var oldest cacheKey
	var oldestAt time.Time
	for k, c := range s.cache {
		if now.Sub(c.updatedAt) >= ttl {
			delete(s.cache, k)
			continue
		}
		if oldestAt.IsZero() || c.updatedAt.Before(oldestAt) {
			oldest, oldestAt = k, c.updatedAt
		}
	}
	if len(s.cache) >= maxCacheEntries {
		delete(s.cache, oldest)
	}
}

func download(w http.ResponseWriter, filename string) {
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrBadKey):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// year reads the "year" query parameter, defaulting to the current year.
func (s *Server) year(r *http.Request) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return s.cfg.TargetYear(s.now()), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 2000 || y > 2100 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return y, nil
}

func filterUID(recs []model.Record, uid string) []model.Record {
	if uid == "" {
		return recs
	}
	out := make([]model.Record, 0, len(recs))
	for _, r := range recs {
		if r.UID == uid {
			out = append(out, r)
		}
	}
	return out
}

func jsonBody(v any) (string, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return "application/json; charset=utf-8", b, nil
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
