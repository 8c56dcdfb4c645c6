package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/client"
	"github.com/jonwraymond/reqcache/health"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/snapshot"
)

// SnapshotView is the JSON form of a snapshot.
type SnapshotView struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Verb  string `json:"verb"`
	URL   string `json:"url"`
	Key   string `json:"key"`
}

func snapshotView(m *method.Method) SnapshotView {
	return SnapshotView{
		Owner: m.OwnerID,
		Name:  m.Name(),
		Verb:  string(m.Verb),
		URL:   m.FullURL(),
		Key:   m.Key(),
	}
}

// ConfigView is the JSON form of the global configuration.
type ConfigView struct {
	LimitSnapshots int               `json:"limitSnapshots"`
	ShareRequest   bool              `json:"shareRequest"`
	LocalCache     map[string]string `json:"localCache"`
	LogLevel       string            `json:"logLevel"`
}

// InFlightView is one pending shared call.
type InFlightView struct {
	Key     string `json:"key"`
	Waiters int    `json:"waiters"`
}

// ClientView is the JSON form of a client.
type ClientView struct {
	ID      string `json:"id"`
	BaseURL string `json:"baseURL"`
}

type checkView struct {
	Status     health.Status  `json:"status"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS float64        `json:"durationMs"`
	Details    map[string]any `json:"details,omitempty"`
}

type errorView struct {
	Error string `json:"error"`
}

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]health.Status{"status": health.StatusHealthy})
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	s.syncStorageCheckers()
	results := s.health.CheckAll(r.Context())
	overall := health.Overall(results)

	checks := make(map[string]checkView, len(results))
	for name, res := range results {
		v := checkView{
			Status:     res.Status,
			Message:    res.Message,
			DurationMS: float64(res.Duration.Microseconds()) / 1000,
			Details:    res.Details,
		}
		if res.Error != nil {
			v.Error = res.Error.Error()
		}
		checks[name] = v
	}

	status := http.StatusOK
	if overall == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.runtime.Config()
	policies := make(map[string]string, len(cfg.LocalCache))
	for verb, p := range cfg.LocalCache {
		policies[string(verb)] = p.String()
	}
	writeJSON(w, http.StatusOK, ConfigView{
		LimitSnapshots: cfg.LimitSnapshots,
		ShareRequest:   cfg.ShareRequest,
		LocalCache:     policies,
		LogLevel:       cfg.LogLevel,
	})
}

type limitRequest struct {
	Limit *int `json:"limit"`
}

func (s *Server) putLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Limit == nil {
		writeError(w, http.StatusBadRequest, errors.New("limit is required"))
		return
	}
	if err := s.runtime.Configure(client.GlobalOptions{LimitSnapshots: req.Limit}); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.getConfig(w, r)
}

// listSnapshots accepts name, pattern and owner query parameters. With
// single=true only the first match is returned, or 404.
func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if single, _ := strconv.ParseBool(r.URL.Query().Get("single")); single {
		m, ok := s.runtime.MatchOne(q)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("no matching snapshot"))
			return
		}
		writeJSON(w, http.StatusOK, snapshotView(m))
		return
	}

	matched := s.runtime.Match(q)
	out := make([]SnapshotView, 0, len(matched))
	for _, m := range matched {
		out = append(out, snapshotView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listInFlight(w http.ResponseWriter, r *http.Request) {
	registry := s.runtime.InFlight()
	keys := registry.Keys()
	out := make([]InFlightView, 0, len(keys))
	for _, k := range keys {
		out = append(out, InFlightView{Key: k, Waiters: registry.Waiters(k)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients := s.runtime.Clients()
	out := make([]ClientView, 0, len(clients))
	for _, c := range clients {
		out = append(out, ClientView{ID: c.ID(), BaseURL: c.BaseURL()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) invalidateKey(w http.ResponseWriter, r *http.Request) {
	c, ok := s.clientFromPath(w, r)
	if !ok {
		return
	}
	err := c.InvalidateKey(r.Context(), chi.URLParam(r, "key"))
	switch {
	case errors.Is(err, cache.ErrInvalidKey), errors.Is(err, cache.ErrKeyTooLong):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.logger.Warn(r.Context(), "admin invalidation failed", observe.F("client.id", c.ID()), observe.F("error", err))
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// invalidateMatching drops the cached responses of the client's snapshots
// selected by the name or pattern query parameter.
func (s *Server) invalidateMatching(w http.ResponseWriter, r *http.Request) {
	c, ok := s.clientFromPath(w, r)
	if !ok {
		return
	}
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := c.InvalidateMatching(r.Context(), q)
	if err != nil {
		s.logger.Warn(r.Context(), "admin invalidation failed", observe.F("client.id", c.ID()), observe.F("error", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}

func (s *Server) clientFromPath(w http.ResponseWriter, r *http.Request) (*client.Client, bool) {
	id := chi.URLParam(r, "id")
	c, ok := s.runtime.Client(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown client "+strconv.Quote(id)))
	}
	return c, ok
}

var matchAll = regexp.MustCompile("")

// queryFromRequest builds a query from the pattern, name and owner
// parameters. Without pattern or name every snapshot matches.
func queryFromRequest(r *http.Request) (snapshot.Query, error) {
	params := r.URL.Query()
	var q snapshot.Query
	switch {
	case params.Get("pattern") != "":
		var err error
		if q, err = snapshot.ByPatternString(params.Get("pattern")); err != nil {
			return snapshot.Query{}, err
		}
	case params.Get("name") != "":
		q = snapshot.ByName(params.Get("name"))
	default:
		q = snapshot.ByPattern(matchAll)
	}
	if owner := params.Get("owner"); owner != "" {
		q = q.WithOwner(owner)
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{Error: err.Error()})
}
