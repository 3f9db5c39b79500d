package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"sales-dashboard-go/internal/dashboard"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/logger"
	"sales-dashboard-go/internal/resolver"
	"sales-dashboard-go/internal/session"
	"sales-dashboard-go/internal/types"
)

// Defaults apply when a request leaves a setting out.
type Defaults struct {
	Source         string
	Variant        dataset.Variant
	Strategy       resolver.Strategy
	RowLimit       int
	CurrencySymbol string
}

type Server struct {
	store    *session.Store
	defaults Defaults
	log      *logger.Logger
	mux      *http.ServeMux
}

func New(store *session.Store, defaults Defaults, log *logger.Logger) *Server {
	s := &Server{store: store, defaults: defaults, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.health)
	s.mux.HandleFunc("POST /sessions", s.createSession)
	s.mux.HandleFunc("GET /sessions/{id}", s.getSession)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.deleteSession)
	s.mux.HandleFunc("GET /sessions/{id}/dashboard", s.dashboard)
	s.mux.HandleFunc("GET /sessions/{id}/export.xlsx", s.export)
	s.mux.HandleFunc("POST /sessions/{id}/reload", s.reload)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

type createRequest struct {
	Source   string `json:"source"`
	Variant  string `json:"variant"`
	Strategy string `json:"strategy"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "create_session")

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		reqLog.WithError(err).Warn("bad request body")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settings := session.Settings{Source: req.Source, Variant: s.defaults.Variant, Strategy: s.defaults.Strategy}
	if settings.Source == "" {
		settings.Source = s.defaults.Source
	}
	if req.Variant != "" {
		v, err := dataset.ParseVariant(req.Variant)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		settings.Variant = v
	}
	if req.Strategy != "" {
		st, err := resolver.ParseStrategy(req.Strategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		settings.Strategy = st
	}

	sess, err := s.store.Create(r.Context(), settings)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	info, err := sessionInfo(r, sess)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	reqLog.WithField("session_id", sess.ID).Info("session created")
	writeJSON(w, http.StatusCreated, info, reqLog)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "get_session")
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	info, err := sessionInfo(r, sess)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	writeJSON(w, http.StatusOK, info, reqLog)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "delete_session")
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.fail(w, reqLog, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "dashboard")
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}

	q := r.URL.Query()
	opts := dashboard.Options{RowLimit: s.defaults.RowLimit, CurrencySymbol: s.defaults.CurrencySymbol}
	if opts.RowLimit, err = intParam(q.Get("rows"), opts.RowLimit); err != nil {
		writeError(w, http.StatusBadRequest, "rows: "+err.Error())
		return
	}
	if opts.TopN, err = intParam(q.Get("top"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "top: "+err.Error())
		return
	}

	state, err := s.state(r, sess)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	d := dashboard.Build(state.Dataset, state.Binding, state.Selection, opts)
	d.SessionID = sess.ID
	reqLog.WithFields(logrus.Fields{
		"session_id":  sess.ID,
		"records":     d.TotalRows,
		"duration_ms": d.DurationMs,
	}).Info("dashboard built")
	writeJSON(w, http.StatusOK, d, reqLog)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "export")
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	state, err := s.state(r, sess)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	view := filter.Apply(state.Dataset, state.Binding, state.Selection)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.xlsx"`)
	if err := dataset.WriteXLSX(w, view, "Data"); err != nil {
		reqLog.WithError(err).Error("failed to write workbook")
		return
	}
	reqLog.WithField("records", view.Len()).Info("export written")
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "reload")
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	if _, err := sess.Reload(r.Context()); err != nil {
		s.fail(w, reqLog, err)
		return
	}
	info, err := sessionInfo(r, sess)
	if err != nil {
		s.fail(w, reqLog, err)
		return
	}
	reqLog.WithField("session_id", sess.ID).Info("session reloaded")
	writeJSON(w, http.StatusOK, info, reqLog)
}

// state applies the request's selection, if any, and returns the session
// state. Without role parameters the session's current selection is kept.
func (s *Server) state(r *http.Request, sess *session.Session) (session.State, error) {
	if override, ok := ParseSelection(r.URL.Query()); ok {
		return sess.Select(r.Context(), override)
	}
	return sess.State(r.Context())
}

// ParseSelection reads categorical role parameters. Values may repeat or be
// comma separated; a parameter present with no values selects nothing. ok
// is false when no role parameter was given.
func ParseSelection(q map[string][]string) (filter.Selection, bool) {
	sel := filter.Selection{}
	for _, role := range resolver.CategoricalRoles {
		raw, present := q[string(role)]
		if !present {
			continue
		}
		values := []string{}
		for _, item := range raw {
			for _, v := range strings.Split(item, ",") {
				if strings.TrimSpace(v) != "" {
					values = append(values, v)
				}
			}
		}
		sel[role] = values
	}
	return sel, len(sel) > 0
}

func sessionInfo(r *http.Request, sess *session.Session) (types.SessionInfo, error) {
	state, err := sess.State(r.Context())
	if err != nil {
		return types.SessionInfo{}, err
	}
	return types.SessionInfo{
		ID:       sess.ID,
		Created:  sess.Created,
		Settings: sess.Settings(),
		Profile:  dataset.Describe(state.Dataset),
		Binding:  state.Binding,
		Controls: filter.Controls(state.Dataset, state.Binding, state.Selection),
	}, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

// fail maps domain errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, reqLog *logrus.Entry, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dataset.ErrLoad):
		reqLog.WithError(err).Warn("dataset load failed")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		reqLog.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, reqLog *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
