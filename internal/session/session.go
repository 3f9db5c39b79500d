package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/logger"
	"sales-dashboard-go/internal/resolver"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// LoadFunc reads a dataset. Store uses dataset.Load unless told otherwise.
type LoadFunc func(ctx context.Context, src dataset.Source, opts dataset.Options) (*dataset.Dataset, error)

// Settings fix what a session loads and how it binds roles.
type Settings struct {
	Source   string            `json:"source"`
	Variant  dataset.Variant   `json:"variant"`
	Strategy resolver.Strategy `json:"strategy"`
}

// State is a consistent snapshot of a session.
type State struct {
	Dataset   *dataset.Dataset
	Binding   resolver.Binding
	Selection filter.Selection
}

// Session holds one user's dataset cache, binding and filter selection.
// All methods are safe for concurrent use; calls on one session are
// serialized.
type Session struct {
	ID      string
	Created time.Time

	mu        sync.Mutex
	settings  Settings
	src       dataset.Source
	load      LoadFunc
	timeout   time.Duration
	rules     resolver.Rules
	cacheKey  string
	ds        *dataset.Dataset
	binding   resolver.Binding
	selection filter.Selection
	loads     int
}

// Store owns the live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	load     LoadFunc
	timeout  time.Duration
	rules    resolver.Rules
	log      *logrus.Entry
}

func NewStore(timeout time.Duration) *Store {
	return &Store{
		sessions: map[string]*Session{},
		load:     dataset.Load,
		timeout:  timeout,
		log:      logger.Component("session"),
	}
}

// WithLoader replaces the dataset loader, mostly for tests.
func (st *Store) WithLoader(fn LoadFunc) *Store {
	st.load = fn
	return st
}

// WithRules sets the name and keyword overrides used by new sessions.
func (st *Store) WithRules(rules resolver.Rules) *Store {
	st.rules = rules
	return st
}

// Create loads the source, resolves the binding and registers the session.
// A LoadError leaves the store unchanged.
func (st *Store) Create(ctx context.Context, settings Settings) (*Session, error) {
	if settings.Variant == "" {
		settings.Variant = dataset.VariantAuto
	}
	if settings.Strategy == "" {
		settings.Strategy = resolver.Heuristic
	}
	src, err := dataset.ParseSource(settings.Source)
	if err != nil {
		return nil, &dataset.LoadError{Source: settings.Source, Err: err}
	}

	s := &Session{
		ID:       uuid.New().String(),
		Created:  time.Now(),
		settings: settings,
		src:      src,
		load:     st.load,
		timeout:  st.timeout,
		rules:    st.rules,
	}
	s.mu.Lock()
	err = s.ensure(ctx)
	s.mu.Unlock()
	if err != nil {
		st.log.WithField("source", settings.Source).WithError(err).Warn("session not created")
		return nil, err
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"source":     src.String(),
		"variant":    settings.Variant,
		"strategy":   settings.Strategy,
	}).Info("session created")
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete ends a session. Its cached dataset is released with it.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	st.log.WithField("session_id", id).Info("session deleted")
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Loads reports how many times the source has been read.
func (s *Session) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// State returns the cached dataset, binding and current selection,
// reloading first if the cache was invalidated.
func (s *Session) State(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(ctx); err != nil {
		return State{}, err
	}
	return State{Dataset: s.ds, Binding: s.binding, Selection: s.selection.Clone()}, nil
}

// Select overlays override onto the default selection and keeps the result
// as the session's current selection.
func (s *Session) Select(ctx context.Context, override filter.Selection) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(ctx); err != nil {
		return State{}, err
	}
	s.selection = filter.Merge(filter.Default(s.ds, s.binding), override)
	return State{Dataset: s.ds, Binding: s.binding, Selection: s.selection.Clone()}, nil
}

// Invalidate drops the cached dataset; the next access reloads it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = nil
	s.cacheKey = ""
}

// Reload invalidates and reloads immediately. The selection is reset to the
// defaults of the fresh dataset.
func (s *Session) Reload(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = nil
	s.cacheKey = ""
	if err := s.ensure(ctx); err != nil {
		return State{}, err
	}
	return State{Dataset: s.ds, Binding: s.binding, Selection: s.selection.Clone()}, nil
}

func (s *Session) key() string {
	return string(s.settings.Variant) + "|" + s.src.String()
}

// ensure loads and binds the dataset if the cache is empty or keyed to a
// different source. Callers hold s.mu.
func (s *Session) ensure(ctx context.Context) error {
	key := s.key()
	if s.ds != nil && s.cacheKey == key {
		return nil
	}

	ds, err := s.load(ctx, s.src, dataset.Options{Variant: s.settings.Variant, Timeout: s.timeout})
	s.loads++
	if err != nil {
		return err
	}

	binding := newResolver(s.settings, s.rules).Resolve(ds.Columns())
	if col, ok := binding.Column(resolver.OrderDate); ok {
		ds = ds.WithMonth(col)
	}

	s.ds = ds
	s.cacheKey = key
	s.binding = binding
	s.selection = filter.Default(ds, binding)
	return nil
}

func newResolver(settings Settings, rules resolver.Rules) *resolver.Resolver {
	r := resolver.New(settings.Strategy)
	if settings.Variant == dataset.VariantDerived {
		r = r.WithNames(resolver.EcommerceNames)
	}
	return r.WithRules(rules)
}
