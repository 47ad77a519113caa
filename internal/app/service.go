// Package service ties the rating model, match ledger and pair selector
// together and exposes them to the HTTP API, the terminal UI and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/aptrank/internal/adapters/repository"
	"github.com/okian/aptrank/internal/domain/ledger"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/ranking"
	"github.com/okian/aptrank/internal/domain/rating"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/internal/domain/types"
	"github.com/okian/aptrank/pkg/logger"
	"github.com/okian/aptrank/pkg/metrics"
)

// Service holds one ranking session. All methods are safe for concurrent use.
type Service struct {
	mu sync.Mutex

	// Core components
	model    rating.Model
	ratings  *rating.Table
	ledger   *ledger.Ledger
	selector *selector.Selector

	// Collaborators
	store    repository.Store
	source   ItemSource
	exporter Exporter

	// Configuration
	defaultStrategy selector.Strategy

	// State
	items   []model.Item
	index   map[string]int
	started bool
	// unrestored is set when Start could not read the store; saving is then
	// withheld so the stored state is not overwritten.
	unrestored bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence collaborator. Without one, state lives in
// a MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSource sets where listings are loaded from.
func WithSource(src ItemSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithItems is shorthand for WithSource(StaticItems(items)).
func WithItems(items []model.Item) Option {
	return WithSource(StaticItems(items))
}

// WithModel sets the rating model (K factor and initial rating).
func WithModel(m rating.Model) Option {
	return func(s *Service) {
		s.model = m
	}
}

// WithSelector sets the pair selector.
func WithSelector(sel *selector.Selector) Option {
	return func(s *Service) {
		if sel != nil {
			s.selector = sel
		}
	}
}

// WithExporter sets a rankings exporter invoked after each recorded match.
func WithExporter(e Exporter) Option {
	return func(s *Service) {
		s.exporter = e
	}
}

// WithDefaultStrategy sets the strategy used when callers do not pick one.
func WithDefaultStrategy(st selector.Strategy) Option {
	return func(s *Service) {
		s.defaultStrategy = st
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		model:           rating.NewModel(),
		selector:        selector.New(),
		defaultStrategy: selector.Balanced,
		index:           make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.ratings = s.model.NewTable()
	s.ledger = ledger.New(nil)
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.Snapshot{})
	}

	return s
}

// Start restores persisted state and loads the listings. A failure to read
// persisted state is logged and the session starts empty without ever saving
// over the store; a failure to load listings is returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		return ErrNoSource
	}

	snap, err := s.store.Load(ctx)
	if err != nil {
		metrics.RecordPersistenceError("load")
		s.logger.Warn(ctx, "could not restore ranking state, starting fresh without saving", logger.Error(err))
		snap = repository.Snapshot{}
		s.unrestored = true
	}
	s.ratings.Replace(snap.Ratings)
	s.ledger = ledger.New(snap.Outcomes)
	for _, o := range snap.Outcomes {
		s.ratings.Ensure(o.WinnerKey)
		s.ratings.Ensure(o.LoserKey)
	}

	if err := s.loadItems(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("items", len(s.items)),
		logger.Int("matches", s.ledger.Len()),
		logger.Float64("k", s.model.K()),
		logger.String("strategy", s.defaultStrategy.String()),
	)

	return nil
}

// Refresh reloads the listings from the source. Ratings and the ledger are
// kept; listings that disappeared keep their rating but are no longer paired
// or ranked.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, ErrNotStarted
	}
	if err := s.loadItems(ctx); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "listings refreshed", logger.Int("items", len(s.items)))
	return len(s.items), nil
}

func (s *Service) loadItems(ctx context.Context) error {
	items, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadItems, err)
	}

	index := make(map[string]int, len(items))
	kept := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Key == "" {
			it.Key = model.KeyFor(it.Link)
		}
		if _, dup := index[it.Key]; dup {
			continue
		}
		index[it.Key] = len(kept)
		kept = append(kept, it)
		s.ratings.Ensure(it.Key)
	}

	s.items = kept
	s.index = index
	return nil
}

// Stop closes the store. The service can be started again only with a new
// store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

// Rankings returns every loaded listing ordered by rating, best first.
func (s *Service) Rankings(_ context.Context) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return ranking.Compute(s.items, s.ratings), nil
}

// RecordMatch applies one comparison. The returned outcome is valid whenever
// err is nil or wraps ErrPersistence.
func (s *Service) RecordMatch(ctx context.Context, winnerKey, loserKey string) (model.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.Outcome{}, ErrNotStarted
	}
	if winnerKey == loserKey {
		return model.Outcome{}, ErrSameItem
	}
	for _, k := range []string{winnerKey, loserKey} {
		if _, ok := s.index[k]; !ok {
			return model.Outcome{}, fmt.Errorf("%w: %s", ErrUnknownItem, k)
		}
	}

	wb, lb := s.ratings.Get(winnerKey), s.ratings.Get(loserKey)
	wa, la := s.model.Update(wb, lb)
	s.ratings.Set(winnerKey, wa)
	s.ratings.Set(loserKey, la)
	o := s.ledger.Record(model.Outcome{
		WinnerKey:    winnerKey,
		LoserKey:     loserKey,
		WinnerBefore: wb,
		LoserBefore:  lb,
		WinnerAfter:  wa,
		LoserAfter:   la,
	})

	metrics.RecordMatch(wa - wb)
	s.logger.Debug(ctx, "match recorded",
		logger.String("id", o.ID),
		logger.String("winner", winnerKey),
		logger.String("loser", loserKey),
		logger.Float64("delta", wa-wb),
	)

	return o, s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	var errs []error
	if s.unrestored {
		errs = append(errs, ErrStateNotRestored)
	} else if err := s.store.Save(ctx, s.ratings.Snapshot(), s.ledger.All()); err != nil {
		metrics.RecordPersistenceError("save")
		errs = append(errs, err)
	}
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, ranking.Compute(s.items, s.ratings)); err != nil {
			metrics.RecordPersistenceError("export")
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	s.logger.Warn(ctx, "outcome applied but not persisted", logger.Error(err))
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// SmartPair picks the next two listings to compare.
func (s *Service) SmartPair(ctx context.Context, strategy selector.Strategy) (types.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.Pair{}, ErrNotStarted
	}

	keys := make([]string, len(s.items))
	for i, it := range s.items {
		keys[i] = it.Key
	}
	p, err := s.selector.Select(strategy, keys, s.ratings, s.ledger)
	if err != nil {
		return types.Pair{}, err
	}

	metrics.RecordPairSelection(strategy.String(), p.Strategy.String())
	if p.Strategy != strategy {
		s.logger.Debug(ctx, "pair strategy fell back",
			logger.String("requested", strategy.String()),
			logger.String("served", p.Strategy.String()),
		)
	}

	counts := s.ledger.Appearances()
	return types.Pair{
		Requested: strategy.String(),
		Strategy:  p.Strategy.String(),
		A:         s.contender(p.A, counts),
		B:         s.contender(p.B, counts),
	}, nil
}

// DefaultPair picks a pair using the configured default strategy.
func (s *Service) DefaultPair(ctx context.Context) (types.Pair, error) {
	return s.SmartPair(ctx, s.defaultStrategy)
}

// RandomPair picks two distinct listings uniformly at random.
func (s *Service) RandomPair(ctx context.Context) (types.Pair, error) {
	return s.SmartPair(ctx, selector.Random)
}

// DefaultStrategy returns the configured default strategy.
func (s *Service) DefaultStrategy() selector.Strategy { return s.defaultStrategy }

func (s *Service) contender(key string, counts map[string]int) types.Contender {
	return types.Contender{
		Rating:      s.ratings.Get(key),
		Appearances: counts[key],
		Listing:     types.ListingOf(s.items[s.index[key]]),
	}
}

// History returns the last n outcomes in chronological order, or the whole
// ledger when n <= 0.
func (s *Service) History(_ context.Context, n int) []model.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return s.ledger.All()
	}
	return s.ledger.Recent(n)
}

// Ratings returns a copy of the rating table.
func (s *Service) Ratings(_ context.Context) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratings.Snapshot()
}

// Item returns the ranking row for one listing.
func (s *Service) Item(_ context.Context, key string) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return types.Entry{}, ErrNotStarted
	}
	if _, ok := s.index[key]; !ok {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrUnknownItem, key)
	}
	for _, e := range ranking.Compute(s.items, s.ratings) {
		if e.Key == key {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %s", ErrUnknownItem, key)
}

// Appearances returns how many recorded outcomes involve key.
func (s *Service) Appearances(_ context.Context, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, o := range s.ledger.All() {
		if o.Involves(key) {
			n++
		}
	}
	return n
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]any{
		"started":          s.started,
		"items":            len(s.items),
		"matches":          s.ledger.Len(),
		"k_factor":         s.model.K(),
		"initial_rating":   s.model.Initial(),
		"default_strategy": s.defaultStrategy.String(),
	}

	if s.started {
		counts := s.ledger.Appearances()
		unseen := 0
		for _, it := range s.items {
			if counts[it.Key] == 0 {
				unseen++
			}
		}
		stats["unseen_items"] = unseen
	}

	return stats
}
