package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/aptrank/internal/adapters/repository"
	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/domain/rating"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/pkg/logger"
)

// Result is the outcome of running one strategy.
type Result struct {
	Strategy    string        `json:"strategy"`
	Comparisons int           `json:"comparisons"`
	Fallbacks   int           `json:"fallbacks"`
	Spearman    float64       `json:"spearman"`
	TopFound    bool          `json:"top_found"`
	Coverage    Coverage      `json:"coverage"`
	Duration    time.Duration `json:"duration_ns"`
}

// Report collects the results of an experiment.
type Report struct {
	Items     int       `json:"items"`
	Rounds    int       `json:"rounds"`
	Noise     float64   `json:"noise"`
	Seed      int64     `json:"seed"`
	Results   []Result  `json:"results"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Run executes the experiment. Strategies run concurrently, each against its
// own service and in-memory store; the listings and their utilities are shared.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}

	report := Report{
		Items:     cfg.Items,
		Rounds:    cfg.Rounds,
		Noise:     cfg.Noise,
		Seed:      cfg.Seed,
		StartTime: time.Now(),
	}

	log := logger.Named("simulate")
	log.Info(ctx, "starting simulation",
		logger.Int("items", cfg.Items),
		logger.Int("rounds", cfg.Rounds),
		logger.Float64("noise", cfg.Noise),
		logger.Any("seed", cfg.Seed))

	listings := generate(cfg.Items, rand.New(rand.NewSource(cfg.Seed))) //nolint:gosec // reproducible experiment

	strategies := cfg.strategies()
	results := make([]Result, len(strategies))
	errs := make([]error, len(strategies))

	var wg sync.WaitGroup
	for i, st := range strategies {
		wg.Add(1)
		go func(i int, st selector.Strategy) {
			defer wg.Done()
			results[i], errs[i] = runStrategy(ctx, cfg, st, listings)
		}(i, st)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return Report{}, fmt.Errorf("strategy %s: %w", strategies[i], err)
		}
	}

	report.Results = results
	report.EndTime = time.Now()
	log.Info(ctx, "simulation completed", logger.String("duration", report.EndTime.Sub(report.StartTime).String()))
	return report, nil
}

func runStrategy(ctx context.Context, cfg Config, st selector.Strategy, listings []Listing) (Result, error) {
	start := time.Now()
	seed := cfg.Seed + int64(st) + 1
	rng := rand.New(rand.NewSource(seed))                         //nolint:gosec // reproducible experiment
	judge := NewJudge(cfg.Noise, rand.New(rand.NewSource(-seed))) //nolint:gosec // reproducible experiment

	items := make([]Listing, len(listings))
	copy(items, listings)
	utility := make(map[string]float64, len(items))
	source := make(service.StaticItems, len(items))
	for i, l := range items {
		utility[l.Item.Key] = l.Utility
		source[i] = l.Item
	}

	var modelOpts []rating.Option
	if cfg.K > 0 {
		modelOpts = append(modelOpts, rating.WithK(cfg.K))
	}

	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithSource(source),
		service.WithStore(repository.NewMemoryStore(repository.Snapshot{})),
		service.WithModel(rating.NewModel(modelOpts...)),
		service.WithSelector(selector.New(
			selector.WithWindow(cfg.Window),
			selector.WithCoverageThreshold(cfg.Threshold),
			selector.WithRand(rng),
		)),
		service.WithDefaultStrategy(st),
	)
	if err := svc.Start(ctx); err != nil {
		return Result{}, err
	}
	defer svc.Stop()

	res := Result{Strategy: st.String()}
	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p, err := svc.SmartPair(ctx, st)
		if err != nil {
			return Result{}, err
		}
		if p.Strategy != p.Requested {
			res.Fallbacks++
		}
		a, b := p.A.Listing.Key, p.B.Listing.Key
		winner, loser := b, a
		if judge.ChooseA(utility[a], utility[b]) {
			winner, loser = a, b
		}
		if _, err := svc.RecordMatch(ctx, winner, loser); err != nil {
			return Result{}, err
		}
		res.Comparisons++
	}

	entries, err := svc.Rankings(ctx)
	if err != nil {
		return Result{}, err
	}

	best := items[0]
	for _, l := range items[1:] {
		if l.Utility > best.Utility {
			best = l
		}
	}
	res.TopFound = len(entries) > 0 && entries[0].Key == best.Item.Key

	ratings := svc.Ratings(ctx)
	hidden := make([]float64, len(items))
	observed := make([]float64, len(items))
	counts := make([]int, len(items))
	for i, l := range items {
		hidden[i] = l.Utility
		observed[i] = ratings[l.Item.Key]
		counts[i] = svc.Appearances(ctx, l.Item.Key)
	}
	res.Spearman = spearman(hidden, observed)
	res.Coverage = coverage(counts)
	res.Duration = time.Since(start)
	return res, nil
}
