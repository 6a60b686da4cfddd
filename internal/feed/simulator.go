package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

const (
	simBasePrice = 0.05
	simMinPrice  = 0.000001

	// Injection cadences, in emitted trades. Prime-ish so the patterns
	// drift against each other instead of stacking on the same tick.
	whaleEvery = 97
	washEvery  = 211
	burstEvery = 307

	washBurstTrades     = 6
	velocityBurstTrades = 25
)

// Simulator emits synthetic launch trades on a fixed interval. Most trades
// are small organic flow; every so often it injects a whale buy, an
// alternating wash cycle from a single wallet, or a velocity burst so the
// downstream detectors have something to find.
type Simulator struct {
	interval time.Duration
	onTrade  TradeHandler
	logger   *slog.Logger

	rng      *rand.Rand
	launches []*simLaunch
	traders  []string
	emitted  int
}

type simLaunch struct {
	id    string
	price float64
}

// NewSimulator creates a generator over the given number of launches and
// trader wallets. Seed 0 derives one from the clock.
func NewSimulator(interval time.Duration, launches, traders int, seed int64, onTrade TradeHandler, logger *slog.Logger) *Simulator {
	if launches < 1 {
		launches = 1
	}
	if traders < 2 {
		traders = 2
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	s := &Simulator{
		interval: interval,
		onTrade:  onTrade,
		logger:   logger.With(slog.String("component", "simulator")),
		rng:      rng,
	}
	for i := 0; i < launches; i++ {
		s.launches = append(s.launches, &simLaunch{
			id:    "launch-" + uuid.NewString()[:8],
			price: simBasePrice * (0.5 + rng.Float64()),
		})
	}
	for i := 0; i < traders; i++ {
		s.traders = append(s.traders, "wallet-"+uuid.NewString()[:12])
	}
	return s
}

// Run emits trades until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("simulator started",
		slog.Int("launches", len(s.launches)),
		slog.Int("traders", len(s.traders)),
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator stopped", slog.Int("trades", s.emitted))
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Simulator) tick(ctx context.Context) {
	switch {
	case s.emitted > 0 && s.emitted%burstEvery == 0:
		s.emitVelocityBurst(ctx)
	case s.emitted > 0 && s.emitted%washEvery == 0:
		s.emitWashCycle(ctx)
	case s.emitted > 0 && s.emitted%whaleEvery == 0:
		s.emitWhale(ctx)
	default:
		s.emit(ctx, s.organicTrade())
	}
}

// organicTrade produces ordinary background flow: small sizes, a slight
// buy-side bias, and a bounded random walk on price.
func (s *Simulator) organicTrade() domain.TradeEvent {
	launch := s.launches[s.rng.Intn(len(s.launches))]

	side := domain.SideSell
	if s.rng.Float64() < 0.55 {
		side = domain.SideBuy
	}

	drift := 1 + (s.rng.Float64()-0.5)*0.06
	launch.price *= drift
	if launch.price < simMinPrice {
		launch.price = simMinPrice
	}

	sol := s.rng.ExpFloat64() * 2
	if sol < 0.01 {
		sol = 0.01
	}
	return s.trade(launch, s.traders[s.rng.Intn(len(s.traders))], side, sol)
}

func (s *Simulator) emitWhale(ctx context.Context) {
	launch := s.launches[s.rng.Intn(len(s.launches))]
	sol := 50 + s.rng.Float64()*150
	ev := s.trade(launch, s.traders[s.rng.Intn(len(s.traders))], domain.SideBuy, sol)
	s.logger.Debug("injecting whale trade", slog.String("launch_id", launch.id), slog.Float64("sol", sol))
	s.emit(ctx, ev)
}

func (s *Simulator) emitWashCycle(ctx context.Context) {
	launch := s.launches[s.rng.Intn(len(s.launches))]
	trader := s.traders[s.rng.Intn(len(s.traders))]
	s.logger.Debug("injecting wash cycle", slog.String("launch_id", launch.id), slog.String("trader", trader))
	side := domain.SideBuy
	for i := 0; i < washBurstTrades; i++ {
		s.emit(ctx, s.trade(launch, trader, side, 1+s.rng.Float64()))
		if side == domain.SideBuy {
			side = domain.SideSell
		} else {
			side = domain.SideBuy
		}
	}
}

func (s *Simulator) emitVelocityBurst(ctx context.Context) {
	launch := s.launches[s.rng.Intn(len(s.launches))]
	s.logger.Debug("injecting velocity burst", slog.String("launch_id", launch.id))
	for i := 0; i < velocityBurstTrades; i++ {
		side := domain.SideBuy
		if s.rng.Float64() < 0.3 {
			side = domain.SideSell
		}
		trader := s.traders[s.rng.Intn(len(s.traders))]
		s.emit(ctx, s.trade(launch, trader, side, 0.1+s.rng.Float64()))
	}
}

func (s *Simulator) trade(launch *simLaunch, trader string, side domain.Side, sol float64) domain.TradeEvent {
	return domain.TradeEvent{
		LaunchID:    launch.id,
		Trader:      trader,
		Side:        side,
		SolAmount:   sol,
		TokenAmount: sol / launch.price,
		Price:       launch.price,
		Timestamp:   time.Now(),
		Signature:   fmt.Sprintf("sim-%s", uuid.NewString()),
	}
}

func (s *Simulator) emit(ctx context.Context, ev domain.TradeEvent) {
	if ctx.Err() != nil {
		return
	}
	s.onTrade(ctx, ev)
	s.emitted++
}
