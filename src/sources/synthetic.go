package sources

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"telemetry-hub/src/logger"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
	"telemetry-hub/src/rate"
	"telemetry-hub/src/utils"
)

// -----------------------------------------------------------------------------
// SyntheticMarketSource simulates three concurrent market streams per
// configured symbol set: price ticks (random walk), sporadic trades and
// order book depth. Equity symbols only tick while their market is in
// session; pairs written BASE/QUOTE run around the clock.
// -----------------------------------------------------------------------------

const (
	walkVolatility = 0.002 // +-0.2% per step
	bookLevels     = 5
	bookLevelStep  = 0.0001 // relative price offset per level

	// floors matching the documented stream cadences: trades and book
	// updates run slower than raw ticks even at the fastest knob setting
	tradeDelayFloor = 50 * time.Millisecond
	bookDelayFloor  = 50 * time.Millisecond
)

type SyntheticMarketSource struct {
	SourceConfig models.MSourceConfig
	Rate         *rate.Controller
	Logger       *logger.Logger
	Scheduler    *utils.MarketScheduler

	symbols []string
	prices  map[string]float64
	mu      sync.Mutex

	cancelFunc context.CancelFunc
	healthy    bool
}

// -----------------------------------------------------------------------------

func NewSyntheticMarketSource(srcCfg models.MSourceConfig, rc *rate.Controller, logLevel string) *SyntheticMarketSource {
	s := &SyntheticMarketSource{
		SourceConfig: srcCfg,
		Rate:         rc,
		Logger:       logger.NewLogger(logLevel, "SyntheticSource-"+srcCfg.Name),
		symbols:      srcCfg.Symbols,
		prices:       make(map[string]float64),
	}
	s.Scheduler = utils.NewMarketScheduler(srcCfg.Symbols, s.Logger)

	for _, sym := range srcCfg.Symbols {
		if p, ok := srcCfg.StartPrices[sym]; ok && p > 0 {
			s.prices[sym] = p
		} else {
			s.prices[sym] = 100.0
		}
	}
	return s
}

// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) Name() string { return s.SourceConfig.Name }

func (s *SyntheticMarketSource) Healthy() bool { return true }

// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) Start(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(3)
	go s.runPrices(runCtx, sink, wg)
	go s.runTrades(runCtx, sink, wg)
	go s.runBooks(runCtx, sink, wg)

	s.Logger.Info("Started %d symbols", len(s.symbols))
	return nil
}

// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Price tick loop: bounded symmetric random walk off the previous value.
// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) runPrices(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		if !sleepOrDone(ctx, s.Rate.Get(models.KindPrice)) {
			return
		}

		for _, sym := range s.symbols {
			if !s.Scheduler.IsSymbolOpen(sym) {
				continue
			}

			s.mu.Lock()
			change := (rng.Float64()*2 - 1) * walkVolatility
			price := s.prices[sym] * (1 + change)
			s.prices[sym] = price
			s.mu.Unlock()

			volume := int64(rng.Intn(9900) + 100)
			emit(sink, models.NewPriceTick(sym, round2(price), volume, nowMicros()))
		}
	}
}

// -----------------------------------------------------------------------------
// Trade loop: one random symbol per cycle, price off the book price with a
// random spread, uniform size, random side.
// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) runTrades(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	for {
		delay := 3 * s.Rate.Get(models.KindTrade)
		if delay < tradeDelayFloor {
			delay = tradeDelayFloor
		}
		if !sleepOrDone(ctx, delay) {
			return
		}

		sym := s.symbols[rng.Intn(len(s.symbols))]
		if !s.Scheduler.IsSymbolOpen(sym) {
			continue
		}

		s.mu.Lock()
		book := s.prices[sym]
		s.mu.Unlock()

		spread := book * 0.001 * (rng.Float64()*2 - 1)
		size := rng.Float64()*4.99 + 0.01
		side := "buy"
		if rng.Intn(2) == 0 {
			side = "sell"
		}

		emit(sink, models.NewTrade(sym, round2(book+spread), round2(size), side, nowMicros()))
	}
}

// -----------------------------------------------------------------------------
// Order book loop: a fixed number of synthetic bid/ask levels around the
// current price.
// -----------------------------------------------------------------------------

func (s *SyntheticMarketSource) runBooks(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + 2))

	for {
		delay := 2 * s.Rate.Get(models.KindBook)
		if delay < bookDelayFloor {
			delay = bookDelayFloor
		}
		if !sleepOrDone(ctx, delay) {
			return
		}

		for _, sym := range s.symbols {
			if !s.Scheduler.IsSymbolOpen(sym) {
				continue
			}

			s.mu.Lock()
			mid := s.prices[sym]
			s.mu.Unlock()

			bids := make([]models.MBookLevel, 0, bookLevels)
			asks := make([]models.MBookLevel, 0, bookLevels)
			for i := 0; i < bookLevels; i++ {
				offset := float64(i) * mid * bookLevelStep
				bids = append(bids, models.MBookLevel{round2(mid - offset), round2(rng.Float64()*9.9 + 0.1)})
				asks = append(asks, models.MBookLevel{round2(mid + offset), round2(rng.Float64()*9.9 + 0.1)})
			}

			emit(sink, models.NewBookUpdate(sym, bids, asks, nowMicros()))
		}
	}
}

// -----------------------------------------------------------------------------

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
