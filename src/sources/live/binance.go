package live

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"telemetry-hub/src/logger"
	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
	"telemetry-hub/src/rate"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// BinanceFeedSource bridges a Binance-style websocket feed into the stream
// source contract. Malformed messages are dropped and counted; connection
// loss triggers a bounded-backoff reconnect behind a circuit breaker.
// While the breaker is open the source reports itself unhealthy but keeps
// trying; it never terminates the process.
// -----------------------------------------------------------------------------

const (
	reconnectDelay  = 5 * time.Second
	breakerFailures = 5
	breakerDelay    = 30 * time.Second
	feedPingPeriod  = 30 * time.Second
	feedReadWait    = 90 * time.Second
)

type BinanceFeedSource struct {
	SourceConfig models.MSourceConfig
	Rate         *rate.Controller
	Logger       *logger.Logger

	breaker    circuitbreaker.CircuitBreaker[any]
	healthy    atomic.Bool
	dropped    atomic.Uint64
	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewBinanceFeedSource(srcCfg models.MSourceConfig, rc *rate.Controller, logLevel string) *BinanceFeedSource {
	s := &BinanceFeedSource{
		SourceConfig: srcCfg,
		Rate:         rc,
		Logger:       logger.NewLogger(logLevel, "LiveFeed-"+srcCfg.Name),
	}

	s.breaker = circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(breakerFailures).
		WithDelay(breakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			s.Logger.Warning("Feed breaker %s -> %s", e.OldState, e.NewState)
			if e.NewState == circuitbreaker.OpenState {
				s.healthy.Store(false)
				metrics.FeedHealthy.WithLabelValues(s.Name()).Set(0)
			}
		}).
		Build()

	return s
}

// -----------------------------------------------------------------------------

func (s *BinanceFeedSource) Name() string { return s.SourceConfig.Name }

// Healthy reports false after the reconnect budget is exhausted (breaker
// open) and true again once a connection sticks.
func (s *BinanceFeedSource) Healthy() bool { return s.healthy.Load() }

// DroppedFrames returns the count of malformed feed messages discarded.
func (s *BinanceFeedSource) DroppedFrames() uint64 { return s.dropped.Load() }

func (s *BinanceFeedSource) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *BinanceFeedSource) Start(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go s.run(runCtx, sink, wg)
	return nil
}

// -----------------------------------------------------------------------------

func (s *BinanceFeedSource) run(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) {
	defer wg.Done()

	for ctx.Err() == nil {
		delay := reconnectDelay

		if s.breaker.TryAcquirePermit() {
			err := s.streamOnce(ctx, sink)
			if ctx.Err() != nil {
				return
			}
			s.breaker.RecordFailure()
			if err != nil {
				s.Logger.Warning("Feed disconnected: %v", err)
			}
		} else {
			delay = breakerDelay
		}

		metrics.FeedReconnects.WithLabelValues(s.Name()).Inc()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// -----------------------------------------------------------------------------

// streamOnce dials the feed and pumps messages until the connection drops
// or the context is cancelled. Returning nil means a clean shutdown.
func (s *BinanceFeedSource) streamOnce(ctx context.Context, sink pipeline.Sink) error {
	s.Logger.Info("Connecting to %s", s.SourceConfig.URL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.SourceConfig.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.breaker.RecordSuccess()
	s.healthy.Store(true)
	metrics.FeedHealthy.WithLabelValues(s.Name()).Set(1)

	// close the socket on cancellation so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(feedReadWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if sample := s.transform(raw); sample != nil {
			sink(sample)
			metrics.CountMessage(string(sample.Kind()))
		}
	}
}

// -----------------------------------------------------------------------------
// Message transforms
// -----------------------------------------------------------------------------

// feedMessage covers both direct and combined-stream payload shapes.
type feedMessage struct {
	Data   json.RawMessage `json:"data"`
	Stream string          `json:"stream"`

	EventType string `json:"e"`
	Symbol    string `json:"s"`

	// ticker fields
	LastPrice string `json:"c"`
	Volume    string `json:"v"`

	// trade fields
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
}

// transform converts one raw feed message into a Sample, or nil when the
// message is malformed or of an unknown type.
func (s *BinanceFeedSource) transform(raw []byte) models.Sample {
	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.drop("unparseable message")
		return nil
	}

	// combined stream format wraps the event in a data field
	if len(msg.Data) > 0 {
		inner := msg
		inner.Data = nil
		if err := json.Unmarshal(msg.Data, &inner); err != nil {
			s.drop("unparseable combined payload")
			return nil
		}
		msg = inner
	}

	switch msg.EventType {
	case "24hrTicker":
		price, err1 := strconv.ParseFloat(msg.LastPrice, 64)
		volume, err2 := strconv.ParseFloat(msg.Volume, 64)
		if msg.Symbol == "" || err1 != nil || err2 != nil {
			s.drop("bad ticker fields")
			return nil
		}
		return models.NewPriceTick(normalizeSymbol(msg.Symbol), price, int64(volume), time.Now().UnixMicro())

	case "trade":
		price, err1 := strconv.ParseFloat(msg.Price, 64)
		size, err2 := strconv.ParseFloat(msg.Quantity, 64)
		if msg.Symbol == "" || err1 != nil || err2 != nil {
			s.drop("bad trade fields")
			return nil
		}
		side := "buy"
		if msg.IsBuyerMaker {
			side = "sell"
		}
		return models.NewTrade(normalizeSymbol(msg.Symbol), price, size, side, time.Now().UnixMicro())

	default:
		// subscription acks and unknown events are not samples
		return nil
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceFeedSource) drop(reason string) {
	s.dropped.Add(1)
	metrics.FramesDropped.WithLabelValues(s.Name()).Inc()
	s.Logger.Debug("Dropped feed message: %s", reason)
}

// -----------------------------------------------------------------------------

// normalizeSymbol maps exchange pair names to the wire convention
// (BTCUSDT -> BTC/USD).
func normalizeSymbol(feedSymbol string) string {
	sym := strings.ToUpper(feedSymbol)
	if strings.HasSuffix(sym, "USDT") {
		return sym[:len(sym)-4] + "/USD"
	}
	return sym
}
