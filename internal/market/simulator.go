// Package market provides the simulated market data feed: a synthetic
// candle generator ("live" mode) and a dataset replayer ("replay" mode)
// behind one subscription surface.
package market

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
	"go.uber.org/zap"
)

const (
	// DefaultBaseInterval is the unscaled time between ticks.
	DefaultBaseInterval = 60 * time.Second
	// MinInterval is the floor applied after speed scaling.
	MinInterval = 50 * time.Millisecond
	// DefaultHistorySize is the per-symbol candle buffer length.
	DefaultHistorySize = 500
	// DefaultVolatility is the per-tick bounded random-walk amplitude.
	DefaultVolatility = 0.002
)

// Mode identifies the active data source.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeLive   Mode = "live"
	ModeReplay Mode = "replay"
)

// Options configures the simulator.
type Options struct {
	// Symbols lists the instruments to generate in live mode.
	Symbols []string
	// BasePrices seeds the random walk per symbol.
	BasePrices map[string]float64
	// Volatility is the uniform bound on per-tick close movement.
	Volatility float64
	// BaseInterval is the unscaled tick interval.
	BaseInterval time.Duration
	// HistorySize bounds the per-symbol candle buffer.
	HistorySize int
	// Timeframe labels generated candles.
	Timeframe string
}

func (o *Options) applyDefaults() {
	if o.Volatility <= 0 {
		o.Volatility = DefaultVolatility
	}
	if o.BaseInterval <= 0 {
		o.BaseInterval = DefaultBaseInterval
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	if o.Timeframe == "" {
		o.Timeframe = "1m"
	}
}

// Simulator generates synthetic candles or replays a recorded dataset and
// fans them out to subscribers. All per-tick work happens synchronously
// inside Tick, so candle processing never overlaps for a symbol.
type Simulator struct {
	mu      sync.Mutex
	logger  *zap.Logger
	opts    Options
	speed   float64
	mode    Mode
	running bool

	prices  map[string]float64
	history map[string][]core.Candle

	subs    map[int]core.CandleHandler
	nextSub int

	replay     []core.Candle
	replayIdx  int
	replayDone bool
	onComplete []func()

	stopCh  chan struct{}
	speedCh chan struct{}
	doneCh  chan struct{}

	now func() time.Time
	rng *rand.Rand
}

// NewSimulator creates a stopped simulator with the given options.
func NewSimulator(opts Options, logger ...*zap.Logger) *Simulator {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	opts.applyDefaults()

	s := &Simulator{
		logger:  l,
		opts:    opts,
		speed:   1,
		mode:    ModeIdle,
		prices:  make(map[string]float64),
		history: make(map[string][]core.Candle),
		subs:    make(map[int]core.CandleHandler),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for sym, p := range opts.BasePrices {
		s.prices[sym] = p
	}
	return s
}

// Configure replaces the options. It fails silently on a running
// simulator; callers stop first.
func (s *Simulator) Configure(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("configure ignored while running")
		return
	}
	opts.applyDefaults()
	s.opts = opts
	for sym, p := range opts.BasePrices {
		if _, ok := s.prices[sym]; !ok {
			s.prices[sym] = p
		}
	}
}

// SetClock injects a time source for deterministic tests.
func (s *Simulator) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Subscribe registers a candle handler and returns its unsubscribe
// function. Handlers run synchronously on the tick goroutine.
func (s *Simulator) Subscribe(h core.CandleHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// OnReplayComplete registers a callback fired when a replay dataset is
// exhausted.
func (s *Simulator) OnReplayComplete(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// StartLive begins procedural candle generation for the configured
// symbols.
func (s *Simulator) StartLive() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("simulator already running")
		return
	}
	s.mode = ModeLive
	s.running = true
	s.stopCh = make(chan struct{})
	s.speedCh = make(chan struct{}, 1)
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("starting live simulation",
		zap.Strings("symbols", s.opts.Symbols),
		zap.Float64("volatility", s.opts.Volatility),
	)
	go s.loop()
}

// StartReplay begins replaying raw dataset bytes. Malformed input is
// treated as an empty dataset: the replay completes immediately instead of
// failing.
func (s *Simulator) StartReplay(data []byte) {
	candles := ParseReplayData(data, s.logger)
	s.StartReplayCandles(candles)
}

// StartReplayCandles begins replaying an already-decoded candle sequence,
// sorted by timestamp.
func (s *Simulator) StartReplayCandles(candles []core.Candle) {
	if !s.LoadReplay(candles) {
		return
	}

	s.mu.Lock()
	s.running = true
	s.stopCh = make(chan struct{})
	s.speedCh = make(chan struct{}, 1)
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("starting replay", zap.Int("candles", len(candles)))
	go s.loop()
}

// LoadReplay stages a replay dataset without starting the tick loop, for
// callers that step the simulation themselves with Tick. It reports
// whether the dataset was accepted.
func (s *Simulator) LoadReplay(candles []core.Candle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("simulator already running")
		return false
	}
	s.mode = ModeReplay
	s.replay = candles
	s.replayIdx = 0
	s.replayDone = false
	return true
}

// Stop halts the tick loop. It returns only after the loop has exited, so
// no candle callback fires after Stop returns.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.mu.Lock()
	s.mode = ModeIdle
	s.mu.Unlock()
	s.logger.Info("simulator stopped")
}

// SetSpeed changes the playback speed multiplier. The tick timer restarts
// at the new interval; replay position is preserved.
func (s *Simulator) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		return
	}
	s.mu.Lock()
	s.speed = multiplier
	ch := s.speedCh
	s.mu.Unlock()

	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Interval returns the effective tick interval after speed scaling,
// floored at MinInterval.
func (s *Simulator) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalLocked()
}

func (s *Simulator) intervalLocked() time.Duration {
	iv := time.Duration(float64(s.opts.BaseInterval) / s.speed)
	if iv < MinInterval {
		iv = MinInterval
	}
	return iv
}

// Mode returns the current data-source mode.
func (s *Simulator) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Running reports whether the tick loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CurrentPrice returns the latest close for a symbol, falling back to the
// configured base price.
func (s *Simulator) CurrentPrice(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prices[symbol]; ok {
		return p
	}
	return s.opts.BasePrices[symbol]
}

// History returns up to count most recent candles for a symbol in
// chronological order. count <= 0 returns the full buffer.
func (s *Simulator) History(symbol string, count int) []core.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.history[symbol]
	if count > 0 && count < len(buf) {
		buf = buf[len(buf)-count:]
	}
	out := make([]core.Candle, len(buf))
	copy(out, buf)
	return out
}

// loop drives ticks from a timer until stopped or the replay completes.
func (s *Simulator) loop() {
	defer close(s.doneCh)

	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-s.speedCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.Interval())
		case <-timer.C:
			if !s.Tick() {
				return
			}
			timer.Reset(s.Interval())
		}
	}
}

// Tick advances the simulation by one step: one generated candle per
// symbol in live mode, or every candle sharing the next timestamp in
// replay mode. It returns false when the loop should end. Tests call Tick
// directly to step deterministically.
func (s *Simulator) Tick() bool {
	s.mu.Lock()
	var batch []core.Candle
	var completed bool

	switch s.mode {
	case ModeReplay:
		batch, completed = s.nextReplayBatchLocked()
	default:
		batch = s.generateBatchLocked()
	}

	for _, c := range batch {
		s.recordLocked(c)
	}
	handlers := make([]core.CandleHandler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	var doneFns []func()
	if completed && !s.replayDone {
		s.replayDone = true
		doneFns = append(doneFns, s.onComplete...)
		s.running = false
	}
	s.mu.Unlock()

	for _, c := range batch {
		for _, h := range handlers {
			h(c)
		}
	}
	for _, fn := range doneFns {
		fn()
	}
	if completed {
		s.logger.Info("replay complete")
		return false
	}
	return true
}

// generateBatchLocked produces one candle per configured symbol using a
// bounded random walk. High/low always bracket open/close.
func (s *Simulator) generateBatchLocked() []core.Candle {
	ts := s.now().Truncate(time.Minute)
	batch := make([]core.Candle, 0, len(s.opts.Symbols))

	for _, sym := range s.opts.Symbols {
		open, ok := s.prices[sym]
		if !ok || open <= 0 {
			open = s.opts.BasePrices[sym]
			if open <= 0 {
				continue
			}
		}

		change := (s.rng.Float64()*2 - 1) * s.opts.Volatility
		closeP := open * (1 + change)
		wick := math.Abs(closeP-open) * (1.5 + s.rng.Float64()*0.5)
		high := math.Max(open, closeP) + wick*s.rng.Float64()
		low := math.Min(open, closeP) - wick*s.rng.Float64()

		s.prices[sym] = closeP
		batch = append(batch, core.Candle{
			Symbol:    sym,
			Timeframe: s.opts.Timeframe,
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    1000 + s.rng.Int63n(9000),
		})
	}
	return batch
}

// nextReplayBatchLocked emits every candle sharing the next-smallest
// timestamp so symbols recorded together tick together.
func (s *Simulator) nextReplayBatchLocked() ([]core.Candle, bool) {
	if s.replayIdx >= len(s.replay) {
		return nil, true
	}

	ts := s.replay[s.replayIdx].Timestamp
	var batch []core.Candle
	for s.replayIdx < len(s.replay) && s.replay[s.replayIdx].Timestamp.Equal(ts) {
		c := s.replay[s.replayIdx]
		s.prices[c.Symbol] = c.Close
		batch = append(batch, c)
		s.replayIdx++
	}
	return batch, s.replayIdx >= len(s.replay)
}

// recordLocked appends a candle to the bounded per-symbol history buffer.
func (s *Simulator) recordLocked(c core.Candle) {
	buf := append(s.history[c.Symbol], c)
	if len(buf) > s.opts.HistorySize {
		buf = buf[len(buf)-s.opts.HistorySize:]
	}
	s.history[c.Symbol] = buf
	s.prices[c.Symbol] = c.Close
}
