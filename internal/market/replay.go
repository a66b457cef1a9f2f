package market

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
	"go.uber.org/zap"
)

// replayCandle is the wire form of a recorded candle. Timeframe and volume
// are optional; timestamps accept RFC3339 strings or unix epoch numbers.
type replayCandle struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Timestamp flexTime `json:"timestamp"`
	Open      float64  `json:"open"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	Close     float64  `json:"close"`
	Volume    *int64   `json:"volume"`
}

type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	// Epochs past the year 33658 in seconds are millisecond values.
	if n > 1e12 {
		t.Time = time.UnixMilli(n).UTC()
	} else {
		t.Time = time.Unix(n, 0).UTC()
	}
	return nil
}

// ParseReplayData decodes a JSON array of recorded candles, skipping
// entries that are malformed or fail the OHLC ordering check. A payload
// that is not an array yields an empty slice rather than an error, so a
// bad dataset degrades to an immediately-completed replay.
func ParseReplayData(data []byte, logger *zap.Logger) []core.Candle {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("replay dataset is not a JSON array", zap.Error(err))
		return nil
	}

	candles := make([]core.Candle, 0, len(raw))
	skipped := 0
	for i, msg := range raw {
		var rc replayCandle
		if err := json.Unmarshal(msg, &rc); err != nil {
			logger.Warn("skipping malformed replay candle",
				zap.Int("index", i), zap.Error(err))
			skipped++
			continue
		}

		c := core.Candle{
			Symbol:    rc.Symbol,
			Timeframe: rc.Timeframe,
			Timestamp: rc.Timestamp.Time,
			Open:      rc.Open,
			High:      rc.High,
			Low:       rc.Low,
			Close:     rc.Close,
		}
		if c.Timeframe == "" {
			c.Timeframe = "1m"
		}
		if rc.Volume != nil {
			c.Volume = *rc.Volume
		}
		if c.Symbol == "" || c.Timestamp.IsZero() || !c.IsValid() {
			logger.Warn("skipping invalid replay candle",
				zap.Int("index", i), zap.String("symbol", c.Symbol))
			skipped++
			continue
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	if skipped > 0 {
		logger.Info("replay dataset loaded with skips",
			zap.Int("loaded", len(candles)), zap.Int("skipped", skipped))
	}
	return candles
}
