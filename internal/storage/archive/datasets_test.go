package archive

import (
	"context"
	"testing"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
	"github.com/TalariManohar018/papertrade/internal/market"
)

func TestDatasets_RoundTrip(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	d := NewDatasets(fs)
	ctx := context.Background()

	candles := []core.Candle{{
		Symbol: "NIFTY", Timeframe: "1m",
		Timestamp: time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC),
		Open:      100, High: 101, Low: 99, Close: 100.5, Volume: 5000,
	}}

	if err := d.SaveDataset(ctx, "march", candles); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	exists, err := d.DatasetExists(ctx, "march")
	if err != nil || !exists {
		t.Fatalf("DatasetExists: %v, %v", exists, err)
	}

	raw, err := d.LoadDataset(ctx, "march")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	// Saved datasets replay through the tolerant parser unchanged.
	parsed := market.ParseReplayData(raw, nil)
	if len(parsed) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(parsed))
	}
	if parsed[0].Close != 100.5 || parsed[0].Symbol != "NIFTY" {
		t.Errorf("unexpected candle: %+v", parsed[0])
	}

	names, err := d.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(names) != 1 || names[0] != "march" {
		t.Errorf("expected [march], got %v", names)
	}

	if err := d.DeleteDataset(ctx, "march"); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	names, _ = d.ListDatasets(ctx)
	if len(names) != 0 {
		t.Errorf("expected no datasets, got %v", names)
	}
}

func TestDatasets_Snapshots(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	d := NewDatasets(fs)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	key1, err := d.SaveSnapshot(ctx, t1, []byte(`{"balance":1}`))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	key2, err := d.SaveSnapshot(ctx, t1.Add(time.Hour), []byte(`{"balance":2}`))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	keys, err := d.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(keys) != 2 || keys[0] != key1 || keys[1] != key2 {
		t.Errorf("expected [%s %s], got %v", key1, key2, keys)
	}

	data, err := d.ReadSnapshot(ctx, key2)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if string(data) != `{"balance":2}` {
		t.Errorf("got %q", data)
	}
}
