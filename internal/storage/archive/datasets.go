package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/TalariManohar018/papertrade/internal/core"
)

const (
	datasetPrefix  = "datasets"
	snapshotPrefix = "snapshots"
)

// Datasets layers replay-dataset and snapshot semantics over a blob
// Storage backend. Dataset names map to "datasets/<name>.json";
// snapshots are timestamped under "snapshots/".
type Datasets struct {
	store Storage
}

// NewDatasets wraps a storage backend.
func NewDatasets(store Storage) *Datasets {
	return &Datasets{store: store}
}

func datasetPath(name string) string {
	return path.Join(datasetPrefix, name+".json")
}

// SaveDataset stores a candle sequence as a named replay dataset.
func (d *Datasets) SaveDataset(ctx context.Context, name string, candles []core.Candle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("encoding dataset %s: %w", name, err)
	}
	return d.store.Write(ctx, datasetPath(name), data)
}

// LoadDataset returns the raw JSON bytes of a named dataset, ready for
// the simulator's tolerant replay parser.
func (d *Datasets) LoadDataset(ctx context.Context, name string) ([]byte, error) {
	return d.store.Read(ctx, datasetPath(name))
}

// ListDatasets returns the names of all stored datasets.
func (d *Datasets) ListDatasets(ctx context.Context) ([]string, error) {
	paths, err := d.store.List(ctx, datasetPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		base := path.Base(p)
		names = append(names, strings.TrimSuffix(base, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDataset removes a named dataset.
func (d *Datasets) DeleteDataset(ctx context.Context, name string) error {
	return d.store.Delete(ctx, datasetPath(name))
}

// DatasetExists checks whether a named dataset is stored.
func (d *Datasets) DatasetExists(ctx context.Context, name string) (bool, error) {
	return d.store.Exists(ctx, datasetPath(name))
}

// SaveSnapshot archives an encoded engine snapshot under a timestamped
// key and returns the key.
func (d *Datasets) SaveSnapshot(ctx context.Context, taken time.Time, data []byte) (string, error) {
	key := path.Join(snapshotPrefix, taken.UTC().Format("2006-01-02T15-04-05")+".json")
	if err := d.store.Write(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// ListSnapshots returns all archived snapshot keys, oldest first.
func (d *Datasets) ListSnapshots(ctx context.Context) ([]string, error) {
	keys, err := d.store.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ReadSnapshot returns the bytes of an archived snapshot by key.
func (d *Datasets) ReadSnapshot(ctx context.Context, key string) ([]byte, error) {
	return d.store.Read(ctx, key)
}
