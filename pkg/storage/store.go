// Package storage implements the trend series provider on BadgerDB.
// Samples are grouped into one-hour blocks per (element, parameter)
// series and stored zstd-compressed.
package storage

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

// Key layout:
//
//	'b' | seriesID (8B BE) | blockTime (8B BE, sign-flipped)  -> compressed block
//	's' | seriesID (8B BE)                                    -> series descriptor
//
// The sign flip keeps pre-epoch block times sorting before post-epoch
// ones under badger's byte ordering.
const (
	blockKeyTag  = 'b'
	seriesKeyTag = 's'
)

const blockWidth = time.Hour

// Config holds storage configuration.
type Config struct {
	Path             string
	CompressionLevel int
	EnableWAL        bool
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:             "./data",
		CompressionLevel: 3,
		EnableWAL:        true,
	}
}

// Store is a badger-backed sample store. It implements the trend
// engine's SeriesProvider contract.
type Store struct {
	cfg   *Config
	db    *badger.DB
	index *Index
	codec *Codec
	wal   *WAL
	mu    sync.RWMutex
}

// Open opens (or creates) a store at cfg.Path, loads the series index,
// and replays any pending WAL segments.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(filepath.Join(cfg.Path, "badger"))
	opts.Logger = nil // badger's own logging is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create codec")
	}

	s := &Store{
		cfg:   cfg,
		db:    db,
		index: NewIndex(),
		codec: codec,
	}

	if err := s.loadIndex(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "load series index")
	}

	if err := ReplayWAL(cfg.Path, s.writeDirect); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "replay WAL")
	}

	if cfg.EnableWAL {
		wal, err := NewWAL(cfg.Path)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "open WAL")
		}
		s.wal = wal
	}

	return s, nil
}

// Write appends samples for one series. The WAL entry is written first;
// samples then land in their hour blocks immediately so they are
// visible to the next trend query.
func (s *Store) Write(ctx context.Context, req *types.WriteRequest) error {
	if s.wal != nil {
		if err := s.wal.Append(req); err != nil {
			return errors.Wrap(err, "WAL append")
		}
	}
	return s.writeDirect(req)
}

func (s *Store) writeDirect(req *types.WriteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seriesID, created := s.index.Add(req.Element, req.Parameter)
	if created {
		if err := s.persistSeries(seriesID, req.Element, req.Parameter); err != nil {
			return errors.Wrap(err, "persist series descriptor")
		}
	}

	for blockTime, samples := range groupByBlock(req.Samples) {
		if err := s.mergeBlock(seriesID, blockTime, samples); err != nil {
			return errors.Wrapf(err, "write block %d", blockTime)
		}
	}

	if n := len(req.Samples); n > 0 {
		min := req.Samples[0].Timestamp
		max := req.Samples[0].Timestamp
		for _, sm := range req.Samples[1:] {
			if sm.Timestamp.Before(min) {
				min = sm.Timestamp
			}
			if sm.Timestamp.After(max) {
				max = sm.Timestamp
			}
		}
		s.index.ObserveRange(seriesID, min.UnixMilli(), max.UnixMilli())
	}

	return nil
}

// groupByBlock splits samples into one-hour blocks.
func groupByBlock(samples []types.Sample) map[int64][]types.Sample {
	blocks := make(map[int64][]types.Sample)
	for _, sm := range samples {
		bt := sm.Timestamp.UTC().Truncate(blockWidth).UnixMilli()
		blocks[bt] = append(blocks[bt], sm)
	}
	return blocks
}

// mergeBlock folds new samples into an existing block. Samples with an
// equal timestamp replace the stored value, which also makes WAL replay
// idempotent.
func (s *Store) mergeBlock(seriesID uint64, blockTime int64, samples []types.Sample) error {
	key := blockKey(seriesID, blockTime)

	return s.db.Update(func(txn *badger.Txn) error {
		merged := samples

		item, err := txn.Get(key)
		switch {
		case err == nil:
			var existing []types.Sample
			err = item.Value(func(val []byte) error {
				existing, err = s.codec.DecodeBlock(val)
				return err
			})
			if err != nil {
				return errors.Wrap(err, "decode existing block")
			}
			merged = mergeSamples(existing, samples)
		case errors.Is(err, badger.ErrKeyNotFound):
			merged = mergeSamples(nil, samples)
		default:
			return err
		}

		payload, err := s.codec.EncodeBlock(merged)
		if err != nil {
			return errors.Wrap(err, "encode block")
		}
		return txn.Set(key, payload)
	})
}

// mergeSamples combines two sample sets, ascending, last write winning
// on timestamp collisions.
func mergeSamples(existing, incoming []types.Sample) []types.Sample {
	byTime := make(map[int64]types.Sample, len(existing)+len(incoming))
	for _, sm := range existing {
		byTime[sm.Timestamp.UnixMilli()] = sm
	}
	for _, sm := range incoming {
		byTime[sm.Timestamp.UnixMilli()] = sm
	}

	merged := make([]types.Sample, 0, len(byTime))
	for _, sm := range byTime {
		merged = append(merged, sm)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// FetchAverages returns the series samples inside [r.Start, r.End),
// ascending by timestamp. An unknown series yields no samples rather
// than an error.
func (s *Store) FetchAverages(ctx context.Context, element, parameter string, r calendar.Range) ([]types.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seriesID, ok := s.index.Lookup(element, parameter)
	if !ok {
		return nil, nil
	}

	var out []types.Sample
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := blockKeyPrefix(seriesID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			blockTime := decodeBlockTime(item.Key())

			blockStart := time.UnixMilli(blockTime).UTC()
			if !blockStart.Before(r.End) {
				break // blocks iterate in time order
			}
			if blockStart.Add(blockWidth).Before(r.Start) {
				continue
			}

			err := item.Value(func(val []byte) error {
				samples, err := s.codec.DecodeBlock(val)
				if err != nil {
					return err
				}
				for _, sm := range samples {
					if r.Contains(sm.Timestamp) {
						out = append(out, sm)
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "read block %d", blockTime)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ListSeries returns descriptors for all stored series.
func (s *Store) ListSeries() []types.SeriesInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.List()
}

// Close flushes the WAL and closes the database.
func (s *Store) Close() error {
	if s.wal != nil {
		if err := s.wal.Close(); err != nil {
			log.WithError(err).Warn("closing WAL")
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// persistSeries stores the series descriptor so the index survives a
// restart.
func (s *Store) persistSeries(seriesID uint64, element, parameter string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seriesKey(seriesID), encodeSeriesDescriptor(element, parameter))
	})
}

// loadIndex rebuilds the in-memory index from persisted descriptors.
func (s *Store) loadIndex() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte{seriesKeyTag}
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				element, parameter, err := decodeSeriesDescriptor(val)
				if err != nil {
					return err
				}
				s.index.Add(element, parameter)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func blockKeyPrefix(seriesID uint64) []byte {
	key := make([]byte, 9)
	key[0] = blockKeyTag
	binary.BigEndian.PutUint64(key[1:], seriesID)
	return key
}

func blockKey(seriesID uint64, blockTime int64) []byte {
	key := make([]byte, 17)
	key[0] = blockKeyTag
	binary.BigEndian.PutUint64(key[1:], seriesID)
	binary.BigEndian.PutUint64(key[9:], uint64(blockTime)^(1<<63))
	return key
}

func decodeBlockTime(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[9:]) ^ (1 << 63))
}

func seriesKey(seriesID uint64) []byte {
	key := make([]byte, 9)
	key[0] = seriesKeyTag
	binary.BigEndian.PutUint64(key[1:], seriesID)
	return key
}
