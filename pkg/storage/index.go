package storage

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/vjranagit/trendline/pkg/types"
)

// Index maps (element, parameter) identities to series IDs and keeps
// per-series metadata. The ID is a stable fingerprint of the identity,
// so the same series always maps to the same on-disk keys.
type Index struct {
	mu     sync.RWMutex
	series map[uint64]*seriesEntry
	// Inverted indexes: element -> series IDs, parameter -> series IDs.
	byElement   map[string][]uint64
	byParameter map[string][]uint64
}

type seriesEntry struct {
	ID        uint64
	Element   string
	Parameter string
	MinTime   int64 // unix millis, 0 when unobserved
	MaxTime   int64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		series:      make(map[uint64]*seriesEntry),
		byElement:   make(map[string][]uint64),
		byParameter: make(map[string][]uint64),
	}
}

// Add registers a series, returning its ID and whether it was newly
// created.
func (idx *Index) Add(element, parameter string) (uint64, bool) {
	id := Fingerprint(element, parameter)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.series[id]; ok {
		return id, false
	}

	idx.series[id] = &seriesEntry{
		ID:        id,
		Element:   element,
		Parameter: parameter,
	}
	idx.byElement[element] = append(idx.byElement[element], id)
	idx.byParameter[parameter] = append(idx.byParameter[parameter], id)
	return id, true
}

// Lookup returns the series ID for an identity, if known.
func (idx *Index) Lookup(element, parameter string) (uint64, bool) {
	id := Fingerprint(element, parameter)

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.series[id]
	return id, ok
}

// ByElement returns the IDs of all series belonging to an element.
func (idx *Index) ByElement(element string) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]uint64(nil), idx.byElement[element]...)
}

// ByParameter returns the IDs of all series for a parameter name.
func (idx *Index) ByParameter(parameter string) []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]uint64(nil), idx.byParameter[parameter]...)
}

// ObserveRange widens a series' observed time range.
func (idx *Index) ObserveRange(id uint64, minTime, maxTime int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.series[id]
	if !ok {
		return
	}
	if entry.MinTime == 0 || minTime < entry.MinTime {
		entry.MinTime = minTime
	}
	if entry.MaxTime == 0 || maxTime > entry.MaxTime {
		entry.MaxTime = maxTime
	}
}

// Range returns a series' observed time bounds.
func (idx *Index) Range(id uint64) (minTime, maxTime time.Time, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, found := idx.series[id]
	if !found || entry.MinTime == 0 {
		return time.Time{}, time.Time{}, false
	}
	return timeFromMilli(entry.MinTime), timeFromMilli(entry.MaxTime), true
}

// List returns all series descriptors, ordered by element then
// parameter.
func (idx *Index) List() []types.SeriesInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]types.SeriesInfo, 0, len(idx.series))
	for _, entry := range idx.series {
		out = append(out, types.SeriesInfo{
			Element:   entry.Element,
			Parameter: entry.Parameter,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Element != out[j].Element {
			return out[i].Element < out[j].Element
		}
		return out[i].Parameter < out[j].Parameter
	})
	return out
}

// Count returns the number of indexed series.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.series)
}

// Fingerprint derives the stable series ID for an identity (FNV-1a
// over the NUL-joined identity parts).
func Fingerprint(element, parameter string) uint64 {
	buf := new(bytes.Buffer)
	buf.WriteString(element)
	buf.WriteByte(0)
	buf.WriteString(parameter)

	var hash uint64 = 14695981039346656037 // FNV-1a offset basis
	for _, b := range buf.Bytes() {
		hash ^= uint64(b)
		hash *= 1099511628211 // FNV-1a prime
	}
	return hash
}

type seriesDescriptor struct {
	Element   string `json:"element"`
	Parameter string `json:"parameter"`
}

func encodeSeriesDescriptor(element, parameter string) []byte {
	data, _ := json.Marshal(seriesDescriptor{Element: element, Parameter: parameter})
	return data
}

func decodeSeriesDescriptor(data []byte) (element, parameter string, err error) {
	var d seriesDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return "", "", err
	}
	return d.Element, d.Parameter, nil
}

func timeFromMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
