package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/trendline/pkg/types"
)

// WAL is a write-ahead log of ingest requests, one JSON entry per
// line. It makes samples durable before the block store accepts them;
// segments are replayed and removed on startup.
type WAL struct {
	path       string
	file       *os.File
	writer     *bufio.Writer
	mu         sync.Mutex
	flushTimer *time.Timer
}

type walEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Element   string         `json:"element"`
	Parameter string         `json:"parameter"`
	Samples   []types.Sample `json:"samples"`
}

// NewWAL opens a fresh WAL segment under dataPath.
func NewWAL(dataPath string) (*WAL, error) {
	walPath := filepath.Join(dataPath, "wal")
	if err := os.MkdirAll(walPath, 0755); err != nil {
		return nil, errors.Wrap(err, "create WAL directory")
	}

	filename := filepath.Join(walPath, fmt.Sprintf("wal-%d.log", time.Now().UnixNano()))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open WAL segment")
	}

	w := &WAL{
		path:   walPath,
		file:   file,
		writer: bufio.NewWriter(file),
	}
	w.flushTimer = time.AfterFunc(time.Second, w.autoFlush)
	return w, nil
}

// Append records one ingest request.
func (w *WAL) Append(req *types.WriteRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := walEntry{
		Timestamp: time.Now().UTC(),
		Element:   req.Element,
		Parameter: req.Parameter,
		Samples:   req.Samples,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal WAL entry")
	}

	if _, err := w.writer.Write(data); err != nil {
		return errors.Wrap(err, "write WAL entry")
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write WAL newline")
	}
	return nil
}

// Flush pushes buffered entries to disk.
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return errors.Wrap(err, "flush WAL buffer")
	}
	return errors.Wrap(w.file.Sync(), "sync WAL")
}

func (w *WAL) autoFlush() {
	if err := w.Flush(); err != nil {
		log.WithError(err).Warn("flushing WAL")
	}
	w.mu.Lock()
	w.flushTimer.Reset(time.Second)
	w.mu.Unlock()
}

// Close flushes and closes the segment.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.flushTimer != nil {
		w.flushTimer.Stop()
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// ReplayWAL feeds every pending WAL entry under dataPath to handler,
// removing each segment after it replays cleanly.
func ReplayWAL(dataPath string, handler func(*types.WriteRequest) error) error {
	walPath := filepath.Join(dataPath, "wal")

	segments, err := os.ReadDir(walPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read WAL directory")
	}

	for _, segment := range segments {
		if segment.IsDir() {
			continue
		}
		filename := filepath.Join(walPath, segment.Name())
		if err := replaySegment(filename, handler); err != nil {
			return errors.Wrapf(err, "replay %s", filename)
		}
		os.Remove(filename)
	}
	return nil
}

func replaySegment(filename string, handler func(*types.WriteRequest) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry walEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return errors.Wrap(err, "unmarshal WAL entry")
		}
		req := &types.WriteRequest{
			Element:   entry.Element,
			Parameter: entry.Parameter,
			Samples:   entry.Samples,
		}
		if err := handler(req); err != nil {
			return errors.Wrap(err, "apply WAL entry")
		}
	}
	return scanner.Err()
}
