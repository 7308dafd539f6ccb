// Package history keeps a persistent log of finished playback runs.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"go.aimuz.me/supermacro/playback"
)

var prefix = []byte("run/")

// Record is one finished run.
type Record struct {
	ID         uuid.UUID     `json:"id"`
	Macro      string        `json:"macro"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Dispatched int           `json:"dispatched"`
	Skipped    int           `json:"skipped"`
	Iterations int           `json:"iterations"`
	Speed      float64       `json:"speed"`
	Repeat     int           `json:"repeat"`
}

// FromRun builds the record of a finished run.
func FromRun(r *playback.Run, res playback.Result) Record {
	rec := Record{
		ID:         r.ID,
		Macro:      r.Request.Name,
		StartedAt:  r.StartedAt,
		Elapsed:    res.Elapsed,
		Outcome:    res.Outcome.String(),
		Dispatched: res.Dispatched,
		Skipped:    res.Skipped,
		Iterations: res.Iterations,
		Speed:      r.Request.Speed,
		Repeat:     r.Request.Repeat,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}

// Store is a badger-backed run log. Keys sort by start time.
type Store struct {
	db *badger.DB
}

// DefaultDir returns the history directory under the user config dir.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "supermacro", "history"), nil
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory returns a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(slogLogger{}))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(r Record) []byte {
	k := make([]byte, 0, len(prefix)+8+16)
	k = append(k, prefix...)
	k = binary.BigEndian.AppendUint64(k, uint64(r.StartedAt.UnixNano()))
	return append(k, r.ID[:]...)
}

// Append stores r.
func (s *Store) Append(r Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(r), data)
	})
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		opts.PrefetchSize = min(n, opts.PrefetchSize)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < n; it.Next() {
			var r Record
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &r)
			})
			if err != nil {
				return fmt.Errorf("decode record %x: %w", it.Item().Key(), err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Clear removes every record.
func (s *Store) Clear() error {
	return s.db.DropPrefix(prefix)
}

// slogLogger routes badger's logging into slog. Badger is chatty at
// info level, so that is demoted to debug.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any) { slog.Error(msg(f, v)) }
func (slogLogger) Warningf(f string, v ...any) { slog.Warn(msg(f, v)) }
func (slogLogger) Infof(f string, v ...any) { slog.Debug(msg(f, v)) }
func (slogLogger) Debugf(f string, v ...any) { slog.Debug(msg(f, v)) }

func msg(f string, v []any) string {
	return "badger: " + strings.TrimSpace(fmt.Sprintf(f, v...))
}
