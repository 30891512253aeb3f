// Package store keeps the observation history: one value per calendar day,
// persisted as a single JSON object keyed by date.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/renameio/v2"

	"github.com/aluiziolira/go-headline-log/models"
	"github.com/aluiziolira/go-headline-log/parser"
)

const filePerm = 0o644

// DefaultTimezone is the newsroom's day boundary.
const DefaultTimezone = "America/New_York"

// WriteFunc replaces a file's contents. Implementations must leave the old
// file in place when they fail.
type WriteFunc func(path string, data []byte, perm os.FileMode) error

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}

// Store is an ordered date -> value mapping backed by one file. It is not
// safe for concurrent use; a process owns it for a single run.
type Store struct {
	path   string
	keys   []string
	values map[string]string

	now    func() time.Time
	loc    *time.Location
	write  WriteFunc
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone whose calendar defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithWriteFunc overrides how the file is written. The default is an atomic
// temp-file-and-rename.
func WithWriteFunc(fn WriteFunc) Option {
	return func(s *Store) {
		if fn != nil {
			s.write = fn
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads the log at path, creating its directory and an empty document
// first when needed. An unparseable file yields *CorruptStoreError and is
// left untouched.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]string),
		now:    time.Now,
		loc:    defaultLocation(),
		write:  atomicWrite,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := ensureDir(path); err != nil {
		return nil, &StorageSetupError{Path: filepath.Dir(path), Err: err}
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("data file not found, creating an empty log", slog.String("path", path))
		if err := s.write(path, []byte("{}\n"), filePerm); err != nil {
			return nil, &StorageSetupError{Path: path, Err: err}
		}
		return s, nil
	case err != nil:
		return nil, &StorageSetupError{Path: path, Err: err}
	}

	if err := s.decode(data); err != nil {
		return nil, &CorruptStoreError{Path: path, Err: err}
	}
	s.logger.Debug("loaded log", slog.String("path", path), slog.Int("entries", len(s.keys)))
	return s, nil
}

// Path is the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of recorded days.
func (s *Store) Len() int {
	return len(s.keys)
}

// Get returns the value recorded for date (YYYY-MM-DD).
func (s *Store) Get(date string) (string, bool) {
	v, ok := s.values[date]
	return v, ok
}

// Today returns the current date key in the store's timezone.
func (s *Store) Today() string {
	return parser.FormatDate(s.now(), s.loc)
}

// Entries returns all observations in file order.
func (s *Store) Entries() []models.Observation {
	out := make([]models.Observation, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, models.Observation{Date: k, Value: s.values[k]})
	}
	return out
}

// RecordToday sets today's value. Empty or blank values are ignored so failed runs
// never enter the history; it reports whether anything was recorded.
func (s *Store) RecordToday(value string) bool {
	return s.record(s.Today(), value)
}

// Record sets the value for the calendar day of date in the store's timezone.
func (s *Store) Record(date time.Time, value string) bool {
	return s.record(parser.FormatDate(date, s.loc), value)
}

func (s *Store) record(key, value string) bool {
	// Invalid UTF-8 would not survive the JSON encoding unchanged.
	value = strings.ToValidUTF8(value, "\uFFFD")
	if err := parser.ValidateObservation(&models.Observation{Date: key, Value: value}); err != nil {
		s.logger.Debug("skipping observation", slog.String("date", key), slog.Any("reason", err))
		return false
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	} else {
		s.logger.Info("replacing observation", slog.String("date", key))
	}
	s.values[key] = value
	return true
}

// Save atomically replaces the file with the in-memory history. On failure
// the previous file is left intact.
func (s *Store) Save() error {
	data, err := s.encode()
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}
	if err := s.write(s.path, data, filePerm); err != nil {
		return fmt.Errorf("write log %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) decode(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		if err := parser.ValidateDate(key); err != nil {
			return err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value for %s: %w", key, err)
		}
		value, ok := raw.(string)
		if !ok {
			return fmt.Errorf("value for %s is not a string", key)
		}
		if _, exists := s.values[key]; !exists {
			s.keys = append(s.keys, key)
		}
		s.values[key] = value
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing data after log object")
	}
	return nil
}

func (s *Store) encode() ([]byte, error) {
	var buf bytes.Buffer
	if len(s.keys) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("{\n")
	for i, k := range s.keys {
		key, err := marshalString(k)
		if err != nil {
			return nil, err
		}
		value, err := marshalString(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(s.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// marshalString encodes s without HTML escaping so headlines stay readable.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
