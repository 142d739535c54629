// Package store implements the typed, hash-keyed persistence adapter
// described in spec §4.1: per-class field codecs, key canonicalization,
// dirty-field tracking, at-most-one-writer serialization, and bounded
// retry on transient backend failures.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FieldKind tags how a field's in-memory value is encoded to and decoded
// from the backend's string representation.
type FieldKind int

const (
	// KindText stores values as plain strings.
	KindText FieldKind = iota
	// KindNumber stores integer counters.
	KindNumber
	// KindJSON stores sets/maps/lists as JSON arrays or objects.
	KindJSON
	// KindTimestamp stores a fractional UNIX-seconds string.
	KindTimestamp
)

// FieldDef names one field of an Entity and its codec class.
type FieldDef struct {
	Name string
	Kind FieldKind
}

// Fielder is implemented by every domain record (Repository, Package) so
// the generic Store can read/write their fields without reflection.
type Fielder interface {
	Prefix() string
	FieldDefs() []FieldDef
	FieldValue(field string) any
	SetFieldValue(field string, value any)
}

// Record is the embeddable dirty-tracking base every Fielder composes.
// It mirrors the Python HashType's `_changes` set and `_existed` flag.
type Record struct {
	Name    string
	Updated time.Time

	changes map[string]struct{}
	existed bool
}

// NewRecord prepares a Record for the canonicalized (lowercased) name.
func NewRecord(name string) Record {
	return Record{Name: strings.ToLower(name), changes: map[string]struct{}{}}
}

// SetChange marks fields dirty.
func (r *Record) SetChange(fields ...string) {
	if r.changes == nil {
		r.changes = map[string]struct{}{}
	}
	for _, f := range fields {
		r.changes[f] = struct{}{}
	}
}

// IsChanged reports whether field has been mutated since the last commit.
func (r *Record) IsChanged(field string) bool {
	_, ok := r.changes[field]
	return ok
}

// HasChanges reports whether any field is dirty.
func (r *Record) HasChanges() bool {
	return len(r.changes) > 0
}

// Existed reports whether the record was already present in the backend
// the last time it was loaded or committed.
func (r *Record) Existed() bool {
	return r.existed
}

func (r *Record) clearChanges() {
	r.changes = map[string]struct{}{}
}

// Store is the generic persistence engine: key generation, codec dispatch,
// dirty-field commits, enumeration, and snapshotting. Writes and snapshots
// are serialized through a single process-wide write mutex (spec §5);
// reads do not take it.
type Store struct {
	backend Backend
	retry   RetryConfig

	writeMu sync.Mutex
}

// New wraps backend with the given retry policy.
func New(backend Backend, retry RetryConfig) *Store {
	return &Store{backend: backend, retry: retry}
}

// Key canonicalizes name into "<prefix>:<lowercase(name)>", idempotent if
// name is already prefixed (spec Property 4).
func Key(prefix, name string) string {
	name = strings.ToLower(name)
	p := prefix
	if p != "" && !strings.HasSuffix(p, ":") {
		p += ":"
	}
	name = strings.TrimPrefix(name, p)
	return p + name
}

// Exists reports whether a hash exists for prefix:name.
func (s *Store) Exists(ctx context.Context, prefix, name string) (bool, error) {
	return withRetry(ctx, s.retry, func() (bool, error) {
		return s.backend.Exists(ctx, Key(prefix, name))
	})
}

// QueryAllNames lists every un-prefixed name stored under prefix.
func (s *Store) QueryAllNames(ctx context.Context, prefix string) ([]string, error) {
	keys, err := withRetry(ctx, s.retry, func() ([]string, error) {
		return s.backend.Keys(ctx, Key(prefix, "*"))
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, noPrefix(k))
	}
	return names, nil
}

func noPrefix(key string) string {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return key
	}
	return key[idx+1:]
}

// Load populates every field of f (via SetFieldValue) from the backend,
// skipping fields already dirty in rec (in-memory constructor values take
// precedence over stored values, matching the Python `__load` behavior).
func (s *Store) Load(ctx context.Context, rec *Record, f Fielder) error {
	raw, err := withRetry(ctx, s.retry, func() (map[string]string, error) {
		return s.backend.HGetAll(ctx, Key(f.Prefix(), rec.Name))
	})
	if err != nil {
		return err
	}

	if v, ok := raw["name"]; ok && v != "" {
		rec.existed = true
	}

	for _, fd := range f.FieldDefs() {
		if fd.Name == "name" || rec.IsChanged(fd.Name) {
			continue
		}
		raw, present := raw[fd.Name]
		if !present {
			continue
		}
		value, err := decodeField(fd.Kind, raw)
		if err != nil {
			return fmt.Errorf("store: decode field %q: %w", fd.Name, err)
		}
		f.SetFieldValue(fd.Name, value)
	}
	return nil
}

// CommitChanges persists only dirty fields (Python's `commit_changes`).
func (s *Store) CommitChanges(ctx context.Context, rec *Record, f Fielder) error {
	if !rec.HasChanges() {
		return nil
	}
	return s.commit(ctx, rec, f, rec.changes)
}

// CommitAll persists every populated field (Python's `commit_all`).
func (s *Store) CommitAll(ctx context.Context, rec *Record, f Fielder) error {
	all := map[string]struct{}{}
	for _, fd := range f.FieldDefs() {
		all[fd.Name] = struct{}{}
	}
	return s.commit(ctx, rec, f, all)
}

func (s *Store) commit(ctx context.Context, rec *Record, f Fielder, fields map[string]struct{}) error {
	mapping := map[string]string{}
	for _, fd := range f.FieldDefs() {
		if _, want := fields[fd.Name]; !want {
			continue
		}
		value := f.FieldValue(fd.Name)
		if value == nil {
			continue
		}
		encoded, err := encodeField(fd.Kind, value)
		if err != nil {
			return fmt.Errorf("store: encode field %q: %w", fd.Name, err)
		}
		mapping[fd.Name] = encoded
	}
	if len(mapping) == 0 {
		return nil
	}
	mapping["name"] = rec.Name

	updated, err := s.mset(ctx, Key(f.Prefix(), rec.Name), mapping)
	if err != nil {
		return err
	}
	rec.Updated = updated
	rec.existed = true
	rec.clearChanges()
	return nil
}

// mset serializes the write behind the process-wide mutex and stamps
// "updated" with the instant of the call (spec §4.1).
func (s *Store) mset(ctx context.Context, key string, mapping map[string]string) (time.Time, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	mapping["updated"], _ = encodeField(KindTimestamp, now)

	_, err := withRetry(ctx, s.retry, func() (struct{}, error) {
		return struct{}{}, s.backend.HMSet(ctx, key, mapping)
	})
	if err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Snapshot requests a durable dump of the entire backend, serialized with
// all other writes.
func (s *Store) Snapshot(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := withRetry(ctx, s.retry, func() (struct{}, error) {
		return struct{}{}, s.backend.Save(ctx)
	})
	return err
}

func encodeField(kind FieldKind, value any) (string, error) {
	switch kind {
	case KindText:
		return fmt.Sprintf("%v", value), nil
	case KindNumber:
		switch n := value.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		case bool:
			if n {
				return "1", nil
			}
			return "0", nil
		default:
			return fmt.Sprintf("%v", value), nil
		}
	case KindJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case KindTimestamp:
		t, ok := value.(time.Time)
		if !ok {
			return "", fmt.Errorf("value %v is not a time.Time", value)
		}
		return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported field kind %d", kind)
	}
}

func decodeField(kind FieldKind, raw string) (any, error) {
	switch kind {
	case KindText:
		return raw, nil
	case KindNumber:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case KindJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindTimestamp:
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return time.Unix(0, int64(secs*1e9)).UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported field kind %d", kind)
	}
}
