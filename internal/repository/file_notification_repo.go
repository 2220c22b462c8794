package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// OpObserver is called after every store operation with its name, duration
// and result. It lets metrics watch the store without this package knowing
// about Prometheus.
type OpObserver func(op string, d time.Duration, err error)

type Option func(*FileNotificationRepository)

// WithOpObserver installs an observer for store operations.
func WithOpObserver(obs OpObserver) Option {
	return func(r *FileNotificationRepository) {
		if obs != nil {
			r.observe = obs
		}
	}
}

// FileNotificationRepository keeps every notification in a single JSON
// document mapping decimal ids to records. Record bodies are re-read from
// disk on every call; only the set of known ids is cached.
//
// All repositories in the process that point at the same file share one
// RWMutex, so a read-modify-write cycle never interleaves with another one.
// The id cache is per instance: two repositories on one file still need
// external coordination for id allocation.
type FileNotificationRepository struct {
	path   string
	mu     *sync.RWMutex
	ids    map[int64]struct{}
	logger *zap.Logger

	observe OpObserver
}

var _ NotificationRepository = (*FileNotificationRepository)(nil)

var (
	pathLocksMu sync.Mutex
	pathLocks   = make(map[string]*sync.RWMutex)
)

func lockFor(path string) *sync.RWMutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()
	l, ok := pathLocks[key]
	if !ok {
		l = &sync.RWMutex{}
		pathLocks[key] = l
	}
	return l
}

// NewFileNotificationRepository opens the storage file at path, creating it
// with an empty document when it does not exist, and seeds the id cache from
// its keys. A document that is not a JSON object keyed by positive integers
// yields an *domain.InvalidStorageFileError.
func NewFileNotificationRepository(path string, logger *zap.Logger, opts ...Option) (*FileNotificationRepository, error) {
	r := &FileNotificationRepository{
		path:    filepath.Clean(path),
		ids:     make(map[int64]struct{}),
		logger:  logger.With(zap.String("component", "store")),
		observe: func(string, time.Duration, error) {},
	}
	r.mu = lockFor(r.path)
	for _, opt := range opts {
		opt(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.initStorage(); err != nil {
		return nil, err
	}

	doc, err := r.readDocument()
	if err != nil {
		return nil, err
	}
	ids, err := r.keysOf(doc)
	if err != nil {
		return nil, err
	}
	r.ids = ids

	r.logger.Debug("storage initialized", zap.Int("records", len(r.ids)))
	return r, nil
}

// Path returns the cleaned storage file path.
func (r *FileNotificationRepository) Path() string { return r.path }

// NextID returns 1 for an empty store, otherwise the largest known id plus one.
func (r *FileNotificationRepository) NextID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID()
}

// Len returns the number of known records.
func (r *FileNotificationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Save persists n. A zero n.ID is replaced in place with the next free id;
// an id that is already stored yields *domain.DuplicateIDError and nothing
// is written.
func (r *FileNotificationRepository) Save(_ context.Context, n *domain.Notification) (err error) {
	defer r.track("save", time.Now(), &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID < 0 {
		return domain.ErrInvalidID
	}
	if n.ID != 0 {
		if _, exists := r.ids[n.ID]; exists {
			r.logger.Warn("attempt to save duplicate id", zap.Int64("id", n.ID))
			return &domain.DuplicateIDError{ID: n.ID}
		}
	}

	r.logger.Info("saving new notification")

	doc, err := r.readDocument()
	if err != nil {
		return err
	}

	assigned := false
	if n.ID == 0 {
		n.ID = r.nextID()
		assigned = true
		r.logger.Debug("generated new id", zap.Int64("id", n.ID))
	}

	err = r.put(doc, n)
	if err == nil {
		err = r.writeDocument(doc)
	}
	if err != nil {
		if assigned {
			n.ID = 0
		}
		return err
	}

	r.ids[n.ID] = struct{}{}
	r.logger.Info("notification saved", zap.Int64("id", n.ID))
	return nil
}

// FindByID returns the stored record for id or *domain.RecordNotFoundError.
func (r *FileNotificationRepository) FindByID(_ context.Context, id int64) (n *domain.Notification, err error) {
	defer r.track("find_by_id", time.Now(), &err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.ids[id]; !ok {
		r.logger.Warn("attempted to find non-existent record", zap.Int64("id", id))
		return nil, &domain.RecordNotFoundError{ID: id}
	}

	r.logger.Debug("finding notification", zap.Int64("id", id))
	doc, err := r.readDocument()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[strconv.FormatInt(id, 10)]
	if !ok {
		// The file was changed behind our back; report what the caller asked for.
		return nil, &domain.RecordNotFoundError{ID: id}
	}
	return decodeEntry(id, raw)
}

// FindAll returns every stored record keyed by id, read fresh from disk.
func (r *FileNotificationRepository) FindAll(_ context.Context) (all map[int64]*domain.Notification, err error) {
	defer r.track("find_all", time.Now(), &err)

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, err := r.readDocument()
	if err != nil {
		return nil, err
	}

	all = make(map[int64]*domain.Notification, len(doc))
	for key, raw := range doc {
		id, err := parseKey(key)
		if err != nil {
			return nil, &domain.InvalidStorageFileError{Path: r.path, Err: err}
		}
		n, err := decodeEntry(id, raw)
		if err != nil {
			return nil, err
		}
		all[id] = n
	}
	return all, nil
}

// Update overwrites the whole record stored under n.ID.
func (r *FileNotificationRepository) Update(_ context.Context, n *domain.Notification) (err error) {
	defer r.track("update", time.Now(), &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[n.ID]; !ok {
		r.logger.Warn("attempted to update missing record", zap.Int64("id", n.ID))
		return &domain.RecordNotFoundError{ID: n.ID}
	}

	r.logger.Info("updating notification", zap.Int64("id", n.ID))
	doc, err := r.readDocument()
	if err != nil {
		return err
	}
	if err := r.put(doc, n); err != nil {
		return err
	}
	if err := r.writeDocument(doc); err != nil {
		return err
	}

	r.logger.Debug("notification updated", zap.Int64("id", n.ID))
	return nil
}

// Delete removes the record stored under id.
func (r *FileNotificationRepository) Delete(_ context.Context, id int64) (err error) {
	defer r.track("delete", time.Now(), &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; !ok {
		r.logger.Warn("attempted to delete missing record", zap.Int64("id", id))
		return &domain.RecordNotFoundError{ID: id}
	}

	r.logger.Info("deleting notification", zap.Int64("id", id))
	doc, err := r.readDocument()
	if err != nil {
		return err
	}
	delete(doc, strconv.FormatInt(id, 10))
	if err := r.writeDocument(doc); err != nil {
		return err
	}

	delete(r.ids, id)
	r.logger.Debug("notification deleted", zap.Int64("id", id), zap.Int("remaining", len(r.ids)))
	return nil
}

// Reload re-seeds the id cache from the file on disk. On error the previous
// cache is kept.
func (r *FileNotificationRepository) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.readDocument()
	if err != nil {
		return err
	}
	ids, err := r.keysOf(doc)
	if err != nil {
		return err
	}
	r.ids = ids
	r.logger.Debug("id cache reloaded", zap.Int("records", len(ids)))
	return nil
}

// ---- helpers (callers hold r.mu) ----

func (r *FileNotificationRepository) initStorage() error {
	_, err := os.Stat(r.path)
	switch {
	case err == nil:
		r.logger.Info("existing storage file loaded", zap.String("path", r.path))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat storage file: %w", err)
	}

	if err := r.writeDocument(map[string]json.RawMessage{}); err != nil {
		return err
	}
	r.logger.Info("storage file not found, created new empty JSON storage", zap.String("path", r.path))
	return nil
}

func (r *FileNotificationRepository) nextID() int64 {
	var max int64
	for id := range r.ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (r *FileNotificationRepository) readDocument() (map[string]json.RawMessage, error) {
	r.logger.Debug("reading all notifications", zap.String("path", r.path))
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &domain.InvalidStorageFileError{Path: r.path}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &domain.InvalidStorageFileError{Path: r.path, Err: err}
	}
	return doc, nil
}

// writeDocument replaces the storage file atomically via a temp file and rename.
func (r *FileNotificationRepository) writeDocument(doc map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage document: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}

// put normalizes n in place, so the caller's copy matches what a later read
// returns, and stores its document mapping under its id key.
func (r *FileNotificationRepository) put(doc map[string]json.RawMessage, n *domain.Notification) error {
	n.Normalize()
	raw, err := json.Marshal(n.ToMap())
	if err != nil {
		return fmt.Errorf("encode notification %d: %w", n.ID, err)
	}
	doc[strconv.FormatInt(n.ID, 10)] = raw
	return nil
}

func (r *FileNotificationRepository) keysOf(doc map[string]json.RawMessage) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{}, len(doc))
	for key := range doc {
		id, err := parseKey(key)
		if err != nil {
			return nil, &domain.InvalidStorageFileError{Path: r.path, Err: err}
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (r *FileNotificationRepository) track(op string, start time.Time, err *error) {
	r.observe(op, time.Since(start), *err)
}

func parseKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("key %q is not a positive integer id", key)
	}
	return id, nil
}

func decodeEntry(id int64, raw json.RawMessage) (*domain.Notification, error) {
	n, err := domain.DecodeNotification(raw)
	if err != nil {
		var de *domain.DeserializationError
		if errors.As(err, &de) {
			de.ID = id
		}
		return nil, err
	}
	return n, nil
}
