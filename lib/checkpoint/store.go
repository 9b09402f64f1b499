// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/acteon/acteon-go/lib/clock"
	"github.com/acteon/acteon-go/lib/codec"
)

// formatVersion is bumped when the file layout changes incompatibly.
const formatVersion = 1

// Entry is the saved position of one stream.
type Entry struct {
	Key         string    `json:"key"`
	LastEventID string    `json:"last_event_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File is the on-disk document.
type File struct {
	Version int              `cbor:"version"`
	Entries map[string]Entry `cbor:"entries"`
}

// Store holds resume tokens. It is safe for concurrent use; every
// successful Save or Delete is on disk before it returns.
type Store struct {
	path  string
	clock clock.Clock

	mutex   sync.Mutex
	entries map[string]Entry
}

// Open loads the checkpoint file at path. A missing file is an empty
// store; the file is created on the first Save. An empty path gives a
// memory-only store. A nil clock means clock.Real().
func Open(path string, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.Real()
	}
	store := &Store{path: path, clock: clk, entries: make(map[string]Entry)}
	if path == "" {
		return store, nil
	}

	state, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, err
	}
	for key, entry := range state.Entries {
		entry.Key = key
		store.entries[key] = entry
	}
	return store, nil
}

// Read decodes the checkpoint file at path without opening a Store.
// When the file does not exist the error wraps fs.ErrNotExist.
func Read(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var state File
	if err := codec.Unmarshal(data, &state); err != nil {
		return File{}, fmt.Errorf("parsing checkpoint file %s: %w", path, err)
	}
	if state.Version > formatVersion {
		return File{}, fmt.Errorf("checkpoint file %s has version %d, newer than supported version %d", path, state.Version, formatVersion)
	}
	return state, nil
}

// Path returns the backing file, empty for a memory-only store.
func (store *Store) Path() string {
	return store.path
}

// Get returns the saved token for key.
func (store *Store) Get(key string) (string, bool) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	entry, ok := store.entries[key]
	return entry.LastEventID, ok
}

// Entries returns every saved position, sorted by key.
func (store *Store) Entries() []Entry {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	entries := make([]Entry, 0, len(store.entries))
	for _, entry := range store.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Save records lastEventID as the position of key. Saving the token
// already stored is a no-op. An empty token is rejected: it cannot
// resume anything.
func (store *Store) Save(key, lastEventID string) error {
	if key == "" {
		return errors.New("checkpoint: empty key")
	}
	if lastEventID == "" {
		return fmt.Errorf("checkpoint: empty event id for %s", key)
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	if current, ok := store.entries[key]; ok && current.LastEventID == lastEventID {
		return nil
	}

	previous, existed := store.entries[key]
	store.entries[key] = Entry{Key: key, LastEventID: lastEventID, UpdatedAt: store.clock.Now().UTC()}
	if err := store.flushLocked(); err != nil {
		if existed {
			store.entries[key] = previous
		} else {
			delete(store.entries, key)
		}
		return err
	}
	return nil
}

// Delete forgets key. Deleting an absent key is a no-op.
func (store *Store) Delete(key string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	previous, ok := store.entries[key]
	if !ok {
		return nil
	}
	delete(store.entries, key)
	if err := store.flushLocked(); err != nil {
		store.entries[key] = previous
		return err
	}
	return nil
}

// flushLocked writes the whole store. Caller holds the mutex.
func (store *Store) flushLocked() error {
	if store.path == "" {
		return nil
	}
	data, err := codec.Marshal(File{Version: formatVersion, Entries: store.entries})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return writeAtomic(store.path, data)
}

// writeAtomic writes data to a temporary file beside path, syncs it,
// and renames it into place.
func writeAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	temporary, err := os.CreateTemp(directory, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary checkpoint file: %w", err)
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("writing temporary checkpoint file: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("syncing temporary checkpoint file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing temporary checkpoint file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming checkpoint file into place: %w", err)
	}
	success = true

	// Make the rename durable.
	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
