// Package history persists executed swaps to a local JSON file so past
// trades survive process restarts.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const DefaultStorageFileName = ".instant-swap-history.json"

// Entry records one confirmed swap.
type Entry struct {
	TxHash     string    `json:"tx_hash"`
	ChainID    int64     `json:"chain_id"`
	SellSymbol string    `json:"sell_symbol"`
	BuySymbol  string    `json:"buy_symbol"`
	// Base-unit decimal strings.
	SellAmount string    `json:"sell_amount"`
	BuyAmount  string    `json:"buy_amount"`
	Price      string    `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store handles persistence of swap history
type Store struct {
	filePath string
	mu       sync.RWMutex
	entries  []Entry
}

type fileFormat struct {
	Entries []Entry `json:"entries"`
}

// NewStore creates a history store backed by a JSON file. An empty path
// defaults to the home directory.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	store := &Store{filePath: filePath}

	if err := store.load(); err != nil {
		// A missing file is fine, it is created on first append.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return store, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	s.entries = file.Entries
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(fileFormat{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Append records a confirmed swap.
func (s *Store) Append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.entries = append(s.entries, entry)

	return s.save()
}

// List returns all entries, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries
}

// Count returns the number of recorded swaps.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FilePath returns the backing file path.
func (s *Store) FilePath() string {
	return s.filePath
}
