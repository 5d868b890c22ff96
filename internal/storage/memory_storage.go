package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// MemoryStorage keeps tokens in memory and optionally mirrors them to a JSON file
type MemoryStorage struct {
	mu       sync.RWMutex
	tokens   map[string]tokenRecord
	dataFile string
}

// NewMemoryStorage creates an in-memory store. An empty dataFile disables persistence.
func NewMemoryStorage(dataFile string) (*MemoryStorage, error) {
	ms := &MemoryStorage{
		tokens:   make(map[string]tokenRecord),
		dataFile: dataFile,
	}
	if dataFile == "" {
		return ms, nil
	}

	if err := os.MkdirAll(filepath.Dir(dataFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := ms.loadFromFile(); err != nil {
		slog.Warn("Failed to load integration tokens from file, starting empty", "file", dataFile, "error", err)
	}

	slog.Info("Memory token storage initialized", "file", dataFile, "tokens", len(ms.tokens))
	return ms, nil
}

func (ms *MemoryStorage) Get(_ context.Context, integrationID string) (models.IntegrationToken, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, ok := ms.tokens[integrationID]
	if !ok {
		return models.IntegrationToken{}, ErrNotFound
	}
	return rec.token(), nil
}

func (ms *MemoryStorage) Save(_ context.Context, token models.IntegrationToken) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.put(token.IntegrationID, toRecord(token))
}

func (ms *MemoryStorage) Deactivate(_ context.Context, integrationID string, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.tokens[integrationID]
	if !ok {
		return ErrNotFound
	}
	rec.IsActive = false
	rec.UpdatedAt = at
	return ms.put(integrationID, rec)
}

// put stores rec and mirrors it to the file, restoring the previous entry
// when the file cannot be written; callers hold the lock
func (ms *MemoryStorage) put(integrationID string, rec tokenRecord) error {
	prev, existed := ms.tokens[integrationID]
	ms.tokens[integrationID] = rec
	if err := ms.saveToFile(); err != nil {
		if existed {
			ms.tokens[integrationID] = prev
		} else {
			delete(ms.tokens, integrationID)
		}
		return err
	}
	return nil
}

// List returns every token ordered by integration id
func (ms *MemoryStorage) List(_ context.Context) ([]models.IntegrationToken, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]models.IntegrationToken, 0, len(ms.tokens))
	for _, rec := range ms.tokens {
		out = append(out, rec.token())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntegrationID < out[j].IntegrationID })
	return out, nil
}

func (ms *MemoryStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.saveToFile()
}

// loadFromFile must be called before the store is shared
func (ms *MemoryStorage) loadFromFile() error {
	data, err := os.ReadFile(ms.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read tokens file: %w", err)
	}

	var records []tokenRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal tokens: %w", err)
	}
	for _, rec := range records {
		ms.tokens[rec.IntegrationID] = rec
	}
	return nil
}

// saveToFile writes atomically through a temp file; callers hold the lock
func (ms *MemoryStorage) saveToFile() error {
	if ms.dataFile == "" {
		return nil
	}

	records := make([]tokenRecord, 0, len(ms.tokens))
	for _, rec := range ms.tokens {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].IntegrationID < records[j].IntegrationID })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tempFile := ms.dataFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp tokens file: %w", err)
	}
	if err := os.Rename(tempFile, ms.dataFile); err != nil {
		return fmt.Errorf("failed to rename temp tokens file: %w", err)
	}
	return nil
}
