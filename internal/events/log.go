package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
)

// Log is an append-only, offset-addressed log of integration lifecycle events.
// Events are visible to readers as soon as Publish returns; the file copy is
// written by a background goroutine.
type Log struct {
	mu         sync.RWMutex
	events     []models.Event
	nextOffset int64
	filePath   string
	maxEvents  int
	logger     *slog.Logger
	now        func() time.Time

	dirty    chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	waiters      map[int64][]chan struct{}
	waitersMutex sync.Mutex
}

// Config holds configuration for the event log
type Config struct {
	FilePath  string
	MaxEvents int
	Logger    *slog.Logger
}

// NewLog creates an event log. An empty FilePath keeps events in memory only.
func NewLog(config Config) (*Log, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxEvents <= 0 {
		config.MaxEvents = 10000
	}

	l := &Log{
		events:    make([]models.Event, 0),
		filePath:  config.FilePath,
		maxEvents: config.MaxEvents,
		logger:    config.Logger,
		now:       time.Now,
		dirty:     make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		waiters:   make(map[int64][]chan struct{}),
	}

	if l.filePath != "" {
		if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create events directory: %w", err)
		}
		if err := l.loadFromFile(); err != nil {
			l.logger.Warn("Failed to load events from file, starting fresh", "error", err)
			l.events = l.events[:0]
			l.nextOffset = 0
		}
	}

	go l.asyncWriter()

	l.logger.Info("Event log initialized",
		"file_path", l.filePath,
		"max_events", l.maxEvents,
		"loaded_events", len(l.events),
		"next_offset", l.nextOffset,
	)
	return l, nil
}

// Publish appends an event and returns its offset
func (l *Log) Publish(eventType, integrationID, detail string) int64 {
	l.mu.Lock()
	event := models.Event{
		Offset:        l.nextOffset,
		Timestamp:     l.now().UTC().Format(time.RFC3339),
		EventType:     eventType,
		IntegrationID: integrationID,
		Detail:        detail,
	}
	l.nextOffset++
	l.events = append(l.events, event)

	if len(l.events) > l.maxEvents {
		keepCount := l.maxEvents * 3 / 4
		removed := len(l.events) - keepCount
		l.events = append([]models.Event(nil), l.events[removed:]...)
		l.logger.Info("Event log rotated", "removed_events", removed, "remaining_events", len(l.events))
	}
	l.mu.Unlock()

	l.logger.Debug("Event published",
		"offset", event.Offset,
		"event_type", eventType,
		"integration_id", integrationID,
	)

	select {
	case l.dirty <- struct{}{}:
	default:
	}
	l.notifyWaiters(event.Offset)
	return event.Offset
}

// GetEvents returns up to limit events with offset >= fromOffset, the offset
// to resume from, and whether more events are available
func (l *Log) GetEvents(fromOffset int64, limit int) ([]models.Event, int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	startIdx := -1
	for i, event := range l.events {
		if event.Offset >= fromOffset {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return []models.Event{}, l.nextOffset, false
	}

	if limit <= 0 {
		limit = len(l.events)
	}
	endIdx := startIdx + limit
	hasMore := true
	if endIdx >= len(l.events) {
		endIdx = len(l.events)
		hasMore = false
	}

	result := make([]models.Event, endIdx-startIdx)
	copy(result, l.events[startIdx:endIdx])
	return result, result[len(result)-1].Offset + 1, hasMore
}

// WaitForEvents returns a channel that is closed once an event at or after
// fromOffset exists, or when timeout elapses
func (l *Log) WaitForEvents(fromOffset int64, timeout time.Duration) <-chan struct{} {
	l.waitersMutex.Lock()
	defer l.waitersMutex.Unlock()

	notifyChan := make(chan struct{})
	if l.CurrentOffset() > fromOffset {
		close(notifyChan)
		return notifyChan
	}

	l.waiters[fromOffset] = append(l.waiters[fromOffset], notifyChan)

	time.AfterFunc(timeout, func() {
		l.waitersMutex.Lock()
		defer l.waitersMutex.Unlock()
		closeOnce(notifyChan)
		l.removeWaiter(fromOffset, notifyChan)
	})
	return notifyChan
}

// removeWaiter drops ch from the waiters of offset; callers hold waitersMutex
func (l *Log) removeWaiter(offset int64, ch chan struct{}) {
	waiters := l.waiters[offset]
	for i, waiter := range waiters {
		if waiter == ch {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(l.waiters, offset)
		return
	}
	l.waiters[offset] = waiters
}

// pendingWaiters counts long-poll waiters not yet notified
func (l *Log) pendingWaiters() int {
	l.waitersMutex.Lock()
	defer l.waitersMutex.Unlock()
	n := 0
	for _, waiters := range l.waiters {
		n += len(waiters)
	}
	return n
}

// CurrentOffset returns the offset the next event will get
func (l *Log) CurrentOffset() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextOffset
}

// Close stops the writer and flushes the log to disk
func (l *Log) Close() error {
	var err error
	l.stopOnce.Do(func() {
		l.logger.Info("Shutting down event log")
		close(l.stopChan)
		<-l.done
		err = l.saveToFile()
	})
	return err
}

func (l *Log) asyncWriter() {
	defer close(l.done)
	for {
		select {
		case <-l.dirty:
			if err := l.saveToFile(); err != nil {
				l.logger.Error("Failed to save events to file", "error", err)
			}
		case <-l.stopChan:
			return
		}
	}
}

func (l *Log) notifyWaiters(offset int64) {
	l.waitersMutex.Lock()
	defer l.waitersMutex.Unlock()

	for waitOffset, waiters := range l.waiters {
		if waitOffset <= offset {
			for _, waiter := range waiters {
				closeOnce(waiter)
			}
			delete(l.waiters, waitOffset)
		}
	}
}

// closeOnce closes ch unless it is already closed; callers hold waitersMutex
func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

type fileData struct {
	Events     []models.Event `json:"events"`
	NextOffset int64          `json:"nextOffset"`
}

func (l *Log) loadFromFile() error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read events file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("failed to unmarshal events: %w", err)
	}
	if fd.Events != nil {
		l.events = fd.Events
	}
	l.nextOffset = fd.NextOffset
	return nil
}

func (l *Log) saveToFile() error {
	if l.filePath == "" {
		return nil
	}

	l.mu.RLock()
	data, err := json.MarshalIndent(fileData{Events: l.events, NextOffset: l.nextOffset}, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	tempFile := l.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp events file: %w", err)
	}
	if err := os.Rename(tempFile, l.filePath); err != nil {
		return fmt.Errorf("failed to rename temp events file: %w", err)
	}
	return nil
}
