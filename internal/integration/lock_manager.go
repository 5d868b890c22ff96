package integration

import (
	"log/slog"
	"sync"
	"time"
)

// LockManager hands out one RWMutex per integration id
type LockManager struct {
	locks    map[string]*sync.RWMutex
	locksMux sync.RWMutex
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*sync.RWMutex),
	}
}

// GetLock returns the mutex for integrationID, creating it on first use
func (lm *LockManager) GetLock(integrationID string) *sync.RWMutex {
	lm.locksMux.RLock()
	if lock, exists := lm.locks[integrationID]; exists {
		lm.locksMux.RUnlock()
		return lock
	}
	lm.locksMux.RUnlock()

	lm.locksMux.Lock()
	defer lm.locksMux.Unlock()

	// Double-check in case another goroutine created it
	if lock, exists := lm.locks[integrationID]; exists {
		return lock
	}

	newLock := &sync.RWMutex{}
	lm.locks[integrationID] = newLock
	slog.Debug("Created new integration lock", "integration_id", integrationID)
	return newLock
}

// WithWriteLock runs fn while holding the integration's write lock
func (lm *LockManager) WithWriteLock(integrationID string, fn func() error) error {
	start := time.Now()
	lock := lm.GetLock(integrationID)
	lock.Lock()
	defer lock.Unlock()

	err := fn()

	slog.Debug("Integration write operation completed",
		"integration_id", integrationID,
		"duration", time.Since(start).String())
	return err
}

// WithReadLock runs fn while holding the integration's read lock
func (lm *LockManager) WithReadLock(integrationID string, fn func() error) error {
	lock := lm.GetLock(integrationID)
	lock.RLock()
	defer lock.RUnlock()

	return fn()
}

func (lm *LockManager) GetLockStats() map[string]interface{} {
	lm.locksMux.RLock()
	defer lm.locksMux.RUnlock()

	return map[string]interface{}{
		"total_integration_locks": len(lm.locks),
		"lock_manager_type":       "fine_grained_per_integration",
	}
}
