package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const DefaultMaxMemory = 2 * 1024 * 1024 * 1024

// Manager accounts for every Mat the pipeline creates and reports the ones
// still alive at shutdown.
type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

func NewManager(log logger.Logger, maxMemory int64) *Manager {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	return &Manager{
		logger:     log,
		maxMemory:  maxMemory,
		activeMats: make(map[uint64]*MatInfo),
	}
}

func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	size := int64(rows) * int64(cols) * int64(safe.ElemSize(matType))
	if err := m.reserve(size); err != nil {
		return nil, err
	}
	return safe.NewMatWithTracker(rows, cols, matType, m, tag)
}

// Adopt registers a Mat produced by gocv, taking ownership of it.
func (m *Manager) Adopt(mat gocv.Mat, tag string) (*safe.Mat, error) {
	if err := m.reserve(safe.MatSize(mat)); err != nil {
		mat.Close()
		return nil, err
	}
	return safe.Adopt(mat, m, tag)
}

func (m *Manager) reserve(size int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.usedMemory+size > m.maxMemory {
		return fmt.Errorf("memory limit exceeded: would use %d bytes, limit is %d",
			m.usedMemory+size, m.maxMemory)
	}
	return nil
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deallocCount++
	if info, exists := m.activeMats[id]; exists {
		delete(m.activeMats, id)
		m.usedMemory -= info.Size
	}
}

func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat == nil {
		return
	}
	mat.Close()
}

func (m *Manager) GetUsedMemory() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usedMemory
}

func (m *Manager) GetStats() (allocCount, deallocCount int64, usedMemory int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocCount, m.deallocCount, m.usedMemory
}

func (m *Manager) GetActiveMatCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeMats)
}

// ActiveTags lists the tags of live Mats, oldest first.
func (m *Manager) ActiveTags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]*MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Timestamp.Equal(infos[j].Timestamp) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})

	tags := make([]string, len(infos))
	for i, info := range infos {
		tags[i] = info.Tag
	}
	return tags
}

func (m *Manager) Shutdown() {
	alloc, dealloc, used := m.GetStats()

	for _, tag := range m.ActiveTags() {
		m.logger.Warning("MemoryManager", "unreleased Mat at shutdown", map[string]interface{}{
			"tag": tag,
		})
	}

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":   alloc,
		"deallocations": dealloc,
		"used_bytes":    used,
	})
}
