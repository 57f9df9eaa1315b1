package algorithms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"palette-porter/internal/algorithms/colortransfer"
	"palette-porter/internal/algorithms/rangemask"
	"palette-porter/internal/algorithms/regiondiff"
	"palette-porter/internal/logger"
	"palette-porter/internal/opencv/safe"

	"github.com/samber/lo"
)

const (
	ColorTransfer  = "Color Transfer"
	ColorRangeMask = "Color Range Mask"
	RegionChange   = "Region Change"
)

// ErrInvalidInput is shared by every algorithm for unusable images.
var ErrInvalidInput = safe.ErrInvalidInput

// Algorithm defines the interface for image processing algorithms. primary
// is the image being transformed; reference is the second image some
// algorithms compare against and may be nil otherwise.
type Algorithm interface {
	Process(ctx context.Context, primary, reference *safe.Mat, params map[string]interface{}) (*safe.Mat, error)
	ValidateParameters(params map[string]interface{}) error
	GetDefaultParameters() map[string]interface{}
	GetName() string
	RequiresReference() bool
}

type Manager struct {
	algorithms map[string]Algorithm
	parameters map[string]map[string]interface{}
	mu         sync.RWMutex
}

func NewManager(log logger.Logger) *Manager {
	manager := &Manager{
		algorithms: make(map[string]Algorithm),
		parameters: make(map[string]map[string]interface{}),
	}

	manager.register(colortransfer.NewProcessor(log))
	manager.register(rangemask.NewProcessor(log))
	manager.register(regiondiff.NewProcessor(log))

	return manager
}

func (m *Manager) register(algorithm Algorithm) {
	m.algorithms[algorithm.GetName()] = algorithm
	m.parameters[algorithm.GetName()] = algorithm.GetDefaultParameters()
}

// GetParameters returns a copy of the current parameters of algorithm.
func (m *Manager) GetParameters(algorithm string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if params, exists := m.parameters[algorithm]; exists {
		return lo.Assign(params)
	}

	return make(map[string]interface{})
}

func (m *Manager) SetParameter(algorithm, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alg, exists := m.algorithms[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	candidate := lo.Assign(m.parameters[algorithm], map[string]interface{}{name: value})
	if err := alg.ValidateParameters(candidate); err != nil {
		return err
	}

	m.parameters[algorithm] = candidate
	return nil
}

// SetParameters applies several overrides at once; nothing changes if the
// combination is invalid.
func (m *Manager) SetParameters(algorithm string, overrides map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alg, exists := m.algorithms[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	candidate := lo.Assign(m.parameters[algorithm], overrides)
	if err := alg.ValidateParameters(candidate); err != nil {
		return fmt.Errorf("%s: %w", algorithm, err)
	}

	m.parameters[algorithm] = candidate
	return nil
}

func (m *Manager) GetAlgorithm(name string) (Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if algorithm, exists := m.algorithms[name]; exists {
		return algorithm, nil
	}

	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

// GetAvailableAlgorithms lists the registered names in sorted order.
func (m *Manager) GetAvailableAlgorithms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := lo.Keys(m.algorithms)
	sort.Strings(names)
	return names
}
