package sinks

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/models"
)

var _ interfaces.IRecordSink = (*MultiSinkManager)(nil)

// MultiSinkManager fans records out to every registered sink. A failing sink
// does not stop delivery to the others.
type MultiSinkManager struct {
	Sinks   map[string]interfaces.IRecordSink
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSinkManager(sinks []interfaces.IRecordSink, m *metrics.Metrics, log *logger.Logger) *MultiSinkManager {
	mgr := &MultiSinkManager{
		Sinks:   make(map[string]interfaces.IRecordSink),
		Metrics: m,
		Logger:  log,
	}

	for _, s := range sinks {
		mgr.Sinks[s.Name()] = s
	}

	return mgr
}

func (m *MultiSinkManager) Name() string {
	return "multi"
}

// -----------------------------------------------------------------------------

// AddSink registers a new sink
func (m *MultiSinkManager) AddSink(sink interfaces.IRecordSink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := sink.Name()
	if _, exists := m.Sinks[name]; exists {
		return fmt.Errorf("sink %s already exists", name)
	}

	m.Sinks[name] = sink
	m.Logger.Info("Added sink: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSink closes and removes a sink
func (m *MultiSinkManager) RemoveSink(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sink, exists := m.Sinks[name]
	if !exists {
		return fmt.Errorf("sink %s not found", name)
	}

	if err := sink.Close(); err != nil {
		m.Logger.Error("Error closing sink %s: %v", name, err)
	}

	delete(m.Sinks, name)
	m.Logger.Info("Removed sink: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSink retrieves a sink by name
func (m *MultiSinkManager) GetSink(name string) (interfaces.IRecordSink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sink, exists := m.Sinks[name]
	if !exists {
		return nil, fmt.Errorf("sink %s not found", name)
	}
	return sink, nil
}

// Names returns the registered sink names, sorted
func (m *MultiSinkManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sinks))
	for name := range m.Sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// Publish hands records to each sink in name order and joins their errors.
func (m *MultiSinkManager) Publish(records []models.DecodedRecord) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sinks))
	for name := range m.Sinks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := m.Sinks[name].Publish(records); err != nil {
			m.Metrics.SinkFailed(name)
			errs = append(errs, fmt.Errorf("sink %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------

// Close closes every sink
func (m *MultiSinkManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Logger.Info("Closing %d sink(s)...", len(m.Sinks))

	var errs []error
	for name, sink := range m.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", name, err))
		}
	}
	m.Sinks = make(map[string]interfaces.IRecordSink)
	return errors.Join(errs...)
}
