package batch

import (
	"sort"
	"sync"
	"time"

	"sitewatcher/internal/ztperrors"
)

// Metrics tracks batch outcomes per resource type across the life of the process.
type Metrics struct {
	mu sync.RWMutex

	perType map[string]*resourceTypeMetrics

	totalAttempts  int64
	totalSuccesses int64
	totalFailures  int64
}

type resourceTypeMetrics struct {
	attempts        int64
	successes       int64
	failures        int64
	failuresByKind  map[ztperrors.Kind]int64
	updates         int64
	deletes         int64
	cascaded        int64
	lastAttemptAt   time.Time
	lastSuccessAt   time.Time
	lastFailureAt   time.Time
	resourceVersion string
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{perType: make(map[string]*resourceTypeMetrics)}
}

func (m *Metrics) getOrCreate(resourceType string) *resourceTypeMetrics {
	if rm, ok := m.perType[resourceType]; ok {
		return rm
	}
	rm := &resourceTypeMetrics{failuresByKind: make(map[ztperrors.Kind]int64)}
	m.perType[resourceType] = rm
	return rm
}

// RecordAttempt records the start of a batch.
func (m *Metrics) RecordAttempt(resourceType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.getOrCreate(resourceType)
	rm.attempts++
	rm.lastAttemptAt = time.Now()
	m.totalAttempts++
}

// RecordSuccess records a finished batch and its report.
func (m *Metrics) RecordSuccess(resourceType string, report *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.getOrCreate(resourceType)
	rm.successes++
	rm.lastSuccessAt = time.Now()
	rm.updates += int64(report.Updates)
	rm.deletes += int64(report.Deletes)
	rm.cascaded += int64(len(report.Cascaded))
	rm.resourceVersion = report.ResourceVersion
	m.totalSuccesses++
}

// RecordFailure records a failed batch under the kind of err.
func (m *Metrics) RecordFailure(resourceType string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.getOrCreate(resourceType)
	rm.failures++
	rm.failuresByKind[ztperrors.KindOf(err)]++
	rm.lastFailureAt = time.Now()
	m.totalFailures++
}

// ResourceTypeMetricView is a read-only view of the metrics of one resource type.
type ResourceTypeMetricView struct {
	ResourceType    string                   `json:"resource_type"`
	Attempts        int64                    `json:"attempts"`
	Successes       int64                    `json:"successes"`
	Failures        int64                    `json:"failures"`
	FailuresByKind  map[ztperrors.Kind]int64 `json:"failures_by_kind,omitempty"`
	Updates         int64                    `json:"updates"`
	Deletes         int64                    `json:"deletes"`
	Cascaded        int64                    `json:"cascaded"`
	ResourceVersion string                   `json:"resource_version,omitempty"`
	LastAttemptAt   time.Time                `json:"last_attempt_at,omitempty"`
	LastSuccessAt   time.Time                `json:"last_success_at,omitempty"`
	LastFailureAt   time.Time                `json:"last_failure_at,omitempty"`
}

// MetricsSummary summarizes all recorded batches.
type MetricsSummary struct {
	TotalAttempts  int64                    `json:"total_attempts"`
	TotalSuccesses int64                    `json:"total_successes"`
	TotalFailures  int64                    `json:"total_failures"`
	FailureRate    float64                  `json:"failure_rate"`
	PerType        []ResourceTypeMetricView `json:"per_resource_type"`
}

// Summary returns a snapshot of the metrics, resource types sorted by name.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSummary{
		TotalAttempts:  m.totalAttempts,
		TotalSuccesses: m.totalSuccesses,
		TotalFailures:  m.totalFailures,
	}
	if m.totalAttempts > 0 {
		s.FailureRate = float64(m.totalFailures) / float64(m.totalAttempts)
	}

	for rt, rm := range m.perType {
		byKind := make(map[ztperrors.Kind]int64, len(rm.failuresByKind))
		for k, v := range rm.failuresByKind {
			byKind[k] = v
		}
		s.PerType = append(s.PerType, ResourceTypeMetricView{
			ResourceType:    rt,
			Attempts:        rm.attempts,
			Successes:       rm.successes,
			Failures:        rm.failures,
			FailuresByKind:  byKind,
			Updates:         rm.updates,
			Deletes:         rm.deletes,
			Cascaded:        rm.cascaded,
			ResourceVersion: rm.resourceVersion,
			LastAttemptAt:   rm.lastAttemptAt,
			LastSuccessAt:   rm.lastSuccessAt,
			LastFailureAt:   rm.lastFailureAt,
		})
	}
	sort.Slice(s.PerType, func(i, j int) bool {
		return s.PerType[i].ResourceType < s.PerType[j].ResourceType
	})
	return s
}
