// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics 交易执行的统计数据
package metrics

import (
	"sort"
	"time"

	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/dispatch"
	"github.com/33cn/dispatch/types"
	go_metrics "github.com/rcrowley/go-metrics"
)

var mlog = log.New("module", "metrics")

// DispatchMetrics counters, meters and gauges of the dispatch pipeline
type DispatchMetrics struct {
	registry go_metrics.Registry
	prefix   string

	dispatches go_metrics.Meter
	children   go_metrics.Counter
	rewards    go_metrics.Counter
	feesOnly   go_metrics.Counter
	outcomes   map[dispatch.Outcome]go_metrics.Counter
	handleTime go_metrics.Timer

	gasUsed      go_metrics.Gauge
	frontendUsed go_metrics.Gauge
}

// NewDispatchMetrics metrics registered into registry, go-metrics' default registry when nil.
// With metrics disabled they go to a private registry nobody reports from.
func NewDispatchMetrics(cfg *types.Metrics, registry go_metrics.Registry) *DispatchMetrics {
	prefix := "dispatch"
	if cfg != nil && cfg.Prefix != "" {
		prefix = cfg.Prefix
	}
	switch {
	case cfg != nil && !cfg.Enable:
		mlog.Info("Metrics data is not enabled to emit")
		registry = go_metrics.NewRegistry()
	case registry == nil:
		registry = go_metrics.DefaultRegistry
	}
	m := &DispatchMetrics{registry: registry, prefix: prefix}
	m.dispatches = go_metrics.GetOrRegisterMeter(m.name("dispatches"), registry)
	m.children = go_metrics.GetOrRegisterCounter(m.name("children"), registry)
	m.rewards = go_metrics.GetOrRegisterCounter(m.name("rewards.settlements"), registry)
	m.feesOnly = go_metrics.GetOrRegisterCounter(m.name("work.fees_only"), registry)
	m.handleTime = go_metrics.GetOrRegisterTimer(m.name("handle.time"), registry)
	m.gasUsed = go_metrics.GetOrRegisterGauge(m.name("throttle.gas_percent"), registry)
	m.frontendUsed = go_metrics.GetOrRegisterGauge(m.name("throttle.frontend_percent"), registry)
	m.outcomes = make(map[dispatch.Outcome]go_metrics.Counter)
	for _, o := range []dispatch.Outcome{
		dispatch.OutcomeSuccess,
		dispatch.OutcomeCreatorError,
		dispatch.OutcomePayerError,
		dispatch.OutcomeHandleFailure,
		dispatch.OutcomeThrottled,
		dispatch.OutcomeFailInvalid,
	} {
		m.outcomes[o] = go_metrics.GetOrRegisterCounter(m.name("outcome."+o.String()), registry)
	}
	return m
}

func (m *DispatchMetrics) name(n string) string {
	return m.prefix + "." + n
}

// ObserveDispatch implements dispatch.Observer
func (m *DispatchMetrics) ObserveDispatch(category types.TransactionCategory, outcome dispatch.Outcome, work types.WorkDone, rewards bool) {
	if rewards {
		m.rewards.Inc(1)
	}
	if category != types.CategoryUser {
		m.children.Inc(1)
		return
	}
	m.dispatches.Mark(1)
	if c, ok := m.outcomes[outcome]; ok {
		c.Inc(1)
	}
	if work == types.FeesOnly {
		m.feesOnly.Inc(1)
	}
}

// ObserveHandleTime wall clock time spent on one user transaction
func (m *DispatchMetrics) ObserveHandleTime(d time.Duration) {
	m.handleTime.Update(d)
}

// UpdateUtilization throttle utilization in percent
func (m *DispatchMetrics) UpdateUtilization(gasPercent, frontendPercent int64) {
	m.gasUsed.Update(gasPercent)
	m.frontendUsed.Update(frontendPercent)
}

// Outcomes count of user dispatches per outcome
func (m *DispatchMetrics) Outcomes() map[dispatch.Outcome]int64 {
	out := make(map[dispatch.Outcome]int64, len(m.outcomes))
	for o, c := range m.outcomes {
		out[o] = c.Count()
	}
	return out
}

// Dispatches number of user dispatches observed
func (m *DispatchMetrics) Dispatches() int64 {
	return m.dispatches.Count()
}

// Registry the registry the metrics live in
func (m *DispatchMetrics) Registry() go_metrics.Registry {
	return m.registry
}

// LogSnapshot logs every counter and gauge of the registry, in name order
func (m *DispatchMetrics) LogSnapshot() {
	values := make(map[string]int64)
	m.registry.Each(func(name string, i interface{}) {
		switch v := i.(type) {
		case go_metrics.Counter:
			values[name] = v.Count()
		case go_metrics.Gauge:
			values[name] = v.Value()
		case go_metrics.Meter:
			values[name] = v.Count()
		case go_metrics.Timer:
			values[name+".count"] = v.Count()
			values[name+".mean_us"] = int64(v.Mean() / float64(time.Microsecond))
		}
	})
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		mlog.Info("metric", "name", n, "value", values[n])
	}
}
