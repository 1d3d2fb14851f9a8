// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pushrebase

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const resultLabel = "result"

// Metrics aggregates push outcomes for the /metrics endpoint. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	cntPushes    *prometheus.CounterVec
	cntConflicts prometheus.Counter
	histAttempts prometheus.Histogram
	histPushDur  prometheus.Histogram
}

// NewMetrics creates and registers the pushrebase metrics. Call Close to
// unregister them.
func NewMetrics(labels prometheus.Labels) *Metrics {
	m := &Metrics{
		cntPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "landd_pushes",
			Help:        "Count of pushrebase operations by result",
			ConstLabels: labels,
		}, []string{resultLabel}),
		cntConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "landd_push_conflicting_paths",
			Help:        "Count of conflicting path pairs found while landing",
			ConstLabels: labels,
		}),
		histAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "landd_push_rebase_attempts",
			Help:        "Histogram of bookmark swap attempts per successful push",
			ConstLabels: labels,
			Buckets:     []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		}),
		histPushDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "landd_push_duration",
			Help:        "Histogram of pushrebase runtimes in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.005, 0.025, 0.1, 0.5, 1.0, 5.0, 30.0},
		}),
	}

	prometheus.MustRegister(m.cntPushes)
	prometheus.MustRegister(m.cntConflicts)
	prometheus.MustRegister(m.histAttempts)
	prometheus.MustRegister(m.histPushDur)

	return m
}

func (m *Metrics) Close() {
	prometheus.Unregister(m.cntPushes)
	prometheus.Unregister(m.cntConflicts)
	prometheus.Unregister(m.histAttempts)
	prometheus.Unregister(m.histPushDur)
}

func (m *Metrics) observePush(outcome *Outcome, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.cntPushes.WithLabelValues(resultOf(err)).Inc()
	m.histPushDur.Observe(dur.Seconds())
	if outcome != nil {
		m.histAttempts.Observe(float64(outcome.RetryCount + 1))
	}
}

func (m *Metrics) observeConflicts(n int) {
	if m == nil {
		return
	}
	m.cntConflicts.Add(float64(n))
}

// resultOf buckets an error into a stable label value. Client mistakes and
// policy rejections are kept apart from infrastructure failures so that
// alerting on the latter stays quiet when users race each other.
func resultOf(err error) string {
	var (
		conflicts    ConflictsError
		caseConflict PotentialCaseConflictError
		noRoot       NoCommonRootError
		p2Root       P2RootRebaseForbiddenError
		hook         HookRejectedError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &conflicts):
		return "conflicts"
	case errors.As(err, &caseConflict):
		return "case_conflict"
	case errors.As(err, &hook):
		return "hook_rejected"
	case errors.Is(err, ErrTooManyRebaseAttempts):
		return "too_many_attempts"
	case errors.As(err, &noRoot),
		errors.As(err, &p2Root),
		errors.Is(err, ErrRootTooFarBehind),
		errors.Is(err, ErrRebaseOverMerge),
		errors.Is(err, ErrMergesBlocked),
		errors.Is(err, ErrTooManyHeads),
		errors.Is(err, ErrNoRoots),
		errors.Is(err, ErrNoPushedChangesets):
		return "rejected"
	default:
		return "error"
	}
}
