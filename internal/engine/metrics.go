package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cropilot",
		Name:      "orchestration_cycles_total",
		Help:      "Orchestration cycles run.",
	})
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropilot",
		Name:      "decisions_total",
		Help:      "Decisions executed, by action.",
	}, []string{"action"})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cropilot",
		Name:      "events_recorded_total",
		Help:      "Tracking events recorded, by event type.",
	}, []string{"type"})
	testsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cropilot",
		Name:      "tests_started_total",
		Help:      "Tests started, automatic and manual.",
	})
)
