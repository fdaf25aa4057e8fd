package services

import (
	"fmt"

	"github.com/ShepherdLoop/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts channel dispatches and status transitions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	channelDispatch   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		channelDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shepherdloop",
			Subsystem: "followup",
			Name:      "channel_dispatch_total",
			Help:      "Follow-up messages dispatched per channel and result.",
		}, []string{"channel", "result"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shepherdloop",
			Subsystem: "followup",
			Name:      "status_transitions_total",
			Help:      "Follow-up writes by resulting status.",
		}, []string{"status"}),
	}

	collectors := map[string]*prometheus.CounterVec{
		"channel_dispatch_total":   m.channelDispatch,
		"status_transitions_total": m.statusTransitions,
	}
	for name, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, fmt.Errorf("register %s: %w", name, err)
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, fmt.Errorf("register %s: existing collector has unexpected type", name)
			}
			if name == "channel_dispatch_total" {
				m.channelDispatch = existing
			} else {
				m.statusTransitions = existing
			}
		}
	}
	return m, nil
}

// MustNewMetrics panics when registration fails.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) observeStatus(status models.FollowUpStatus) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) observeDispatch(channel models.Channel, ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.channelDispatch.WithLabelValues(string(channel), result).Inc()
}
