package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "rooms_created_total",
		Help:      "Rooms created by this client.",
	})
	Joins = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "joins_total",
		Help:      "Successful room joins.",
	})
	Leaves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "leaves_total",
		Help:      "Room leaves, labelled by whether the running round was abandoned.",
	}, []string{"abandoned"})
	RoundsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "rounds_started_total",
		Help:      "Rounds started, by difficulty.",
	}, []string{"difficulty"})
	VotesCast = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "votes_cast_total",
		Help:      "Votes accepted by the store.",
	})
	PhaseAdvances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "phase_advances_total",
		Help:      "Attempts to move discussion to voting, by result.",
	}, []string{"result"})
	ChangeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "change_events_total",
		Help:      "Change notifications seen by room watchers, by table and disposition.",
	}, []string{"table", "disposition"})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugfind",
		Name:      "store_errors_total",
		Help:      "Failed store operations, by operation.",
	}, []string{"op"})
	ViewClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bugfind",
		Name:      "view_clients",
		Help:      "Connected local view streams.",
	})
)

// Register adds every collector to reg. Already registered collectors are
// skipped so tests can share the default registry.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RoomsCreated, Joins, Leaves, RoundsStarted, VotesCast,
		PhaseAdvances, ChangeEvents, StoreErrors, ViewClients,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
