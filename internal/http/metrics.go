package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	groupJoinTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labadmin_group_join_total",
		Help: "Lab group join attempts by outcome.",
	}, []string{"outcome"})

	agendaConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labadmin_agenda_conflict_total",
		Help: "Meeting bookings rejected because the slot was taken.",
	})
)
