package activity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guildwatch_activity_events_total",
	Help: "Number of activity events appended to the activity log, by kind.",
}, []string{"kind"})

var deletionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guildwatch_activity_deletions_suppressed_total",
	Help: "Number of message deletions skipped because the message was in the ignore set.",
})
