package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guildwatch_rate_limit_decisions_total",
	Help: "Rate limit decisions, by feature and result (allowed, blocked, fail_open)",
}, []string{"feature", "result"})

var rateLimitBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guildwatch_rate_limit_blocks_total",
	Help: "Calls rejected for exceeding the per-window hit budget",
}, []string{"feature"})
