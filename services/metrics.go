package services

import "github.com/prometheus/client_golang/prometheus"

var (
	questsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quests_started_total",
		Help: "Quests issued a token",
	})
	questsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quests_completed_total",
		Help: "Quests that reached the completed state",
	})
	payoutsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quest_payouts_total",
		Help: "Per-visit payouts credited to source owners",
	})
	payoutsForfeited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quest_payouts_forfeited_total",
		Help: "Dwell completions with exhausted inventory or unresolvable source owner",
	})
	visitsSold = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_visits_sold_total",
		Help: "Visit inventory units purchased",
	})
)

// InitMetrics registers the business counters. Call once from main.go.
func InitMetrics() {
	prometheus.MustRegister(questsStarted)
	prometheus.MustRegister(questsCompleted)
	prometheus.MustRegister(payoutsProcessed)
	prometheus.MustRegister(payoutsForfeited)
	prometheus.MustRegister(visitsSold)
}
