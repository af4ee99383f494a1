package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	tournaments       *prometheus.CounterVec
	matches           *prometheus.CounterVec
	disqualifications prometheus.Counter
	violations        prometheus.Counter
	clients           prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		tournaments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournaments_total",
			Help: "Tournament lifecycle events by kind.",
		}, []string{"event"}),
		matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_matches_total",
			Help: "Tournament matches started and finished, by outcome.",
		}, []string{"event"}),
		disqualifications: f.NewCounter(prometheus.CounterOpts{
			Name: "tournament_disqualifications_total",
			Help: "Participants disqualified.",
		}),
		violations: f.NewCounter(prometheus.CounterOpts{
			Name: "tournament_contract_violations_total",
			Help: "Internal consistency errors reported by the orchestrator.",
		}),
		clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "room_clients",
			Help: "Connected room viewers.",
		}),
	}
}

func (m *Metrics) TournamentCreated() { m.tournament("created") }
func (m *Metrics) TournamentStarted() { m.tournament("started") }
func (m *Metrics) TournamentEnded(reason string) {
	m.tournament(reason)
}

func (m *Metrics) tournament(event string) {
	if m == nil {
		return
	}
	m.tournaments.WithLabelValues(event).Inc()
}

func (m *Metrics) MatchStarted() {
	if m == nil {
		return
	}
	m.matches.WithLabelValues("started").Inc()
}

// MatchEnded counts a finished match; outcome is win, loss, draw or nocontest.
func (m *Metrics) MatchEnded(outcome string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Disqualified() {
	if m == nil {
		return
	}
	m.disqualifications.Inc()
}

func (m *Metrics) ContractViolation() {
	if m == nil {
		return
	}
	m.violations.Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.clients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.clients.Dec()
}
