// Package rplmetrics exposes an RPL [rpl.Instance]'s [rpl.InstanceStats]
// counters as Prometheus collectors, following AdGuard Home's convention
// of a small metrics package its caller feeds directly rather than
// relying on a global registry.
package rplmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sixlowpan/rpl/internal/rpl"
)

const namespace = "rpl"

// Metrics holds every collector this package registers. Callers embed
// it into their own metrics aggregate and call [Metrics.Observe]
// whenever a tracked instance's counters may have changed, e.g. after
// every [rpl.Engine.HandleICMPv6] call.
type Metrics struct {
	malformedMessages  *prometheus.GaugeVec
	admissionFailures  *prometheus.GaugeVec
	loopsDetected      *prometheus.GaugeVec
	noPathForwarded    *prometheus.GaugeVec
	dcosSent           *prometheus.GaugeVec
	daoRetransmissions *prometheus.GaugeVec
	daoRepairsTrigger  *prometheus.GaugeVec
	parentSwitches     *prometheus.GaugeVec
	rank               *prometheus.GaugeVec
	joined             *prometheus.GaugeVec
}

// New returns a ready-to-register Metrics.
func New() (m *Metrics) {
	labels := []string{"instance_id"}

	newGaugeVec := func(name, help string) (g *prometheus.GaugeVec) {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "instance",
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Metrics{
		malformedMessages:  newGaugeVec("malformed_messages_total", "Malformed RPL messages dropped."),
		admissionFailures:  newGaugeVec("admission_failures_total", "DAOs and DIOs rejected for lack of neighbour or route capacity."),
		loopsDetected:      newGaugeVec("loops_detected_total", "Upward loops caught and poisoned by DAO loop detection."),
		noPathForwarded:    newGaugeVec("no_path_forwarded_total", "No-Path DAOs forwarded upward."),
		dcosSent:           newGaugeVec("dcos_sent_total", "DCOs sent on next-hop change."),
		daoRetransmissions: newGaugeVec("dao_retransmissions_total", "DAO retransmission attempts."),
		daoRepairsTrigger:  newGaugeVec("dao_repairs_triggered_total", "Local repairs triggered by DAO-ACK exhaustion or NACK."),
		parentSwitches:     newGaugeVec("parent_switches_total", "Preferred parent changes."),
		rank:               newGaugeVec("rank", "Current rank, or 0xFFFF if unjoined."),
		joined:             newGaugeVec("joined", "1 if the instance has a usable rank in a DAG, else 0."),
	}
}

// Describe implements the [prometheus.Collector] interface for *Metrics.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the [prometheus.Collector] interface for *Metrics.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *Metrics) collectors() (cs []prometheus.Collector) {
	return []prometheus.Collector{
		m.malformedMessages,
		m.admissionFailures,
		m.loopsDetected,
		m.noPathForwarded,
		m.dcosSent,
		m.daoRetransmissions,
		m.daoRepairsTrigger,
		m.parentSwitches,
		m.rank,
		m.joined,
	}
}

// Observe refreshes every gauge for inst under its instance ID label.
// Call it after any engine operation that may have mutated inst's
// [rpl.InstanceStats] or rank.
func (m *Metrics) Observe(inst *rpl.Instance) {
	label := prometheus.Labels{"instance_id": instanceIDLabel(inst.Config.ID)}

	stats := inst.Stats
	m.malformedMessages.With(label).Set(float64(stats.MalformedMessages))
	m.admissionFailures.With(label).Set(float64(stats.AdmissionFailures))
	m.loopsDetected.With(label).Set(float64(stats.LoopsDetected))
	m.noPathForwarded.With(label).Set(float64(stats.NoPathForwarded))
	m.dcosSent.With(label).Set(float64(stats.DCOsSent))
	m.daoRetransmissions.With(label).Set(float64(stats.DAORetransmissions))
	m.daoRepairsTrigger.With(label).Set(float64(stats.DAORepairsTriggered))
	m.parentSwitches.With(label).Set(float64(stats.ParentSwitches))

	m.rank.With(label).Set(float64(inst.Rank()))

	joined := float64(0)
	if inst.Joined() {
		joined = 1
	}
	m.joined.With(label).Set(joined)
}

func instanceIDLabel(id uint8) (s string) {
	const hexDigits = "0123456789abcdef"

	return string([]byte{'0', 'x', hexDigits[id>>4], hexDigits[id&0x0f]})
}
