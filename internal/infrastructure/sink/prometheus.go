package sink

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

const namespace = "pipelinedash"

// Metrics mirrors snapshot numbers into Prometheus gauges.
type Metrics struct {
	overview  *prometheus.GaugeVec
	pipeline  *prometheus.GaugeVec
	progress  prometheus.Gauge
	activity  *prometheus.GaugeVec
	sources   *prometheus.GaugeVec
	cards     *prometheus.GaugeVec
	countdown prometheus.Gauge
	logLines  *prometheus.CounterVec
	commands  *prometheus.GaugeVec
	refreshes prometheus.Counter
}

var _ ports.Sink = (*Metrics)(nil)

// NewMetrics registers the dashboard collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		overview: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overview",
			Help:      "Headline counters of the last refresh pass",
		}, []string{"metric"}),
		pipeline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_items",
			Help:      "Raw items by processing outcome",
		}, []string{"outcome"}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_progress_percent",
			Help:      "Share of raw items with a processing outcome",
		}),
		activity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cards_created",
			Help:      "Cards created within the window",
		}, []string{"window"}),
		sources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_health",
			Help:      "1 for the current health state of each source",
		}, []string{"source", "state"}),
		cards: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_cards",
			Help:      "Cards attributed to each source",
		}, []string{"source"}),
		countdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_countdown_seconds",
			Help:      "Ticks left until the next refresh pass",
		}),
		logLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_log_lines_total",
			Help:      "Activity console lines by severity",
		}, []string{"severity"}),
		commands: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "command_running",
			Help:      "1 while a command invocation is in flight",
		}, []string{"command"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_passes_total",
			Help:      "Completed refresh passes",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.overview, m.pipeline, m.progress, m.activity, m.sources,
			m.cards, m.countdown, m.logLines, m.commands, m.refreshes,
		)
	}
	return m
}

func (m *Metrics) PublishSnapshot(s domain.Snapshot) {
	m.refreshes.Inc()

	m.overview.WithLabelValues("total_cards").Set(float64(s.Overview.TotalCards))
	m.overview.WithLabelValues("active_sources").Set(float64(s.Overview.ActiveSources))
	m.overview.WithLabelValues("pending_processing").Set(float64(s.Overview.PendingProcessing))
	m.overview.WithLabelValues("missing_images").Set(float64(s.Overview.MissingImages))
	m.overview.WithLabelValues("total_likes").Set(float64(s.Overview.TotalLikes))
	m.overview.WithLabelValues("total_dislikes").Set(float64(s.Overview.TotalDislikes))
	m.overview.WithLabelValues("cards_with_links").Set(float64(s.Overview.CardsWithLinks))
	if avg, err := strconv.ParseFloat(s.Overview.AvgQuality, 64); err == nil {
		m.overview.WithLabelValues("avg_quality").Set(avg)
	}

	m.pipeline.WithLabelValues("unprocessed").Set(float64(s.Pipeline.Unprocessed))
	m.pipeline.WithLabelValues("created").Set(float64(s.Pipeline.Created))
	m.pipeline.WithLabelValues("rejected").Set(float64(s.Pipeline.Rejected))
	m.pipeline.WithLabelValues("error").Set(float64(s.Pipeline.Errors))
	if pct, err := strconv.ParseFloat(s.Pipeline.ProgressPercent, 64); err == nil {
		m.progress.Set(pct)
	}

	m.activity.WithLabelValues("24h").Set(float64(s.Activity.Last24Hours))
	m.activity.WithLabelValues("7d").Set(float64(s.Activity.Last7Days))

	m.sources.Reset()
	m.cards.Reset()
	for _, src := range s.Sources {
		m.sources.WithLabelValues(src.Name, string(src.State)).Set(1)
		m.cards.WithLabelValues(src.Name).Set(float64(src.CardCount))
	}
}

func (m *Metrics) PublishCountdown(remaining int) {
	m.countdown.Set(float64(remaining))
}

func (m *Metrics) PublishLog(e domain.ActivityLogEntry) {
	m.logLines.WithLabelValues(string(e.Severity)).Inc()
}

func (m *Metrics) PublishCommandState(name string, state domain.CommandState) {
	running := 0.0
	if state == domain.CommandRunning {
		running = 1
	}
	m.commands.WithLabelValues(name).Set(running)
}
