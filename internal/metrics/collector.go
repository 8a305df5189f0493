package metrics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// GaugeSource reads live pipeline counts at scrape time. Implemented by
// *database.DB; declared as an interface here so this package never needs
// to import internal/database.
type GaugeSource interface {
	CountBatchesByStatus(ctx context.Context, status string) (int, error)
	CountByAnalysisStatus(ctx context.Context, status string) (int, error)
	CountEventsByStatus(ctx context.Context, status string) (int, error)
}

// Collector implements prometheus.Collector, reading live gauges directly
// from storage at scrape time rather than tracking in-process counters —
// correct even when multiple process instances share one database.
type Collector struct {
	pool   *pgxpool.Pool
	source GaugeSource

	accumulatingBatches *prometheus.Desc
	pendingTranscripts  *prometheus.Desc
	ongoingEvents       *prometheus.Desc
	dbTotalConns        *prometheus.Desc
	dbAcquiredConns     *prometheus.Desc
	dbIdleConns         *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// pool may be nil (pool gauges are omitted); source may be nil (pipeline
// gauges are omitted).
func NewCollector(pool *pgxpool.Pool, source GaugeSource) *Collector {
	return &Collector{
		pool:   pool,
		source: source,
		accumulatingBatches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "accumulating_batches"),
			"Batches currently in status accumulating (§3 invariant: at most one per user).",
			nil, nil,
		),
		pendingTranscripts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "pending_transcripts"),
			"Transcription results awaiting analysis (analysis_status = pending).",
			nil, nil,
		),
		ongoingEvents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ongoing_events"),
			"Events currently in status ongoing across all users.",
			nil, nil,
		),
		dbTotalConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "total_conns"),
			"Total database pool connections.",
			nil, nil,
		),
		dbAcquiredConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "acquired_conns"),
			"Database pool connections currently in use.",
			nil, nil,
		),
		dbIdleConns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db_pool", "idle_conns"),
			"Database pool idle connections.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accumulatingBatches
	ch <- c.pendingTranscripts
	ch <- c.ongoingEvents
	ch <- c.dbTotalConns
	ch <- c.dbAcquiredConns
	ch <- c.dbIdleConns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if n, err := c.source.CountBatchesByStatus(ctx, "accumulating"); err == nil {
			ch <- prometheus.MustNewConstMetric(c.accumulatingBatches, prometheus.GaugeValue, float64(n))
		}
		if n, err := c.source.CountByAnalysisStatus(ctx, "pending"); err == nil {
			ch <- prometheus.MustNewConstMetric(c.pendingTranscripts, prometheus.GaugeValue, float64(n))
		}
		if n, err := c.source.CountEventsByStatus(ctx, "ongoing"); err == nil {
			ch <- prometheus.MustNewConstMetric(c.ongoingEvents, prometheus.GaugeValue, float64(n))
		}
	}

	if c.pool != nil {
		stat := c.pool.Stat()
		ch <- prometheus.MustNewConstMetric(c.dbTotalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.dbAcquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.dbIdleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	}
}
