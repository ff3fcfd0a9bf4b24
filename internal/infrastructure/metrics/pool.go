package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exporta las estadísticas de pgxpool.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string

	acquiredConns *prometheus.Desc
	idleConns     *prometheus.Desc
	totalConns    *prometheus.Desc
	maxConns      *prometheus.Desc
	acquireCount  *prometheus.Desc
	emptyAcquires *prometheus.Desc
}

// NewPoolStatsCollector crea el collector; registrarlo con prometheus.MustRegister.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	return &PoolStatsCollector{
		pool:          pool,
		service:       service,
		acquiredConns: prometheus.NewDesc("db_pool_acquired_connections", "Conexiones en uso", labels, nil),
		idleConns:     prometheus.NewDesc("db_pool_idle_connections", "Conexiones ociosas", labels, nil),
		totalConns:    prometheus.NewDesc("db_pool_total_connections", "Conexiones abiertas", labels, nil),
		maxConns:      prometheus.NewDesc("db_pool_max_connections", "Máximo de conexiones", labels, nil),
		acquireCount:  prometheus.NewDesc("db_pool_acquire_count_total", "Conexiones adquiridas", labels, nil),
		emptyAcquires: prometheus.NewDesc("db_pool_empty_acquire_count_total", "Adquisiciones que esperaron conexión", labels, nil),
	}
}

// Describe implementa prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.emptyAcquires
}

// Collect implementa prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(s.MaxConns()), c.service)
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()), c.service)
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount()), c.service)
}
