package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	historyOps     *prom.CounterVec
	exportDuration prom.Histogram
	exportOutcome  *prom.CounterVec
	assetEncodes   *prom.CounterVec
	blocks         prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		historyOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "genesis",
			Name:      "history_operations_total",
			Help:      "History operations by kind and outcome",
		}, []string{"op", "outcome"}),
		exportDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "genesis",
			Name:      "export_duration_seconds",
			Help:      "Duration of site exports",
			Buckets:   prom.DefBuckets,
		}),
		exportOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "genesis",
			Name:      "export_outcomes_total",
			Help:      "Site exports by outcome",
		}, []string{"outcome"}),
		assetEncodes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "genesis",
			Name:      "asset_encodes_total",
			Help:      "Image encodings by outcome",
		}, []string{"outcome"}),
		blocks: prom.NewGauge(prom.GaugeOpts{
			Namespace: "genesis",
			Name:      "document_blocks",
			Help:      "Number of blocks in the live document",
		}),
	}
	reg.MustRegister(pr.historyOps, pr.exportDuration, pr.exportOutcome, pr.assetEncodes, pr.blocks)
	return pr
}

func (p *PrometheusRecorder) IncHistoryOp(op, outcome string) {
	if p == nil {
		return
	}
	p.historyOps.WithLabelValues(op, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveExportDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.exportDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncExportOutcome(outcome string) {
	if p == nil {
		return
	}
	p.exportOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncAssetEncode(outcome string) {
	if p == nil {
		return
	}
	p.assetEncodes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetDocumentBlocks(n int) {
	if p == nil {
		return
	}
	p.blocks.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
