package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ocrRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billscan_ocr_requests_total",
			Help: "Total number of OCR provider calls",
		},
		[]string{"provider", "outcome"},
	)

	ocrRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billscan_ocr_request_duration_seconds",
			Help:    "OCR provider call duration in seconds, including retries and polling",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	modelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billscan_model_requests_total",
			Help: "Total number of AI extraction model calls",
		},
		[]string{"model", "outcome"},
	)

	modelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billscan_model_request_duration_seconds",
			Help:    "AI extraction model call duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billscan_retries_total",
			Help: "Total number of retried remote calls",
		},
		[]string{"operation"},
	)

	consensusAgreement = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billscan_consensus_agreement_score",
			Help:    "Inter-model agreement score of each consensus",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	documentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billscan_documents_processed_total",
			Help: "Total number of documents run through the pipeline",
		},
		[]string{"outcome"},
	)

	documentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billscan_document_duration_seconds",
			Help:    "End-to-end pipeline duration per document",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveOCR records one OCR provider call.
func ObserveOCR(provider string, success bool, d time.Duration) {
	ocrRequestsTotal.WithLabelValues(provider, outcome(success)).Inc()
	ocrRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveModel records one AI model call.
func ObserveModel(model string, success bool, d time.Duration) {
	modelRequestsTotal.WithLabelValues(model, outcome(success)).Inc()
	modelRequestDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordRetry counts a retried attempt of operation.
func RecordRetry(operation string) {
	retriesTotal.WithLabelValues(operation).Inc()
}

// ObserveConsensus records the agreement score of a consensus.
func ObserveConsensus(agreement float64) {
	consensusAgreement.Observe(agreement)
}

// RecordDocument records a finished pipeline invocation.
func RecordDocument(result string, d time.Duration) {
	documentsProcessed.WithLabelValues(result).Inc()
	documentDuration.Observe(d.Seconds())
}

// WriteTextfile dumps every registered metric to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
