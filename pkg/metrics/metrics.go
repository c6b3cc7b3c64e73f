// Package metrics exposes Prometheus collectors for ingestion, transcoding and delivery.
// Labels stay low-cardinality: no video ids or user ids.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "course_video"

var (
	// TranscodeJobsTotal จำนวน job ที่จบแล้ว แยกตามผลลัพธ์ (ready, failed, skipped, locked)
	TranscodeJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcode_jobs_total",
		Help:      "Total number of transcode jobs, by outcome.",
	}, []string{"outcome"})

	// RenditionEncodesTotal จำนวน encode ต่อ quality
	RenditionEncodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rendition_encodes_total",
		Help:      "Total number of rendition encodes, by quality and outcome.",
	}, []string{"quality", "outcome"})

	RenditionEncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rendition_encode_duration_seconds",
		Help:      "Wall-clock time of one rendition encode and upload, by quality.",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 2400, 3600},
	}, []string{"quality"})

	// ActiveTranscodeJobs job ที่กำลังทำงานใน process นี้
	ActiveTranscodeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_transcode_jobs",
		Help:      "Current number of transcode jobs running in this process.",
	})

	UploadURLsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_urls_issued_total",
		Help:      "Total number of presigned upload URLs issued.",
	})

	UploadSessionsReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_sessions_reclaimed_total",
		Help:      "Total number of abandoned upload sessions reclaimed by the sweeper.",
	})

	StreamTokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_tokens_issued_total",
		Help:      "Total number of stream tokens issued.",
	})

	// StreamTokenRejectionsTotal reason: malformed, signature, expired, video_mismatch, missing
	StreamTokenRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_token_rejections_total",
		Help:      "Total number of rejected stream tokens, by reason.",
	}, []string{"reason"})

	StuckJobsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stuck_jobs_detected_total",
		Help:      "Total number of processing records marked failed by the stuck detector.",
	})
)

// RecordJobOutcome increments the job counter.
func RecordJobOutcome(outcome string) {
	TranscodeJobsTotal.WithLabelValues(outcome).Inc()
}

// RecordRendition records one encode result and its duration.
func RecordRendition(quality string, ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	RenditionEncodesTotal.WithLabelValues(quality, outcome).Inc()
	RenditionEncodeDuration.WithLabelValues(quality).Observe(elapsed.Seconds())
}

// RecordTokenRejection increments the rejection counter.
func RecordTokenRejection(reason string) {
	StreamTokenRejectionsTotal.WithLabelValues(reason).Inc()
}
