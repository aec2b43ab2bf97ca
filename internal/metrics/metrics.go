package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

var (
	TracksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segsweep_tracks_processed_total",
			Help: "Total number of processed tracks by outcome",
		}, []string{"outcome"},
	)
	TrackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segsweep_track_duration_seconds",
			Help:    "Track processing time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"outcome"},
	)
	SegmenterInvocations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "segsweep_segmenter_invocations_total",
			Help: "Total segmenter subprocess invocations",
		},
	)
	CurrentTracks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "segsweep_current_tracks",
			Help: "Number of tracks currently being processed",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segsweep_http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"path", "method", "status"},
	)
)

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TracksProcessed, TrackDuration, SegmenterInvocations, CurrentTracks, HTTPRequests)
	})
}
