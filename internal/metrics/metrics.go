package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the vibe backend
type Metrics struct {
	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatFailures       prometheus.Counter
	CompletionDuration prometheus.Histogram
	HistoryTurns       prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	UploadSize             prometheus.Histogram

	// Speech synthesis metrics
	SpeechRequests prometheus.Counter
	SpeechFailures prometheus.Counter
	SpeechDuration prometheus.Histogram
	SpeechSize     prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Passing a
// fresh registry keeps parallel servers (and tests) from colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_chat_requests_total",
			Help: "Total number of chat requests received",
		}),
		ChatFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_chat_failures_total",
			Help: "Total number of chat requests the model could not answer",
		}),
		CompletionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_completion_duration_seconds",
			Help:    "Duration of chat completion calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		HistoryTurns: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_chat_history_turns",
			Help:    "Number of earlier turns sent with each chat request",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),

		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_transcription_requests_total",
			Help: "Total number of transcription requests received",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_transcription_successes_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_transcription_duration_seconds",
			Help:    "Duration of transcription calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_upload_size_bytes",
			Help:    "Size of uploaded audio clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		SpeechRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_speech_requests_total",
			Help: "Total number of replies sent to speech synthesis",
		}),
		SpeechFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vibe_speech_failures_total",
			Help: "Total number of failed speech synthesis calls",
		}),
		SpeechDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_speech_duration_seconds",
			Help:    "Duration of speech synthesis calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SpeechSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibe_speech_size_bytes",
			Help:    "Size of synthesized WAV audio in bytes",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 12),
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vibe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibe_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChat records a chat request and the history it carried
func (m *Metrics) RecordChat(historyTurns int) {
	m.ChatRequests.Inc()
	m.HistoryTurns.Observe(float64(historyTurns))
}

// RecordCompletion records the outcome of a completion call
func (m *Metrics) RecordCompletion(durationSeconds float64, err error) {
	m.CompletionDuration.Observe(durationSeconds)
	if err != nil {
		m.ChatFailures.Inc()
	}
}

// RecordTranscriptionRequest records an upload accepted for transcription
func (m *Metrics) RecordTranscriptionRequest(sizeBytes int64) {
	m.TranscriptionRequests.Inc()
	if sizeBytes >= 0 {
		m.UploadSize.Observe(float64(sizeBytes))
	}
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordSpeech records a speech synthesis call; size is ignored on failure
func (m *Metrics) RecordSpeech(durationSeconds float64, sizeBytes int, err error) {
	m.SpeechRequests.Inc()
	m.SpeechDuration.Observe(durationSeconds)
	if err != nil {
		m.SpeechFailures.Inc()
		return
	}
	m.SpeechSize.Observe(float64(sizeBytes))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
