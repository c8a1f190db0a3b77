package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_gateway_active_sessions",
		Help: "Number of sessions currently recording",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_gateway_sessions_total",
		Help: "Total number of recording sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribe_gateway_session_duration_seconds",
		Help:    "Duration of recording sessions in seconds",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// Transcription metrics
	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_gateway_utterances_total",
		Help: "Total utterances processed, by speaker attribution source",
	}, []string{"attribution"}) // attribution: "provider" or "inferred"

	audioBytesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_gateway_audio_bytes_total",
		Help: "Total audio bytes forwarded to the transcription provider",
	})

	// Note-generation metrics
	noteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_gateway_note_requests_total",
		Help: "Total number of SOAP note generation requests",
	}, []string{"status"})

	noteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scribe_gateway_note_latency_seconds",
		Help:    "SOAP note generation latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scribe_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordSessionStart records the start of a recording session
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a recording session
func RecordSessionEnd(duration time.Duration) {
	activeSessions.Dec()
	sessionDuration.Observe(duration.Seconds())
}

// RecordUtterance records one processed utterance; attribution is
// "provider" when the label came from diarization, "inferred" otherwise
func RecordUtterance(attribution string) {
	utterancesTotal.WithLabelValues(attribution).Inc()
}

// RecordAudioBytes records audio bytes forwarded upstream
func RecordAudioBytes(n int) {
	audioBytesReceived.Add(float64(n))
}

// RecordNoteResult records one completed note-generation attempt
func RecordNoteResult(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	noteRequests.WithLabelValues(status).Inc()
	noteLatency.Observe(latency.Seconds())
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
