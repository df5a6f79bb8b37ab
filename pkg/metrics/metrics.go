package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global collectors, registered on the default registry through promauto.

var (
	// TrainingSteps counts Update calls per run.
	TrainingSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorsom_training_steps_total",
			Help: "Total number of training steps applied to the lattice",
		},
		[]string{"run"},
	)

	// NeighborhoodRadius is the radius used by the latest step of a run.
	NeighborhoodRadius = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsom_neighborhood_radius",
			Help: "Neighborhood radius at the current training step",
		},
		[]string{"run"},
	)

	// LearningRate is the learning rate used by the latest step of a run.
	LearningRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsom_learning_rate",
			Help: "Learning rate at the current training step",
		},
		[]string{"run"},
	)

	// QuantizationError is the mean sample-to-BMU distance, sampled at progress checkpoints.
	QuantizationError = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsom_quantization_error",
			Help: "Mean distance between the samples and their best-matching units",
		},
		[]string{"run"},
	)

	// FrameDrift is the mean per-node distance between the last two recorded frames.
	FrameDrift = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kektorsom_frame_drift",
			Help: "Mean node movement between consecutive recorded frames",
		},
		[]string{"run"},
	)

	// UpdateDuration measures a single Update call.
	// Buckets go from a small lattice (microseconds) to a very large one.
	UpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kektorsom_update_duration_seconds",
			Help:    "Duration of a single training step in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	// ActiveRuns tracks runs currently training.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kektorsom_active_runs",
			Help: "Number of training runs in progress",
		},
	)

	// HttpRequestsTotal counts HTTP requests, labeled by method, path, and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kektorsom_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kektorsom_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)
)

// ForgetRun drops the per-run series once a run is no longer tracked.
func ForgetRun(run string) {
	TrainingSteps.DeleteLabelValues(run)
	NeighborhoodRadius.DeleteLabelValues(run)
	LearningRate.DeleteLabelValues(run)
	QuantizationError.DeleteLabelValues(run)
	FrameDrift.DeleteLabelValues(run)
}
