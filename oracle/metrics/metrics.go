package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	Namespace = "flightsurety"

	SubsystemRegistry    = "registry"
	SubsystemCatalog     = "catalog"
	SubsystemCoordinator = "coordinator"
	SubsystemWorker      = "worker"

	LabelResult = "result"
	LabelStatus = "status"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// registry
var (
	OraclesRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRegistry,
			Name:      "oracles",
			Help:      "Number of oracle identities registered at bootstrap.",
		})
	OracleRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRegistry,
			Name:      "registrations_total",
			Help:      "Oracle registration attempts by result.",
		},
		[]string{LabelResult})
)

// catalog
var (
	CatalogsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCatalog,
			Name:      "generated_total",
			Help:      "Number of flight catalogs generated.",
		})
	FlightRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCatalog,
			Name:      "flight_registrations_total",
			Help:      "On-chain flight registrations by result.",
		},
		[]string{LabelResult})
)

// coordinator
var (
	RequestsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCoordinator,
			Name:      "requests_total",
			Help:      "OracleRequest events handled.",
		})
	RequestsDuplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCoordinator,
			Name:      "duplicate_requests_total",
			Help:      "OracleRequest events delivered more than once and skipped.",
		})
	ResponsesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCoordinator,
			Name:      "responses_total",
			Help:      "submitOracleResponse calls by result and status code.",
		},
		[]string{LabelResult, LabelStatus})
	Resubscriptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemCoordinator,
			Name:      "resubscriptions_total",
			Help:      "Times the OracleRequest subscription was re-established.",
		})
)

// worker
var (
	JobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemWorker,
			Name:      "queued_jobs",
			Help:      "Jobs waiting in the worker queue.",
		})
	JobsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemWorker,
			Name:      "dropped_jobs_total",
			Help:      "Jobs dropped because the queue was full.",
		})
)

func init() {
	prometheus.MustRegister(OraclesRegistered)
	prometheus.MustRegister(OracleRegistrations)
	prometheus.MustRegister(CatalogsGenerated)
	prometheus.MustRegister(FlightRegistrations)
	prometheus.MustRegister(RequestsReceived)
	prometheus.MustRegister(RequestsDuplicated)
	prometheus.MustRegister(ResponsesSubmitted)
	prometheus.MustRegister(Resubscriptions)
	prometheus.MustRegister(JobsQueued)
	prometheus.MustRegister(JobsDropped)
}
