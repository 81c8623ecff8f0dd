package metrics

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Payment link metric names
const (
	MetricNameLinkOperationsTotal   = "payment_link_operations_total"
	MetricNameLinkOperationDuration = "payment_link_operation_duration_seconds"
	MetricNameGenerationsInFlight   = "payment_link_generations_in_flight"
	MetricNameEventsPublished       = "record_events_published_total"
)

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Payment link metric help text
const (
	HelpTextLinkOperationsTotal   = "Total number of payment link operations by outcome"
	HelpTextLinkOperationDuration = "Payment link backend call latency in seconds"
	HelpTextGenerationsInFlight   = "Current number of payment link generations awaiting the backend"
	HelpTextEventsPublished       = "Total number of record change events published"
)

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelType      = "type"
)

// Operation label values
const (
	OperationGenerate = "generate"
	OperationRefresh  = "refresh"
)

// Outcome label values
const (
	OutcomeSuccess     = "success"
	OutcomeDomainError = "domain_error"
	OutcomeTransport   = "transport_error"
)

// HTTPLatencyBuckets are histogram buckets for request latency in seconds
var HTTPLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
