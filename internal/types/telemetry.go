package types

// Telemetry metric names for CloudWatch.
const (
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"

	DimResult = "Result"
	DimSource = "EventSource"

	// DefaultMetricNamespace is used when METRIC_NAMESPACE is unset.
	DefaultMetricNamespace = "ZabbixRelay"
)
