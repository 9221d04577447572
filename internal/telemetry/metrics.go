// Package telemetry emits delivery metrics.
package telemetry

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"zbxrelay/internal/types"
)

// Metrics records the outcome and duration of a delivery.
type Metrics interface {
	RecordDelivery(ctx context.Context, outcome types.DeliveryOutcome)
	RecordLatency(ctx context.Context, d time.Duration)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var (
	_ Metrics = NopMetrics{}
	_ Metrics = (*CloudWatchMetrics)(nil)
)

// NopMetrics discards all metrics.
type NopMetrics struct{}

func (NopMetrics) RecordDelivery(context.Context, types.DeliveryOutcome) {}
func (NopMetrics) RecordLatency(context.Context, time.Duration)         {}

// CloudWatchMetrics publishes delivery metrics to CloudWatch.
//
// Metrics emitted:
//   - DeliveryAttempt: Dims {EventSource, Result}, once per run
//   - DeliveryLatency: Dims {EventSource}, milliseconds
//
// Publishing errors are logged and otherwise ignored.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	source    string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to namespace.
// An empty namespace falls back to the default.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.DefaultMetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		source:    types.EventSourceZabbix,
		logger:    logger,
	}
}

// RecordDelivery emits a DeliveryAttempt count with the outcome as Result.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, outcome types.DeliveryOutcome) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricDeliveryAttempt),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					m.sourceDimension(),
					{
						Name:  aws.String(types.DimResult),
						Value: aws.String(string(outcome)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"result", string(outcome),
		)
	}
}

// RecordLatency emits the end-to-end delivery duration in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, d time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricDeliveryLatency),
				Value:      aws.Float64(float64(d.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{m.sourceDimension()},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record latency metric",
			"error", err.Error(),
			"duration_ms", d.Milliseconds(),
		)
	}
}

func (m *CloudWatchMetrics) sourceDimension() cwtypes.Dimension {
	return cwtypes.Dimension{
		Name:  aws.String(types.DimSource),
		Value: aws.String(m.source),
	}
}
