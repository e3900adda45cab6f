package notify

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"mergington/internal/types"
)

// Metrics records delivery telemetry. Implementations must never fail the
// calling operation; emission errors are logged and swallowed.
type Metrics interface {
	RecordDelivery(ctx context.Context, category types.Category, status types.OutcomeStatus)
	RecordLatency(ctx context.Context, category types.Category, d time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// NoopMetrics discards all telemetry. Used in tests and when metrics are
// disabled by configuration.
type NoopMetrics struct{}

var _ Metrics = (*NoopMetrics)(nil)

func (NoopMetrics) RecordDelivery(context.Context, types.Category, types.OutcomeStatus) {}
func (NoopMetrics) RecordLatency(context.Context, types.Category, time.Duration)        {}
func (NoopMetrics) RecordQueueLag(context.Context, time.Duration)                       {}

// CloudWatchAPI is the subset of the CloudWatch client used for metric
// emission. Satisfied by *cloudwatch.Client and by test fakes.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics publishes delivery counters and latency to CloudWatch
// under a configurable namespace.
type CloudWatchMetrics struct {
	client    CloudWatchAPI
	namespace string
	logger    types.Logger
}

var _ Metrics = (*CloudWatchMetrics)(nil)

func NewCloudWatchMetrics(client CloudWatchAPI, namespace string, logger types.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, category types.Category, status types.OutcomeStatus) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String("NotificationDelivery"),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("Category"), Value: aws.String(string(category))},
			{Name: aws.String("Status"), Value: aws.String(string(status))},
		},
	})
}

func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, category types.Category, d time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String("DeliveryLatency"),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("Category"), Value: aws.String(string(category))},
		},
	})
}

func (m *CloudWatchMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String("QueueLag"),
		Value:      aws.Float64(float64(lag.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, datum cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		m.logger.Warn("metric emission failed",
			"metric", aws.ToString(datum.MetricName),
			"error", err.Error(),
		)
	}
}
