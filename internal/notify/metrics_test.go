package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"mergington/internal/types"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchMetrics_RecordDelivery(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := NewCloudWatchMetrics(fake, "Mergington/Notifications", testLogger{})

	m.RecordDelivery(context.Background(), types.CategorySignupConfirmation, types.StatusSent)

	if len(fake.inputs) != 1 {
		t.Fatalf("PutMetricData calls = %d, want 1", len(fake.inputs))
	}
	input := fake.inputs[0]
	if aws.ToString(input.Namespace) != "Mergington/Notifications" {
		t.Errorf("namespace = %s", aws.ToString(input.Namespace))
	}
	datum := input.MetricData[0]
	if aws.ToString(datum.MetricName) != "NotificationDelivery" {
		t.Errorf("metric = %s", aws.ToString(datum.MetricName))
	}
	if len(datum.Dimensions) != 2 {
		t.Errorf("dimensions = %+v", datum.Dimensions)
	}
}

func TestCloudWatchMetrics_EmissionErrorSwallowed(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("throttled")}
	m := NewCloudWatchMetrics(fake, "Mergington/Notifications", testLogger{})

	// Must not panic or propagate.
	m.RecordLatency(context.Background(), types.CategoryReminders, 250*time.Millisecond)
	m.RecordQueueLag(context.Background(), time.Second)
}
