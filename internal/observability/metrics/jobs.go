package metrics

import (
	"time"

	obserrors "github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/errors"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
	ResultNoop    = "noop"
)

// Poll outcome constants for payment status polls.
const (
	PollPaid         = "paid"
	PollInconclusive = "inconclusive"
	PollFatal        = "fatal"
)

// JobMetric captures details about a job lifecycle transition for metric emission.
type JobMetric struct {
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitPaymentPoll counts a single payment status poll and its outcome.
func EmitPaymentPoll(sink statsd.Sink, outcome string) {
	if sink == nil {
		return
	}
	sink.Count("payment.poll", 1, map[string]string{"outcome": outcome})
}

// EmitWebhookDelivery records the single downstream delivery attempt for a job.
func EmitWebhookDelivery(sink statsd.Sink, result string, duration time.Duration) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": result}
	sink.Count("webhook.delivery", 1, tags)
	if duration > 0 {
		sink.Timing("webhook.duration", duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
