package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchwise/pkg/metrics"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := metrics.NewManager(
				metrics.WithNamespace("test"),
				metrics.WithSubsystem("unit"),
				metrics.WithHistogramBuckets([]float64{1, 10}),
				metrics.WithPrometheusRegistry(registry),
			)

			Convey("Then every collector is registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "test_unit_"), ShouldBeTrue)
				}
			})
		})

		Convey("When registering the same names twice", func() {
			metrics.NewManager(metrics.WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { metrics.NewManager(metrics.WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When generation attempts are recorded", func() {
			metrics.RecordGeneration("reasons_batch", "workflow", "success", 12)
			metrics.RecordGeneration("reasons_batch", "workflow", "failure", 30)

			Convey("Then both outcomes are exported", func() {
				families, err := metrics.GetRegistry().Gather()
				So(err, ShouldBeNil)
				series := 0
				for _, f := range families {
					if f.GetName() == "matchwise_matching_generation_outcomes_total" {
						series = len(f.GetMetric())
					}
				}
				So(series, ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				metrics.RecordRecommendationsServed("on_demand")
				metrics.RecordCandidatesCollected("profile", 3)
				metrics.RecordCollectLatency(4)
				metrics.RecordEmbeddingBackfill("stored")
				metrics.RecordMessageWritten("FOUND_MATCH")
				metrics.UpdateBreakerState("prompt", 2)
				metrics.RecordTriggerDuplicate()
				metrics.UpdateQueueSize(1)
				metrics.UpdateQueueCapacity(10)
				metrics.UpdateQueueUtilization(0.1)
				metrics.RecordQueueEnqueue()
				metrics.RecordQueueDequeue()
				metrics.RecordQueueEnqueueError()
				metrics.RecordQueueProcessingLatency(1)
				metrics.UpdateWorkerCount(2)
				metrics.RecordWorkerProcessingLatency(8)
				metrics.RecordWorkerError()
				metrics.RecordHTTPRequest("recommendations", "POST", "200")
				metrics.RecordHTTPRequestDuration("recommendations", "POST", "200", 20)
				metrics.RecordErrorByComponent("collector", "scan")
				metrics.RecordErrorByType("client_error", "medium")
				metrics.RecordErrorByEndpoint("recommendations", "POST", "client_error")
				metrics.RecordErrorLatency("http", "client_error", 3)
			}, ShouldNotPanic)
		})
	})
}
