package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the ranking metrics are registered under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.matchesRecorded.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "aptrank_ranker_matches_recorded_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "aptrank")
				So(manager.subsystem, ShouldEqual, "ranker")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording a match", func() {
			before := value(globalManager.matchesRecorded)
			RecordMatch(16)

			Convey("Then the counter increases by one", func() {
				So(value(globalManager.matchesRecorded), ShouldEqual, before+1)
			})
		})

		Convey("When recording pair selections", func() {
			before := value(globalManager.pairSelections.WithLabelValues("active", "random"))
			RecordPairSelection("active", "random")

			Convey("Then the labelled counter increases", func() {
				So(value(globalManager.pairSelections.WithLabelValues("active", "random")), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateItemCount(12)
			UpdateLedgerLength(40)
			UpdateBreakerState("nominatim", 2)

			Convey("Then the gauges hold the values", func() {
				So(value(globalManager.itemsTotal), ShouldEqual, 12)
				So(value(globalManager.ledgerLength), ShouldEqual, 40)
				So(value(globalManager.breakerState.WithLabelValues("nominatim")), ShouldEqual, 2)
			})
		})

		Convey("When recording collaborator results", func() {
			So(func() {
				RecordPersistenceError("save")
				RecordHTTPRequest("rankings", "GET", "200")
				RecordHTTPRequestDuration("rankings", "GET", "200", 3)
				RecordErrorByEndpoint("pair", "GET", "client_error")
				RecordGeocode("found")
				RecordGeocodeCache(true)
				RecordGeocodeCache(false)
				RecordScrape("ok")
				RecordSheetLoad(true)
				RecordSheetLoad(false)
			}, ShouldNotPanic)

			Convey("Then cache hits and misses are labelled separately", func() {
				So(value(globalManager.geocodeCacheLookups.WithLabelValues("hit")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.geocodeCacheLookups.WithLabelValues("miss")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

// value reads the current value of a single counter or gauge.
func value(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var pb dto.Metric
	if err := (<-ch).Write(&pb); err != nil {
		return -1
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}
