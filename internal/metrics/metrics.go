// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

var (
	SamplesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "myo_samples_received_total",
		Help: "EMG samples delivered by the band, by pipeline mode.",
	}, []string{"mode"})

	SamplesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myo_samples_dropped_total",
		Help: "EMG samples dropped because the sample queue was full or the stream was stopping.",
	})

	RecordsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myo_records_appended_total",
		Help: "Labeled training records appended during collection.",
	})

	SampleErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "myo_sample_errors_total",
		Help: "Per-sample failures isolated by the pipeline, by stage.",
	}, []string{"stage"})

	DatagramsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myo_datagrams_sent_total",
		Help: "Landmark datagrams handed to the network.",
	})

	DatagramErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myo_datagram_errors_total",
		Help: "Landmark datagrams that failed to send and were dropped.",
	})

	InferenceSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "myo_inference_seconds",
		Help:    "Time spent scaling, predicting and formatting one sample.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	StreamStalls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myo_stream_stalls_total",
		Help: "Times the EMG stream went silent for longer than the stall timeout.",
	})
)

func init() {
	prometheus.MustRegister(
		SamplesReceived,
		SamplesDropped,
		RecordsAppended,
		SampleErrors,
		DatagramsSent,
		DatagramErrors,
		InferenceSeconds,
		StreamStalls,
	)
}

// Serve starts a /metrics endpoint on addr in the background.
// The returned server should be shut down by the caller.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		klog.Infof("metrics: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.Errorf("metrics: server error: %v", err)
		}
	}()
	return srv
}
