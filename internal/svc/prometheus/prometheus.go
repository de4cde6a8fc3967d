package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pixbatch/image-converter/internal/instance"
)

type Options struct {
	Labels prometheus.Labels
}

func copyLabels(p prometheus.Labels) prometheus.Labels {
	x := prometheus.Labels{}
	for k, v := range p {
		x[k] = v
	}

	return x
}

func New(o Options) instance.Prometheus {
	totalSuccessfulJobs := copyLabels(o.Labels)
	totalFailedJobs := copyLabels(o.Labels)
	currentJobs := copyLabels(o.Labels)
	jobDurationSeconds := copyLabels(o.Labels)
	totalBytesRead := copyLabels(o.Labels)
	totalBytesWritten := copyLabels(o.Labels)
	totalPixelsProcessed := copyLabels(o.Labels)
	decodeImageDuration := copyLabels(o.Labels)
	detectLetterboxDuration := copyLabels(o.Labels)
	transformImageDuration := copyLabels(o.Labels)
	encodeImageDuration := copyLabels(o.Labels)
	writeOutputDuration := copyLabels(o.Labels)

	totalSuccessfulJobs["state"] = "successful"
	totalFailedJobs["state"] = "failed"

	totalBytesRead["state"] = "read"
	totalBytesWritten["state"] = "written"

	m := &Instance{
		registry: prometheus.NewRegistry(),
		totalSuccessfulJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_converter",
			Name:        "total_jobs",
			Help:        "The total number of jobs processed",
			ConstLabels: totalSuccessfulJobs,
		}),
		totalFailedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_converter",
			Name:        "total_jobs",
			Help:        "The total number of jobs processed",
			ConstLabels: totalFailedJobs,
		}),
		currentJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "image_converter",
			Name:        "current_jobs",
			Help:        "The current number of running jobs",
			ConstLabels: currentJobs,
		}),
		jobDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "job_duration_seconds",
			Help:        "The seconds spent running jobs",
			ConstLabels: jobDurationSeconds,
		}),
		decodeImageDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "decode_image_duration_seconds",
			Help:        "The seconds spent decoding source images",
			ConstLabels: decodeImageDuration,
		}),
		detectLetterboxDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "detect_letterbox_duration_seconds",
			Help:        "The seconds spent scanning for letterbox bars",
			ConstLabels: detectLetterboxDuration,
		}),
		transformImageDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "transform_image_duration_seconds",
			Help:        "The seconds spent on aspect and resolution transforms",
			ConstLabels: transformImageDuration,
		}),
		encodeImageDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "encode_image_duration_seconds",
			Help:        "The seconds spent encoding outputs",
			ConstLabels: encodeImageDuration,
		}),
		writeOutputDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_converter",
			Name:        "write_output_duration_seconds",
			Help:        "The seconds spent writing outputs to disk",
			ConstLabels: writeOutputDuration,
		}),
		totalBytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_converter",
			Name:        "total_bytes",
			Help:        "The total number of bytes handled",
			ConstLabels: totalBytesRead,
		}),
		totalBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_converter",
			Name:        "total_bytes",
			Help:        "The total number of bytes handled",
			ConstLabels: totalBytesWritten,
		}),
		totalPixelsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_converter",
			Name:        "total_pixels",
			Help:        "The total number of pixels processed",
			ConstLabels: totalPixelsProcessed,
		}),
	}

	m.registry.MustRegister(collectors.NewGoCollector())
	m.Register(m.registry)

	return m
}

type Instance struct {
	registry *prometheus.Registry

	totalSuccessfulJobs prometheus.Counter
	totalFailedJobs     prometheus.Counter
	currentJobs         prometheus.Gauge
	jobDurationSeconds  prometheus.Histogram

	decodeImageDurationSeconds     prometheus.Histogram
	detectLetterboxDurationSeconds prometheus.Histogram
	transformImageDurationSeconds  prometheus.Histogram
	encodeImageDurationSeconds     prometheus.Histogram
	writeOutputDurationSeconds     prometheus.Histogram

	totalBytesRead       prometheus.Counter
	totalBytesWritten    prometheus.Counter
	totalPixelsProcessed prometheus.Counter
}

func (m *Instance) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.currentJobs,
		m.jobDurationSeconds,
		m.totalFailedJobs,
		m.totalSuccessfulJobs,

		m.decodeImageDurationSeconds,
		m.detectLetterboxDurationSeconds,
		m.transformImageDurationSeconds,
		m.encodeImageDurationSeconds,
		m.writeOutputDurationSeconds,

		m.totalBytesRead,
		m.totalBytesWritten,
		m.totalPixelsProcessed,
	)
}

func (m *Instance) StartJob() func(success bool) {
	start := time.Now()
	m.currentJobs.Inc()

	return func(success bool) {
		if success {
			m.totalSuccessfulJobs.Inc()
		} else {
			m.totalFailedJobs.Inc()
		}
		m.currentJobs.Dec()
		m.jobDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func observe(h prometheus.Histogram) func() {
	start := time.Now()

	return func() {
		h.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) DecodeImage() func() {
	return observe(m.decodeImageDurationSeconds)
}

func (m *Instance) DetectLetterbox() func() {
	return observe(m.detectLetterboxDurationSeconds)
}

func (m *Instance) TransformImage() func() {
	return observe(m.transformImageDurationSeconds)
}

func (m *Instance) EncodeImage() func() {
	return observe(m.encodeImageDurationSeconds)
}

func (m *Instance) WriteOutput() func() {
	return observe(m.writeOutputDurationSeconds)
}

func (m *Instance) TotalPixelsProcessed(pixels int) {
	m.totalPixelsProcessed.Add(float64(pixels))
}

func (m *Instance) TotalBytesRead(bytes int) {
	m.totalBytesRead.Add(float64(bytes))
}

func (m *Instance) TotalBytesWritten(bytes int) {
	m.totalBytesWritten.Add(float64(bytes))
}
