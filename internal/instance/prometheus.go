package instance

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prometheus interface {
	Register(r prometheus.Registerer)
	Registry() *prometheus.Registry

	StartJob() func(success bool)

	DecodeImage() func()
	DetectLetterbox() func()
	TransformImage() func()
	EncodeImage() func()
	WriteOutput() func()

	TotalPixelsProcessed(int)
	TotalBytesRead(int)
	TotalBytesWritten(int)
}
