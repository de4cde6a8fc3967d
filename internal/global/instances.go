package global

import "github.com/pixbatch/image-converter/internal/instance"

type Instances struct {
	Prometheus instance.Prometheus
}
