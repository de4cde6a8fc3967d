package monitoring

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pixbatch/image-converter/internal/global"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// New serves the instance registry over the monitoring bind. A partially
// failed gather still serves whatever collected cleanly, a scrape never takes
// the converter down.
func New(gCtx global.Context) <-chan struct{} {
	done := make(chan struct{})

	registry := gCtx.Inst().Prometheus.Registry()

	srv := fasthttp.Server{
		Handler: fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry:      registry,
			ErrorHandling: promhttp.ContinueOnError,
		})),
		GetOnly:          true,
		DisableKeepalive: true,
	}

	go func() {
		defer close(done)
		zap.S().Infow("Metrics enabled",
			"bind", gCtx.Config().Monitoring.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().Monitoring.Bind); err != nil {
			zap.S().Fatalw("failed to bind metrics",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()

		_ = srv.Shutdown()
	}()

	return done
}
