package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/pixbatch/image-converter/internal/batch"
	"github.com/pixbatch/image-converter/internal/configure"
	"github.com/pixbatch/image-converter/internal/global"
	"github.com/pixbatch/image-converter/internal/health"
	"github.com/pixbatch/image-converter/internal/monitoring"
	"github.com/pixbatch/image-converter/internal/svc/prometheus"
	"github.com/pixbatch/image-converter/job"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Error("panic: ", s)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler: ",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		zap.S().Info("Batch Image Converter")
		zap.S().Infof("Version: %s", Version)
		zap.S().Infof("build.Time: %s", Time)
		zap.S().Infof("build.User: %s", User)
	}

	zap.S().Debug("MaxProcs: ", runtime.GOMAXPROCS(0))

	inputs := pflag.Args()
	if len(inputs) == 0 {
		zap.S().Fatal("no input files, usage: image-converter [flags] file...")
	}

	opts, policy := batchOptions(config)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))
	gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
		Labels: config.Monitoring.Labels.ToPrometheus(),
	})

	wg := sync.WaitGroup{}

	if gCtx.Config().Health.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-health.New(gCtx)
		}()
	}
	if gCtx.Config().Monitoring.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-monitoring.New(gCtx)
		}()
	}

	go func() {
		<-sig
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			zap.S().Fatal("force shutdown")
		}()

		zap.S().Info("shutting down")
	}()

	code := run(gCtx, opts, policy, inputs)

	cancel()
	wg.Wait()

	os.Exit(code)
}

func run(gCtx global.Context, opts batch.Options, policy batch.CollisionPolicy, inputs []string) int {
	b := batch.New(opts)

	collisions, err := b.Scan(inputs)
	if err != nil {
		zap.S().Errorw("failed to scan batch",
			"error", err,
		)

		return 2
	}

	if len(collisions) > 0 {
		zap.S().Infow("existing outputs collide",
			"count", len(collisions),
			"policy", policy.String(),
		)

		if err := b.ResolvePolicy(policy); err != nil {
			zap.S().Infow("batch cancelled, no files were touched",
				"error", err,
			)

			return 2
		}
	}

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for p := range b.Progress() {
			zap.S().Infow("progress",
				"processed", p.Processed,
				"total", p.Total,
				"file", p.CurrentFile,
			)
		}
	}()

	result, err := b.Convert(gCtx)
	if err != nil {
		zap.S().Errorw("batch failed",
			"error", err,
		)

		return 2
	}

	<-progressDone

	zap.S().Infof("converted %d of %d files in %s",
		result.Succeeded,
		result.Succeeded+result.Failed,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)

	for _, f := range result.Failures {
		zap.S().Warnf("%s: %s: %s", f.SourcePath, f.Kind, f.Message)
	}

	if result.Failed > 0 {
		return 1
	}

	return 0
}

func batchOptions(config *configure.Config) (batch.Options, batch.CollisionPolicy) {
	format, err := job.ParseFormat(config.Output.Format)
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}

	aspect, err := job.ParseAspect(config.Convert.Aspect)
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}

	mode, err := job.ParseScalingMode(config.Convert.Mode)
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}

	policy, err := batch.ParseCollisionPolicy(config.Output.Collision)
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}

	if config.Convert.Resolution < 0 {
		zap.S().Fatalw("config",
			"error", "convert.resolution must not be negative",
		)
	}

	return batch.Options{
		OutputDir: config.Output.Dir,
		Format:    format,
		Quality:   config.Output.Quality,
		Aspect:    aspect,
		Mode:      mode,
		Anchor: job.AnchorPoint{
			X: config.Convert.AnchorX,
			Y: config.Convert.AnchorY,
		}.Clamped(),
		Resolution:      job.ResolutionSpec(config.Convert.Resolution),
		RemoveLetterbox: config.Convert.RemoveLetterbox,
		Jobs:            config.Worker.Jobs,
	}, policy
}
