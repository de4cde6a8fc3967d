// Package batch sequences per-file conversions: collision screening, policy
// resolution, a bounded worker pool and progress reporting. A failing job is
// recorded and never aborts its siblings; cancelling at the collision prompt
// is the only batch-wide fatal condition.
package batch

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixbatch/image-converter/internal/global"
	"github.com/pixbatch/image-converter/job"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type State int32

const (
	StateIdle State = iota
	StateScanning
	StateAwaitingPolicy
	StateConverting
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateAwaitingPolicy:
		return "AWAITING_POLICY"
	case StateConverting:
		return "CONVERTING"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN STATE %d", s)
	}
}

// Options is the full per-batch configuration. Anchors optionally overrides
// the fill anchor per source path.
type Options struct {
	OutputDir       string
	Format          job.Format
	Quality         float64
	Aspect          job.AspectSpec
	Mode            job.ScalingMode
	Anchor          job.AnchorPoint
	Anchors         map[string]job.AnchorPoint
	Resolution      job.ResolutionSpec
	RemoveLetterbox bool
	Jobs            int
}

type Batch struct {
	opts Options
	id   string

	mtx       sync.Mutex
	state     State
	fresh     []job.Job
	colliding []job.Job
	queued    []job.Job
	claimed   map[string]bool
	progress  chan job.Progress
}

func New(opts Options) *Batch {
	return &Batch{
		opts:    opts,
		id:      uuid.New().String(),
		state:   StateIdle,
		claimed: map[string]bool{},
	}
}

func (b *Batch) ID() string {
	return b.id
}

func (b *Batch) State() State {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return b.state
}

// Scan builds one immutable job per input and classifies the proposed
// outputs against files already on disk. It returns the source paths whose
// outputs collide; when collisions exist ResolvePolicy must run before
// Convert. Two inputs mapping to the same output name are disambiguated
// immediately with versioned names.
func (b *Batch) Scan(inputs []string) ([]string, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.state != StateIdle {
		return nil, fmt.Errorf("cannot scan from state %s", b.state)
	}

	b.state = StateScanning

	jobs := make([]job.Job, 0, len(inputs))
	proposed := map[string]bool{}

	for _, input := range inputs {
		anchor := b.opts.Anchor
		if a, ok := b.opts.Anchors[input]; ok {
			anchor = a
		}

		out := b.outputPath(input)
		if proposed[out] {
			out = versionedPath(out, func(cand string) bool {
				return proposed[cand]
			})
		}
		proposed[out] = true

		jobs = append(jobs, job.Job{
			ID:              uuid.New().String(),
			SourcePath:      input,
			OutputPath:      out,
			Aspect:          b.opts.Aspect,
			Mode:            b.opts.Mode,
			Anchor:          anchor,
			Resolution:      b.opts.Resolution,
			Format:          b.opts.Format,
			Quality:         b.opts.Quality,
			RemoveLetterbox: b.opts.RemoveLetterbox,
		})
	}

	b.fresh, b.colliding = Partition(jobs)
	b.progress = make(chan job.Progress, len(jobs)+1)

	for _, j := range b.fresh {
		b.claimed[j.OutputPath] = true
	}

	zap.S().Debugw("scanned batch",
		"batch_id", b.id,
		"fresh", len(b.fresh),
		"colliding", len(b.colliding),
	)

	if len(b.colliding) == 0 {
		b.queued = b.fresh

		return nil, nil
	}

	b.state = StateAwaitingPolicy

	sources := make([]string, 0, len(b.colliding))
	for _, j := range b.colliding {
		sources = append(sources, j.SourcePath)
	}

	return sources, nil
}

// ResolvePolicy applies one collision policy uniformly to the whole
// colliding set. PolicyCancel cancels the batch with zero side effects and
// returns ErrCollisionCancelled.
func (b *Batch) ResolvePolicy(policy CollisionPolicy) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.state != StateAwaitingPolicy {
		return fmt.Errorf("no collisions awaiting policy in state %s", b.state)
	}

	if policy == PolicyCancel {
		b.state = StateCancelled
		close(b.progress)

		return ErrCollisionCancelled
	}

	resolved, err := Resolve(b.colliding, policy, b.claimed)
	if err != nil {
		return err
	}

	b.queued = append(b.fresh, resolved...)
	b.state = StateScanning

	zap.S().Infow("collision policy applied",
		"batch_id", b.id,
		"policy", policy.String(),
		"jobs", len(b.queued),
	)

	return nil
}

// Progress returns the event stream for the conversion. The channel exists
// once Scan has succeeded, is buffered for the whole batch so conversion
// never blocks on a slow consumer, and is closed when the batch completes or
// is cancelled at the collision prompt.
func (b *Batch) Progress() <-chan job.Progress {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	return b.progress
}

// Convert runs every queued job on a bounded worker pool and aggregates the
// outcome. Cancellation of ctx is cooperative, checked between jobs; jobs
// already picked up run to completion.
func (b *Batch) Convert(ctx global.Context) (job.BatchResult, error) {
	b.mtx.Lock()

	switch b.state {
	case StateScanning:
	case StateAwaitingPolicy:
		b.mtx.Unlock()

		return job.BatchResult{}, fmt.Errorf("collision policy not resolved")
	default:
		st := b.state
		b.mtx.Unlock()

		return job.BatchResult{}, fmt.Errorf("cannot convert from state %s", st)
	}

	b.state = StateConverting
	jobs := b.queued
	progress := b.progress
	b.mtx.Unlock()

	result := job.BatchResult{
		BatchID:   b.id,
		StartedAt: time.Now(),
	}

	total := len(jobs)

	n := b.opts.Jobs
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > total && total > 0 {
		n = total
	}

	zap.S().Infow("converting",
		"batch_id", b.id,
		"jobs", total,
		"workers", n,
	)

	type outcome struct {
		j   job.Job
		out job.OutputFile
		err error
	}

	queue := make(chan job.Job)
	results := make(chan outcome)

	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			worker := Worker{}
			for j := range queue {
				if err := ctx.Err(); err != nil {
					results <- outcome{j: j, err: multierr.Append(errJobCancelled, err)}
					continue
				}

				out, err := worker.Work(ctx, j)
				results <- outcome{j: j, out: out, err: err}
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			queue <- j
		}
		close(queue)
		wg.Wait()
		close(results)
	}()

	processed := 0
	for o := range results {
		processed++

		if o.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, job.Failure{
				SourcePath: o.j.SourcePath,
				Kind:       classify(o.err),
				Message:    o.err.Error(),
			})

			zap.S().Warnw("job failed",
				"batch_id", b.id,
				"source", o.j.SourcePath,
				"error", o.err,
			)
		} else {
			result.Succeeded++
			result.Outputs = append(result.Outputs, o.out)
		}

		progress <- job.Progress{
			Processed:   processed,
			Total:       total,
			CurrentFile: filepath.Base(o.j.SourcePath),
		}
	}

	close(progress)

	result.FinishedAt = time.Now()

	b.mtx.Lock()
	b.state = StateCompleted
	b.mtx.Unlock()

	return result, nil
}

func (b *Batch) outputPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(b.opts.OutputDir, stem+"."+b.opts.Format.Extension())
}
