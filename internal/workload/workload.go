// Package workload runs concurrent writers and readers against a
// doublehash.Map and checks what they observed.
package workload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thepudds/doublehash"
)

// ValueFor is the value every writer stores for k, so readers can tell a
// correct value from a torn one.
func ValueFor(k int32) float32 {
	return float32(k) / 1.45
}

// Report is the outcome of Run.
type Report struct {
	Len         int
	ExpectedLen int
	Cap         int
	// Distinct is the number of keys present at the end.
	Distinct int
	// TornReads counts gets that returned something other than ValueFor.
	TornReads int64
	// Missing counts keys that should be present at the end and are not,
	// or have the wrong value.
	Missing int
	// Unexpected counts deleted keys that are still present at the end.
	Unexpected int
	Panics     int64
	Stats      doublehash.Stats
	Elapsed    time.Duration
}

// OK reports whether the run found no problems.
func (r Report) OK() bool {
	return r.Len == r.ExpectedLen && r.TornReads == 0 && r.Missing == 0 && r.Unexpected == 0 && r.Panics == 0
}

func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("len", r.Len)
	enc.AddInt("expectedLen", r.ExpectedLen)
	enc.AddInt("cap", r.Cap)
	enc.AddInt("distinct", r.Distinct)
	enc.AddInt64("tornReads", r.TornReads)
	enc.AddInt("missing", r.Missing)
	enc.AddInt("unexpected", r.Unexpected)
	enc.AddInt64("panics", r.Panics)
	enc.AddInt64("gets", r.Stats.Gets)
	enc.AddInt64("getProbes", r.Stats.GetProbes)
	enc.AddInt64("resizes", r.Stats.Resizes)
	enc.AddInt64("staleResizes", r.Stats.StaleResizes)
	enc.AddInt64("exhaustedGrows", r.Stats.ExhaustedGrows)
	enc.AddInt64("compactions", r.Stats.Compactions)
	enc.AddDuration("elapsed", r.Elapsed)
	return nil
}

// Run executes cfg on a fresh map. Writers and readers are submitted to a
// worker pool of cfg.PoolSize goroutines.
//
// If ctx is cancelled, no further tasks are started, running tasks stop at
// the end of their current round, and Run returns ctx.Err() along with a
// report of what happened so far.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := doublehash.New[float32](
		doublehash.WithCapacity(cfg.InitialCapacity),
		doublehash.WithLogger(logger))

	var (
		torn    atomic.Int64
		panics  atomic.Int64
		wg      sync.WaitGroup
		started = time.Now()
	)

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithPanicHandler(func(v interface{}) {
		panics.Add(1)
		logger.Error("workload task panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return Report{}, errors.Wrap(err, "creating worker pool")
	}
	defer pool.Release()

	writer := func() {
		for r := 0; r < cfg.Rounds && ctx.Err() == nil; r++ {
			for k := cfg.KeyFrom; k < cfg.KeyTo; k++ {
				m.Insert(k, ValueFor(k))
				if cfg.deleted(k) {
					m.Delete(k)
				}
			}
		}
	}
	reader := func() {
		for r := 0; r < cfg.Rounds && ctx.Err() == nil; r++ {
			for k := cfg.KeyFrom; k < cfg.KeyTo; k++ {
				if v, ok := m.Get(k); ok && v != ValueFor(k) {
					torn.Add(1)
					logger.Warn("torn read", zap.Int32("key", k), zap.Float32("got", v))
				}
			}
		}
	}

	tasks := make([]func(), 0, cfg.Writers+cfg.Readers)
	// Interleave so readers overlap with writers even in a small pool.
	for i := 0; i < cfg.Writers || i < cfg.Readers; i++ {
		if i < cfg.Writers {
			tasks = append(tasks, writer)
		}
		if i < cfg.Readers {
			tasks = append(tasks, reader)
		}
	}

	var submitErr error
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		task := task
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			task()
		}); err != nil {
			wg.Done()
			submitErr = errors.Wrap(err, "submitting workload task")
			break
		}
	}
	wg.Wait()

	report := verify(cfg, m)
	report.TornReads = torn.Load()
	report.Panics = panics.Load()
	report.Elapsed = time.Since(started)

	logger.Debug("workload finished", zap.Object("report", report))

	if submitErr != nil {
		return report, submitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// verify checks the final contents of m against cfg.
func verify(cfg Config, m *doublehash.Map[float32]) Report {
	r := Report{
		Len:         m.Len(),
		ExpectedLen: cfg.ExpectedLen(),
		Cap:         m.Cap(),
		Distinct:    len(m.Keys()),
		Stats:       m.Stats(),
	}
	for k := cfg.KeyFrom; k < cfg.KeyTo; k++ {
		v, ok := m.Get(k)
		switch {
		case cfg.deleted(k):
			if ok {
				r.Unexpected++
			}
		case !ok || v != ValueFor(k):
			r.Missing++
		}
	}
	return r
}
