package pipeline

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/windowkeeper/internal/types"
)

// Processor turns a rule fragment into the snapshot to emit.
type Processor interface {
	Process(ctx context.Context, fragment types.RuleWithConditions) (types.RuleWithConditions, error)
}

// Emitter hands snapshots downstream. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, snapshot types.RuleWithConditions) error
}

// Dispatcher shards rule fragments onto a fixed set of workers by rule id.
//
// Every condition key belongs to exactly one rule, so one rule id always
// landing on the same worker gives each key a single writer. Workers run in
// parallel; within a worker fragments are processed in input order.
type Dispatcher struct {
	workers   int
	processor Processor
	emitter   Emitter
}

// NewDispatcher creates a dispatcher with workers goroutines per batch.
// workers below 1 is treated as 1.
func NewDispatcher(workers int, processor Processor, emitter Emitter) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{workers: workers, processor: processor, emitter: emitter}
}

// Shard returns the worker index for ruleID.
func (d *Dispatcher) Shard(ruleID types.RuleID) int {
	return int(xxhash.Sum64String(string(ruleID)) % uint64(d.workers))
}

// Run processes and emits one batch. The first error cancels the remaining
// work of the batch and is returned.
func (d *Dispatcher) Run(ctx context.Context, fragments []types.RuleWithConditions) error {
	start := time.Now()
	defer func() { BatchDuration.Observe(time.Since(start).Seconds()) }()

	shards := make([][]types.RuleWithConditions, d.workers)
	for _, f := range fragments {
		i := d.Shard(f.RuleID)
		shards[i] = append(shards[i], f)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		shard := shard
		g.Go(func() error {
			for _, f := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				snapshot, err := d.processor.Process(gctx, f)
				if err != nil {
					return err
				}
				if err := d.emitter.Emit(gctx, snapshot); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
