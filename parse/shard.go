package parse

import (
	"context"
	"hash/fnv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skeinlog/skein/record"
)

// ShardedParser consumes a record stream on several goroutines, one Parser
// per shard, routing records by a hash of their task UUID so every task's
// records stay on a single parser. Reconstruction is order independent, so
// sharding by task never changes any task's result.
//
// Completed tasks are delivered to the callback from the shard goroutine
// that finished them; the callback must be safe for concurrent use.
type ShardedParser struct {
	inputs   []chan record.Fields
	group    *errgroup.Group
	mu       sync.Mutex
	closed   bool
	leftover []*Task
}

// NewShardedParser starts shards goroutines consuming routed records and
// invoking complete for every finished task. It stops on the first
// validation error or when ctx is cancelled.
func NewShardedParser(ctx context.Context, shards int, complete func(*Task)) *ShardedParser {
	if shards < 1 {
		shards = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	sp := &ShardedParser{
		inputs: make([]chan record.Fields, shards),
		group:  g,
	}
	for i := range sp.inputs {
		in := make(chan record.Fields, 64)
		sp.inputs[i] = in
		g.Go(func() error {
			parser := NewParser()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case fields, ok := <-in:
					if !ok {
						sp.mu.Lock()
						sp.leftover = append(sp.leftover, parser.IncompleteTasks()...)
						sp.mu.Unlock()
						return nil
					}
					done, err := parser.Add(fields)
					if err != nil {
						return err
					}
					for _, t := range done {
						complete(t)
					}
				}
			}
		})
	}
	return sp
}

// Add routes one record to its shard. It blocks only when the shard's
// buffer is full and returns ctx's error if the group has already failed.
func (sp *ShardedParser) Add(ctx context.Context, fields record.Fields) error {
	uuid, _ := fields[record.TaskUUIDField].(string)
	h := fnv.New32a()
	h.Write([]byte(uuid))
	in := sp.inputs[int(h.Sum32())%len(sp.inputs)]
	select {
	case in <- fields:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream and waits for the shards to drain. It returns the
// tasks left incomplete at end of stream, ordered arbitrarily across
// shards, and the first error any shard hit.
func (sp *ShardedParser) Close() ([]*Task, error) {
	sp.mu.Lock()
	if !sp.closed {
		sp.closed = true
		for _, in := range sp.inputs {
			close(in)
		}
	}
	sp.mu.Unlock()
	err := sp.group.Wait()
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.leftover, err
}
