package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/InfiniteXqz/roblox-rap-updater/adapters"
)

// forEachID runs fn once for every id using at most workers goroutines.
//
// IDs are handed out over an unbuffered channel, so each id is claimed by
// exactly one worker and a worker that finishes early simply pulls the next
// one. After every call the worker pauses for pause, which bounds the
// aggregate request rate to roughly workers/pause.
//
// When ctx is cancelled no further ids are handed out; forEachID waits for
// in-flight calls and returns ctx.Err().
func forEachID(ctx context.Context, ids []EntityID, workers int, pause time.Duration, fn func(context.Context, EntityID)) error {
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan EntityID)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				fn(ctx, id)
				_ = adapters.Pause(ctx, pause)
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
