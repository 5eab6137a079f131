package main

import (
	"context"
	"sync"
	"time"

	"carrent/internal/domain/pushtokens"
)

const (
	redeliverEvery  = time.Minute
	redeliverBatch  = 100
	pruneTokenEvery = 24 * time.Hour
)

// startBackgroundJobs runs the periodic jobs until ctx is cancelled. The
// returned function cancels them and waits for the current run to finish.
func (app *application) startBackgroundJobs(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.every(ctx, redeliverEvery, app.redeliverNotifications)
	}()
	go func() {
		defer wg.Done()
		app.every(ctx, pruneTokenEvery, app.pruneStaleTokens)
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// every runs job once immediately and then on each tick.
func (app *application) every(ctx context.Context, interval time.Duration, job func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	job(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

func (app *application) redeliverNotifications(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := app.notifications.Redeliver(ctx, redeliverBatch)
	if err != nil {
		app.logger.Errorw("error redelivering notifications", "error", err)
		return
	}
	if n > 0 {
		app.logger.Infow("notifications redelivered", "count", n)
	}
}

func (app *application) pruneStaleTokens(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := app.store.PushTokens.PruneStaleTokens(ctx, pushtokens.StaleAfter)
	if err != nil {
		app.logger.Errorw("error pruning push tokens", "error", err)
		return
	}
	app.logger.Infow("stale push tokens pruned", "count", n, "at", time.Now().Format(time.RFC1123))
}
