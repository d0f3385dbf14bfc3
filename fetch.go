package imagepipeline

import (
	"context"
	"sync"
	"time"

	"github.com/joeycumines/imagepipeline/internal/coordinator"
)

// fetchOriginalData is the Operation for the [DataTask] subtask (spec §2's
// FetchOriginalData): resolve req's original bytes from the disk cache, or
// by fetching, and return them without decoding. Keyed only by source, so
// it coalesces across requests that differ only in processors or
// thumbnail options.
func (p *Pipeline) fetchOriginalData(req Request) coordinator.Operation {
	return func(ctx context.Context, _ *coordinator.Subtask, emit func(coordinator.Event)) {
		key := dataOriginalKey(req)

		if data, ok := p.cache.getDisk(ctx, req, key); ok {
			emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: ImageContainer{Data: data}, cacheType: CacheTypeDisk}})
			return
		}

		if req.Options.Has(ReturnCacheDataDontLoad) {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: &ErrDataMissingInCache{Key: key}})
			return
		}

		outcome := p.runDataLoadQueued(ctx, req, key, func(cumulative []byte, meta DataLoaderMetadata) {
			emit(coordinator.Event{Kind: coordinator.EventProgress, Progress: int64(len(cumulative)), Total: meta.ExpectedContentLength})
		})
		if outcome.err != nil {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: outcome.err})
			return
		}

		if ctx.Err() == nil && !isLocalSource(req) && p.cfg.DataCachePolicy.shouldStoreOriginal(len(req.Processors) > 0) {
			p.cache.putDisk(ctx, req, key, outcome.data)
		}

		emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: ImageContainer{Data: outcome.data}, cacheType: CacheTypeNone}})
	}
}

// loadOutcome is the final state of one runDataLoad call.
type loadOutcome struct {
	data []byte
	meta DataLoaderMetadata
	err  error
}

// runDataLoadQueued runs runDataLoad through the data-loading work queue
// (spec §4.4's bounded data-loading concurrency), unless req opts out via
// [SkipDataLoadingQueue].
func (p *Pipeline) runDataLoadQueued(ctx context.Context, req Request, key string, onBytes func(cumulative []byte, meta DataLoaderMetadata)) loadOutcome {
	if req.Options.Has(SkipDataLoadingQueue) {
		return p.runDataLoad(ctx, req, key, onBytes)
	}
	var outcome loadOutcome
	submitAndWait(p.dataLoadingQueue, int32(req.Priority), func() {
		outcome = p.runDataLoad(ctx, req, key, onBytes)
	})
	return outcome
}

// runDataLoad drives a single [DataLoader] fetch for req/key to completion,
// honoring the rate limiter (spec §4.8), resumable-data recovery (spec
// §4.7), and forwarding cumulative bytes to onBytes as they arrive so a
// caller decoding progressively can feed a [Decoder] without waiting for
// completion. onBytes is never called concurrently with itself.
func (p *Pipeline) runDataLoad(ctx context.Context, req Request, key string, onBytes func(cumulative []byte, meta DataLoaderMetadata)) loadOutcome {
	if p.cfg.IsRateLimiterEnabled && !req.Options.Has(SkipDataLoadingQueue) {
		if err := p.waitForRateLimiter(ctx); err != nil {
			return loadOutcome{err: err}
		}
	}

	var resume *ResumeInfo
	var priorBytes []byte
	if p.cfg.IsResumableDataEnabled {
		if e, ok := p.resumable.Resume(key); ok {
			resume = &ResumeInfo{Validator: e.Validator, Offset: int64(len(e.Data))}
			priorBytes = e.Data
		}
	}

	dlReq := DataLoaderRequest{Key: key, Request: req, Priority: req.Priority, Resume: resume}

	var (
		mu        sync.Mutex
		buf       = append([]byte(nil), priorBytes...)
		lastMeta  DataLoaderMetadata
		completed bool
		resultErr error
	)
	done := make(chan struct{})

	cancel := p.cfg.DataLoader.Load(ctx, dlReq,
		func(chunk []byte, meta DataLoaderMetadata) {
			mu.Lock()
			buf = append(buf, chunk...)
			lastMeta = meta
			snapshot := append([]byte(nil), buf...)
			mu.Unlock()
			if onBytes != nil {
				onBytes(snapshot, meta)
			}
		},
		func(err error) {
			mu.Lock()
			resultErr = err
			completed = true
			mu.Unlock()
			close(done)
		},
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if cancel != nil {
				cancel()
			}
		case <-stop:
		}
	}()

	<-done

	mu.Lock()
	defer mu.Unlock()

	if resultErr != nil {
		if p.cfg.IsResumableDataEnabled && lastMeta.AcceptsRanges && (lastMeta.ETag != "" || lastMeta.LastModified != "") && len(buf) > 0 {
			validator := lastMeta.ETag
			if validator == "" {
				validator = lastMeta.LastModified
			}
			p.resumable.Save(key, validator, buf)
		}
		if ctx.Err() != nil {
			return loadOutcome{err: &ErrCancelled{Reason: "data loading"}}
		}
		return loadOutcome{err: &ErrDataLoadingFailed{Cause: resultErr}}
	}
	if !completed {
		return loadOutcome{err: &ErrCancelled{Reason: "data loading"}}
	}
	if len(buf) == 0 {
		return loadOutcome{err: &ErrDataIsEmpty{}}
	}
	return loadOutcome{data: buf, meta: lastMeta}
}

// waitForRateLimiter blocks until the pipeline's rate limiter admits a new
// data-loading start, or ctx is done.
func (p *Pipeline) waitForRateLimiter(ctx context.Context) error {
	for {
		next, ok := p.rateLimiter.Allow()
		if ok {
			return nil
		}
		wait := time.Until(next)
		if wait <= 0 {
			continue
		}
		logDebug(p.cfg.Logger, "rate limited", f("category", "ratelimit"), f("wait", wait.String()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ErrCancelled{Reason: "rate limited"}
		case <-timer.C:
		}
	}
}
