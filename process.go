package imagepipeline

import (
	"context"

	"github.com/joeycumines/imagepipeline/internal/cachekey"
	"github.com/joeycumines/imagepipeline/internal/coordinator"
)

// fetchProcessedImage is the Operation for the subtask that applies
// req.Processors[:n] (spec §2's FetchProcessedImage(n)): each n is an
// independently keyed, independently coalescing subtask, so two requests
// that share a processor prefix reuse the same intermediate result even if
// their full chains diverge after step n (spec §4.6). n must be >= 1; n ==
// 0 is the decoded-original subtask, not this one.
func (p *Pipeline) fetchProcessedImage(req Request, n int) coordinator.Operation {
	return func(ctx context.Context, self *coordinator.Subtask, emit func(coordinator.Event)) {
		prefixKeys := dataProcessorPrefixKeys(req)
		finalKey := prefixKeys[n-1]
		hasProcessors := true

		// Only the full chain's key is probed on disk; intermediate prefix
		// keys are never read back.
		var (
			data []byte
			ok   bool
		)
		if n == len(req.Processors) {
			data, ok = p.cache.getDisk(ctx, req, finalKey)
		}
		if ok {
			decoded, err := p.decodeFinal(req, data, DataLoaderMetadata{})
			if err != nil {
				emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
				return
			}
			emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: *decoded, cacheType: CacheTypeDisk}})
			return
		}

		input, inputCacheType, err := p.resolveUpstream(ctx, self, req, n)
		if err != nil {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
			return
		}

		processor := req.Processors[n-1]
		pctx := ProcessingContext{Request: req, IsFinal: true}

		var (
			out    *ImageContainer
			procEr error
		)
		run := func() { out, procEr = processor.Process(ctx, input, pctx) }
		if p.cfg.DebugIsSyncImageEncoding {
			run()
		} else {
			submitAndWait(p.imageProcessingQueue, int32(req.Priority), run)
		}
		if procEr != nil {
			logErr(p.cfg.Logger, "processing failed", procEr, f("category", "process"), f("processor", processor.Identifier()))
			emit(coordinator.Event{Kind: coordinator.EventError, Err: &ErrProcessingFailed{Processor: processor.Identifier(), Cause: procEr}})
			return
		}
		if out == nil {
			logErr(p.cfg.Logger, "processing returned nil", nil, f("category", "process"), f("processor", processor.Identifier()))
			emit(coordinator.Event{Kind: coordinator.EventError, Err: &ErrProcessingFailed{Processor: processor.Identifier()}})
			return
		}

		writeThis := p.cfg.DataCachePolicy.shouldStoreProcessed(hasProcessors) && (n == len(req.Processors) || p.cfg.DataCachePolicy.shouldStoreIntermediates())
		if writeThis && out.Data == nil && p.cfg.ImageEncoder != nil {
			if encoded, encErr := p.cfg.ImageEncoder.Encode(*out); encErr == nil {
				out.Data = encoded
			}
		}

		if writeThis && out.Data != nil && ctx.Err() == nil {
			p.cache.putDisk(ctx, req, finalKey, out.Data)
		}

		p.cache.putMemory(req, imageMemoryKey(reqPrefix(req, n)), *out)

		emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: *out, cacheType: inputCacheType}})
	}
}

// resolveUpstream fetches the input to processing step n: the decoded
// original for n == 1, or the output of step n-1 otherwise, reusing a
// memory-cached or in-flight subtask where task coalescing is enabled.
func (p *Pipeline) resolveUpstream(ctx context.Context, self *coordinator.Subtask, req Request, n int) (ImageContainer, CacheType, error) {
	if n == 1 {
		return p.resolveDecodedOriginal(ctx, self, req)
	}

	prefixKeys := dataProcessorPrefixKeys(req)
	prevReq := reqPrefix(req, n-1)

	if c, ok := p.cache.getMemory(req, imageMemoryKey(prevReq)); ok {
		return c, CacheTypeMemory, nil
	}

	key := coordinator.Key("processed:" + prefixKeys[n-2])
	v, err := p.resolveDependency(ctx, self, key, p.cfg.IsTaskCoalescingEnabled, req.Priority, p.fetchProcessedImage(req, n-1))
	if err != nil {
		return ImageContainer{}, CacheTypeNone, err
	}
	hit := v.(cacheHit)
	return hit.container, hit.cacheType, nil
}

// resolveDecodedOriginal fetches the decoded, unprocessed original, reusing
// the memory cache or an in-flight decode subtask where possible.
func (p *Pipeline) resolveDecodedOriginal(ctx context.Context, self *coordinator.Subtask, req Request) (ImageContainer, CacheType, error) {
	baseReq := reqPrefix(req, 0)
	// The decoded-original subtask only sees the processor-free prefix, so
	// apply the policy's with-processors column to its original-data write
	// here.
	if len(req.Processors) > 0 && !p.cfg.DataCachePolicy.shouldStoreOriginal(true) {
		baseReq.Options |= DisableDiskCacheWrites
	}

	if c, ok := p.cache.getMemory(req, imageMemoryKey(baseReq)); ok {
		return c, CacheTypeMemory, nil
	}

	key := coordinator.Key("decoded:" + cachekey.OriginalData(req.Source.CacheKey()))
	v, err := p.resolveDependency(ctx, self, key, p.cfg.IsTaskCoalescingEnabled, req.Priority, p.fetchDecodedOriginal(baseReq))
	if err != nil {
		return ImageContainer{}, CacheTypeNone, err
	}
	hit := v.(cacheHit)
	return hit.container, hit.cacheType, nil
}

// reqPrefix returns a copy of req truncated to its first k processors, for
// deriving the cache key of an intermediate result. UserInfo (which may
// carry thumbnail options meaningful only to the fully-processed result)
// is dropped unless k covers the whole chain.
func reqPrefix(req Request, k int) Request {
	out := req
	out.Processors = req.Processors[:k]
	if k != len(req.Processors) {
		out.UserInfo = nil
	}
	return out
}

// resolveDependency attaches to the subtask for key, registers it as a
// dependency of self (for priority propagation) when self is non-nil, and
// blocks until the dependency's terminal event arrives or ctx is done
// (spec §5's cancellation-polling contract applies to dependency waits too,
// not just the operation's own scan/processor loops).
func (p *Pipeline) resolveDependency(ctx context.Context, self *coordinator.Subtask, key coordinator.Key, coalesce bool, priority Priority, op coordinator.Operation) (any, error) {
	resultCh := make(chan coordinator.Event, 1)
	st, id := p.coord.Attach(key, coalesce, coordinator.Priority(priority), op, func(ev coordinator.Event) {
		if ev.Kind == coordinator.EventResult || ev.Kind == coordinator.EventError {
			select {
			case resultCh <- ev:
			default:
			}
		}
	})
	if self != nil {
		self.DependsOn(st)
	}
	select {
	case ev := <-resultCh:
		p.coord.Detach(st, id)
		if ev.Kind == coordinator.EventError {
			return nil, ev.Err
		}
		return ev.Value, nil
	case <-ctx.Done():
		p.coord.Detach(st, id)
		return nil, &ErrCancelled{Reason: "waiting on dependency"}
	}
}
