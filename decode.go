package imagepipeline

import (
	"context"
	"sync"
	"time"

	"github.com/joeycumines/imagepipeline/internal/coordinator"
	"github.com/joeycumines/imagepipeline/internal/workqueue"
)

// decodeState holds the progressive-decoding back-pressure bookkeeping for
// one in-flight fetchDecodedOriginal operation (spec §4.5): at most one
// preview decode is ever queued at a time, further chunks that arrive
// while a preview decode is running simply replace the bytes that the next
// preview (if any) will use.
type decodeState struct {
	mu          sync.Mutex
	decoder     Decoder
	previewBusy bool
	lastPreview time.Time
	pending     []byte
}

// submitAndWait runs fn on q at priority and blocks the calling goroutine
// until it completes.
func submitAndWait(q *workqueue.Queue, priority int32, fn func()) {
	done := make(chan struct{})
	q.Submit(priority, func() {
		defer close(done)
		fn()
	})
	<-done
}

// fetchDecodedOriginal is the Operation for the "decoded original" subtask
// (spec §2's FetchDecodedOriginal): it resolves the original bytes — from
// disk cache, or by fetching and progressively decoding — and emits the
// final decoded [ImageContainer] as its result, with zero or more preview
// events along the way.
func (p *Pipeline) fetchDecodedOriginal(req Request) coordinator.Operation {
	return func(ctx context.Context, self *coordinator.Subtask, emit func(coordinator.Event)) {
		key := dataOriginalKey(req)

		if data, ok := p.cache.getDisk(ctx, req, key); ok {
			container, err := p.decodeFinal(req, data, DataLoaderMetadata{})
			if err != nil {
				emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
				return
			}
			emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: *container, cacheType: CacheTypeDisk}})
			return
		}

		if req.Options.Has(ReturnCacheDataDontLoad) {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: &ErrDataMissingInCache{Key: key}})
			return
		}

		state := &decodeState{}

		outcome := p.runDataLoadQueued(ctx, req, key, func(cumulative []byte, meta DataLoaderMetadata) {
			if ctx.Err() != nil {
				return
			}
			emit(coordinator.Event{Kind: coordinator.EventProgress, Progress: int64(len(cumulative)), Total: meta.ExpectedContentLength})
			p.maybeDecodePreview(ctx, req, state, cumulative, meta, emit)
		})
		if outcome.err != nil {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: outcome.err})
			return
		}

		if ctx.Err() == nil && !isLocalSource(req) && p.cfg.DataCachePolicy.shouldStoreOriginal(len(req.Processors) > 0) {
			p.cache.putDisk(ctx, req, key, outcome.data)
		}

		container, err := p.decodeFinal(req, outcome.data, outcome.meta)
		if err != nil {
			logErr(p.cfg.Logger, "decode failed", err, f("category", "decode"), f("key", key))
			emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
			return
		}
		emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: *container, cacheType: CacheTypeNone}})
	}
}

// cacheHit wraps a resolved container with the cache tier it came from, so
// dependents can report an accurate [CacheType] without re-deriving it.
type cacheHit struct {
	container ImageContainer
	cacheType CacheType
}

// maybeDecodePreview launches a preview decode for cumulative if progressive
// decoding is enabled and no preview decode is currently running and the
// throttle interval has elapsed; otherwise it records cumulative as
// pending and returns, coalescing the chunks that arrived in between (spec
// §4.5's back-pressure rule).
func (p *Pipeline) maybeDecodePreview(ctx context.Context, req Request, state *decodeState, cumulative []byte, meta DataLoaderMetadata, emit func(coordinator.Event)) {
	if !p.cfg.IsProgressiveDecodingEnabled {
		return
	}

	state.mu.Lock()
	if state.decoder == nil {
		d, err := p.cfg.MakeDecoder.MakeDecoder(DecodingContext{Request: req, PartialData: cumulative, Metadata: meta, URLResponse: true})
		if err != nil || d == nil {
			state.mu.Unlock()
			return
		}
		state.decoder = d
	}
	if state.previewBusy || time.Since(state.lastPreview) < p.cfg.ProgressiveDecodingInterval {
		state.pending = cumulative
		state.mu.Unlock()
		return
	}
	state.previewBusy = true
	decoder := state.decoder
	state.mu.Unlock()

	p.imageDecodingQueue.Submit(int32(req.Priority), func() {
		container, err := decoder.Decode(cumulative, false)

		state.mu.Lock()
		state.previewBusy = false
		state.lastPreview = time.Now()
		state.mu.Unlock()

		if ctx.Err() != nil || err != nil || container == nil {
			// Partial decode failures are silently skipped (spec §4.5).
			return
		}
		logDebug(p.cfg.Logger, "preview decoded", f("category", "decode"), f("bytes", len(cumulative)))
		preview := container.WithIsPreview(true)
		if p.cfg.IsStoringPreviewsInMemoryCache {
			p.cache.putMemory(req, imageMemoryKey(req), preview)
		}
		emit(coordinator.Event{Kind: coordinator.EventPreview, Value: preview})
	})
}

// decodeFinal resolves a decoder for the complete bytes, runs a final
// (non-preview) decode, and, unless req is a thumbnail request or opts out,
// forces eager decompression on the decompressing queue (spec: thumbnails
// decode on the decoding queue and skip decompression).
func (p *Pipeline) decodeFinal(req Request, data []byte, meta DataLoaderMetadata) (*ImageContainer, error) {
	decoder, err := p.cfg.MakeDecoder.MakeDecoder(DecodingContext{Request: req, PartialData: data, Metadata: meta, URLResponse: true, IsCompleted: true})
	if err != nil {
		return nil, &ErrDecodingFailed{Context: "final", Cause: err}
	}
	if decoder == nil {
		return nil, &ErrDecoderNotRegistered{Context: "final"}
	}

	var (
		container *ImageContainer
		decErr    error
	)
	run := func() { container, decErr = decoder.Decode(data, true) }
	if p.cfg.DebugIsSyncImageEncoding {
		run()
	} else {
		submitAndWait(p.imageDecodingQueue, int32(req.Priority), run)
	}
	if decErr != nil {
		return nil, &ErrDecodingFailed{Context: "final", Cause: decErr}
	}
	if container == nil {
		return nil, &ErrDecodingFailed{Context: "final"}
	}
	if container.Data == nil {
		container.Data = data
	}

	if _, isThumbnail := req.UserInfo.Thumbnail(); !isThumbnail {
		if err := p.decompress(req, container); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// decompress runs the configured [Decompressor] over container in place, on
// the decompressing queue, when decompression is enabled for both the
// pipeline and this request.
func (p *Pipeline) decompress(req Request, container *ImageContainer) error {
	if !p.cfg.IsDecompressionEnabled || p.cfg.Decompressor == nil || req.Options.Has(SkipDecompression) {
		return nil
	}
	var (
		out    ImageContainer
		decErr error
	)
	run := func() { out, decErr = p.cfg.Decompressor.Decompress(*container) }
	if p.cfg.DebugIsSyncImageEncoding {
		run()
	} else {
		submitAndWait(p.imageDecompressingQueue, int32(req.Priority), run)
	}
	if decErr != nil {
		return &ErrDecodingFailed{Context: "decompress", Cause: decErr}
	}
	*container = out
	return nil
}
