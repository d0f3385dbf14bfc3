package imagepipeline

import (
	"context"
	"fmt"

	"github.com/joeycumines/imagepipeline/internal/coordinator"
	"github.com/joeycumines/imagepipeline/internal/ratelimit"
	"github.com/joeycumines/imagepipeline/internal/resumable"
	"github.com/joeycumines/imagepipeline/internal/workqueue"
)

// Pipeline is the entry point for submitting image and data requests (spec
// §2). Construct with [NewPipeline]. A Pipeline is safe for concurrent use
// from multiple goroutines, and stays usable until [Pipeline.Invalidate] is
// called.
type Pipeline struct {
	cfg Config

	cache       *cacheLayer
	coord       *coordinator.Coordinator
	rateLimiter *ratelimit.Limiter
	resumable   *resumable.Store

	dataLoadingQueue        *workqueue.Queue
	imageDecodingQueue      *workqueue.Queue
	imageProcessingQueue    *workqueue.Queue
	imageDecompressingQueue *workqueue.Queue
}

// NewPipeline constructs a Pipeline from cfg. DataCache, ImageCache,
// DataLoader and MakeDecoder are required; NewPipeline returns an error if
// any is missing.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.DataCache == nil {
		return nil, fmt.Errorf("imagepipeline: Config.DataCache is required")
	}
	if cfg.ImageCache == nil {
		return nil, fmt.Errorf("imagepipeline: Config.ImageCache is required")
	}
	if cfg.DataLoader == nil {
		return nil, fmt.Errorf("imagepipeline: Config.DataLoader is required")
	}
	if cfg.MakeDecoder == nil {
		return nil, fmt.Errorf("imagepipeline: Config.MakeDecoder is required")
	}

	p := &Pipeline{
		cfg:                     cfg,
		cache:                   newCacheLayer(cfg),
		coord:                   coordinator.New(),
		resumable:               &resumable.Store{},
		dataLoadingQueue:        workqueue.New(cfg.DataLoadingQueueConcurrency),
		imageDecodingQueue:      workqueue.New(cfg.ImageDecodingQueueConcurrency),
		imageProcessingQueue:    workqueue.New(cfg.ImageProcessingQueueConcurrency),
		imageDecompressingQueue: workqueue.New(cfg.ImageDecompressingQueueConcurrency),
	}
	if cfg.IsRateLimiterEnabled {
		p.rateLimiter = ratelimit.New(cfg.RateLimiterCapacity, cfg.RateLimiterRefillPerSecond)
	}

	logInfo(cfg.Logger, "pipeline started",
		f("category", "subtask"),
		f("dataCachePolicy", cfg.DataCachePolicy.String()),
		f("isProgressiveDecodingEnabled", cfg.IsProgressiveDecodingEnabled),
		f("isTaskCoalescingEnabled", cfg.IsTaskCoalescingEnabled),
	)

	return p, nil
}

// ImageTask submits req for decoding (and, if req has processors,
// processing) and returns a handle to its event stream (spec §4.2). Two
// requests that are coalescing-equivalent (spec §3) share the underlying
// work.
func (p *Pipeline) ImageTask(req Request) *ImageTask {
	key := imageTaskKey(req)
	op := p.imageTaskOperation(req)
	h := p.newTaskHandle(req, key, p.cfg.IsTaskCoalescingEnabled, op, wrapImageEvent(req))
	logDebug(p.cfg.Logger, "image task attached", f("category", "subtask"), f("key", string(key)))
	return &ImageTask{h: h}
}

// DataTask submits req for raw-byte resolution without decoding, and
// returns a handle to its event stream.
func (p *Pipeline) DataTask(req Request) *DataTask {
	key := coordinator.Key(fmt.Sprintf("data:opts=%d:%s", req.coalesceKey().options, dataOriginalKey(req)))
	op := p.dataTaskOperation(req)
	h := p.newTaskHandle(req, key, p.cfg.IsTaskCoalescingEnabled, op, wrapDataEvent(req))
	logDebug(p.cfg.Logger, "data task attached", f("category", "subtask"), f("key", string(key)))
	return &DataTask{h: h}
}

// Invalidate permanently invalidates the pipeline (spec §5): every live
// task receives [ErrPipelineInvalidated], and every future task submission
// fails the same way. Not resettable.
func (p *Pipeline) Invalidate() {
	logWarn(p.cfg.Logger, "pipeline invalidated", f("category", "subtask"))
	p.coord.Invalidate(&ErrPipelineInvalidated{})
}

// imageTaskKey derives the top-level coordinator key for an image request:
// req.coalesceKey's cache-affecting option bits (spec §3), combined with
// imageMemoryKey's processor-chain and thumbnail/scale suffix, so that only
// fully coalescing-equivalent requests share a subtask.
func imageTaskKey(req Request) coordinator.Key {
	return coordinator.Key(fmt.Sprintf("image:opts=%d:%s", req.coalesceKey().options, imageMemoryKey(req)))
}

func (p *Pipeline) imageTaskOperation(req Request) coordinator.Operation {
	return func(ctx context.Context, self *coordinator.Subtask, emit func(coordinator.Event)) {
		memKey := imageMemoryKey(req)
		if c, ok := p.cache.getMemory(req, memKey); ok {
			emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: c, cacheType: CacheTypeMemory}})
			return
		}

		finalKey := dataFinalKey(req)
		if data, ok := p.cache.getDisk(ctx, req, finalKey); ok {
			container, err := p.decodeFinal(req, data, DataLoaderMetadata{})
			if err != nil {
				emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
				return
			}
			p.cache.putMemory(req, memKey, *container)
			emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: *container, cacheType: CacheTypeDisk}})
			return
		}

		if req.Options.Has(ReturnCacheDataDontLoad) {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: &ErrDataMissingInCache{Key: finalKey}})
			return
		}

		var (
			container ImageContainer
			err       error
		)
		if len(req.Processors) == 0 {
			var cacheType CacheType
			container, cacheType, err = p.resolveDecodedOriginal(ctx, self, req)
			if err == nil {
				emit(coordinator.Event{Kind: coordinator.EventResult, Value: cacheHit{container: container, cacheType: cacheType}})
			}
		} else {
			n := len(req.Processors)
			key := coordinator.Key("processed:" + dataProcessorPrefixKeys(req)[n-1])
			var v any
			v, err = p.resolveDependency(ctx, self, key, p.cfg.IsTaskCoalescingEnabled, req.Priority, p.fetchProcessedImage(req, n))
			if err == nil {
				hit := v.(cacheHit)
				container = hit.container
				emit(coordinator.Event{Kind: coordinator.EventResult, Value: hit})
			}
		}
		if err != nil {
			emit(coordinator.Event{Kind: coordinator.EventError, Err: err})
			return
		}
		p.cache.putMemory(req, memKey, container)
	}
}

func (p *Pipeline) dataTaskOperation(req Request) coordinator.Operation {
	base := p.fetchOriginalData(req)
	return func(ctx context.Context, self *coordinator.Subtask, emit func(coordinator.Event)) {
		base(ctx, self, emit)
	}
}

// wrapImageEvent adapts a raw coordinator event into the public [Event]
// shape for an image task, wrapping its terminal result as an
// [ImageResponse].
func wrapImageEvent(req Request) func(coordinator.Event) Event {
	reqKey := req.Source.CacheKey()
	return func(ev coordinator.Event) Event {
		switch ev.Kind {
		case coordinator.EventProgress:
			return Event{Kind: EventProgress, Progress: Progress{Completed: ev.Progress, Total: ev.Total}}
		case coordinator.EventPreview:
			return Event{Kind: EventPreview, Preview: ev.Value.(ImageContainer)}
		case coordinator.EventResult:
			hit := ev.Value.(cacheHit)
			return Event{Kind: EventResponse, Response: &ImageResponse{Container: hit.container, CacheType: hit.cacheType, RequestKey: reqKey}}
		default:
			return Event{Kind: EventError, Err: ev.Err}
		}
	}
}

// wrapDataEvent adapts a raw coordinator event into the public [Event]
// shape for a data task.
func wrapDataEvent(req Request) func(coordinator.Event) Event {
	reqKey := req.Source.CacheKey()
	return func(ev coordinator.Event) Event {
		switch ev.Kind {
		case coordinator.EventProgress:
			return Event{Kind: EventProgress, Progress: Progress{Completed: ev.Progress, Total: ev.Total}}
		case coordinator.EventResult:
			hit := ev.Value.(cacheHit)
			return Event{Kind: EventResponse, Response: &DataResponse{Data: hit.container.Data, CacheType: hit.cacheType, RequestKey: reqKey}}
		default:
			return Event{Kind: EventError, Err: ev.Err}
		}
	}
}
