package imagepipeline

import "time"

// DataCachePolicy selects which byte representations get written to the
// disk cache (spec §4.3). The column that applies (without/with
// processors) depends on whether a request has any processors attached.
type DataCachePolicy int

const (
	// DataCachePolicyAutomatic stores original data without processors,
	// and stores only the final processed data (not the original) when
	// processors are attached.
	DataCachePolicyAutomatic DataCachePolicy = iota
	// DataCachePolicyStoreOriginalData always stores the original data,
	// and never stores processed results.
	DataCachePolicyStoreOriginalData
	// DataCachePolicyStoreEncodedImages stores whichever encoded bytes
	// represent the final result: original data without processors,
	// re-encoded processed data with processors.
	DataCachePolicyStoreEncodedImages
	// DataCachePolicyStoreAll stores both the original data and every
	// processed intermediate, regardless of whether processors are
	// attached.
	DataCachePolicyStoreAll
)

// String implements fmt.Stringer.
func (p DataCachePolicy) String() string {
	switch p {
	case DataCachePolicyStoreOriginalData:
		return "storeOriginalData"
	case DataCachePolicyStoreEncodedImages:
		return "storeEncodedImages"
	case DataCachePolicyStoreAll:
		return "storeAll"
	default:
		return "automatic"
	}
}

const (
	defaultDataLoadingQueueConcurrency        = 6
	defaultImageDecodingQueueConcurrency      = 1
	defaultImageProcessingQueueConcurrency    = 2
	defaultImageDecompressingQueueConcurrency = 2

	defaultProgressiveDecodingInterval = 200 * time.Millisecond

	// defaultRateLimiterCapacity and defaultRateLimiterRefillPerSecond
	// approximate the reference token bucket (spec §4.8): ~80 capacity,
	// ~25 tokens/sec refill.
	defaultRateLimiterCapacity        = 80
	defaultRateLimiterRefillPerSecond = 25
)

// Config configures a [Pipeline]. Construct with [NewConfig]; the zero
// value is not usable since DataCache/DataLoader are required
// collaborators.
type Config struct {
	DataCache    DiskCache
	ImageCache   MemoryCache
	DataLoader   DataLoader
	MakeDecoder  DecoderRegistry
	ImageEncoder ImageEncoder
	Decompressor Decompressor

	DataCachePolicy DataCachePolicy

	IsProgressiveDecodingEnabled   bool
	IsStoringPreviewsInMemoryCache bool
	ProgressiveDecodingInterval    time.Duration

	IsResumableDataEnabled  bool
	IsDecompressionEnabled  bool
	IsRateLimiterEnabled    bool
	IsTaskCoalescingEnabled bool

	DataLoadingQueueConcurrency        int
	ImageDecodingQueueConcurrency      int
	ImageProcessingQueueConcurrency    int
	ImageDecompressingQueueConcurrency int

	RateLimiterCapacity        int
	RateLimiterRefillPerSecond int

	// DebugIsSyncImageEncoding runs final decoding, decompression and
	// processing synchronously on the calling goroutine instead of on their
	// work queues (preview decodes stay queued; image encoding always runs
	// inline); intended for deterministic tests only.
	DebugIsSyncImageEncoding bool

	Logger Logger
}

// ConfigOption configures a [Config] built via [NewConfig].
type ConfigOption interface{ apply(*Config) }

type configOptionFunc func(*Config)

func (f configOptionFunc) apply(c *Config) { f(c) }

// WithDataCache supplies the on-disk byte cache collaborator.
func WithDataCache(c DiskCache) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.DataCache = c })
}

// WithImageCache supplies the in-memory image cache collaborator.
func WithImageCache(c MemoryCache) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.ImageCache = c })
}

// WithDataLoader supplies the network/transport collaborator.
func WithDataLoader(l DataLoader) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.DataLoader = l })
}

// WithDecoderRegistry supplies the decoder-selection collaborator.
func WithDecoderRegistry(r DecoderRegistry) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.MakeDecoder = r })
}

// WithImageEncoder supplies the encoder used when a [DataCachePolicy]
// requires re-encoding a processed image for disk storage.
func WithImageEncoder(e ImageEncoder) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.ImageEncoder = e })
}

// WithDecompressor supplies the eager-decompression collaborator run on the
// decompressing queue after a non-thumbnail decode (spec's
// imageDecompressingQueue). Leaving it nil disables the step.
func WithDecompressor(d Decompressor) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.Decompressor = d })
}

// WithDataCachePolicy sets the disk-cache write policy.
func WithDataCachePolicy(p DataCachePolicy) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.DataCachePolicy = p })
}

// WithProgressiveDecoding enables progressive decoding and sets the
// minimum interval between preview decodes.
func WithProgressiveDecoding(interval time.Duration) ConfigOption {
	return configOptionFunc(func(cfg *Config) {
		cfg.IsProgressiveDecodingEnabled = true
		cfg.ProgressiveDecodingInterval = interval
	})
}

// WithStoringPreviewsInMemoryCache controls whether progressive previews are
// written to the memory cache as they're produced.
func WithStoringPreviewsInMemoryCache(v bool) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.IsStoringPreviewsInMemoryCache = v })
}

// WithResumableData enables resumable-data recovery (spec §4.7).
func WithResumableData(v bool) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.IsResumableDataEnabled = v })
}

// WithDecompression enables the decompression queue.
func WithDecompression(v bool) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.IsDecompressionEnabled = v })
}

// WithRateLimiter enables the data-loading rate limiter, with the given
// token-bucket capacity and per-second refill rate. Passing capacity <= 0
// keeps the defaults.
func WithRateLimiter(enabled bool, capacity, refillPerSecond int) ConfigOption {
	return configOptionFunc(func(cfg *Config) {
		cfg.IsRateLimiterEnabled = enabled
		if capacity > 0 {
			cfg.RateLimiterCapacity = capacity
		}
		if refillPerSecond > 0 {
			cfg.RateLimiterRefillPerSecond = refillPerSecond
		}
	})
}

// WithTaskCoalescing controls subtask coalescing; disabling it (false)
// gives every request its own fetch, decode, and processing subtasks
// instead of joining in-flight ones. Memory- and disk-cache lookups,
// including those for intermediate results, are not affected.
func WithTaskCoalescing(v bool) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.IsTaskCoalescingEnabled = v })
}

// WithQueueConcurrency overrides one or more work-queue concurrency limits;
// pass <= 0 for a queue to leave its default unchanged.
func WithQueueConcurrency(dataLoading, imageDecoding, imageProcessing, imageDecompressing int) ConfigOption {
	return configOptionFunc(func(cfg *Config) {
		if dataLoading > 0 {
			cfg.DataLoadingQueueConcurrency = dataLoading
		}
		if imageDecoding > 0 {
			cfg.ImageDecodingQueueConcurrency = imageDecoding
		}
		if imageProcessing > 0 {
			cfg.ImageProcessingQueueConcurrency = imageProcessing
		}
		if imageDecompressing > 0 {
			cfg.ImageDecompressingQueueConcurrency = imageDecompressing
		}
	})
}

// WithDebugSyncImageEncoding sets [Config.DebugIsSyncImageEncoding], for
// deterministic tests.
func WithDebugSyncImageEncoding(v bool) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.DebugIsSyncImageEncoding = v })
}

// WithLogger supplies the structured logger used for diagnostics. A nil
// logger (the default) disables logging entirely.
func WithLogger(l Logger) ConfigOption {
	return configOptionFunc(func(cfg *Config) { cfg.Logger = l })
}

// NewConfig builds a [Config] from opts, applying spec-mandated defaults
// (spec §4.4, §4.8) for anything not explicitly set. DataCache, ImageCache,
// DataLoader and MakeDecoder are the caller's responsibility to supply;
// [Pipeline] construction validates their presence.
func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{
		IsProgressiveDecodingEnabled:   false,
		IsStoringPreviewsInMemoryCache: true,
		ProgressiveDecodingInterval:    defaultProgressiveDecodingInterval,

		IsResumableDataEnabled:  true,
		IsDecompressionEnabled:  true,
		IsRateLimiterEnabled:    true,
		IsTaskCoalescingEnabled: true,

		DataLoadingQueueConcurrency:        defaultDataLoadingQueueConcurrency,
		ImageDecodingQueueConcurrency:      defaultImageDecodingQueueConcurrency,
		ImageProcessingQueueConcurrency:    defaultImageProcessingQueueConcurrency,
		ImageDecompressingQueueConcurrency: defaultImageDecompressingQueueConcurrency,

		RateLimiterCapacity:        defaultRateLimiterCapacity,
		RateLimiterRefillPerSecond: defaultRateLimiterRefillPerSecond,
	}
	for _, o := range opts {
		o.apply(&cfg)
	}
	return cfg
}
