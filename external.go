package imagepipeline

import "context"

// DataLoaderMetadata describes a chunk's transport-level context, enough for
// resumable-data (spec §4.7) and progressive decoding to function without
// this package depending on a concrete HTTP type.
type DataLoaderMetadata struct {
	// StatusCode is the transport status code, when applicable (e.g. HTTP
	// 206 for a satisfied range request).
	StatusCode int
	// ExpectedContentLength is the total byte count the source reported,
	// or -1 if unknown.
	ExpectedContentLength int64
	// ETag and LastModified are cache validators usable for a subsequent
	// resumed fetch via Range/If-Range.
	ETag, LastModified string
	// AcceptsRanges reports whether the source advertised Accept-Ranges:
	// bytes, a precondition for resumable data.
	AcceptsRanges bool
}

// DataLoaderRequest is what a [DataLoader] receives: the cache key to fetch,
// and, when resuming, the validator and range to resume from.
type DataLoaderRequest struct {
	Key      string
	Request  Request
	Priority Priority

	// Resume is non-nil when resumable data (spec §4.7) found a partial
	// download to continue.
	Resume *ResumeInfo
}

// ResumeInfo is the validator and byte offset a resumed fetch must send as
// If-Range / Range: bytes=<N>-.
type ResumeInfo struct {
	Validator string
	Offset    int64
}

// DataLoader is the caller-supplied network/transport collaborator (spec
// §6). Load streams chunks to onChunk as they arrive and must call
// onCompletion exactly once, with a non-nil error only on failure. The
// returned cancel func must be safe to call more than once and after
// completion.
type DataLoader interface {
	Load(ctx context.Context, req DataLoaderRequest, onChunk func(chunk []byte, meta DataLoaderMetadata), onCompletion func(err error)) (cancel func())
}

// DiskCache is the caller-supplied on-disk byte cache (spec §6). Keys are
// opaque strings produced by internal/cachekey; implementations must not
// interpret their structure. Get returning (nil, false) is a cache miss,
// never an error.
type DiskCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, data []byte)
	Remove(ctx context.Context, key string)
	RemoveAll(ctx context.Context)
	Contains(ctx context.Context, key string) bool
}

// MemoryCache is the caller-supplied in-memory image cache (spec §6). Per
// spec §4.5, Put must be a no-op for preview containers when the pipeline's
// isStoringPreviewsInMemoryCache is false; this package enforces that by
// simply not calling Put for previews in that configuration, so
// implementations need not check IsPreview themselves.
type MemoryCache interface {
	Get(key string) (ImageContainer, bool)
	Put(key string, container ImageContainer)
	Remove(key string)
	RemoveAll()
	Contains(key string) bool
}

// Decoder decodes bytes into an [ImageContainer]. Decode is called
// repeatedly with growing byte slices while isFinal is false (progressive
// decoding, spec §4.5), and exactly once more with the complete bytes and
// isFinal true. Returning (nil, nil) for a non-final call means "not enough
// data yet for a preview", which is not an error; returning (nil, nil) for
// the final call means "nothing to decode" and becomes
// [ErrDecodingFailed].
type Decoder interface {
	Decode(bytes []byte, isFinal bool) (*ImageContainer, error)
}

// DecoderRegistry selects a [Decoder] for a given decoding context,
// typically by sniffing the first bytes and/or consulting transport
// metadata. A nil, nil return means no decoder claims the context, which
// becomes [ErrDecoderNotRegistered].
type DecoderRegistry interface {
	MakeDecoder(context DecodingContext) (Decoder, error)
}

// DecodingContext is the information available to [DecoderRegistry] before
// a decoder is chosen.
type DecodingContext struct {
	Request       Request
	PartialData   []byte
	Metadata      DataLoaderMetadata
	URLResponse   bool // true once at least one chunk/metadata has arrived
	IsCompleted   bool
}

// ImageEncoder encodes a processed [ImageContainer] back to bytes, used
// when a policy requires storing processed results on disk (spec §4.3) and
// the processed container has no encoded Data already attached.
type ImageEncoder interface {
	Encode(container ImageContainer) ([]byte, error)
}

// Decompressor eagerly forces a decoded image's backing pixel buffer into
// its final in-memory representation, run on the decompressing queue
// between a non-thumbnail decode and the image becoming visible (spec's
// imageDecompressingQueue). A nil [Config.Decompressor] disables the step
// for every request regardless of [Config.IsDecompressionEnabled].
type Decompressor interface {
	Decompress(container ImageContainer) (ImageContainer, error)
}
