package imagepipeline

// RequestOptions is a bitmask of per-request behavioural flags (spec §3).
type RequestOptions uint16

const (
	// DisableMemoryCacheReads skips all memory-cache lookups for this request.
	DisableMemoryCacheReads RequestOptions = 1 << iota
	// DisableMemoryCacheWrites skips writing results into the memory cache.
	DisableMemoryCacheWrites
	// DisableDiskCacheReads skips all disk-cache lookups for this request.
	DisableDiskCacheReads
	// DisableDiskCacheWrites skips writing results into the disk cache.
	DisableDiskCacheWrites
	// ReloadIgnoringCachedData suppresses all cache reads unconditionally,
	// forcing a network fetch.
	ReloadIgnoringCachedData
	// ReturnCacheDataDontLoad fails the request with [ErrDataMissingInCache]
	// rather than triggering a load when a cache lookup misses.
	ReturnCacheDataDontLoad
	// SkipDecompression bypasses the decompression queue for this request.
	SkipDecompression
	// SkipDataLoadingQueue bypasses both the rate limiter and the data
	// loading queue's concurrency limit for this request.
	SkipDataLoadingQueue
)

// Has reports whether all bits in mask are set.
func (o RequestOptions) Has(mask RequestOptions) bool { return o&mask == mask }

// disablesMemoryReads reports whether the effective option set suppresses
// memory-cache reads, folding in ReloadIgnoringCachedData.
func (o RequestOptions) disablesMemoryReads() bool {
	return o.Has(DisableMemoryCacheReads) || o.Has(ReloadIgnoringCachedData)
}

// disablesDiskReads reports whether the effective option set suppresses
// disk-cache reads, folding in ReloadIgnoringCachedData.
func (o RequestOptions) disablesDiskReads() bool {
	return o.Has(DisableDiskCacheReads) || o.Has(ReloadIgnoringCachedData)
}

// ContentMode names a thumbnail aspect-handling strategy, used by the
// flexible form of [ThumbnailOptions].
type ContentMode string

const (
	ContentModeAspectFit  ContentMode = "aspectFit"
	ContentModeAspectFill ContentMode = "aspectFill"
)

// ThumbnailOptions describes a thumbnail request (spec §6's
// `com.github/kean/nuke/thumbnail?` key family). Exactly one sizing form
// applies: set MaxPixelSize for the fixed-size form, or Width/Height/
// ContentMode for the flexible form.
type ThumbnailOptions struct {
	// MaxPixelSize selects the fixed-size form when > 0.
	MaxPixelSize int

	// Width, Height, ContentMode select the flexible form when MaxPixelSize == 0.
	Width, Height float64
	ContentMode   ContentMode

	// CreateThumbnailFromImageAlways forces thumbnail generation from a
	// fully decoded image even when a cheaper native path exists.
	CreateThumbnailFromImageAlways bool
	// CreateThumbnailFromImageIfAbsent falls back to image-based thumbnail
	// generation only when no cheaper native path is available.
	CreateThumbnailFromImageIfAbsent bool
	// CreateThumbnailWithTransform applies the decoder's transform pipeline
	// (e.g. orientation correction) during thumbnail generation.
	CreateThumbnailWithTransform bool
	// ShouldCacheImmediately is a decoder hint, reaching the decoder through
	// the request's UserInfo. The pipeline itself only uses it as part of
	// the thumbnail cache key.
	ShouldCacheImmediately bool
}

// IsFixedSize reports whether t uses the maxPixelSize form.
func (t ThumbnailOptions) IsFixedSize() bool { return t.MaxPixelSize > 0 }

// UserInfoKey names a well-known [UserInfo] entry.
type UserInfoKey string

const (
	// UserInfoKeyThumbnail maps to a [ThumbnailOptions] value.
	UserInfoKeyThumbnail UserInfoKey = "thumbnail"
	// UserInfoKeyScale maps to a float64 scale override.
	UserInfoKeyScale UserInfoKey = "scale"
)

// UserInfo is an open mapping from well-known keys to values, carried on a
// [Request] without widening its core fields.
type UserInfo map[UserInfoKey]any

// Thumbnail returns the request's thumbnail options, if present.
func (u UserInfo) Thumbnail() (ThumbnailOptions, bool) {
	v, ok := u[UserInfoKeyThumbnail].(ThumbnailOptions)
	return v, ok
}

// Scale returns the request's scale override, if present.
func (u UserInfo) Scale() (float64, bool) {
	v, ok := u[UserInfoKeyScale].(float64)
	return v, ok
}
