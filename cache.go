package imagepipeline

import (
	"context"

	"github.com/joeycumines/imagepipeline/internal/cachekey"
)

// dataOriginalKey returns the disk-cache key for a request's unprocessed
// bytes.
func dataOriginalKey(req Request) string {
	return cachekey.OriginalData(req.Source.CacheKey())
}

// dataFinalKey returns the disk-cache key for a request's fully processed
// (or thumbnailed) bytes: the key that, if present, lets the pipeline skip
// fetching and processing entirely.
func dataFinalKey(req Request) string {
	if thumb, ok := req.UserInfo.Thumbnail(); ok {
		return cachekey.ThumbnailData(req.Source.CacheKey(), toCacheKeyThumbnail(thumb))
	}
	return cachekey.ProcessedData(req.Source.CacheKey(), req.processorIdentifiers())
}

// dataProcessorPrefixKeys returns the processed-data disk-cache keys for
// every processor-prefix length 1..n, in order. The last entry is the
// full-chain key; it equals dataFinalKey unless the request carries
// thumbnail options. Callers that want intermediates only should slice off
// the last element.
func dataProcessorPrefixKeys(req Request) []string {
	return cachekey.ProcessorPrefixes(req.Source.CacheKey(), req.processorIdentifiers())
}

// imageMemoryKey returns the memory-cache key for a request's final image.
func imageMemoryKey(req Request) string {
	var thumbPtr *cachekey.Thumbnail
	if thumb, ok := req.UserInfo.Thumbnail(); ok {
		tk := toCacheKeyThumbnail(thumb)
		thumbPtr = &tk
	}
	scale, hasScale := req.UserInfo.Scale()
	return cachekey.Image(req.Source.CacheKey(), req.processorIdentifiers(), scale, hasScale, thumbPtr)
}

func toCacheKeyThumbnail(t ThumbnailOptions) cachekey.Thumbnail {
	return cachekey.Thumbnail{
		MaxPixelSize:                     t.MaxPixelSize,
		Width:                            t.Width,
		Height:                           t.Height,
		ContentMode:                      string(t.ContentMode),
		CreateThumbnailFromImageAlways:   t.CreateThumbnailFromImageAlways,
		CreateThumbnailFromImageIfAbsent: t.CreateThumbnailFromImageIfAbsent,
		CreateThumbnailWithTransform:     t.CreateThumbnailWithTransform,
		ShouldCacheImmediately:           t.ShouldCacheImmediately,
	}
}

// isLocalSource reports whether req's source is a filesystem/data-URL style
// origin exempt from the original-data disk-cache write (spec §4.3).
func isLocalSource(req Request) bool {
	if id, ok := req.Source.(IdentifierSource); ok {
		return id.IsLocal
	}
	return false
}

// shouldStoreOriginal reports whether the policy writes the unprocessed
// bytes to disk for a request with (or without) processors attached (spec
// §4.3's policy table).
func (p DataCachePolicy) shouldStoreOriginal(hasProcessors bool) bool {
	switch p {
	case DataCachePolicyStoreOriginalData, DataCachePolicyStoreAll:
		return true
	default: // automatic, storeEncodedImages
		return !hasProcessors
	}
}

// shouldStoreProcessed reports whether the policy writes the final
// processed bytes to disk.
func (p DataCachePolicy) shouldStoreProcessed(hasProcessors bool) bool {
	if !hasProcessors {
		return false
	}
	switch p {
	case DataCachePolicyStoreOriginalData:
		return false
	default: // automatic, storeEncodedImages, storeAll
		return true
	}
}

// shouldStoreIntermediates reports whether every processor-prefix result,
// not just the final one, gets written to disk. Only storeAll does this;
// it's the write-path difference that distinguishes storeAll from
// storeEncodedImages, which otherwise both store "the final processed
// bytes" (spec §9 Open Question: storeAll does not add extra disk *reads*
// for intermediate prefixes, only this extra *write*).
func (p DataCachePolicy) shouldStoreIntermediates() bool {
	return p == DataCachePolicyStoreAll
}

// cacheLayer wraps the configured collaborators with the option-gating and
// policy logic of spec §4.3, so the rest of the pipeline never calls
// Config.DataCache/ImageCache directly.
type cacheLayer struct {
	cfg Config
}

func newCacheLayer(cfg Config) *cacheLayer { return &cacheLayer{cfg: cfg} }

func (c *cacheLayer) getMemory(req Request, key string) (ImageContainer, bool) {
	if c.cfg.ImageCache == nil || req.Options.disablesMemoryReads() {
		return ImageContainer{}, false
	}
	return c.cfg.ImageCache.Get(key)
}

func (c *cacheLayer) putMemory(req Request, key string, container ImageContainer) {
	if c.cfg.ImageCache == nil || req.Options.Has(DisableMemoryCacheWrites) {
		return
	}
	if container.IsPreview && !c.cfg.IsStoringPreviewsInMemoryCache {
		return
	}
	c.cfg.ImageCache.Put(key, container)
}

func (c *cacheLayer) getDisk(ctx context.Context, req Request, key string) ([]byte, bool) {
	if c.cfg.DataCache == nil || req.Options.disablesDiskReads() {
		return nil, false
	}
	data, ok := c.cfg.DataCache.Get(ctx, key)
	logDebug(c.cfg.Logger, "disk cache probe", f("category", "cache"), f("key", key), f("hit", ok))
	return data, ok
}

func (c *cacheLayer) putDisk(ctx context.Context, req Request, key string, data []byte) {
	if c.cfg.DataCache == nil || req.Options.Has(DisableDiskCacheWrites) || len(data) == 0 {
		return
	}
	logDebug(c.cfg.Logger, "disk cache write", f("category", "cache"), f("key", key), f("bytes", len(data)))
	c.cfg.DataCache.Put(ctx, key, data)
}
