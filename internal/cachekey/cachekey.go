// Package cachekey derives the stable, bit-exact cache key strings
// described in spec §6. Compatibility with these exact strings is load
// bearing: two requests that should coalesce or share a cache entry must
// produce identical keys.
package cachekey

import (
	"fmt"
	"strconv"
	"strings"
)

// Thumbnail mirrors the fields of a caller's thumbnail options that affect
// key derivation. Kept independent of the root package's ThumbnailOptions
// to avoid an import cycle between imagepipeline and internal/cachekey.
type Thumbnail struct {
	// MaxPixelSize, when > 0, selects the fixed-size key form.
	MaxPixelSize int
	// Width/Height/ContentMode are used when MaxPixelSize == 0 (flexible form).
	Width, Height float64
	ContentMode   string

	CreateThumbnailFromImageAlways   bool
	CreateThumbnailFromImageIfAbsent bool
	CreateThumbnailWithTransform     bool
	ShouldCacheImmediately           bool
}

// thumbnailMarker is the stable namespace prefix for thumbnail suffixes,
// kept identical to the reference implementation's key format.
const thumbnailMarker = "com.github/kean/nuke/thumbnail?"

// OriginalData returns the data cache key for an unprocessed fetch: the
// request URL string, or the caller-supplied identifier for non-URL
// requests.
func OriginalData(idOrURL string) string {
	return idOrURL
}

// ProcessedData returns the data cache key for a processed image: the
// original data key followed by the concatenation of each processor
// identifier, in order, with no separator. Processor identifiers are
// expected to self-delimit (e.g. by including their own parameters) since
// the concatenation is unambiguous only if they do.
func ProcessedData(idOrURL string, processorIDs []string) string {
	if len(processorIDs) == 0 {
		return OriginalData(idOrURL)
	}
	var b strings.Builder
	b.Grow(len(idOrURL) + 16*len(processorIDs))
	b.WriteString(idOrURL)
	for _, id := range processorIDs {
		b.WriteString(id)
	}
	return b.String()
}

// ThumbnailData returns the data cache key for a thumbnail request: the URL
// (or id) followed by the stable thumbnail marker, the size-form
// parameters, and the four-flag options suffix, in the exact order and
// format specified by spec §6.
func ThumbnailData(idOrURL string, t Thumbnail) string {
	var b strings.Builder
	b.WriteString(idOrURL)
	b.WriteString(thumbnailMarker)
	if t.MaxPixelSize > 0 {
		b.WriteString("maxPixelSize=")
		b.WriteString(strconv.Itoa(t.MaxPixelSize))
		b.WriteByte(',')
	} else {
		fmt.Fprintf(&b, "width=%s,height=%s,contentMode=.%s,",
			trimFloat(t.Width), trimFloat(t.Height), t.ContentMode)
	}
	fmt.Fprintf(&b, "options=%s%s%s%s",
		boolStr(t.CreateThumbnailFromImageAlways),
		boolStr(t.CreateThumbnailFromImageIfAbsent),
		boolStr(t.CreateThumbnailWithTransform),
		boolStr(t.ShouldCacheImmediately),
	)
	return b.String()
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// trimFloat formats a float64 without a trailing ".0" for whole numbers,
// while still rendering fractional sizes, keeping the key deterministic
// regardless of how a caller constructed the value (300 vs 300.0).
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Image returns the image (memory) cache key: the URL or identifier,
// followed by the processor identifier chain, an optional scale override,
// and an optional thumbnail suffix. Unlike the data-cache keys, the exact
// format here is internal to this module and not required to match any
// external reference, only to be deterministic and collision-resistant
// across the option combinations the pipeline supports.
func Image(idOrURL string, processorIDs []string, scale float64, hasScale bool, thumb *Thumbnail) string {
	var b strings.Builder
	b.WriteString(idOrURL)
	for _, id := range processorIDs {
		b.WriteByte('$')
		b.WriteString(id)
	}
	if hasScale {
		b.WriteString("#scale=")
		b.WriteString(trimFloat(scale))
	}
	if thumb != nil {
		b.WriteByte('#')
		b.WriteString(ThumbnailData("", *thumb))
	}
	return b.String()
}

// ProcessorPrefixes returns the ProcessedData key for every prefix length
// 1..len(processorIDs), in increasing order, used by the intermediate-reuse
// probes of §4.3/§4.6.
func ProcessorPrefixes(idOrURL string, processorIDs []string) []string {
	out := make([]string, len(processorIDs))
	for i := range processorIDs {
		out[i] = ProcessedData(idOrURL, processorIDs[:i+1])
	}
	return out
}
