package imagepipeline

import (
	"errors"
	"fmt"
)

// ErrDataMissingInCache is returned when [ReturnCacheDataDontLoad]
// is set and the requested data is absent from every enabled cache tier.
type ErrDataMissingInCache struct {
	// Key is the cache key that was probed.
	Key string
}

func (e *ErrDataMissingInCache) Error() string {
	return fmt.Sprintf("imagepipeline: data missing in cache for key %q", e.Key)
}

// Is implements errors.Is support, matching any *ErrDataMissingInCache.
func (e *ErrDataMissingInCache) Is(target error) bool {
	_, ok := target.(*ErrDataMissingInCache)
	return ok
}

// ErrDataLoadingFailed wraps the verbatim error surfaced by a [DataLoader].
type ErrDataLoadingFailed struct {
	Cause error
}

func (e *ErrDataLoadingFailed) Error() string {
	return fmt.Sprintf("imagepipeline: data loading failed: %v", e.Cause)
}

func (e *ErrDataLoadingFailed) Unwrap() error { return e.Cause }

func (e *ErrDataLoadingFailed) Is(target error) bool {
	_, ok := target.(*ErrDataLoadingFailed)
	return ok
}

// ErrDataIsEmpty is returned when a data load completes successfully but
// yields zero bytes.
type ErrDataIsEmpty struct{}

func (e *ErrDataIsEmpty) Error() string { return "imagepipeline: data is empty" }

func (e *ErrDataIsEmpty) Is(target error) bool {
	_, ok := target.(*ErrDataIsEmpty)
	return ok
}

// ErrDecoderNotRegistered is returned when the decoder registry has no
// decoder willing to handle the given context.
type ErrDecoderNotRegistered struct {
	// Context describes the data that no decoder claimed, for diagnostics.
	Context string
}

func (e *ErrDecoderNotRegistered) Error() string {
	return fmt.Sprintf("imagepipeline: no decoder registered for %s", e.Context)
}

func (e *ErrDecoderNotRegistered) Is(target error) bool {
	_, ok := target.(*ErrDecoderNotRegistered)
	return ok
}

// ErrDecodingFailed wraps a decode failure from a concrete [Decoder].
type ErrDecodingFailed struct {
	Decoder string
	Context string
	Cause   error
}

func (e *ErrDecodingFailed) Error() string {
	return fmt.Sprintf("imagepipeline: decoding failed (decoder=%s, context=%s): %v", e.Decoder, e.Context, e.Cause)
}

func (e *ErrDecodingFailed) Unwrap() error { return e.Cause }

func (e *ErrDecodingFailed) Is(target error) bool {
	_, ok := target.(*ErrDecodingFailed)
	return ok
}

// ErrProcessingFailed wraps a processor failure, or the case where a
// processor returns nil for the final (non-preview) image.
type ErrProcessingFailed struct {
	Processor string
	Cause     error
}

func (e *ErrProcessingFailed) Error() string {
	return fmt.Sprintf("imagepipeline: processing failed (processor=%s): %v", e.Processor, e.Cause)
}

func (e *ErrProcessingFailed) Unwrap() error { return e.Cause }

func (e *ErrProcessingFailed) Is(target error) bool {
	_, ok := target.(*ErrProcessingFailed)
	return ok
}

// ErrPipelineInvalidated is the terminal error every live and future subtask
// receives after [Pipeline.Invalidate] is called. It is not recoverable;
// constructing a new [Pipeline] is the only way forward.
type ErrPipelineInvalidated struct{}

func (e *ErrPipelineInvalidated) Error() string { return "imagepipeline: pipeline invalidated" }

func (e *ErrPipelineInvalidated) Is(target error) bool {
	_, ok := target.(*ErrPipelineInvalidated)
	return ok
}

// ErrCancelled is returned by awaits on a cancelled [ImageTask]/[DataTask],
// and as the terminal error of a cancelled subtask.
type ErrCancelled struct {
	// Reason optionally describes why cancellation occurred.
	Reason string
}

func (e *ErrCancelled) Error() string {
	if e.Reason == "" {
		return "imagepipeline: cancelled"
	}
	return fmt.Sprintf("imagepipeline: cancelled: %s", e.Reason)
}

func (e *ErrCancelled) Is(target error) bool {
	_, ok := target.(*ErrCancelled)
	return ok
}

// Compile-time checks that every error type implements error. Because each
// type's Is matches by type, a zero value (e.g. &ErrDataMissingInCache{})
// works as an errors.Is target when the caller doesn't need the fields.
var (
	_ error = (*ErrDataMissingInCache)(nil)
	_ error = (*ErrDataLoadingFailed)(nil)
	_ error = (*ErrDataIsEmpty)(nil)
	_ error = (*ErrDecoderNotRegistered)(nil)
	_ error = (*ErrDecodingFailed)(nil)
	_ error = (*ErrProcessingFailed)(nil)
	_ error = (*ErrPipelineInvalidated)(nil)
	_ error = (*ErrCancelled)(nil)
)

// IsCancelled reports whether err is (or wraps) an [ErrCancelled].
func IsCancelled(err error) bool {
	return errors.Is(err, &ErrCancelled{})
}

// IsPipelineInvalidated reports whether err is (or wraps) an
// [ErrPipelineInvalidated].
func IsPipelineInvalidated(err error) bool {
	return errors.Is(err, &ErrPipelineInvalidated{})
}
