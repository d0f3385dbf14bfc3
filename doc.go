// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package imagepipeline implements a client-side image-loading pipeline: a
// request-deduplicating, priority-propagating, cancellable task graph that
// coordinates memory-cache lookup, disk-cache lookup, network fetch, image
// decode, and processing against concurrency-limited worker pools, with
// policy-driven write-back into two cache tiers and support for progressive
// (streaming) decoding.
//
// The orchestration lives in [Coordinator] (package internal/coordinator);
// this package exposes the public surface: [Request], [ImageContainer],
// [ImageResponse], [Pipeline], and the task facade ([ImageTask], [DataTask]).
//
// Collaborators supplied by the caller — the HTTP/data loader, the on-disk
// byte cache, the in-memory image cache, image decoders, encoders, and
// processors — are specified only as interfaces; this package never embeds a
// concrete implementation of any of them.
package imagepipeline
