// Package github provides typed, batched access to the GitHub API for
// the plugdex crawler.
//
// The client works against three independent quota regimes — code search
// (~10 requests/minute), REST (~5000 requests/hour), and GraphQL
// (~5000 cost points/hour) — each guarded by its own admission-control
// limiter so excess requests queue instead of failing.
//
// Batched lookups (repository metadata, file contents) are issued as
// combined GraphQL queries of up to 15 sub-queries per round trip, with
// per-batch aliases so results can never collide across batches. All
// free-text values interpolated into a GraphQL document are escaped
// first; this is injection prevention, not optional hardening.
//
// Transient failures (5xx, transport errors) retry up to 3 times with
// linearly increasing backoff. A 404, or a 403 that is not a recoverable
// rate-limit condition, is never retried and surfaces as a typed error
// the pipeline records as a drop reason.
package github
