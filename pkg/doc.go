// Package pkg provides the core libraries for the plugdex marketplace crawler.
//
// # Overview
//
// Plugdex discovers Claude plugin marketplaces on GitHub, parses their
// manifests, enriches them with repository signals, and publishes
// browse-ready JSON documents. The pkg directory is organized into:
//
//  1. [github] - GitHub REST and GraphQL clients (search, trees, files, batching)
//  2. [cache] - Commit-addressed content cache (file, memory, redis, null backends)
//  3. [market] - Domain logic (manifests, merge, categorization, trending)
//  4. [pipeline] - Staged crawl orchestration with artifacts and run reports
//  5. [publish] - Browse document generation and consistency checks
//
// # Architecture
//
// The typical data flow through a crawl:
//
//	GitHub code search
//	         ↓
//	    [pipeline] stages (discover → fetch → parse)
//	         ↓
//	    [market] package (merge + trending scores)
//	         ↓
//	    [publish] package (index, authors, marketplaces, plugins)
//	         ↓
//	    JSON documents under <data>/public
//
// Supporting packages: [config] (TOML + env configuration), [errors]
// (coded errors), [httputil] (retry and rate limiting), [observability]
// (stage and cache hooks), [buildinfo] (ldflags version data).
//
// [github]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/github
// [cache]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/cache
// [market]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/market
// [pipeline]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/pipeline
// [publish]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/publish
// [config]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/config
// [errors]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/plugdex/plugdex/pkg/buildinfo
package pkg
