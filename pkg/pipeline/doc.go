// Package pipeline orchestrates the crawl as an ordered chain of named
// stages, some grouped for concurrent execution.
//
// # Architecture
//
// A run walks the stage order:
//
//	discover → fetch-repos → fetch-trees → [fetch-files ‖ signals]
//	         → parse → merge → trending → publish
//
// Each stage reads its inputs from the shared RunContext, produces its
// outputs there, and persists an artifact under <data>/stages/ so a
// later run (or a stage started without its in-memory input) can pick
// up from disk. Stage metrics are compared against the last completed
// run's metrics snapshot, and a status report is re-materialized after
// every stage transition.
//
// # Usage
//
//	rc := pipeline.NewRunContext(cfg, client, cache, logger)
//	runner := pipeline.NewRunner(pipeline.DefaultSteps(), cfg.DataDir, logger)
//	if err := runner.Run(ctx, rc); err != nil {
//	    // the terminal report is already on disk
//	}
package pipeline
