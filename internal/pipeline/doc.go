// Package pipeline runs the stages of a wikindex run in sequence.
//
// A full run is a CrawlStep followed by an IndexStep; the crawl and index
// commands use pipelines with a single step. Each step folds its result
// into the shared model.RunReport.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
package pipeline
