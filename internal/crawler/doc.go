// Package crawler provides the concurrent, breadth-first crawl of an
// encyclopedia site.
//
// # Architecture
//
// The package is designed around the Scheduler type, which runs a fixed pool
// of workers over a shared frontier.Frontier. Each worker repeatedly:
//
//  1. dequeues a URL (backing off briefly when the frontier is empty)
//  2. claims it, which marks it visited for the rest of the run
//  3. fetches and parses the page
//  4. stores the document and enqueues the article links it contains
//  5. waits the configured delay
//
// The crawl budget counts claims, not successful fetches: a URL whose fetch
// fails stays visited and is never retried.
//
// # Components
//
//   - Scheduler: worker pool, budget and cooperative shutdown
//   - HTTPFetcher: GET with user agent, timeout and body size limit
//   - HTMLExtractor: link, text and image extraction
//   - LinkFilter: decides which discovered links are article pages
//
// # Usage
//
//	s := crawler.NewScheduler(fetcher, extractor, store,
//	    crawler.WithMaxPages(500),
//	    crawler.WithWorkers(20),
//	)
//	result, err := s.Run(ctx, "https://en.wikipedia.org/wiki/Association_football")
package crawler
