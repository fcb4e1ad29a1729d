// Package model defines the core data structures shared by the crawler,
// the indexer and the corpus store.
//
// This package contains the following main types:
//   - Document: A successfully fetched page with its extracted text
//   - IndexEntry: One weighted (word, url) pair produced by the indexer
//   - CrawlResult: The outcome of a single crawl run
//   - RunReport: The summary printed (and stored) after each run
//
// Design decision: We keep models in their own package so the crawler,
// indexer, database and report packages can share them without import cycles.
package model
