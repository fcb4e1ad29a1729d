// Package database provides the durable corpus store for wikindex.
//
// CorpusDB keeps, in a single SQLite file:
//   - fetched documents with their text, image references and content hash
//   - the unprocessed set of documents waiting for the indexer
//   - the visited set, which survives between runs
//   - the inverted index of TF-IDF weights
//   - the history of run reports
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets the indexer read while a crawl writes
//
// RedisVisited is an optional visited set in Redis for crawls spread over
// several processes. Cross-process deduplication is best effort: two
// processes may both claim a URL between the check and the mark.
package database
