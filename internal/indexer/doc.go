// Package indexer computes TF-IDF weights for newly crawled documents.
//
// Indexing is incremental: each batch is weighted against the statistics of
// the documents already indexed, so earlier entries are never recomputed.
//
// For a word w in a batch of n documents:
//
//	total_df   = df_global(w) + df_batch(w)
//	total_docs = N_existing + n
//	idf(w)     = ln(total_docs / total_df)   (0 when total_df is 0)
//	weight     = tf(w, d) * idf(w)
//
// Only entries with a positive weight are produced.
package indexer
