// Package frontier provides the shared URL frontier used by crawl workers.
//
// The Frontier is a FIFO queue of pending URLs plus the visited set and the
// crawl-wide stop flag. All three are guarded by a single mutex so that the
// Enqueue/Dequeue/Claim triad is never observed inconsistently by two workers.
//
// Design decision: Dequeue never blocks. The frontier can be empty while other
// workers are still fetching pages that may add more links, so callers back
// off briefly and retry instead of waiting on a condition.
package frontier
