// Package main provides the entry point for the wikindex CLI.
//
// wikindex crawls an encyclopedia site from a seed article and builds an
// incremental TF-IDF index of the pages it stored.
//
// Usage:
//
//	wikindex run [seed-url]
//	wikindex crawl [seed-url]
//	wikindex index
//
// See --help for all available options.
package main

// main is the entry point for wikindex.
func main() {
	Execute()
}
