package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wikindex/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "wikindex.db"

// maxQueryParams bounds the number of placeholders in one IN clause.
// SQLite's default limit is 999 on older builds.
const maxQueryParams = 500

// CorpusDB is the durable corpus store: documents, the unprocessed set,
// the visited set, the inverted index and run history.
//
// Design decision: Every table lives in one SQLite file. The crawler and
// the indexer run at different times, and a single file keeps the visited
// set, the documents and the index consistent for backup and inspection.
type CorpusDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CorpusDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CorpusDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CorpusDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CorpusDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CorpusDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CorpusDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CorpusDB) createTables() error {
	schema := `
	-- Documents hold every successfully fetched page
	CREATE TABLE IF NOT EXISTS documents (
		url TEXT PRIMARY KEY,
		content BLOB,
		text TEXT,
		images TEXT,
		hash TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);

	-- Unprocessed pages are stored documents waiting for the indexer
	CREATE TABLE IF NOT EXISTS unprocessed_pages (
		url TEXT PRIMARY KEY NOT NULL,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Visited URLs persist across runs, including failed fetches
	CREATE TABLE IF NOT EXISTS visited_urls (
		url TEXT PRIMARY KEY,
		visited_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Index entries are the inverted index
	CREATE TABLE IF NOT EXISTS index_entries (
		word TEXT NOT NULL,
		url TEXT NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (word, url)
	);

	CREATE INDEX IF NOT EXISTS idx_index_url ON index_entries(url);

	-- Runs store run reports as JSON
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed_url TEXT,
		started_at DATETIME,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveDocument stores doc and adds its URL to the unprocessed set.
// Saving the same URL again replaces the document.
func (cdb *CorpusDB) SaveDocument(ctx context.Context, doc *model.Document) error {
	images, err := json.Marshal(doc.Images)
	if err != nil {
		return fmt.Errorf("failed to serialize images: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	query := `
	INSERT INTO documents (url, content, text, images, hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		content = excluded.content,
		text = excluded.text,
		images = excluded.images,
		hash = excluded.hash,
		fetched_at = excluded.fetched_at
	`
	fetchedAt := doc.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, query,
		doc.URL, doc.Content, doc.Text, string(images), doc.Hash, fetchedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO unprocessed_pages (url) VALUES (?)", doc.URL,
	); err != nil {
		return fmt.Errorf("failed to mark document unprocessed: %w", err)
	}

	return tx.Commit()
}

// GetDocument returns the stored document for url, or ErrNotFound.
func (cdb *CorpusDB) GetDocument(ctx context.Context, url string) (*model.Document, error) {
	query := `SELECT url, content, text, images, hash, fetched_at FROM documents WHERE url = ?`

	var (
		doc       model.Document
		images    sql.NullString
		fetchedAt string
	)
	err := cdb.db.QueryRowContext(ctx, query, url).Scan(
		&doc.URL, &doc.Content, &doc.Text, &images, &doc.Hash, &fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &doc.Images); err != nil {
			return nil, fmt.Errorf("failed to parse images: %w", err)
		}
	}
	doc.FetchedAt = parseTimestamp(fetchedAt)
	return &doc, nil
}

// CountDocuments returns the number of stored documents.
func (cdb *CorpusDB) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// IsVisited reports whether url was visited in any run.
func (cdb *CorpusDB) IsVisited(ctx context.Context, url string) (bool, error) {
	var n int
	err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visited_urls WHERE url = ?", url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check visited url: %w", err)
	}
	return n > 0, nil
}

// MarkVisited adds url to the durable visited set. It is idempotent.
func (cdb *CorpusDB) MarkVisited(ctx context.Context, url string) error {
	if _, err := cdb.db.ExecContext(ctx, "INSERT OR IGNORE INTO visited_urls (url) VALUES (?)", url); err != nil {
		return fmt.Errorf("failed to mark url visited: %w", err)
	}
	return nil
}

// FetchUnprocessed returns every stored document that has not been indexed.
func (cdb *CorpusDB) FetchUnprocessed(ctx context.Context) ([]model.UnprocessedDocument, error) {
	query := `
	SELECT d.url, d.content
	FROM unprocessed_pages u
	JOIN documents d ON d.url = u.url
	ORDER BY u.added_at, u.url
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed documents: %w", err)
	}
	defer rows.Close()

	var docs []model.UnprocessedDocument
	for rows.Next() {
		var doc model.UnprocessedDocument
		if err := rows.Scan(&doc.URL, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan unprocessed document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ClearUnprocessed removes urls from the unprocessed set.
func (cdb *CorpusDB) ClearUnprocessed(ctx context.Context, urls []string) error {
	for _, chunk := range chunks(urls, maxQueryParams) {
		query := "DELETE FROM unprocessed_pages WHERE url IN (" + placeholders(len(chunk)) + ")"
		if _, err := cdb.db.ExecContext(ctx, query, toArgs(chunk)...); err != nil {
			return fmt.Errorf("failed to clear unprocessed documents: %w", err)
		}
	}
	return nil
}

// indexedFilter restricts a url column to indexed documents: a URL still in
// the unprocessed set is waiting to be (re)indexed and does not count.
const indexedFilter = "url NOT IN (SELECT url FROM unprocessed_pages)"

// DocumentFrequencies returns, for each word, the number of distinct indexed
// documents containing it. Words absent from the index are omitted.
// Documents whose URL is in exclude are not counted.
func (cdb *CorpusDB) DocumentFrequencies(ctx context.Context, words, exclude []string) (map[string]int, error) {
	df := make(map[string]int, len(words))
	for _, chunk := range chunks(words, maxQueryParams) {
		query := "SELECT word, COUNT(DISTINCT url) FROM index_entries WHERE word IN (" +
			placeholders(len(chunk)) + ") AND " + indexedFilter + " GROUP BY word"

		if err := cdb.scanCounts(ctx, query, toArgs(chunk), df); err != nil {
			return nil, err
		}
	}

	for _, chunk := range chunks(unique(exclude), maxQueryParams) {
		query := "SELECT word, COUNT(*) FROM index_entries WHERE url IN (" +
			placeholders(len(chunk)) + ") AND " + indexedFilter + " GROUP BY word"

		excluded := make(map[string]int)
		if err := cdb.scanCounts(ctx, query, toArgs(chunk), excluded); err != nil {
			return nil, err
		}
		for word, n := range excluded {
			if _, ok := df[word]; !ok {
				continue
			}
			df[word] -= n
			if df[word] <= 0 {
				delete(df, word)
			}
		}
	}
	return df, nil
}

func (cdb *CorpusDB) scanCounts(ctx context.Context, query string, args []any, into map[string]int) error {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query document frequencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			word string
			n    int
		)
		if err := rows.Scan(&word, &n); err != nil {
			return fmt.Errorf("failed to scan document frequency: %w", err)
		}
		into[word] = n
	}
	return rows.Err()
}

// TotalDocuments returns the number of indexed documents, leaving out the
// URLs in exclude. A document counts once it has been through the indexer,
// even when none of its words earned a positive weight.
func (cdb *CorpusDB) TotalDocuments(ctx context.Context, exclude []string) (int, error) {
	var n int
	query := "SELECT COUNT(*) FROM documents WHERE " + indexedFilter
	if err := cdb.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count indexed documents: %w", err)
	}

	for _, chunk := range chunks(unique(exclude), maxQueryParams) {
		var excluded int
		query := "SELECT COUNT(*) FROM documents WHERE url IN (" +
			placeholders(len(chunk)) + ") AND " + indexedFilter
		if err := cdb.db.QueryRowContext(ctx, query, toArgs(chunk)...).Scan(&excluded); err != nil {
			return 0, fmt.Errorf("failed to count indexed documents: %w", err)
		}
		n -= excluded
	}
	return n, nil
}

// SaveIndexEntries replaces the index entries of urls with entries in one
// transaction. URLs without entries end up with none.
func (cdb *CorpusDB) SaveIndexEntries(ctx context.Context, urls []string, entries []model.IndexEntry) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for _, chunk := range chunks(urls, maxQueryParams) {
		query := "DELETE FROM index_entries WHERE url IN (" + placeholders(len(chunk)) + ")"
		if _, err := tx.ExecContext(ctx, query, toArgs(chunk)...); err != nil {
			return fmt.Errorf("failed to delete index entries: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO index_entries (word, url, weight) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Word, e.URL, e.Weight); err != nil {
			return fmt.Errorf("failed to insert index entry: %w", err)
		}
	}

	return tx.Commit()
}

// Search returns the index entries for word ordered by descending weight.
// A limit of zero or less returns every entry.
func (cdb *CorpusDB) Search(ctx context.Context, word string, limit int) ([]model.IndexEntry, error) {
	query := "SELECT word, url, weight FROM index_entries WHERE word = ? ORDER BY weight DESC, url"
	args := []any{strings.ToLower(word)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	defer rows.Close()

	var entries []model.IndexEntry
	for rows.Next() {
		var e model.IndexEntry
		if err := rows.Scan(&e.Word, &e.URL, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan index entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// placeholders returns "?, ?, ..." with n placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// unique returns values without duplicates, sorted.
func unique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

// chunks splits values into slices of at most size elements.
func chunks(values []string, size int) [][]string {
	var out [][]string
	for len(values) > size {
		out = append(out, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

// timestampFormats lists the formats SQLite may return for DATETIME columns.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

// parseTimestamp parses a SQLite timestamp, returning zero time on failure.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
