// Package cache implements the dedup lookup the dispatcher consults before
// placing an entry into a batch: an exact hash match, or optionally the best
// fuzzy match above a similarity threshold, backed by a SQLite database so it
// survives across runs.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	_ "modernc.org/sqlite"
)

// Cache is a thread-safe, SQLite-backed translation cache keyed on
// source text + speaker.
type Cache struct {
	db             *sql.DB
	mu             sync.RWMutex
	fuzzyThreshold float64 // 0 disables fuzzy matching
	logger         *slog.Logger
}

// Open creates or reuses the SQLite cache database at path. A non-positive
// fuzzyThreshold disables fuzzy lookups; Lookup then only ever returns exact
// hash matches.
func Open(path string, fuzzyThreshold float64, logger *slog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: enable WAL: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{db: db, fuzzyThreshold: fuzzyThreshold, logger: logger}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_hash TEXT NOT NULL,
		source_text TEXT NOT NULL,
		speaker TEXT NOT NULL DEFAULT '',
		target_text TEXT NOT NULL,
		target_speaker TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used DATETIME DEFAULT CURRENT_TIMESTAMP,
		use_count INTEGER DEFAULT 1,
		UNIQUE(source_hash, speaker)
	);
	CREATE INDEX IF NOT EXISTS idx_source_hash ON translations(source_hash);
	CREATE INDEX IF NOT EXISTS idx_speaker ON translations(speaker);
	`
	_, err := c.db.Exec(schema)
	return err
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// Lookup satisfies pipeline.Cache: it returns an exact match when one
// exists, otherwise the closest fuzzy match above the configured threshold.
func (c *Cache) Lookup(source, speaker string) (target, targetSpeaker string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hash := hashText(source)
	var t, ts string
	err := c.db.QueryRow(`
		SELECT target_text, target_speaker FROM translations
		WHERE source_hash = ? AND speaker = ? LIMIT 1
	`, hash, speaker).Scan(&t, &ts)
	if err == nil {
		go c.touch(hash, speaker)
		return t, ts, true
	}
	if err != sql.ErrNoRows {
		c.logger.Warn("cache lookup failed", "error", err)
		return "", "", false
	}

	if c.fuzzyThreshold <= 0 {
		return "", "", false
	}
	return c.fuzzyLookup(source, speaker)
}

func (c *Cache) fuzzyLookup(source, speaker string) (target, targetSpeaker string, ok bool) {
	textLen := len(source)
	minLen := int(float64(textLen) * c.fuzzyThreshold)
	maxLen := int(float64(textLen) / c.fuzzyThreshold)

	rows, err := c.db.Query(`
		SELECT source_hash, source_text, target_text, target_speaker FROM translations
		WHERE speaker = ? AND LENGTH(source_text) BETWEEN ? AND ?
		ORDER BY last_used DESC
		LIMIT 500
	`, speaker, minLen, maxLen)
	if err != nil {
		c.logger.Warn("cache fuzzy lookup failed", "error", err)
		return "", "", false
	}
	defer rows.Close()

	var bestHash, bestTarget, bestSpeaker string
	var bestSim float64
	for rows.Next() {
		var hash, text, t, ts string
		if err := rows.Scan(&hash, &text, &t, &ts); err != nil {
			continue
		}
		sim := similarity(source, text)
		if sim >= c.fuzzyThreshold && sim > bestSim {
			bestSim, bestHash, bestTarget, bestSpeaker = sim, hash, t, ts
		}
	}
	if bestHash == "" {
		return "", "", false
	}
	go c.touch(bestHash, speaker)
	return bestTarget, bestSpeaker, true
}

func (c *Cache) touch(hash, speaker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(`
		UPDATE translations SET last_used = CURRENT_TIMESTAMP, use_count = use_count + 1
		WHERE source_hash = ? AND speaker = ?
	`, hash, speaker); err != nil {
		c.logger.Warn("cache touch failed", "error", err)
	}
}

// Store satisfies pipeline.Cache: it upserts the resolved translation,
// logging (rather than returning) any write failure, since the interface it
// implements is purely advisory from the dispatcher's point of view.
func (c *Cache) Store(source, speaker, target, targetSpeaker string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := hashText(source)
	_, err := c.db.Exec(`
		INSERT INTO translations (source_hash, source_text, speaker, target_text, target_speaker)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_hash, speaker) DO UPDATE SET
			target_text = excluded.target_text,
			target_speaker = excluded.target_speaker,
			last_used = CURRENT_TIMESTAMP,
			use_count = translations.use_count + 1
	`, hash, source, speaker, target, targetSpeaker)
	if err != nil {
		c.logger.Warn("cache store failed", "error", err)
	}
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
