package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// CodeCache persists generated checker code across processes. Entries are
// keyed by the hint's structural key plus the configuration digest, so two
// runs over the same hint and configuration share one generation.
type CodeCache struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// CodeEntry is one persisted generation result.
type CodeEntry struct {
	HintText   string
	ConfDigest string
	Code       string
	ScopeKeys  []string
	RelRefs    []string
	CreatedAt  time.Time
}

// NewCodeCache creates a code cache over an open database.
func NewCodeCache(db *DB) (*CodeCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &CodeCache{db: db, enc: enc, dec: dec}, nil
}

// Close releases the compressor state. The database itself stays open.
func (c *CodeCache) Close() {
	c.enc.Close()
	c.dec.Close()
}

// CacheKey derives the stable lookup key for a hint key and conf digest.
func CacheKey(hintKey, confDigest string) string {
	sum := blake2b.Sum256([]byte(hintKey + "\x00" + confDigest))
	return hex.EncodeToString(sum[:16])
}

// Get retrieves a persisted entry. The second result is false on a miss.
func (c *CodeCache) Get(cacheKey string) (*CodeEntry, bool, error) {
	var (
		hintText   string
		confDigest string
		blob       []byte
		scopeKeys  string
		relRefs    string
		createdAt  string
	)
	err := c.db.QueryRow(`
		SELECT hint_text, conf_digest, code_zstd, scope_keys, rel_refs, created_at
		FROM code_cache
		WHERE cache_key = ?
	`, cacheKey).Scan(&hintText, &confDigest, &blob, &scopeKeys, &relRefs, &createdAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("code cache lookup failed: %w", err)
	}

	code, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress cached code: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("invalid created_at format: %w", err)
	}

	return &CodeEntry{
		HintText:   hintText,
		ConfDigest: confDigest,
		Code:       string(code),
		ScopeKeys:  splitList(scopeKeys),
		RelRefs:    splitList(relRefs),
		CreatedAt:  ts,
	}, true, nil
}

// Set stores a generation result, replacing any previous entry for the key.
func (c *CodeCache) Set(cacheKey string, entry *CodeEntry) error {
	blob := c.enc.EncodeAll([]byte(entry.Code), nil)
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO code_cache
			(cache_key, hint_text, conf_digest, code_zstd, scope_keys, rel_refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cacheKey, entry.HintText, entry.ConfDigest, blob,
		joinList(entry.ScopeKeys), joinList(entry.RelRefs),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set code cache: %w", err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries     int
	TotalBytes  int64
	ConfDigests int
}

func (c *CodeCache) Stats() (*Stats, error) {
	var s Stats
	err := c.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(LENGTH(code_zstd)), 0),
		       COUNT(DISTINCT conf_digest)
		FROM code_cache
	`).Scan(&s.Entries, &s.TotalBytes, &s.ConfDigests)
	if err != nil {
		return nil, fmt.Errorf("failed to read code cache stats: %w", err)
	}
	return &s, nil
}

// Clear removes every entry and reports how many were deleted.
func (c *CodeCache) Clear() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM code_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear code cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
