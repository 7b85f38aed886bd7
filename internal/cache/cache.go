// Package cache stores lint results on disk, keyed by a digest of the
// file content and the rule configuration that produced them.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/source"
)

// schemaVersion changes whenever the entry layout or rule behavior does.
const schemaVersion uint16 = 2

// ErrSchemaMismatch is returned for entries written by another version.
var ErrSchemaMismatch = errors.New("cache entry has a different schema")

// Key identifies one lint run.
type Key [sha256.Size]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// NewKey digests everything a lint result depends on: the source kind,
// the enabled rules, their severities, the parser limit and the content.
func NewKey(kind source.Kind, rules []linter.Rule, cfg linter.Config, content string) Key {
	h := sha256.New()
	field := func(s string) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	field(fmt.Sprintf("schema=%d kind=%s max-line=%d", schemaVersion, kind, cfg.MaxLineLength))
	codes := make([]string, 0, len(rules))
	for _, r := range rules {
		codes = append(codes, r.Code())
	}
	slices.Sort(codes)
	for _, code := range codes {
		if cfg.Disabled[code] {
			continue
		}
		field(code + "=" + severityName(cfg.Severity, code))
	}
	field(content)

	var k Key
	h.Sum(k[:0])
	return k
}

func severityName(m map[string]diag.Severity, code string) string {
	if s, ok := m[code]; ok {
		return s.String()
	}
	return "default"
}

// entry is the on-disk form of a result.
type entry struct {
	Schema      uint16            `msgpack:"schema"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
}

// Cache is a directory of msgpack entries. It is safe for concurrent use.
// A nil *Cache never hits and discards writes.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns $XDG_CACHE_HOME/makepure, falling back to the
// user cache directory of the platform.
func DefaultDir() (string, error) {
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, "makepure"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	return filepath.Join(base, "makepure"), nil
}

// Open creates dir if needed and returns a cache rooted there. An empty
// dir selects DefaultDir.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "lint"), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Key) string {
	return filepath.Join(c.dir, "lint", key.String()+".mp")
}

// Get returns the stored result for key with its locations resolved
// against file. Entries are shared by files with the same content, so
// nothing file specific is stored. A missing entry is a miss, not an
// error.
func (c *Cache) Get(key Key, file *source.File) (diag.Result, bool, error) {
	if c == nil {
		return diag.Result{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return diag.Result{}, false, nil
	}
	if err != nil {
		return diag.Result{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var e entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return diag.Result{}, false, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	if e.Schema != schemaVersion {
		return diag.Result{}, false, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, e.Schema, schemaVersion)
	}
	for i := range e.Diagnostics {
		e.Diagnostics[i].Location = file.Locate(e.Diagnostics[i].Span.Start)
	}
	return diag.NewResult(e.Diagnostics), true, nil
}

// Put stores res under key. The entry is written to a temporary file and
// renamed into place so readers never see a partial entry.
func (c *Cache) Put(key Key, res diag.Result) error {
	if c == nil {
		return nil
	}
	diags := slices.Clone(res.Diagnostics)
	for i := range diags {
		diags[i].Location = source.Location{}
	}
	data, err := msgpack.Marshal(&entry{Schema: schemaVersion, Diagnostics: diags})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
