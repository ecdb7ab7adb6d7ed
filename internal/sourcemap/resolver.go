// Package sourcemap fetches and decodes source maps to resolve bundled
// (file, line, column) positions back to original source coordinates.
package sourcemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/healops/healops-go/internal/healopserr"
	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/selflog"
)

// chunkPattern matches a webpack/Next.js content-hashed chunk file name,
// one of the four bundled-path signals alongside the fixed substrings
// checked directly in IsBundledPath.
var chunkPattern = regexp.MustCompile(`chunk-[a-f0-9]+\.js`)

// CacheBackend abstracts the two caches a Resolver needs: a negative/
// positive cache of "url -> map URL" and a cache of parsed Consumers keyed
// by map URL. The default implementation is in-process and bounded; an
// optional Redis-backed implementation shares both caches across SDK
// instances behind the same load balancer.
type CacheBackend interface {
	// GetMapURL returns a previously resolved (or negatively cached) map
	// URL for a bundled file URL. ok is false on a cache miss.
	GetMapURL(bundledURL string) (mapURL string, negative bool, ok bool)
	// PutMapURL records the resolved map URL, or a negative result when
	// mapURL is empty.
	PutMapURL(bundledURL, mapURL string)
	// GetConsumer returns a previously parsed Consumer for a map URL.
	GetConsumer(mapURL string) (*Consumer, bool)
	// PutConsumer records a parsed Consumer for a map URL.
	PutConsumer(mapURL string, c *Consumer)
}

// localCache is the default in-process CacheBackend: two bounded LRU
// caches using only Add/Peek, never Get, so reads never change eviction
// order. golang-lru's Get call promotes an entry's recency; skipping it
// makes entries leave in the order they were last added. Adding a key that
// is already present moves it to the newest position.
type localCache struct {
	mapURLs   *lru.Cache[string, string]
	consumers *lru.Cache[string, *Consumer]
}

// newLocalCache builds a localCache sized to hold size entries in each of
// its two caches.
func newLocalCache(size int) *localCache {
	mapURLs, _ := lru.New[string, string](size)
	consumers, _ := lru.New[string, *Consumer](size)
	return &localCache{mapURLs: mapURLs, consumers: consumers}
}

func (c *localCache) GetMapURL(bundledURL string) (string, bool, bool) {
	v, ok := c.mapURLs.Peek(bundledURL)
	if !ok {
		return "", false, false
	}
	return v, v == "", true
}

func (c *localCache) PutMapURL(bundledURL, mapURL string) {
	c.mapURLs.Add(bundledURL, mapURL)
}

func (c *localCache) GetConsumer(mapURL string) (*Consumer, bool) {
	return c.consumers.Peek(mapURL)
}

func (c *localCache) PutConsumer(mapURL string, cons *Consumer) {
	c.consumers.Add(mapURL, cons)
}

// Resolver fetches and caches source maps, resolving bundled frames to
// original source positions.
type Resolver struct {
	httpClient *http.Client
	cache      CacheBackend
	log        selflog.Logger
	fetchBudget time.Duration
}

// Options configures a Resolver.
type Options struct {
	CacheSize   int
	CacheBackend CacheBackend // overrides the default in-process cache when set
	FetchBudget time.Duration
	Log         selflog.Logger
}

// New constructs a Resolver. When opts.CacheBackend is nil a bounded
// in-process cache of opts.CacheSize entries is used.
func New(opts Options) *Resolver {
	cache := opts.CacheBackend
	if cache == nil {
		cache = newLocalCache(opts.CacheSize)
	}
	budget := opts.FetchBudget
	if budget <= 0 {
		budget = 2 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = selflog.NewNoOp()
	}
	return &Resolver{
		httpClient:  &http.Client{Timeout: budget},
		cache:       cache,
		log:         log,
		fetchBudget: budget,
	}
}

// IsBundledPath reports whether a frame's file name looks like a bundled
// (generated) artifact worth trying to resolve, rather than an already
// original source file (e.g. a TypeScript path already pointing at .ts).
// A path matches if it contains any of "/_next/static/chunks/",
// "/_next/static/", ".min.js", or a "chunk-<hex>.js" segment; anything
// else, including an ordinary .js source file, is treated as already
// original.
func IsBundledPath(fileName string) bool {
	if fileName == "" || strings.HasPrefix(fileName, "data:") {
		return false
	}
	return strings.Contains(fileName, "/_next/static/chunks/") ||
		strings.Contains(fileName, "/_next/static/") ||
		strings.Contains(fileName, ".min.js") ||
		chunkPattern.MatchString(fileName)
}

// Resolve attempts to map a single frame back to its original source
// location. It returns the frame unchanged (Resolved=false) whenever the
// map is unavailable, unparsable, or the bundled URL is not eligible —
// this is a best-effort enrichment, never a hard failure for the caller.
func (r *Resolver) Resolve(ctx context.Context, frame record.Frame) record.Frame {
	if !IsBundledPath(frame.FileName) {
		return frame
	}

	ctx, cancel := context.WithTimeout(ctx, r.fetchBudget)
	defer cancel()

	consumer, err := r.consumerFor(ctx, frame.FileName)
	if err != nil {
		r.log.WithField("file", frame.FileName).Debug("source map unavailable: " + err.Error())
		return frame
	}

	orig := consumer.OriginalPosition(frame.LineNumber-1, frame.ColumnNumber)
	if !orig.Found {
		return frame
	}

	resolved := frame
	resolved.FileName = orig.Source
	resolved.LineNumber = orig.Line + 1
	resolved.ColumnNumber = orig.Column
	if orig.Name != "" {
		resolved.FunctionName = orig.Name
	}
	resolved.Resolved = true
	return resolved
}

func (r *Resolver) consumerFor(ctx context.Context, bundledURL string) (*Consumer, error) {
	mapURL, negative, ok := r.cache.GetMapURL(bundledURL)
	if ok {
		if negative {
			return nil, healopserr.SourceMapUnavailable(bundledURL, nil)
		}
		if c, ok := r.cache.GetConsumer(mapURL); ok {
			return c, nil
		}
	} else {
		var err error
		mapURL, err = r.discoverMapURL(ctx, bundledURL)
		if err != nil {
			r.cache.PutMapURL(bundledURL, "")
			return nil, err
		}
		r.cache.PutMapURL(bundledURL, mapURL)
	}

	raw, err := r.fetch(ctx, mapURL)
	if err != nil {
		r.cache.PutMapURL(bundledURL, "")
		return nil, err
	}

	consumer, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	r.cache.PutConsumer(mapURL, consumer)
	if rawStorer, ok := r.cache.(rawSourceMapStorer); ok {
		rawStorer.PutRawSourceMap(mapURL, raw)
	}
	return consumer, nil
}

// rawSourceMapStorer is implemented by cache backends (RedisCache) that
// cannot serialize a parsed Consumer directly and instead store the raw
// fetched bytes, reparsing them locally on every read.
type rawSourceMapStorer interface {
	PutRawSourceMap(mapURL string, raw []byte)
}

// discoverMapURL fetches the bundle's trailing "//# sourceMappingURL="
// comment and resolves it against the bundle's own URL.
func (r *Resolver) discoverMapURL(ctx context.Context, bundledURL string) (string, error) {
	body, err := r.fetch(ctx, bundledURL)
	if err != nil {
		return "", err
	}

	const marker = "//# sourceMappingURL="
	idx := strings.LastIndex(string(body), marker)
	if idx < 0 {
		return "", healopserr.SourceMapUnavailable(bundledURL, fmt.Errorf("no sourceMappingURL comment"))
	}
	rel := strings.TrimSpace(string(body)[idx+len(marker):])
	if nl := strings.IndexByte(rel, '\n'); nl >= 0 {
		rel = rel[:nl]
	}

	base, err := url.Parse(bundledURL)
	if err != nil {
		return "", err
	}
	mapURL, err := base.Parse(rel)
	if err != nil {
		return "", err
	}
	return mapURL.String(), nil
}

func (r *Resolver) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, healopserr.SourceMapUnavailable(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, healopserr.SourceMapUnavailable(u, fmt.Errorf("404"))
	}
	if resp.StatusCode >= 400 {
		return nil, healopserr.SourceMapUnavailable(u, fmt.Errorf("status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}
