// Package router implements the longest-prefix, parameterized message
// router described in spec §4.6: patterns compile once, a concrete
// path is matched against the candidate with the greatest literal
// segment count (ties broken by registration order), and matches are
// cached with LRU eviction.
package router

import (
	"container/list"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/davecgh/go-spew/spew"
	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
)

// Handler processes a matched message with its extracted path
// parameters and the registration-time metadata.
type Handler func(msg message.Message, params map[string]string, meta Metadata) (any, error)

// Metadata is the caller-supplied annotation attached at registration.
type Metadata struct {
	Priority    int
	Description string
	Extra       map[string]any
}

// Config carries the router's §6 configuration sub-object.
type Config struct {
	CacheCapacity int
	Debug         bool
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind  segmentKind
	text  string // literal text, or param name
}

type compiled struct {
	pattern        string
	segments       []segment
	literalCount   int
	isWildcard     bool
	handler        Handler
	meta           Metadata
	registrationNo int
}

type matchRecord struct {
	handler Handler
	meta    Metadata
	params  map[string]string
}

// Router is a registry of compiled patterns plus a bounded match
// cache.
type Router struct {
	mu sync.Mutex

	cfg Config

	byFirstLiteral map[string][]*compiled
	openRoots      []*compiled // patterns whose first segment is {param} or *
	all            map[string]*compiled
	seenLiterals   *bloom.BloomFilter
	nextReg        int

	cacheCap   int
	cacheList  *list.List
	cacheItems map[string]*list.Element

	log func(string, ...any)
}

type cacheEntry struct {
	path   string
	record matchRecord
}

// New builds a Router from cfg. A zero CacheCapacity defaults to 256.
func New(cfg Config) *Router {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = 256
	}
	return &Router{
		cfg:            cfg,
		byFirstLiteral: make(map[string][]*compiled),
		all:            make(map[string]*compiled),
		seenLiterals:   bloom.NewWithEstimates(1024, 0.01),
		cacheCap:       cfg.CacheCapacity,
		cacheList:      list.New(),
		cacheItems:     make(map[string]*list.Element),
	}
}

// SetLogger installs a trace callback invoked when cfg.Debug is true.
func (r *Router) SetLogger(log func(string, ...any)) { r.log = log }

func (r *Router) trace(format string, args ...any) {
	if r.cfg.Debug && r.log != nil {
		r.log(format, args...)
	}
}

func compilePattern(pattern string) (*compiled, error) {
	if pattern == "" {
		return nil, errs.New(errs.InvalidArgument, "pattern must be non-empty")
	}
	parts := strings.Split(pattern, "/")
	segs := make([]segment, 0, len(parts))
	literalCount := 0
	isWildcard := false
	for i, p := range parts {
		switch {
		case p == "*":
			if i != len(parts)-1 {
				return nil, errs.New(errs.InvalidArgument, "wildcard '*' may only appear as the final segment")
			}
			segs = append(segs, segment{kind: segWildcard})
			isWildcard = true
		case strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") && len(p) > 2:
			segs = append(segs, segment{kind: segParam, text: p[1 : len(p)-1]})
		default:
			segs = append(segs, segment{kind: segLiteral, text: p})
			literalCount++
		}
	}
	return &compiled{pattern: pattern, segments: segs, literalCount: literalCount, isWildcard: isWildcard}, nil
}

// RegisterRoute compiles and stores pattern, rejecting duplicates and
// non-callable handlers.
func (r *Router) RegisterRoute(pattern string, handler Handler, meta Metadata) error {
	if handler == nil {
		return errs.New(errs.InvalidArgument, "handler must be callable")
	}
	c, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.all[pattern]; exists {
		return errs.New(errs.DuplicatePattern, "pattern %q already registered", pattern)
	}
	c.handler = handler
	c.meta = meta
	c.registrationNo = r.nextReg
	r.nextReg++
	r.all[pattern] = c

	if len(c.segments) > 0 && c.segments[0].kind == segLiteral {
		r.byFirstLiteral[c.segments[0].text] = append(r.byFirstLiteral[c.segments[0].text], c)
		r.seenLiterals.AddString(c.segments[0].text)
	} else {
		r.openRoots = append(r.openRoots, c)
	}
	r.invalidateCacheLocked()
	r.trace("router: registered %q", pattern)
	return nil
}

// UnregisterRoute removes pattern. It is a no-op if pattern was never
// registered.
func (r *Router) UnregisterRoute(pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.all[pattern]
	if !ok {
		return
	}
	delete(r.all, pattern)
	if len(c.segments) > 0 && c.segments[0].kind == segLiteral {
		bucket := r.byFirstLiteral[c.segments[0].text]
		for i, cand := range bucket {
			if cand == c {
				r.byFirstLiteral[c.segments[0].text] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	} else {
		for i, cand := range r.openRoots {
			if cand == c {
				r.openRoots = append(r.openRoots[:i], r.openRoots[i+1:]...)
				break
			}
		}
	}
	r.invalidateCacheLocked()
}

func (r *Router) invalidateCacheLocked() {
	r.cacheList = list.New()
	r.cacheItems = make(map[string]*list.Element)
}

// Match returns the best matching handler, its extracted params, and
// its metadata for a concrete path.
func (r *Router) Match(path string) (Handler, map[string]string, Metadata, error) {
	if path == "" {
		return nil, nil, Metadata{}, errs.New(errs.InvalidMessage, "path must be non-empty")
	}

	r.mu.Lock()
	if el, ok := r.cacheItems[path]; ok {
		r.cacheList.MoveToFront(el)
		rec := el.Value.(*cacheEntry).record
		r.mu.Unlock()
		r.trace("router: cache hit %q", path)
		return rec.handler, rec.params, rec.meta, nil
	}
	r.mu.Unlock()

	pathSegs := strings.Split(path, "/")

	r.mu.Lock()
	candidates := make([]*compiled, 0, 4)
	firstLiteral := pathSegs[0]
	if r.seenLiterals.TestString(firstLiteral) {
		candidates = append(candidates, r.byFirstLiteral[firstLiteral]...)
	}
	candidates = append(candidates, r.openRoots...)
	r.mu.Unlock()

	var best *compiled
	var bestParams map[string]string
	for _, c := range candidates {
		params, ok := matchSegments(c, pathSegs)
		if !ok {
			continue
		}
		if best == nil ||
			c.literalCount > best.literalCount ||
			(c.literalCount == best.literalCount && c.registrationNo < best.registrationNo) {
			best = c
			bestParams = params
		}
	}

	if best == nil {
		r.trace("router: no route for %q", path)
		return nil, nil, Metadata{}, errs.New(errs.NoRoute, "no route matches %q", path)
	}

	rec := matchRecord{handler: best.handler, meta: best.meta, params: bestParams}
	r.mu.Lock()
	r.storeCacheLocked(path, rec)
	r.mu.Unlock()

	return rec.handler, rec.params, rec.meta, nil
}

func (r *Router) storeCacheLocked(path string, rec matchRecord) {
	if el, ok := r.cacheItems[path]; ok {
		el.Value.(*cacheEntry).record = rec
		r.cacheList.MoveToFront(el)
		return
	}
	el := r.cacheList.PushFront(&cacheEntry{path: path, record: rec})
	r.cacheItems[path] = el
	if r.cacheList.Len() > r.cacheCap {
		oldest := r.cacheList.Back()
		if oldest != nil {
			r.cacheList.Remove(oldest)
			delete(r.cacheItems, oldest.Value.(*cacheEntry).path)
		}
	}
}

func matchSegments(c *compiled, pathSegs []string) (map[string]string, bool) {
	var params map[string]string
	for i, seg := range c.segments {
		switch seg.kind {
		case segWildcard:
			if i >= len(pathSegs) {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params["*"] = strings.Join(pathSegs[i:], "/")
			return params, true
		case segParam:
			if i >= len(pathSegs) {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.text] = pathSegs[i]
		default:
			if i >= len(pathSegs) || pathSegs[i] != seg.text {
				return nil, false
			}
		}
	}
	if len(c.segments) != len(pathSegs) {
		return nil, false
	}
	return params, true
}

// Route dispatches msg through Match, invoking the handler with its
// params and metadata.
func (r *Router) Route(msg message.Message) (any, error) {
	if msg == nil || msg.GetPath() == "" {
		return nil, errs.New(errs.InvalidMessage, "message has no path")
	}
	handler, params, meta, err := r.Match(msg.GetPath())
	if err != nil {
		return nil, err
	}
	r.trace("router: dispatching %q params=%s", msg.GetPath(), spew.Sdump(params))
	return handler(msg, params, meta)
}
