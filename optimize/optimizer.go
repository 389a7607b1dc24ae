package optimize

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tokenlayer/oxpatch/debug"
	"github.com/tokenlayer/oxpatch/patchop"
	"github.com/tokenlayer/oxpatch/xmlir/epath"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 1000
)

type Config struct {
	// TTL bounds how long a cached result may be replayed. Zero means
	// DefaultTTL; negative disables expiry.
	TTL time.Duration
	// Capacity bounds the result cache; a store over capacity evicts
	// the entry with the oldest store time. Zero means DefaultCapacity;
	// negative leaves the cache unbounded.
	Capacity int
	Log      *slog.Logger
}

func DefaultConfig() *Config {
	return &Config{TTL: DefaultTTL, Capacity: DefaultCapacity}
}

// Key identifies one operation applied to one document: kind, raw
// target, a content hash of the payload and the document identity.
type Key struct {
	Kind   patchop.Kind
	Target string
	Value  string
	DocID  uint64
}

func KeyFor(op patchop.Operation, docID uint64) Key {
	return Key{
		Kind:   op.Kind,
		Target: op.Target,
		Value:  op.Value.ContentHash(),
		DocID:  docID,
	}
}

type entry struct {
	res    patchop.Result
	stored time.Time
}

// Optimizer owns the result cache and the compiled-path cache. One
// instance may serve processors on several goroutines; both caches
// take the optimizer lock, never any document.
type Optimizer struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	results map[Key]entry
	paths   map[string]*epath.Expr

	hits      uint64
	misses    uint64
	evictions uint64
	plans     uint64
	batched   uint64
}

func New(cfg *Config) *Optimizer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return &Optimizer{
		cfg:     c,
		now:     time.Now,
		results: make(map[Key]entry),
		paths:   make(map[string]*epath.Expr),
	}
}

// Lookup returns the replayable result stored under k. Expired entries
// are dropped on access and count as misses.
func (o *Optimizer) Lookup(k Key) (patchop.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.results[k]
	if ok && o.cfg.TTL > 0 && o.now().Sub(e.stored) > o.cfg.TTL {
		delete(o.results, k)
		ok = false
	}
	if !ok {
		o.misses++
		return patchop.Result{}, false
	}
	o.hits++
	if debug.Cache() {
		debug.Logf("cache: hit %s %s doc=%d\n", k.Kind, k.Target, k.DocID)
	}
	res := e.res
	res.CacheHit = true
	return res, true
}

// Store caches a successful result under k. Failures are never cached:
// replaying them would hide a later repair of the document.
func (o *Optimizer) Store(k Key, res patchop.Result) {
	if !res.Success {
		return
	}
	res.CacheHit = false
	res.Index = 0
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.results[k]; !exists && o.cfg.Capacity > 0 && len(o.results) >= o.cfg.Capacity {
		o.evictOldest()
	}
	o.results[k] = entry{res: res, stored: o.now()}
}

// evictOldest drops the entry with the oldest store time. Called with
// the lock held.
func (o *Optimizer) evictOldest() {
	var (
		victim Key
		oldest time.Time
		found  bool
	)
	for k, e := range o.results {
		if !found || e.stored.Before(oldest) {
			victim, oldest, found = k, e.stored, true
		}
	}
	if found {
		delete(o.results, victim)
		o.evictions++
		if debug.Cache() {
			debug.Logf("cache: evicted %s %s doc=%d\n", victim.Kind, victim.Target, victim.DocID)
		}
	}
}

// CompilePath parses target once and reuses the compiled expression
// across operations and documents for the life of the process.
func (o *Optimizer) CompilePath(target string) (*epath.Expr, error) {
	o.mu.Lock()
	if e, ok := o.paths[target]; ok {
		o.mu.Unlock()
		return e, nil
	}
	o.mu.Unlock()

	// Parse outside the lock; a duplicate parse on a race is harmless.
	e, err := epath.Parse(target)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.paths[target] = e
	o.mu.Unlock()
	return e, nil
}

type Stats struct {
	Hits          uint64  `json:"cache_hits"`
	Misses        uint64  `json:"cache_misses"`
	HitRate       float64 `json:"cache_hit_rate"`
	Entries       int     `json:"cache_entries"`
	Evictions     uint64  `json:"cache_evictions"`
	CompiledPaths int     `json:"compiled_paths"`
	BatchedOps    uint64  `json:"batched_operations"`
	Plans         uint64  `json:"order_optimizations"`
}

func (o *Optimizer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Stats{
		Hits:          o.hits,
		Misses:        o.misses,
		Entries:       len(o.results),
		Evictions:     o.evictions,
		CompiledPaths: len(o.paths),
		BatchedOps:    o.batched,
		Plans:         o.plans,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Reset zeroes every counter. The caches themselves survive: compiled
// paths live for the process, and cached results keep their TTL.
func (o *Optimizer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits = 0
	o.misses = 0
	o.evictions = 0
	o.plans = 0
	o.batched = 0
}
