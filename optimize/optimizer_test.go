package optimize

import (
	"sync"
	"testing"
	"time"

	"github.com/tokenlayer/oxpatch/patchop"
)

func textSet(target, text string) patchop.Operation {
	return patchop.Operation{Kind: patchop.Set, Target: target, Value: patchop.TextValue(text)}
}

func TestLookupStoreRoundTrip(t *testing.T) {
	o := New(nil)
	op := textSet("//w:t", "new")
	k := KeyFor(op, 7)

	if _, ok := o.Lookup(k); ok {
		t.Fatal("lookup on empty cache succeeded")
	}
	o.Store(k, patchop.Succeeded(op, 1))

	res, ok := o.Lookup(k)
	if !ok {
		t.Fatal("stored result not found")
	}
	if !res.CacheHit {
		t.Error("replayed result not marked as cache hit")
	}
	if !res.Success || res.AffectedElements != 1 {
		t.Errorf("replayed result = %+v", res)
	}

	st := o.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", st.HitRate)
	}
}

func TestFailuresNotCached(t *testing.T) {
	o := New(nil)
	op := textSet("//w:t", "new")
	k := KeyFor(op, 1)
	o.Store(k, patchop.ZeroMatch(op))
	if _, ok := o.Lookup(k); ok {
		t.Fatal("failed result was cached")
	}
}

func TestKeyDistinguishesValueAndDocument(t *testing.T) {
	a := KeyFor(textSet("//w:t", "x"), 1)
	b := KeyFor(textSet("//w:t", "y"), 1)
	c := KeyFor(textSet("//w:t", "x"), 2)
	d := KeyFor(textSet("//w:t", "x"), 1)
	if a == b {
		t.Error("different payloads share a key")
	}
	if a == c {
		t.Error("different documents share a key")
	}
	if a != d {
		t.Error("identical operations do not share a key")
	}
}

func TestTTLExpiry(t *testing.T) {
	o := New(&Config{TTL: time.Minute})
	clock := time.Unix(1000, 0)
	o.now = func() time.Time { return clock }

	op := textSet("//w:t", "x")
	k := KeyFor(op, 1)
	o.Store(k, patchop.Succeeded(op, 1))

	clock = clock.Add(59 * time.Second)
	if _, ok := o.Lookup(k); !ok {
		t.Fatal("entry expired before its TTL")
	}
	clock = clock.Add(2 * time.Minute)
	if _, ok := o.Lookup(k); ok {
		t.Fatal("entry survived past its TTL")
	}
	if st := o.Stats(); st.Entries != 0 {
		t.Errorf("expired entry still counted: %+v", st)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	o := New(&Config{Capacity: 2})
	clock := time.Unix(1000, 0)
	o.now = func() time.Time { return clock }

	ops := []patchop.Operation{
		textSet("//w:t[1]", "a"),
		textSet("//w:t[2]", "b"),
		textSet("//w:t[3]", "c"),
	}
	for _, op := range ops {
		o.Store(KeyFor(op, 1), patchop.Succeeded(op, 1))
		clock = clock.Add(time.Second)
	}

	if _, ok := o.Lookup(KeyFor(ops[0], 1)); ok {
		t.Error("oldest entry not evicted")
	}
	for _, op := range ops[1:] {
		if _, ok := o.Lookup(KeyFor(op, 1)); !ok {
			t.Errorf("entry for %s missing", op.Target)
		}
	}
	if st := o.Stats(); st.Evictions != 1 || st.Entries != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStoreExistingKeyDoesNotEvict(t *testing.T) {
	o := New(&Config{Capacity: 2})
	a, b := textSet("//w:t[1]", "a"), textSet("//w:t[2]", "b")
	o.Store(KeyFor(a, 1), patchop.Succeeded(a, 1))
	o.Store(KeyFor(b, 1), patchop.Succeeded(b, 1))
	o.Store(KeyFor(a, 1), patchop.Succeeded(a, 2))

	if st := o.Stats(); st.Evictions != 0 || st.Entries != 2 {
		t.Errorf("stats = %+v", st)
	}
	res, ok := o.Lookup(KeyFor(a, 1))
	if !ok || res.AffectedElements != 2 {
		t.Errorf("restore did not overwrite: ok=%v res=%+v", ok, res)
	}
}

func TestCompilePathCachesExpressions(t *testing.T) {
	o := New(nil)
	e1, err := o.CompilePath("//w:body/w:p")
	if err != nil {
		t.Fatal(err)
	}
	e2, err := o.CompilePath("//w:body/w:p")
	if err != nil {
		t.Fatal(err)
	}
	if e1 != e2 {
		t.Error("second compile did not reuse the cached expression")
	}
	if st := o.Stats(); st.CompiledPaths != 1 {
		t.Errorf("compiled paths = %d, want 1", st.CompiledPaths)
	}

	if _, err := o.CompilePath("//w:"); err == nil {
		t.Fatal("expected syntax error")
	}
	if st := o.Stats(); st.CompiledPaths != 1 {
		t.Error("broken path was cached")
	}
}

func TestPlanOrder(t *testing.T) {
	ops := []patchop.Operation{
		{Kind: patchop.Extend, Target: "//w:body", Value: patchop.StringList("a")},
		textSet("//w:t", "x"),
		{Kind: patchop.Merge, Target: "//w:pPr", Value: patchop.StringMap(map[string]string{"k": "v"})},
		{Kind: patchop.Set, Target: "//w:p", Value: patchop.FragmentValue("<w:r/>")},
		{Kind: patchop.Insert, Target: "//w:body", Value: patchop.FragmentValue("<w:p/>")},
		textSet("//w:t[2]", "y"),
	}

	o := New(nil)
	order := o.PlanOrder(ops)
	want := []int{1, 5, 3, 4, 2, 0}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if st := o.Stats(); st.Plans != 1 {
		t.Errorf("plans = %d, want 1", st.Plans)
	}

	// Already-ordered input counts as no optimization.
	o2 := New(nil)
	o2.PlanOrder([]patchop.Operation{textSet("//a", "1"), textSet("//b", "2")})
	if st := o2.Stats(); st.Plans != 0 {
		t.Errorf("identity plan counted: %+v", st)
	}
}

func TestGroupBatches(t *testing.T) {
	ops := []patchop.Operation{
		textSet("//w:t", "a"),
		textSet("//w:t", "b"),
		{Kind: patchop.Set, Target: "//w:t", Value: patchop.TextValue("c"),
			NamespaceOverrides: map[string]string{"w": "urn:other"}},
		textSet("//w:p", "d"),
		textSet("//w:p", "e"),
	}
	o := New(nil)
	order := []int{0, 1, 2, 3, 4}
	batches := o.GroupBatches(ops, order)

	if len(batches) != 3 {
		t.Fatalf("got %d batches: %+v", len(batches), batches)
	}
	if len(batches[0].Indices) != 2 || len(batches[1].Indices) != 1 || len(batches[2].Indices) != 2 {
		t.Errorf("batch shapes: %+v", batches)
	}

	// Flattening the batches reproduces the order untouched.
	var flat []int
	for _, b := range batches {
		flat = append(flat, b.Indices...)
	}
	for i := range order {
		if flat[i] != order[i] {
			t.Fatalf("grouping reordered execution: %v", flat)
		}
	}
	if st := o.Stats(); st.BatchedOps != 4 {
		t.Errorf("batched ops = %d, want 4", st.BatchedOps)
	}
}

func TestResetKeepsCaches(t *testing.T) {
	o := New(nil)
	op := textSet("//w:t", "x")
	k := KeyFor(op, 1)
	o.Store(k, patchop.Succeeded(op, 1))
	o.Lookup(k)
	if _, err := o.CompilePath("//w:t"); err != nil {
		t.Fatal(err)
	}

	o.Reset()
	st := o.Stats()
	if st.Hits != 0 || st.Misses != 0 || st.Plans != 0 || st.BatchedOps != 0 {
		t.Errorf("counters survived reset: %+v", st)
	}
	if st.Entries != 1 || st.CompiledPaths != 1 {
		t.Errorf("reset dropped caches: %+v", st)
	}
	if _, ok := o.Lookup(k); !ok {
		t.Error("cached result lost on reset")
	}
}

func TestConcurrentAccess(t *testing.T) {
	o := New(nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				op := textSet("//w:t", "x")
				k := KeyFor(op, uint64(g))
				o.Store(k, patchop.Succeeded(op, 1))
				o.Lookup(k)
				if _, err := o.CompilePath("//w:body/w:p"); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if st := o.Stats(); st.Hits == 0 {
		t.Errorf("stats = %+v", st)
	}
}
