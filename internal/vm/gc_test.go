package vm

import (
	"fmt"
	"testing"
)

func TestInterning(t *testing.T) {
	h := NewHeap(testConfig())
	a := h.Intern("abc")
	b := h.Intern("ab" + "c")
	if a != b {
		t.Error("Expected equal strings to intern to one object")
	}
	if a.Hash != hashString("abc") {
		t.Errorf("Expected cached hash %d, got %d", hashString("abc"), a.Hash)
	}
	if h.Intern("abd") == a {
		t.Error("Expected different strings to be distinct")
	}
}

func TestHashString(t *testing.T) {
	// FNV-1a, 32 bit.
	tests := []struct {
		input    string
		expected uint32
	}{
		{"", 2166136261},
		{"a", 0xe40c292c},
		{"foobar", 0xbf9cf968},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := hashString(tt.input); got != tt.expected {
				t.Errorf("hashString(%q) = %#x, want %#x", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := NewHeap(testConfig())
	h.Intern("garbage")
	fn := h.NewFunction()
	h.NewClosure(fn)

	if h.BytesAllocated() == 0 {
		t.Fatal("Expected allocation to be accounted")
	}
	h.Collect()

	stats := h.Stats()
	if stats.LiveObjects != 0 {
		t.Errorf("Expected no live objects, got %d", stats.LiveObjects)
	}
	if stats.ObjectsFreed != 3 {
		t.Errorf("Expected 3 freed objects, got %d", stats.ObjectsFreed)
	}
	if h.BytesAllocated() != 0 {
		t.Errorf("Expected 0 bytes after freeing everything, got %d", h.BytesAllocated())
	}
	if _, ok := h.FindString("garbage"); ok {
		t.Error("Expected unreachable string to leave the intern table")
	}
	if stats.NextGC != minNextGC {
		t.Errorf("Expected threshold floor %d, got %d", minNextGC, stats.NextGC)
	}
}

func TestProtectAndPin(t *testing.T) {
	h := NewHeap(testConfig())

	kept := h.Intern("protected")
	h.Protect(kept)
	h.Collect()
	if _, ok := h.FindString("protected"); !ok {
		t.Fatal("Expected protected string to survive")
	}
	h.Unprotect()
	h.Collect()
	if _, ok := h.FindString("protected"); ok {
		t.Error("Expected string to be freed once unprotected")
	}

	pinned := h.Intern("pinned")
	h.Pin(pinned)
	h.Pin(pinned)
	h.Unpin(pinned)
	h.Collect()
	if _, ok := h.FindString("pinned"); !ok {
		t.Fatal("Expected string pinned twice to survive one Unpin")
	}
	h.Unpin(pinned)
	h.Collect()
	if _, ok := h.FindString("pinned"); ok {
		t.Error("Expected string to be freed after the last Unpin")
	}
}

func TestCollectTracesReferences(t *testing.T) {
	h := NewHeap(testConfig())

	name := h.Intern("Point")
	h.Protect(name)
	class := h.NewClass(name)
	h.Protect(class)
	instance := h.NewInstance(class)
	h.Protect(instance)
	field := h.Intern("x")
	instance.Fields[field] = ObjVal(h.Intern("value"))

	h.Collect()

	for _, s := range []string{"Point", "x", "value"} {
		if _, ok := h.FindString(s); !ok {
			t.Errorf("Expected %q to be reachable through the instance", s)
		}
	}
	if got := h.Stats().LiveObjects; got != 5 {
		t.Errorf("Expected 5 live objects, got %d", got)
	}
	h.Unprotect()
}

func TestGlobalsAreRoots(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, `var s = "a" + "b"; class C {} var c = C(); c.f = "field";`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := machine.Interpret(fn); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	machine.Heap().Collect()

	v, ok := machine.Global("s")
	if !ok || !v.IsString() || v.AsString().Chars != "ab" {
		t.Errorf("Expected s = ab after collection, got %s", v)
	}
	c, _ := machine.Global("c")
	f := c.AsInstance().Fields[machine.Heap().Intern("f")]
	if f.AsString().Chars != "field" {
		t.Errorf("Expected field to survive, got %s", f)
	}
	if _, ok := machine.Heap().FindString("init"); !ok {
		t.Error("Expected init string to stay interned")
	}
}

func TestCompilerFunctionsAreRoots(t *testing.T) {
	// Under stress every allocation collects, including the constants of a
	// function whose compilation has not finished.
	out, err := interpret(t, stressConfig(), `
fun outer() {
  var a = "one";
  fun inner() {
    var b = "two";
    return a + " " + b + " " + "three";
  }
  return inner();
}
print outer();`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "one two three\n" {
		t.Errorf("Expected 'one two three', got %q", out)
	}
}

func TestStressGCWorkload(t *testing.T) {
	source := `
class Node {
  init(value, next) { this.value = value; this.next = next; }
}
var list = nil;
for (var i = 0; i < 200; i = i + 1) {
  list = Node(i, list);
}
var sum = 0;
while (list != nil) {
  sum = sum + list.value;
  list = list.next;
}
print sum;

var s = "";
for (var i = 0; i < 50; i = i + 1) { s = s + "x"; }
print s == "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx";

fun adders() {
  var fns = nil;
  for (var i = 0; i < 10; i = i + 1) {
    var j = i;
    fun add(x) { return x + j; }
    fns = Node(add, fns);
  }
  return fns;
}
var total = 0;
for (var n = adders(); n != nil; n = n.next) { total = n.value(total); }
print total;
`
	machine, out := newTestVM(stressConfig())
	fn, err := compileOn(t, machine, source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := machine.Interpret(fn); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if out.String() != "19900\ntrue\n45\n" {
		t.Errorf("Unexpected output %q", out.String())
	}

	stats := machine.Heap().Stats()
	if stats.Collections == 0 || stats.ObjectsFreed == 0 {
		t.Errorf("Expected collections to free objects, got %+v", stats)
	}
}

func TestThresholdGrowth(t *testing.T) {
	tests := []struct {
		name  string
		grow  float64
		live  int // bytes kept pinned through the collection
		floor bool
	}{
		{"floor on small heap", 2, 0, true},
		{"doubles live bytes", 2, 4096, false},
		{"fractional factor", 1.5, 4096, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.GCInitialThreshold = 1 << 30
			cfg.GCGrowFactor = tt.grow
			h := NewHeap(cfg)

			var keep []*ObjString
			for i := 0; h.BytesAllocated() < tt.live; i++ {
				s := h.Intern(fmt.Sprintf("live-%d", i))
				h.Pin(s)
				keep = append(keep, s)
			}
			h.Intern("garbage")
			h.Collect()

			after := h.BytesAllocated()
			want := int(float64(after) * tt.grow)
			if want < minNextGC {
				want = minNextGC
			}
			stats := h.Stats()
			if stats.NextGC != want {
				t.Errorf("Expected next threshold %d for %d live bytes, got %d", want, after, stats.NextGC)
			}
			if tt.floor && stats.NextGC != minNextGC {
				t.Errorf("Expected floor %d, got %d", minNextGC, stats.NextGC)
			}
			if !tt.floor && stats.NextGC <= minNextGC {
				t.Errorf("Expected threshold above floor, got %d", stats.NextGC)
			}
			for _, s := range keep {
				h.Unpin(s)
			}
		})
	}
}
