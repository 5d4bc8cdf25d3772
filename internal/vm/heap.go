package vm

import (
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/funvibe/loxvm/internal/config"
)

// minNextGC keeps a nearly empty heap from collecting on every allocation.
const minNextGC = 1024

// Heap owns every Lox object. The compiler and the VM allocate through the
// same Heap so string constants are interned once and shared.
type Heap struct {
	objects Obj                   // intrusive allocation list
	strings map[string]*ObjString // intern table, weak

	bytesAllocated int
	nextGC         int
	growFactor     float64
	stress         bool
	logGC          bool

	// protected is kept alive across a nested allocation that may collect.
	protected Obj
	// pinned holds objects referenced only by host code, with a count.
	pinned map[Obj]int

	gray []Obj

	// Root sources; either may be nil.
	vm       *VM
	compiler *Compiler

	stats GCStats
	log   *logrus.Entry
}

// GCStats summarizes collector activity since the heap was created.
type GCStats struct {
	Collections    int
	BytesFreed     int
	ObjectsFreed   int
	LiveObjects    int
	BytesAllocated int
	NextGC         int
}

func NewHeap(cfg config.VMConfig) *Heap {
	threshold := cfg.GCInitialThreshold
	if threshold <= 0 {
		threshold = config.DefaultGCInitialThreshold
	}
	grow := cfg.GCGrowFactor
	if grow < 1 {
		grow = config.DefaultGCGrowFactor
	}
	return &Heap{
		strings:    make(map[string]*ObjString),
		nextGC:     threshold,
		growFactor: grow,
		stress:     cfg.StressGC,
		logGC:      cfg.LogGC,
		log:        logrus.WithField("component", "gc"),
	}
}

// SetLogger replaces the entry used for collector logging.
func (h *Heap) SetLogger(entry *logrus.Entry) {
	h.log = entry.WithField("component", "gc")
}

// Stats returns a copy of the collector counters.
func (h *Heap) Stats() GCStats {
	s := h.stats
	s.BytesAllocated = h.bytesAllocated
	s.NextGC = h.nextGC
	s.LiveObjects = 0
	for o := h.objects; o != nil; o = o.header().next {
		s.LiveObjects++
	}
	return s
}

// BytesAllocated is the running total of accounted object bytes.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// Protect roots obj until Unprotect. There is a single slot.
func (h *Heap) Protect(obj Obj) { h.protected = obj }

func (h *Heap) Unprotect() { h.protected = nil }

// Pin roots obj until a matching Unpin. Pins nest.
func (h *Heap) Pin(obj Obj) {
	if h.pinned == nil {
		h.pinned = make(map[Obj]int)
	}
	h.pinned[obj]++
}

func (h *Heap) Unpin(obj Obj) {
	if h.pinned[obj] <= 1 {
		delete(h.pinned, obj)
		return
	}
	h.pinned[obj]--
}

// allocate accounts for obj, collects if the threshold is crossed, then
// links obj into the allocation list. obj is not linked while collecting, so
// it cannot be swept; anything it references must already be reachable.
func (h *Heap) allocate(obj Obj, size int) {
	h.bytesAllocated += size
	if h.stress || h.bytesAllocated > h.nextGC {
		h.Collect()
	}

	hdr := obj.header()
	hdr.size = size
	hdr.next = h.objects
	h.objects = obj

	if h.logGC {
		h.log.WithFields(logrus.Fields{"kind": obj.Kind().String(), "size": size}).Trace("allocate")
	}
}

// grow accounts for payload added to a live object after allocation.
func (h *Heap) grow(obj Obj, delta int) {
	obj.header().size += delta
	h.bytesAllocated += delta
}

// Intern returns the unique string object for s.
func (h *Heap) Intern(s string) *ObjString {
	if interned, ok := h.strings[s]; ok {
		return interned
	}
	str := &ObjString{Chars: s, Hash: hashString(s)}
	h.allocate(str, int(unsafe.Sizeof(ObjString{}))+len(s))
	h.strings[s] = str
	return str
}

// FindString looks s up without allocating.
func (h *Heap) FindString(s string) (*ObjString, bool) {
	str, ok := h.strings[s]
	return str, ok
}

func (h *Heap) NewFunction() *ObjFunction {
	fn := &ObjFunction{Chunk: NewChunk()}
	h.allocate(fn, int(unsafe.Sizeof(ObjFunction{})))
	return fn
}

func (h *Heap) NewClosure(fn *ObjFunction) *ObjClosure {
	closure := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	h.allocate(closure, int(unsafe.Sizeof(ObjClosure{}))+fn.UpvalueCount*int(unsafe.Sizeof(uintptr(0))))
	return closure
}

func (h *Heap) NewUpvalue(slot int) *ObjUpvalue {
	uv := &ObjUpvalue{Location: slot}
	h.allocate(uv, int(unsafe.Sizeof(ObjUpvalue{})))
	return uv
}

func (h *Heap) NewClass(name *ObjString) *ObjClass {
	class := &ObjClass{Name: name, Methods: make(map[*ObjString]*ObjClosure)}
	h.allocate(class, int(unsafe.Sizeof(ObjClass{})))
	return class
}

func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	inst := &ObjInstance{Class: class, Fields: make(map[*ObjString]Value)}
	h.allocate(inst, int(unsafe.Sizeof(ObjInstance{})))
	return inst
}

func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	bound := &ObjBoundMethod{Receiver: receiver, Method: method}
	h.allocate(bound, int(unsafe.Sizeof(ObjBoundMethod{})))
	return bound
}

func (h *Heap) NewNative(name string, arity int, fn NativeFn) *ObjNative {
	native := &ObjNative{Name: name, Arity: arity, Fn: fn}
	h.allocate(native, int(unsafe.Sizeof(ObjNative{}))+len(name))
	return native
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// tableEntrySize approximates one map entry keyed by an interned string.
var tableEntrySize = int(unsafe.Sizeof(uintptr(0))) + valueSize
