package vm

import (
	"github.com/sirupsen/logrus"
)

// Collect runs a full mark and sweep. It is normally triggered from
// allocate, but may be called directly.
func (h *Heap) Collect() {
	before := h.bytesAllocated
	if h.logGC {
		h.log.Debug("gc begin")
	}

	h.markRoots()
	h.traceReferences()
	h.removeWhiteStrings()
	freedObjects := h.sweep()

	next := int(float64(h.bytesAllocated) * h.growFactor)
	if next < minNextGC {
		next = minNextGC
	}
	h.nextGC = next

	h.stats.Collections++
	h.stats.BytesFreed += before - h.bytesAllocated
	h.stats.ObjectsFreed += freedObjects

	if h.logGC {
		h.log.WithFields(logrus.Fields{
			"collected": before - h.bytesAllocated,
			"objects":   freedObjects,
			"before":    before,
			"after":     h.bytesAllocated,
			"next":      h.nextGC,
		}).Debug("gc end")
	}
}

func (h *Heap) markRoots() {
	if h.vm != nil {
		h.vm.markRoots()
	}
	for c := h.compiler; c != nil; c = c.enclosing {
		h.markObject(c.function)
	}
	if h.protected != nil {
		h.markObject(h.protected)
	}
	for obj := range h.pinned {
		h.markObject(obj)
	}
}

func (h *Heap) markValue(v Value) {
	if v.Type == VAL_OBJ {
		h.markObject(v.Obj)
	}
}

// markObject grays obj. Callers pass only non-nil pointers.
func (h *Heap) markObject(obj Obj) {
	hdr := obj.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.gray = append(h.gray, obj)
}

func (h *Heap) markString(s *ObjString) {
	if s != nil {
		h.markObject(s)
	}
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

func (h *Heap) blacken(obj Obj) {
	switch o := obj.(type) {
	case *ObjString, *ObjNative:
	case *ObjUpvalue:
		h.markValue(o.Closed)
	case *ObjFunction:
		h.markString(o.Name)
		if o.Chunk != nil {
			for _, c := range o.Chunk.Constants {
				h.markValue(c)
			}
		}
	case *ObjClosure:
		h.markObject(o.Function)
		for _, uv := range o.Upvalues {
			if uv != nil {
				h.markObject(uv)
			}
		}
	case *ObjClass:
		h.markString(o.Name)
		for name, method := range o.Methods {
			h.markObject(name)
			h.markObject(method)
		}
	case *ObjInstance:
		h.markObject(o.Class)
		for name, v := range o.Fields {
			h.markObject(name)
			h.markValue(v)
		}
	case *ObjBoundMethod:
		h.markValue(o.Receiver)
		h.markObject(o.Method)
	default:
		panic("gc: unknown object kind " + obj.Kind().String())
	}
}

// removeWhiteStrings drops intern entries nothing else keeps alive.
func (h *Heap) removeWhiteStrings() {
	for chars, s := range h.strings {
		if !s.marked {
			delete(h.strings, chars)
		}
	}
}

func (h *Heap) sweep() int {
	freed := 0
	var prev Obj
	obj := h.objects
	for obj != nil {
		hdr := obj.header()
		if hdr.marked {
			hdr.marked = false
			prev = obj
			obj = hdr.next
			continue
		}

		unreached := obj
		obj = hdr.next
		if prev == nil {
			h.objects = obj
		} else {
			prev.header().next = obj
		}

		h.bytesAllocated -= hdr.size
		freed++
		if h.logGC {
			h.log.WithFields(logrus.Fields{"kind": unreached.Kind().String(), "size": hdr.size}).Trace("free")
		}
		release(unreached)
	}
	return freed
}

// release clears a swept object's references so the Go runtime can reclaim
// whatever it pointed at, and so any stale use shows up loudly.
func release(obj Obj) {
	hdr := obj.header()
	hdr.next = nil
	switch o := obj.(type) {
	case *ObjString:
		o.Chars = ""
	case *ObjFunction:
		o.Name = nil
		o.Chunk = nil
	case *ObjClosure:
		o.Function = nil
		o.Upvalues = nil
	case *ObjUpvalue:
		o.Closed = NilVal()
		o.Next = nil
	case *ObjClass:
		o.Methods = nil
	case *ObjInstance:
		o.Fields = nil
	case *ObjBoundMethod:
		o.Receiver = NilVal()
		o.Method = nil
	case *ObjNative:
		o.Fn = nil
	}
}
