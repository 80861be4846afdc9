package vm

import (
	"fmt"
	"sort"
	"sync"
)

// HeapID identifies a heap item. Ids are monotonically increasing and are
// never reused, even after the item becomes unreachable (spec.md §3 — the
// heap has no collector; it grows monotonically).
type HeapID uint64

// PrimitiveType is the element kind of a PrimitiveArray.
type PrimitiveType int

const (
	PrimBoolean PrimitiveType = iota
	PrimByte
	PrimChar
	PrimShort
	PrimInt
	PrimLong
	PrimFloat
	PrimDouble
)

// wrapperClass is the wrapper class identifier used to report an
// array's element class identifier (spec.md §4.5).
func (t PrimitiveType) wrapperClass() ClassIdentifier {
	switch t {
	case PrimBoolean:
		return ClassIdentifier{"java/lang", "Boolean"}
	case PrimByte:
		return ClassIdentifier{"java/lang", "Byte"}
	case PrimChar:
		return ClassIdentifier{"java/lang", "Character"}
	case PrimShort:
		return ClassIdentifier{"java/lang", "Short"}
	case PrimLong:
		return ClassIdentifier{"java/lang", "Long"}
	case PrimFloat:
		return ClassIdentifier{"java/lang", "Float"}
	case PrimDouble:
		return ClassIdentifier{"java/lang", "Double"}
	default:
		return ClassIdentifier{"java/lang", "Integer"}
	}
}

func (t PrimitiveType) defaultValue() Value {
	switch t {
	case PrimLong:
		return LongValue(0)
	case PrimFloat:
		return FloatValue(0)
	case PrimDouble:
		return DoubleValue(0)
	default:
		return IntValue(0)
	}
}

// Object is a heap item with named, offset-addressable instance fields.
type Object struct {
	Class  ClassIdentifier
	Fields map[string]Value
	// Offsets maps field name to its per-class layout offset, assigned at
	// default-field construction time and consulted by the Unsafe native
	// stubs (spec.md §3, §4.9).
	Offsets map[string]int
	// LambdaTarget is non-nil when this object is a synthetic
	// functional-interface proxy created by invokedynamic's
	// LambdaMetafactory bootstrap (see SPEC_FULL.md "supplemented
	// features").
	LambdaTarget *LambdaTarget
}

// LambdaTarget records the implementation method a lambda proxy object
// dispatches to.
type LambdaTarget struct {
	InterfaceMethod string
	TargetClass     ClassIdentifier
	TargetMethod    string
	TargetDesc      string
	CapturedArgs    []Value
}

// ReferenceArray is a heap item holding object/array references.
type ReferenceArray struct {
	ElementClass ClassIdentifier
	Elements     []Reference
}

// PrimitiveArray is a heap item holding unboxed primitive values.
type PrimitiveArray struct {
	ElementType PrimitiveType
	Elements    []Value
}

// HeapItem is implemented by Object, ReferenceArray, and PrimitiveArray.
type HeapItem interface {
	classIdentifier() ClassIdentifier
}

func (o *Object) classIdentifier() ClassIdentifier         { return o.Class }
func (a *ReferenceArray) classIdentifier() ClassIdentifier  { return a.ElementClass }
func (a *PrimitiveArray) classIdentifier() ClassIdentifier  { return a.ElementType.wrapperClass() }

// Heap is the shared object/array store. One coarse mutex per spec.md §5.
type Heap struct {
	mu      sync.Mutex
	items   map[HeapID]HeapItem
	nextID  HeapID
}

func NewHeap() *Heap {
	return &Heap{items: make(map[HeapID]HeapItem)}
}

func (h *Heap) alloc(item HeapItem) HeapID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.items[id] = item
	return id
}

// AllocObject creates a new Object with default-valued fields laid out at
// sequential offsets (spec.md §3's per-class field offsets).
func (h *Heap) AllocObject(class ClassIdentifier, fieldDescriptors map[string]string) HeapID {
	names := make([]string, 0, len(fieldDescriptors))
	for name := range fieldDescriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(map[string]Value, len(fieldDescriptors))
	offsets := make(map[string]int, len(fieldDescriptors))
	for i, name := range names {
		fields[name] = defaultValueForDescriptor(fieldDescriptors[name])
		offsets[name] = i
	}
	return h.alloc(&Object{Class: class, Fields: fields, Offsets: offsets})
}

// AllocReferenceArray creates a reference array of the given length, every
// slot initialized to Null (spec.md §4.8's anewarray).
func (h *Heap) AllocReferenceArray(elementClass ClassIdentifier, length int) (HeapID, error) {
	if length < 0 {
		return 0, NewJavaException(ClassIdentifier{"java/lang", "NegativeArraySizeException"}, fmt.Sprintf("%d", length))
	}
	elems := make([]Reference, length)
	for i := range elems {
		elems[i] = NullRef()
	}
	return h.alloc(&ReferenceArray{ElementClass: elementClass, Elements: elems}), nil
}

// AllocPrimitiveArray creates a primitive array of the given length and
// element type, default-valued (spec.md §4.8's newarray).
func (h *Heap) AllocPrimitiveArray(elementType PrimitiveType, length int) (HeapID, error) {
	if length < 0 {
		return 0, NewJavaException(ClassIdentifier{"java/lang", "NegativeArraySizeException"}, fmt.Sprintf("%d", length))
	}
	elems := make([]Value, length)
	def := elementType.defaultValue()
	for i := range elems {
		elems[i] = def
	}
	return h.alloc(&PrimitiveArray{ElementType: elementType, Elements: elems}), nil
}

// Get returns the heap item for id.
func (h *Heap) Get(id HeapID) (HeapItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	item, ok := h.items[id]
	return item, ok
}

func (h *Heap) GetObject(id HeapID) (*Object, error) {
	item, ok := h.Get(id)
	if !ok {
		return nil, fmt.Errorf("heap: no item with id %d", id)
	}
	obj, ok := item.(*Object)
	if !ok {
		return nil, fmt.Errorf("heap: item %d is not an Object", id)
	}
	return obj, nil
}

func (h *Heap) GetReferenceArray(id HeapID) (*ReferenceArray, error) {
	item, ok := h.Get(id)
	if !ok {
		return nil, fmt.Errorf("heap: no item with id %d", id)
	}
	arr, ok := item.(*ReferenceArray)
	if !ok {
		return nil, fmt.Errorf("heap: item %d is not a ReferenceArray", id)
	}
	return arr, nil
}

func (h *Heap) GetPrimitiveArray(id HeapID) (*PrimitiveArray, error) {
	item, ok := h.Get(id)
	if !ok {
		return nil, fmt.Errorf("heap: no item with id %d", id)
	}
	arr, ok := item.(*PrimitiveArray)
	if !ok {
		return nil, fmt.Errorf("heap: item %d is not a PrimitiveArray", id)
	}
	return arr, nil
}

// ClassOf returns the class identifier a heap item reports for getClass /
// instanceof purposes.
func (h *Heap) ClassOf(id HeapID) (ClassIdentifier, error) {
	item, ok := h.Get(id)
	if !ok {
		return ClassIdentifier{}, fmt.Errorf("heap: no item with id %d", id)
	}
	return item.classIdentifier(), nil
}

// Length returns the length of an array heap item, for arraylength.
func (h *Heap) Length(id HeapID) (int, error) {
	item, ok := h.Get(id)
	if !ok {
		return 0, fmt.Errorf("heap: no item with id %d", id)
	}
	switch a := item.(type) {
	case *ReferenceArray:
		return len(a.Elements), nil
	case *PrimitiveArray:
		return len(a.Elements), nil
	default:
		return 0, fmt.Errorf("heap: item %d is not an array", id)
	}
}

func defaultValueForDescriptor(descriptor string) Value {
	if len(descriptor) == 0 {
		return NullValue()
	}
	switch descriptor[0] {
	case 'L', '[':
		return NullValue()
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'J':
		return LongValue(0)
	default:
		return IntValue(0)
	}
}
