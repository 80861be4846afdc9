package vm

import "sort"

// tryArrayListSort and tryCollectionsSort special-case java.util.ArrayList's
// and java.util.Collections' sort methods the same way daimatz-gojvm's
// handleArrayListSort/handleCollectionsSort do: intercepted ahead of normal
// method resolution, since the real java.base ArrayList.sort/Collections.sort
// are ordinary (non-native) bytecode that would otherwise pull this
// interpreter into java.util.Arrays/TimSort internals well beyond spec.md
// §1's stated goal of running non-trivial programs without a full
// java.util bytecode library (SPEC_FULL.md "supplemented features").

// tryArrayListSort handles an invokevirtual dispatch of "sort" on a
// receiver whose runtime class is java.util.ArrayList. handled is false for
// every other receiver/method, in which case the caller continues with
// ordinary virtual dispatch.
func (t *Thread) tryArrayListSort(receiver Value, name string, args []Value) (result Value, hasResult bool, handled bool, err error) {
	if name != "sort" || receiver.Ref.Kind != RefHeapItem {
		return Value{}, false, false, nil
	}
	class, err := t.vm.heap.ClassOf(receiver.Ref.HeapID)
	if err != nil || class != (ClassIdentifier{"java/util", "ArrayList"}) {
		return Value{}, false, false, nil
	}
	obj, err := t.vm.heap.GetObject(receiver.Ref.HeapID)
	if err != nil {
		return Value{}, false, true, err
	}
	var comparator Value
	if len(args) > 0 {
		comparator = args[0]
	}
	if err := t.sortElementData(obj, comparator); err != nil {
		return Value{}, false, true, err
	}
	if mc, ok := obj.Fields["modCount"]; ok {
		obj.Fields["modCount"] = IntValue(mc.I + 1)
	}
	return Value{}, false, true, nil
}

// tryCollectionsSort handles an invokestatic dispatch of
// java.util.Collections.sort(List) / sort(List, Comparator). handled is
// false for every other static call, in which case the caller continues
// with ordinary static resolution.
func (t *Thread) tryCollectionsSort(className, methodName string, args []Value) (result Value, hasResult bool, handled bool, err error) {
	if className != "java/util/Collections" || methodName != "sort" {
		return Value{}, false, false, nil
	}
	if len(args) == 0 || args[0].Ref.Kind != RefHeapItem {
		return Value{}, false, true, runtimeErrorf("Collections.sort: list is not a heap object")
	}
	obj, err := t.vm.heap.GetObject(args[0].Ref.HeapID)
	if err != nil {
		return Value{}, false, true, err
	}
	var comparator Value
	if len(args) > 1 {
		comparator = args[1]
	}
	if err := t.sortElementData(obj, comparator); err != nil {
		return Value{}, false, true, err
	}
	return Value{}, false, true, nil
}

// sortElementData stably sorts an ArrayList's backing elementData array
// (spec.md §4.5's reference array) in place over its first `size` slots,
// using comparator.compare when comparator is non-null or compareNatural
// otherwise.
func (t *Thread) sortElementData(obj *Object, comparator Value) error {
	elemData, ok := obj.Fields["elementData"]
	if !ok || elemData.Ref.IsNull() {
		return linkErrorf("ArrayList.sort: no elementData field")
	}
	arr, err := t.vm.heap.GetReferenceArray(elemData.Ref.HeapID)
	if err != nil {
		return linkErrorf("ArrayList.sort: elementData is not a reference array: %v", err)
	}
	size := int(obj.Fields["size"].I)
	if size > len(arr.Elements) {
		size = len(arr.Elements)
	}

	elems := arr.Elements[:size]
	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, cerr := t.compareElements(comparator, elems[i], elems[j])
		if cerr != nil {
			sortErr = cerr
			return false
		}
		return cmp < 0
	})
	return sortErr
}

// compareElements compares two list elements using comparator.compare if
// comparator is non-null, or natural (Comparable-style) ordering otherwise.
func (t *Thread) compareElements(comparator Value, a, b Reference) (int32, error) {
	if !comparator.Ref.IsNull() {
		return t.invokeComparator(comparator, RefValue(a), RefValue(b))
	}
	return t.compareNatural(a, b)
}

// invokeComparator calls a Comparator's compare(Object, Object) by routing
// through the normal virtual-dispatch path (invokeOnReceiver), which
// already special-cases a LambdaMetafactory proxy receiver (see
// invokedynamic.go) the same way any other functional-interface call site
// would.
func (t *Thread) invokeComparator(comparator Value, a, b Value) (int32, error) {
	result, _, err := t.invokeOnReceiver(comparator, "java/util/Comparator", "compare",
		"(Ljava/lang/Object;Ljava/lang/Object;)I", []Value{a, b})
	if err != nil {
		return 0, err
	}
	return result.I, nil
}

// compareNatural implements Comparable-style natural ordering for the
// element kinds this interpreter can box without running real JDK
// Comparable bytecode: java.lang.String (by UTF-8 byte content, via
// InternString's representation) and the numeric wrapper classes, boxed as
// a single "value" field by their real (JDK-supplied) constructors.
func (t *Thread) compareNatural(a, b Reference) (int32, error) {
	if a.IsNull() || b.IsNull() {
		return 0, runtimeErrorf("compareNatural: null element")
	}
	classA, err := t.vm.heap.ClassOf(a.HeapID)
	if err != nil {
		return 0, err
	}
	if classA == (ClassIdentifier{"java/lang", "String"}) {
		sa, sb := javaStringValue(t.vm, a.HeapID), javaStringValue(t.vm, b.HeapID)
		switch {
		case sa < sb:
			return -1, nil
		case sa > sb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	objA, errA := t.vm.heap.GetObject(a.HeapID)
	objB, errB := t.vm.heap.GetObject(b.HeapID)
	if errA != nil || errB != nil {
		return 0, runtimeErrorf("compareNatural: %s is not a comparable object", classA)
	}
	va, okA := objA.Fields["value"]
	vb, okB := objB.Fields["value"]
	if !okA || !okB {
		return 0, linkErrorf("compareNatural: %s has no boxed value field", classA)
	}
	switch {
	case va.Kind == KindInt && vb.Kind == KindInt:
		return compareOrdered(va.I, vb.I), nil
	case va.Kind == KindLong && vb.Kind == KindLong:
		return compareOrdered(va.L, vb.L), nil
	case va.Kind == KindFloat && vb.Kind == KindFloat:
		return compareOrdered(va.F, vb.F), nil
	case va.Kind == KindDouble && vb.Kind == KindDouble:
		return compareOrdered(va.D, vb.D), nil
	default:
		return 0, linkErrorf("compareNatural: unsupported boxed field kinds for %s", classA)
	}
}

type ordered interface {
	~int32 | ~int64 | ~float32 | ~float64
}

func compareOrdered[T ordered](a, b T) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
