package vm

import "testing"

func TestHeapIDsMonotonicAndNeverReused(t *testing.T) {
	h := NewHeap()
	class := ClassIdentifier{"test", "Foo"}
	ids := make(map[HeapID]bool)
	var last HeapID
	for i := 0; i < 5; i++ {
		id := h.AllocObject(class, map[string]string{"x": "I"})
		if id <= last {
			t.Errorf("id %d is not strictly increasing after %d", id, last)
		}
		if ids[id] {
			t.Errorf("id %d reused", id)
		}
		ids[id] = true
		last = id
	}
}

func TestObjectFieldSetGetCommutes(t *testing.T) {
	h := NewHeap()
	id := h.AllocObject(ClassIdentifier{"test", "Foo"}, map[string]string{"count": "I"})
	obj, err := h.GetObject(id)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if got := obj.Fields["count"]; got.Kind != KindInt || got.I != 0 {
		t.Errorf("default value = %+v, want int 0", got)
	}
	obj.Fields["count"] = IntValue(7)
	obj2, err := h.GetObject(id)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if obj2.Fields["count"].I != 7 {
		t.Errorf("Fields[count] = %d, want 7", obj2.Fields["count"].I)
	}
}

func TestPrimitiveArraySetGetCommutes(t *testing.T) {
	h := NewHeap()
	id, err := h.AllocPrimitiveArray(PrimInt, 3)
	if err != nil {
		t.Fatalf("AllocPrimitiveArray: %v", err)
	}
	arr, err := h.GetPrimitiveArray(id)
	if err != nil {
		t.Fatalf("GetPrimitiveArray: %v", err)
	}
	arr.Elements[1] = IntValue(99)
	arr2, _ := h.GetPrimitiveArray(id)
	if arr2.Elements[1].I != 99 {
		t.Errorf("Elements[1] = %d, want 99", arr2.Elements[1].I)
	}
	n, err := h.Length(id)
	if err != nil || n != 3 {
		t.Errorf("Length = %d, %v, want 3, nil", n, err)
	}
}

func TestReferenceArrayDefaultsToNull(t *testing.T) {
	h := NewHeap()
	id, err := h.AllocReferenceArray(ClassIdentifier{"java/lang", "Object"}, 2)
	if err != nil {
		t.Fatalf("AllocReferenceArray: %v", err)
	}
	arr, _ := h.GetReferenceArray(id)
	for i, e := range arr.Elements {
		if !e.IsNull() {
			t.Errorf("Elements[%d] = %+v, want Null", i, e)
		}
	}
}

func TestNegativeArraySizeRaisesJavaException(t *testing.T) {
	h := NewHeap()
	_, err := h.AllocPrimitiveArray(PrimInt, -1)
	if err == nil {
		t.Fatal("expected error for negative array size")
	}
	je, ok := err.(*JavaException)
	if !ok || je.Class.Name != "NegativeArraySizeException" {
		t.Errorf("err = %#v, want NegativeArraySizeException", err)
	}
}
