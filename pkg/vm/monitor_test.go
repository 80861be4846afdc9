package vm

import "testing"

func TestMonitorRecursiveEntryExitParity(t *testing.T) {
	mt := NewMonitorTable()
	const thread = uint64(1)
	id := HeapID(1)

	for i := 0; i < 3; i++ {
		if err := mt.EnterObject(id, thread); err != nil {
			t.Fatalf("EnterObject #%d: %v", i, err)
		}
	}
	if n, ok := mt.objectEntryCount(id); !ok || n != 3 {
		t.Fatalf("entry count = %d, %v, want 3, true", n, ok)
	}
	for i := 0; i < 2; i++ {
		if err := mt.ExitObject(id, thread); err != nil {
			t.Fatalf("ExitObject #%d: %v", i, err)
		}
	}
	if n, ok := mt.objectEntryCount(id); !ok || n != 1 {
		t.Fatalf("entry count after 2 exits = %d, %v, want 1, true", n, ok)
	}
	if err := mt.ExitObject(id, thread); err != nil {
		t.Fatalf("final ExitObject: %v", err)
	}
	if _, ok := mt.objectEntryCount(id); ok {
		t.Error("monitor should be removed from the table at count zero")
	}
}

func TestMonitorExitWithoutOwnershipErrors(t *testing.T) {
	mt := NewMonitorTable()
	id := HeapID(1)
	if err := mt.ExitObject(id, 1); err == nil {
		t.Error("exit of a monitor never entered should error")
	}

	if err := mt.EnterObject(id, 1); err != nil {
		t.Fatalf("EnterObject: %v", err)
	}
	if err := mt.ExitObject(id, 2); err == nil {
		t.Error("exit by a non-owning thread should error")
	}
}

func TestMonitorCrossThreadContentionFails(t *testing.T) {
	mt := NewMonitorTable()
	id := HeapID(1)
	if err := mt.EnterObject(id, 1); err != nil {
		t.Fatalf("EnterObject(thread 1): %v", err)
	}
	if err := mt.EnterObject(id, 2); err == nil {
		t.Error("EnterObject by a second thread should fail: this VM has no blocking scheduler")
	}
}

func TestClassMonitorParallelsObjectMonitor(t *testing.T) {
	mt := NewMonitorTable()
	id := ClassIdentifier{"java/lang", "System"}
	if err := mt.EnterClass(id, 1); err != nil {
		t.Fatalf("EnterClass: %v", err)
	}
	if err := mt.EnterClass(id, 1); err != nil {
		t.Fatalf("EnterClass (reentrant): %v", err)
	}
	if err := mt.ExitClass(id, 1); err != nil {
		t.Fatalf("ExitClass: %v", err)
	}
	if err := mt.ExitClass(id, 1); err != nil {
		t.Fatalf("ExitClass (final): %v", err)
	}
	if err := mt.ExitClass(id, 1); err == nil {
		t.Error("exit of an unheld class monitor should error")
	}
}
