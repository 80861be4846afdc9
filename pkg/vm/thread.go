package vm

import (
	"errors"
	"fmt"

	"github.com/arkavm/arka/pkg/classfile"
)

const maxFrameDepth = 1024

// Thread is one VM thread of execution: its own frame stack, sharing the
// VM's loader/classes/heap/monitors (spec.md §4.8, §5). One goroutine
// drives one Thread.
type Thread struct {
	vm     *VM
	id     uint64
	frames []*Frame
	// EnableExceptionUnwinding gates the optional exception-table-aware
	// execution path (SPEC_FULL.md's "exception-table handlers" open
	// question); false by default, matching spec.md §1's "no
	// exception-throwing control flow" non-goal.
	EnableExceptionUnwinding bool
	// javaThreadObj is the lazily-materialized java/lang/Thread heap object
	// Thread.currentThread()'s native stub returns (spec.md §4.9).
	javaThreadObj    HeapID
	hasJavaThreadObj bool
}

// InvokeMethod runs method on class with the given argument values loaded
// into locals 0..N (spec.md §4.8). Native methods dispatch through
// invokeNative; abstract methods are rejected. A void method returns the
// zero Value. A JavaException leaving this frame gets one FrameInfo entry
// appended to its StackTrace.
func (t *Thread) InvokeMethod(class *Class, method *classfile.MethodInfo, args []Value) (Value, error) {
	if len(t.frames) >= maxFrameDepth {
		return Value{}, runtimeErrorf("stack overflow: frame depth exceeds %d", maxFrameDepth)
	}

	if method.AccessFlags&classfile.AccAbstract != 0 {
		return Value{}, linkErrorf("cannot invoke abstract method %s.%s%s", class.ID, method.Name, method.Descriptor)
	}
	if method.AccessFlags&classfile.AccNative != 0 {
		return t.invokeNative(class, method, args)
	}
	if method.Code == nil {
		return Value{}, linkErrorf("method %s.%s%s has no Code attribute", class.ID, method.Name, method.Descriptor)
	}

	frame := NewFrame(method.Name, method.Descriptor, method.Code.MaxLocals, method.Code.MaxStack, method.Code.Code, class.File, class.ID)
	slot := 0
	for _, v := range args {
		frame.SetLocal(slot, v)
		if v.IsCategory2() {
			slot += 2
		} else {
			slot++
		}
	}

	if method.AccessFlags&classfile.AccSynchronized != 0 {
		if method.AccessFlags&classfile.AccStatic != 0 {
			if err := t.vm.monitors.EnterClass(class.ID, t.id); err != nil {
				return Value{}, err
			}
			frame.ReceiverClass, frame.HasClassRecv = class.ID, true
		} else if len(args) > 0 && args[0].Kind == KindReference && args[0].Ref.Kind == RefHeapItem {
			if err := t.vm.monitors.EnterObject(args[0].Ref.HeapID, t.id); err != nil {
				return Value{}, err
			}
			frame.ReceiverID, frame.HasReceiver = args[0].Ref.HeapID, true
		}
	}

	t.frames = append(t.frames, frame)
	defer func() { t.frames = t.frames[:len(t.frames)-1] }()

	result, hasResult, err := t.runFrame(frame)

	if frame.HasReceiver {
		if exitErr := t.vm.monitors.ExitObject(frame.ReceiverID, t.id); exitErr != nil && err == nil {
			err = exitErr
		}
	}
	if frame.HasClassRecv {
		if exitErr := t.vm.monitors.ExitClass(frame.ReceiverClass, t.id); exitErr != nil && err == nil {
			err = exitErr
		}
	}

	if err != nil {
		var je *JavaException
		if errors.As(err, &je) {
			je.StackTrace = append(je.StackTrace, FrameInfo{Class: frame.ClassID, Method: frame.Method, PC: frame.lastOpcodePC})
		}
		return Value{}, err
	}
	if !hasResult {
		return Value{}, nil
	}
	return result, nil
}

// runFrame drives the decode-execute-advance loop for a single frame
// (spec.md §4.4): the PC only moves by the decoded instruction's length
// unless the instruction itself is a control transfer that sets PC.
func (t *Thread) runFrame(f *Frame) (Value, bool, error) {
	if t.EnableExceptionUnwinding {
		return t.runFrameWithUnwind(f)
	}
	return t.runFrameNoUnwind(f)
}

// runFrameNoUnwind is the default execution path (spec.md §1's "no
// exception-throwing control flow" non-goal): a JavaException or runtime
// error simply aborts the frame and propagates to the caller.
func (t *Thread) runFrameNoUnwind(f *Frame) (Value, bool, error) {
	for {
		if f.PC >= len(f.Code) {
			return Value{}, false, runtimeErrorf("%s.%s: PC ran off the end of the method", f.ClassID, f.Method)
		}
		startPC := f.PC
		f.lastOpcodePC = startPC
		inst, advance, err := Decode(f.Code, f.PC)
		if err != nil {
			return Value{}, false, fmt.Errorf("decoding instruction at %s.%s+%d: %w", f.ClassID, f.Method, startPC, err)
		}
		f.PC += advance

		result, done, hasResult, err := t.execute(f, inst)
		if err != nil {
			return Value{}, false, err
		}
		if done {
			return result, hasResult, nil
		}
	}
}

// runFrameWithUnwind additionally consults the Code attribute's exception
// table on a JavaException, transferring control to a matching handler
// instead of aborting (SPEC_FULL.md's exception-table-handlers decision).
func (t *Thread) runFrameWithUnwind(f *Frame) (Value, bool, error) {
	for {
		if f.PC >= len(f.Code) {
			return Value{}, false, runtimeErrorf("%s.%s: PC ran off the end of the method", f.ClassID, f.Method)
		}
		pcBefore := f.PC
		f.lastOpcodePC = pcBefore
		inst, advance, err := Decode(f.Code, f.PC)
		if err != nil {
			return Value{}, false, fmt.Errorf("decoding instruction at %s.%s+%d: %w", f.ClassID, f.Method, pcBefore, err)
		}
		f.PC += advance

		result, done, hasResult, err := t.execute(f, inst)
		if err == nil {
			if done {
				return result, hasResult, nil
			}
			continue
		}
		je, ok := err.(*JavaException)
		if !ok {
			return Value{}, false, err
		}
		handlerPC, found := t.findExceptionHandler(f, pcBefore, je)
		if !found {
			return Value{}, false, err
		}
		f.ResetStack()
		if je.HasObject {
			f.Push(RefValue(HeapRef(je.ObjectID)))
		} else {
			f.Push(NullValue())
		}
		f.PC = handlerPC
	}
}

func (t *Thread) findExceptionHandler(f *Frame, pc int, je *JavaException) (int, bool) {
	// Code attribute access requires the owning method; frames only carry
	// code+class, so handlers are looked up by scanning the declaring
	// class's methods for the one whose Code matches this frame's.
	for _, m := range f.Class.Methods {
		if m.Code == nil || len(m.Code.Code) == 0 || len(f.Code) == 0 || &m.Code.Code[0] != &f.Code[0] {
			continue
		}
		for _, h := range m.Code.ExceptionHandlers {
			if pc < int(h.StartPC) || pc >= int(h.EndPC) {
				continue
			}
			if h.CatchType == 0 {
				return int(h.HandlerPC), true
			}
			name, err := classfile.GetClassName(f.Class.ConstantPool, h.CatchType)
			if err != nil {
				continue
			}
			if t.isInstanceOfClass(je.Class, NewClassIdentifier(name)) {
				return int(h.HandlerPC), true
			}
		}
	}
	return 0, false
}

// resolveMethod walks the super-class chain, then the interface default
// method search, looking for name+descriptor (spec.md §4.8).
func (t *Thread) resolveMethod(start ClassIdentifier, name, descriptor string) (*Class, *classfile.MethodInfo, error) {
	id := start
	visited := map[ClassIdentifier]bool{}
	for {
		if visited[id] {
			break
		}
		visited[id] = true
		class, err := t.vm.loadClass(id)
		if err != nil {
			return nil, nil, err
		}
		if byName := class.File.FindMethodByName(name); byName != nil && classfile.IsSignaturePolymorphic(id.Slashed(), byName) {
			return nil, nil, unimplementedErrorf("TODO: signature-polymorphic call %s.%s%s is not supported", id, name, descriptor)
		}
		if m := class.File.FindMethod(name, descriptor); m != nil {
			return class, m, nil
		}
		if class.File.SuperClass == 0 {
			break
		}
		superName, err := classfile.GetClassName(class.File.ConstantPool, class.File.SuperClass)
		if err != nil {
			return nil, nil, linkErrorf("resolving super class of %s: %v", id, err)
		}
		id = NewClassIdentifier(superName)
	}

	// Interface default-method search, breadth over the whole hierarchy.
	queue := []ClassIdentifier{start}
	seen := map[ClassIdentifier]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		class, err := t.vm.loadClass(cur)
		if err != nil {
			continue
		}
		if m := class.File.FindMethod(name, descriptor); m != nil && m.Code != nil {
			return class, m, nil
		}
		for _, ifaceIdx := range class.File.Interfaces {
			ifaceName, err := classfile.GetClassName(class.File.ConstantPool, ifaceIdx)
			if err != nil {
				continue
			}
			queue = append(queue, NewClassIdentifier(ifaceName))
		}
		if class.File.SuperClass != 0 {
			superName, err := classfile.GetClassName(class.File.ConstantPool, class.File.SuperClass)
			if err == nil {
				queue = append(queue, NewClassIdentifier(superName))
			}
		}
	}

	return nil, nil, linkErrorf("method not found: %s.%s%s", start, name, descriptor)
}

// isInstanceOfClass walks actual's super chain and interfaces looking for
// target, with a visited set to tolerate malformed cyclic hierarchies
// (spec.md §4.8).
func (t *Thread) isInstanceOfClass(actual, target ClassIdentifier) bool {
	return t.isInstanceOfVisited(actual, target, map[ClassIdentifier]bool{})
}

func (t *Thread) isInstanceOfVisited(actual, target ClassIdentifier, visited map[ClassIdentifier]bool) bool {
	if actual == target || target == (ClassIdentifier{"java/lang", "Object"}) {
		return true
	}
	if visited[actual] {
		return false
	}
	visited[actual] = true

	class, err := t.vm.loadClass(actual)
	if err != nil {
		return false
	}
	for _, ifaceIdx := range class.File.Interfaces {
		ifaceName, err := classfile.GetClassName(class.File.ConstantPool, ifaceIdx)
		if err != nil {
			continue
		}
		if t.isInstanceOfVisited(NewClassIdentifier(ifaceName), target, visited) {
			return true
		}
	}
	if class.File.SuperClass != 0 {
		superName, err := classfile.GetClassName(class.File.ConstantPool, class.File.SuperClass)
		if err == nil {
			return t.isInstanceOfVisited(NewClassIdentifier(superName), target, visited)
		}
	}
	return false
}
