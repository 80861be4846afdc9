package vm

// executeBranch implements the if<cond> and if_<cond> family (JVMS §6.5).
// The branch offset in the instruction stream is measured from the
// opcode's own address, which is PC-3 by the time the operand has been
// consumed (spec.md §4.4).
func (t *Thread) executeBranch(f *Frame, inst Instruction) {
	target := f.lastOpcodePC + int(inst.I16)

	taken := false
	switch inst.Opcode {
	case OpIfeq:
		taken = f.Pop().I == 0
	case OpIfne:
		taken = f.Pop().I != 0
	case OpIflt:
		taken = f.Pop().I < 0
	case OpIfge:
		taken = f.Pop().I >= 0
	case OpIfgt:
		taken = f.Pop().I > 0
	case OpIfle:
		taken = f.Pop().I <= 0
	case OpIfIcmpeq:
		b, a := f.Pop(), f.Pop()
		taken = a.I == b.I
	case OpIfIcmpne:
		b, a := f.Pop(), f.Pop()
		taken = a.I != b.I
	case OpIfIcmplt:
		b, a := f.Pop(), f.Pop()
		taken = a.I < b.I
	case OpIfIcmpge:
		b, a := f.Pop(), f.Pop()
		taken = a.I >= b.I
	case OpIfIcmpgt:
		b, a := f.Pop(), f.Pop()
		taken = a.I > b.I
	case OpIfIcmple:
		b, a := f.Pop(), f.Pop()
		taken = a.I <= b.I
	case OpIfAcmpeq:
		b, a := f.Pop(), f.Pop()
		taken = referenceEquals(a.Ref, b.Ref)
	case OpIfAcmpne:
		b, a := f.Pop(), f.Pop()
		taken = !referenceEquals(a.Ref, b.Ref)
	case OpIfnull:
		taken = f.Pop().Ref.IsNull()
	case OpIfnonnull:
		taken = !f.Pop().Ref.IsNull()
	}

	if taken {
		f.PC = target
	}
}

func referenceEquals(a, b Reference) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case RefNull:
		return true
	case RefHeapItem:
		return a.HeapID == b.HeapID
	case RefClass:
		return a.ClassID == b.ClassID
	default:
		return false
	}
}

// executeTableswitch/executeLookupswitch: branch targets are relative to
// the switch opcode's own address (JVMS §6.5), which Frame.lastOpcodePC
// records immediately before each Decode call.
func (t *Thread) executeTableswitch(f *Frame, inst Instruction) {
	d := inst.Tableswitch
	index := f.Pop().I
	base := f.lastOpcodePC
	if index < d.Low || index > d.High {
		f.PC = base + int(d.Default)
		return
	}
	f.PC = base + int(d.Offsets[index-d.Low])
}

func (t *Thread) executeLookupswitch(f *Frame, inst Instruction) {
	d := inst.Lookupswitch
	base := f.lastOpcodePC
	key := f.Pop().I
	if offset, ok := d.Pairs[key]; ok {
		f.PC = base + int(offset)
		return
	}
	f.PC = base + int(d.Default)
}
