package vm

// popSlots pops values off the operand stack until their combined
// category width (1 for int/float/reference, 2 for long/double — spec.md
// §4.4) reaches slots, and returns them in original stack order (bottom of
// the popped group first). The dup2 family addresses the stack in slots,
// not values, and a category-2 value occupies a single Value entry here
// rather than two, so slot-counted pops can consume either one wide value
// or two narrow ones.
func popSlots(f *Frame, slots int) []Value {
	var vals []Value
	width := 0
	for width < slots {
		v := f.Pop()
		vals = append(vals, v)
		if v.IsCategory2() {
			width += 2
		} else {
			width++
		}
	}
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
	return vals
}

func pushAll(f *Frame, vals []Value) {
	for _, v := range vals {
		f.Push(v)
	}
}

// execute runs one decoded instruction against frame f. It returns
// (result, done, hasResult, err): done is true once the method returns or
// aborts, in which case result/hasResult carry the return value.
func (t *Thread) execute(f *Frame, inst Instruction) (Value, bool, bool, error) {
	switch inst.Opcode {
	case OpNop:
		return Value{}, false, false, nil

	case OpAconstNull:
		f.Push(NullValue())
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		f.Push(IntValue(int32(inst.Opcode) - OpIconst0))
	case OpLconst0, OpLconst1:
		f.Push(LongValue(int64(inst.Opcode - OpLconst0)))
	case OpFconst0, OpFconst1, OpFconst2:
		f.Push(FloatValue(float32(inst.Opcode - OpFconst0)))
	case OpDconst0, OpDconst1:
		f.Push(DoubleValue(float64(inst.Opcode - OpDconst0)))
	case OpBipush, OpSipush:
		f.Push(IntValue(inst.I32))

	case OpLdc, OpLdcW, OpLdc2W:
		v, err := t.executeLdc(f, inst.U16)
		if err != nil {
			return Value{}, false, false, err
		}
		f.Push(v)

	case OpIload, OpFload, OpAload:
		f.Push(f.GetLocal(int(inst.U8)))
	case OpLload, OpDload:
		f.Push(f.GetLocal(int(inst.U8)))
	case OpIload0, OpIload1, OpIload2, OpIload3:
		f.Push(f.GetLocal(int(inst.Opcode - OpIload0)))
	case OpFload0, OpFload1, OpFload2, OpFload3:
		f.Push(f.GetLocal(int(inst.Opcode - OpFload0)))
	case OpAload0, OpAload1, OpAload2, OpAload3:
		f.Push(f.GetLocal(int(inst.Opcode - OpAload0)))
	case OpLload0, OpLload1, OpLload2, OpLload3:
		f.Push(f.GetLocal(int(inst.Opcode - OpLload0)))
	case OpDload0, OpDload1, OpDload2, OpDload3:
		f.Push(f.GetLocal(int(inst.Opcode - OpDload0)))

	case OpIstore, OpFstore, OpAstore, OpLstore, OpDstore:
		f.SetLocal(int(inst.U8), f.Pop())
	case OpIstore0, OpIstore1, OpIstore2, OpIstore3:
		f.SetLocal(int(inst.Opcode-OpIstore0), f.Pop())
	case OpFstore0, OpFstore1, OpFstore2, OpFstore3:
		f.SetLocal(int(inst.Opcode-OpFstore0), f.Pop())
	case OpAstore0, OpAstore1, OpAstore2, OpAstore3:
		f.SetLocal(int(inst.Opcode-OpAstore0), f.Pop())
	case OpLstore0, OpLstore1, OpLstore2, OpLstore3:
		f.SetLocal(int(inst.Opcode-OpLstore0), f.Pop())
	case OpDstore0, OpDstore1, OpDstore2, OpDstore3:
		f.SetLocal(int(inst.Opcode-OpDstore0), f.Pop())

	case OpIinc:
		v := f.GetLocal(int(inst.U8))
		f.SetLocal(int(inst.U8), IntValue(v.I+inst.I32))

	case OpPop:
		f.Pop()
	case OpPop2:
		popSlots(f, 2)
	case OpDup:
		v := f.Pop()
		f.Push(v)
		f.Push(v)
	case OpDupX1:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
	case OpDupX2:
		v1, v2, v3 := f.Pop(), f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v3)
		f.Push(v2)
		f.Push(v1)
	case OpDup2:
		top := popSlots(f, 2)
		pushAll(f, top)
		pushAll(f, top)
	case OpDup2X1:
		top := popSlots(f, 2)
		base := popSlots(f, 1)
		pushAll(f, top)
		pushAll(f, base)
		pushAll(f, top)
	case OpDup2X2:
		top := popSlots(f, 2)
		base := popSlots(f, 2)
		pushAll(f, top)
		pushAll(f, base)
		pushAll(f, top)
	case OpSwap:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)

	case OpIadd, OpLadd, OpFadd, OpDadd,
		OpIsub, OpLsub, OpFsub, OpDsub,
		OpImul, OpLmul, OpFmul, OpDmul,
		OpIdiv, OpLdiv, OpFdiv, OpDdiv,
		OpIrem, OpLrem, OpFrem, OpDrem,
		OpIand, OpLand, OpIor, OpLor, OpIxor, OpLxor,
		OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr:
		if err := t.executeBinaryArith(f, inst.Opcode); err != nil {
			return Value{}, false, false, err
		}

	case OpIneg, OpLneg, OpFneg, OpDneg:
		t.executeNeg(f, inst.Opcode)

	case OpI2l, OpI2f, OpI2d, OpL2i, OpL2f, OpL2d,
		OpF2i, OpF2l, OpF2d, OpD2i, OpD2l, OpD2f,
		OpI2b, OpI2c, OpI2s:
		t.executeConvert(f, inst.Opcode)

	case OpLcmp, OpFcmpl, OpFcmpg, OpDcmpl, OpDcmpg:
		t.executeCompare(f, inst.Opcode)

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpIfnull, OpIfnonnull:
		t.executeBranch(f, inst)

	case OpGoto:
		f.PC = f.lastOpcodePC + int(inst.I16)
	case OpGotoW:
		f.PC = f.lastOpcodePC + int(inst.I32)

	case OpJsr, OpJsrW, OpRet:
		return Value{}, false, false, unimplementedErrorf("jsr/ret is not implemented (obsolete since Java 7's split verifier)")

	case OpTableswitch:
		t.executeTableswitch(f, inst)
	case OpLookupswitch:
		t.executeLookupswitch(f, inst)

	case OpIreturn, OpFreturn:
		return f.Pop(), true, true, nil
	case OpLreturn, OpDreturn:
		return f.Pop(), true, true, nil
	case OpAreturn:
		return f.Pop(), true, true, nil
	case OpReturn:
		return Value{}, true, false, nil

	case OpGetstatic:
		v, err := t.executeGetstatic(f, inst.U16)
		if err != nil {
			return Value{}, false, false, err
		}
		f.Push(v)
	case OpPutstatic:
		if err := t.executePutstatic(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpGetfield:
		if err := t.executeGetfield(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpPutfield:
		if err := t.executePutfield(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}

	case OpInvokevirtual:
		if err := t.executeInvokevirtual(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpInvokespecial:
		if err := t.executeInvokespecial(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpInvokestatic:
		if err := t.executeInvokestatic(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpInvokeinterface:
		if err := t.executeInvokeinterface(f, inst.U16, int(inst.U8)); err != nil {
			return Value{}, false, false, err
		}
	case OpInvokedynamic:
		if err := t.executeInvokedynamic(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}

	case OpNew:
		if err := t.executeNew(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpNewarray:
		if err := t.executeNewarray(f, inst.U8); err != nil {
			return Value{}, false, false, err
		}
	case OpAnewarray:
		if err := t.executeAnewarray(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpMultianewarray:
		if err := t.executeMultianewarray(f, inst.U16, int(inst.U8)); err != nil {
			return Value{}, false, false, err
		}
	case OpArraylength:
		if err := t.executeArraylength(f); err != nil {
			return Value{}, false, false, err
		}

	case OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload:
		if err := t.executeArrayLoad(f, inst.Opcode); err != nil {
			return Value{}, false, false, err
		}
	case OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore:
		if err := t.executeArrayStore(f, inst.Opcode); err != nil {
			return Value{}, false, false, err
		}

	case OpAthrow:
		return Value{}, false, false, t.executeAthrow(f)

	case OpCheckcast:
		if err := t.executeCheckcast(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}
	case OpInstanceof:
		if err := t.executeInstanceof(f, inst.U16); err != nil {
			return Value{}, false, false, err
		}

	case OpMonitorenter:
		v := f.Pop()
		if v.Ref.IsNull() {
			return Value{}, false, false, NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
		}
		if err := t.vm.monitors.EnterObject(v.Ref.HeapID, t.id); err != nil {
			return Value{}, false, false, err
		}
	case OpMonitorexit:
		v := f.Pop()
		if v.Ref.IsNull() {
			return Value{}, false, false, NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
		}
		if err := t.vm.monitors.ExitObject(v.Ref.HeapID, t.id); err != nil {
			return Value{}, false, false, err
		}

	default:
		return Value{}, false, false, unimplementedErrorf("opcode 0x%02x not implemented", inst.Opcode)
	}

	return Value{}, false, false, nil
}
