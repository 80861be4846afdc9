package vm

// Instruction is one decoded bytecode instruction: the opcode plus
// whichever operand fields it needs. Decode never consults the frame's
// stack or locals — only the raw code array and PC — so it stays a pure
// function, independent of execution (spec.md §4.4).
type Instruction struct {
	Opcode byte
	// U16/U8/I32 hold a raw operand (constant pool index, local index,
	// branch offset, iinc amount, etc.) depending on the opcode.
	U16       uint16
	U8        uint8
	I32       int32
	I16       int16
	Tableswitch  *TableswitchData
	Lookupswitch *LookupswitchData
}

type TableswitchData struct {
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

type LookupswitchData struct {
	Default int32
	Pairs   map[int32]int32
}

// Decode reads one instruction from code starting at pc, returning it and
// the number of bytes consumed (spec.md §4.4: "the PC advances only by the
// decoded instruction's length unless the opcode itself is a control
// transfer that sets the PC").
func Decode(code []byte, pc int) (Instruction, int, error) {
	if pc >= len(code) {
		return Instruction{}, 0, runtimeErrorf("decode: pc %d out of range (len %d)", pc, len(code))
	}
	op := code[pc]
	inst := Instruction{Opcode: op}

	switch op {
	case OpBipush:
		if pc+2 > len(code) {
			return inst, 0, parseErrorf("bipush: truncated operand")
		}
		inst.I32 = int32(int8(code[pc+1]))
		return inst, 2, nil

	case OpSipush:
		if pc+3 > len(code) {
			return inst, 0, parseErrorf("sipush: truncated operand")
		}
		inst.I32 = int32(int16(uint16(code[pc+1])<<8 | uint16(code[pc+2])))
		return inst, 3, nil

	case OpLdc:
		if pc+2 > len(code) {
			return inst, 0, parseErrorf("ldc: truncated operand")
		}
		inst.U16 = uint16(code[pc+1])
		return inst, 2, nil

	case OpLdcW, OpLdc2W:
		if pc+3 > len(code) {
			return inst, 0, parseErrorf("ldc_w/ldc2_w: truncated operand")
		}
		inst.U16 = u16(code, pc+1)
		return inst, 3, nil

	case OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore, OpRet:
		if pc+2 > len(code) {
			return inst, 0, parseErrorf("local-var instruction: truncated operand")
		}
		inst.U8 = code[pc+1]
		return inst, 2, nil

	case OpIinc:
		if pc+3 > len(code) {
			return inst, 0, parseErrorf("iinc: truncated operand")
		}
		inst.U8 = code[pc+1]
		inst.I32 = int32(int8(code[pc+2]))
		return inst, 3, nil

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpGoto, OpJsr, OpIfnull, OpIfnonnull:
		if pc+3 > len(code) {
			return inst, 0, parseErrorf("branch instruction: truncated operand")
		}
		inst.I16 = int16(u16(code, pc+1))
		return inst, 3, nil

	case OpGotoW, OpJsrW:
		if pc+5 > len(code) {
			return inst, 0, parseErrorf("goto_w/jsr_w: truncated operand")
		}
		inst.I32 = i32(code, pc+1)
		return inst, 5, nil

	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpInvokevirtual, OpInvokespecial, OpInvokestatic,
		OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
		if pc+3 > len(code) {
			return inst, 0, parseErrorf("constant-pool instruction: truncated operand")
		}
		inst.U16 = u16(code, pc+1)
		return inst, 3, nil

	case OpInvokeinterface:
		if pc+5 > len(code) {
			return inst, 0, parseErrorf("invokeinterface: truncated operand")
		}
		inst.U16 = u16(code, pc+1)
		inst.U8 = code[pc+3] // count; code[pc+4] is the reserved zero byte
		return inst, 5, nil

	case OpInvokedynamic:
		if pc+5 > len(code) {
			return inst, 0, parseErrorf("invokedynamic: truncated operand")
		}
		inst.U16 = u16(code, pc+1)
		return inst, 5, nil

	case OpNewarray:
		if pc+2 > len(code) {
			return inst, 0, parseErrorf("newarray: truncated operand")
		}
		inst.U8 = code[pc+1]
		return inst, 2, nil

	case OpMultianewarray:
		if pc+4 > len(code) {
			return inst, 0, parseErrorf("multianewarray: truncated operand")
		}
		inst.U16 = u16(code, pc+1)
		inst.U8 = code[pc+3]
		return inst, 4, nil

	case OpTableswitch:
		return decodeTableswitch(code, pc)

	case OpLookupswitch:
		return decodeLookupswitch(code, pc)

	case OpWide:
		return Instruction{}, 0, unimplementedErrorf("wide instruction prefix not implemented")

	default:
		// Every remaining opcode (arithmetic, stack, array load/store,
		// conversions, comparisons, returns, array length, athrow,
		// monitorenter/exit, the *const family) takes no operand bytes.
		return inst, 1, nil
	}
}

func u16(code []byte, i int) uint16 { return uint16(code[i])<<8 | uint16(code[i+1]) }
func i32(code []byte, i int) int32 {
	return int32(code[i])<<24 | int32(code[i+1])<<16 | int32(code[i+2])<<8 | int32(code[i+3])
}

func decodeTableswitch(code []byte, pc int) (Instruction, int, error) {
	p := pc + 1
	for p%4 != 0 {
		p++
	}
	if p+12 > len(code) {
		return Instruction{}, 0, parseErrorf("tableswitch: truncated header")
	}
	def := i32(code, p)
	low := i32(code, p+4)
	high := i32(code, p+8)
	p += 12
	n := int(high - low + 1)
	if n < 0 {
		return Instruction{}, 0, parseErrorf("tableswitch: high < low")
	}
	offsets := make([]int32, n)
	for i := 0; i < n; i++ {
		if p+4 > len(code) {
			return Instruction{}, 0, parseErrorf("tableswitch: truncated offset table")
		}
		offsets[i] = i32(code, p)
		p += 4
	}
	return Instruction{Opcode: OpTableswitch, Tableswitch: &TableswitchData{Default: def, Low: low, High: high, Offsets: offsets}}, p - pc, nil
}

func decodeLookupswitch(code []byte, pc int) (Instruction, int, error) {
	p := pc + 1
	for p%4 != 0 {
		p++
	}
	if p+8 > len(code) {
		return Instruction{}, 0, parseErrorf("lookupswitch: truncated header")
	}
	def := i32(code, p)
	n := i32(code, p+4)
	p += 8
	pairs := make(map[int32]int32, n)
	for i := int32(0); i < n; i++ {
		if p+8 > len(code) {
			return Instruction{}, 0, parseErrorf("lookupswitch: truncated match table")
		}
		match := i32(code, p)
		offset := i32(code, p+4)
		pairs[match] = offset
		p += 8
	}
	return Instruction{Opcode: OpLookupswitch, Lookupswitch: &LookupswitchData{Default: def, Pairs: pairs}}, p - pc, nil
}
