package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestParseConstantPoolRoundTrip writes a minimal constant pool byte stream
// and parses it back,
// exercising the 1-indexed, long/double-double-slot decode round trip
// (spec.md §8).
func TestParseConstantPoolRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	// index 1: Utf8 "hi"
	buf.WriteByte(TagUtf8)
	binary.Write(&buf, binary.BigEndian, uint16(2))
	buf.WriteString("hi")
	// index 2: Integer
	buf.WriteByte(TagInteger)
	binary.Write(&buf, binary.BigEndian, int32(42))
	// index 3-4: Long (occupies two slots)
	buf.WriteByte(TagLong)
	binary.Write(&buf, binary.BigEndian, int64(123456789))
	// index 5: Class referencing index 1
	buf.WriteByte(TagClass)
	binary.Write(&buf, binary.BigEndian, uint16(1))

	pool, err := parseConstantPool(&buf, 6)
	if err != nil {
		t.Fatalf("parseConstantPool: %v", err)
	}

	if pool[0] != nil {
		t.Error("pool[0] should be nil (1-indexed)")
	}
	utf8, ok := pool[1].(*ConstantUtf8)
	if !ok || utf8.Value != "hi" {
		t.Errorf("pool[1] = %#v, want Utf8(\"hi\")", pool[1])
	}
	if i, ok := pool[2].(*ConstantInteger); !ok || i.Value != 42 {
		t.Errorf("pool[2] = %#v, want Integer(42)", pool[2])
	}
	if l, ok := pool[3].(*ConstantLong); !ok || l.Value != 123456789 {
		t.Errorf("pool[3] = %#v, want Long(123456789)", pool[3])
	}
	// index 4 is the long's phantom second slot: must stay nil.
	if pool[4] != nil {
		t.Errorf("pool[4] should be nil (long's second slot), got %#v", pool[4])
	}
	cls, ok := pool[5].(*ConstantClass)
	if !ok || cls.NameIndex != 1 {
		t.Errorf("pool[5] = %#v, want Class(NameIndex=1)", pool[5])
	}

	name, err := GetClassName(pool, 5)
	if err != nil || name != "hi" {
		t.Errorf("GetClassName(pool, 5) = %q, %v, want \"hi\", nil", name, err)
	}
}

func TestParseConstantPoolUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFF)
	if _, err := parseConstantPool(&buf, 2); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestResolveMethodref(t *testing.T) {
	pool := []ConstantPoolEntry{
		nil,
		&ConstantUtf8{Value: "java/lang/Object"},
		&ConstantClass{NameIndex: 1},
		&ConstantUtf8{Value: "<init>"},
		&ConstantUtf8{Value: "()V"},
		&ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4},
		&ConstantMethodref{ClassIndex: 2, NameAndTypeIndex: 5},
	}
	info, err := ResolveMethodref(pool, 6)
	if err != nil {
		t.Fatalf("ResolveMethodref: %v", err)
	}
	if info.ClassName != "java/lang/Object" || info.MethodName != "<init>" || info.Descriptor != "()V" {
		t.Errorf("got %+v", info)
	}
}
