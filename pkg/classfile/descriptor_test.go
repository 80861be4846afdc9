package classfile

import "testing"

func TestParseFieldType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"I", "I"},
		{"Z", "Z"},
		{"[I", "[I"},
		{"[[I", "[[I"},
		{"Ljava/lang/String;", "Ljava/lang/String;"},
		{"[Ljava/lang/Object;", "[Ljava/lang/Object;"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			ft, n, err := ParseFieldType(c.in)
			if err != nil {
				t.Fatalf("ParseFieldType(%q): %v", c.in, err)
			}
			if n != len(c.in) {
				t.Errorf("consumed %d bytes, want %d", n, len(c.in))
			}
			if ft.String() != c.want {
				t.Errorf("String() = %q, want %q", ft.String(), c.want)
			}
		})
	}
}

func TestParseFieldTypeErrors(t *testing.T) {
	for _, in := range []string{"", "Q", "Ljava/lang/String", "[", "["} {
		if _, _, err := ParseFieldType(in); err == nil {
			t.Errorf("ParseFieldType(%q): expected error, got nil", in)
		}
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	t.Run("no args void return", func(t *testing.T) {
		md, err := ParseMethodDescriptor("()V")
		if err != nil {
			t.Fatalf("ParseMethodDescriptor: %v", err)
		}
		if len(md.Params) != 0 {
			t.Errorf("params = %v, want none", md.Params)
		}
		if md.Return != nil {
			t.Errorf("return = %v, want nil (void)", md.Return)
		}
	})

	t.Run("mixed args and reference return", func(t *testing.T) {
		md, err := ParseMethodDescriptor("(Ljava/lang/String;IJD)Ljava/lang/Object;")
		if err != nil {
			t.Fatalf("ParseMethodDescriptor: %v", err)
		}
		if len(md.Params) != 4 {
			t.Fatalf("got %d params, want 4", len(md.Params))
		}
		if md.Params[0].Kind != 'L' || md.Params[0].ClassName != "java/lang/String" {
			t.Errorf("param 0 = %+v", md.Params[0])
		}
		if md.Params[1].Kind != 'I' || md.Params[2].Kind != 'J' || md.Params[3].Kind != 'D' {
			t.Errorf("params 1-3 = %+v", md.Params[1:])
		}
		if md.Return == nil || md.Return.Kind != 'L' || md.Return.ClassName != "java/lang/Object" {
			t.Errorf("return = %+v", md.Return)
		}
		if got := md.ParamSlots(); got != 6 {
			t.Errorf("ParamSlots() = %d, want 6 (String+int+long(2)+double(2))", got)
		}
	})

	t.Run("array parameter", func(t *testing.T) {
		md, err := ParseMethodDescriptor("([Ljava/lang/String;)V")
		if err != nil {
			t.Fatalf("ParseMethodDescriptor: %v", err)
		}
		if len(md.Params) != 1 || md.Params[0].Kind != '[' {
			t.Errorf("params = %+v", md.Params)
		}
	})
}

func TestIsSignaturePolymorphic(t *testing.T) {
	polymorphicShape := &MethodInfo{
		Name:        "invoke",
		Descriptor:  "([Ljava/lang/Object;)Ljava/lang/Object;",
		AccessFlags: AccNative | AccVarargs,
	}
	if !IsSignaturePolymorphic("java/lang/invoke/MethodHandle", polymorphicShape) {
		t.Error("MethodHandle.invoke should be signature polymorphic")
	}
	if IsSignaturePolymorphic("java/lang/String", polymorphicShape) {
		t.Error("String.invoke should not be signature polymorphic: wrong declaring class")
	}

	notNativeVarargs := &MethodInfo{
		Name:        "invoke",
		Descriptor:  "([Ljava/lang/Object;)Ljava/lang/Object;",
		AccessFlags: AccNative,
	}
	if IsSignaturePolymorphic("java/lang/invoke/MethodHandle", notNativeVarargs) {
		t.Error("a non-varargs method should not be signature polymorphic, regardless of name")
	}

	wrongShape := &MethodInfo{
		Name:        "invoke",
		Descriptor:  "(Ljava/lang/Object;)Ljava/lang/Object;",
		AccessFlags: AccNative | AccVarargs,
	}
	if IsSignaturePolymorphic("java/lang/invoke/MethodHandle", wrongShape) {
		t.Error("a single non-array Object parameter should not be signature polymorphic")
	}
}
