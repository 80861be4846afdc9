package classfile

import "fmt"

// FieldType is a parsed field descriptor (JVMS §4.3.2): a primitive, a
// class type, or an array of either.
type FieldType struct {
	Kind      byte // one of BCDFIJSZ, 'L' for class, '[' for array
	ClassName string
	Elem      *FieldType // non-nil iff Kind == '['
}

func (t FieldType) String() string {
	switch t.Kind {
	case '[':
		return "[" + t.Elem.String()
	case 'L':
		return "L" + t.ClassName + ";"
	default:
		return string(t.Kind)
	}
}

// IsPrimitive reports whether this type is one of the eight primitives.
func (t FieldType) IsPrimitive() bool {
	switch t.Kind {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return true
	}
	return false
}

// MethodDescriptor is a parsed method descriptor (JVMS §4.3.3).
type MethodDescriptor struct {
	Params []FieldType
	Return *FieldType // nil for void
}

// ParseFieldType parses a single field descriptor, e.g. "I", "[I",
// "Ljava/lang/String;", "[[Ljava/lang/Object;".
func ParseFieldType(s string) (FieldType, int, error) {
	if len(s) == 0 {
		return FieldType{}, 0, fmt.Errorf("empty field descriptor")
	}
	switch s[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return FieldType{Kind: s[0]}, 1, nil
	case 'L':
		end := -1
		for i := 1; i < len(s); i++ {
			if s[i] == ';' {
				end = i
				break
			}
		}
		if end < 0 {
			return FieldType{}, 0, fmt.Errorf("unterminated class descriptor %q", s)
		}
		return FieldType{Kind: 'L', ClassName: s[1:end]}, end + 1, nil
	case '[':
		elem, n, err := ParseFieldType(s[1:])
		if err != nil {
			return FieldType{}, 0, fmt.Errorf("parsing array element of %q: %w", s, err)
		}
		return FieldType{Kind: '[', Elem: &elem}, n + 1, nil
	default:
		return FieldType{}, 0, fmt.Errorf("unknown descriptor char %q in %q", s[0], s)
	}
}

// ParseMethodDescriptor parses a method descriptor, e.g.
// "(Ljava/lang/String;I)V".
func ParseMethodDescriptor(s string) (*MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return nil, fmt.Errorf("method descriptor %q missing opening paren", s)
	}
	i := 1
	var params []FieldType
	for i < len(s) && s[i] != ')' {
		ft, n, err := ParseFieldType(s[i:])
		if err != nil {
			return nil, fmt.Errorf("parsing parameter of %q: %w", s, err)
		}
		params = append(params, ft)
		i += n
	}
	if i >= len(s) {
		return nil, fmt.Errorf("method descriptor %q missing closing paren", s)
	}
	i++ // skip ')'
	ret, _, err := ParseFieldType(s[i:])
	if err != nil {
		return nil, fmt.Errorf("parsing return type of %q: %w", s, err)
	}
	md := &MethodDescriptor{Params: params}
	if ret.Kind != 'V' {
		md.Return = &ret
	}
	return md, nil
}

// ParamSlots returns the number of local variable slots the parameters
// occupy, counting long/double as 2 (JVMS §2.6.1).
func (d *MethodDescriptor) ParamSlots() int {
	n := 0
	for _, p := range d.Params {
		if p.Kind == 'J' || p.Kind == 'D' {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// IsSignaturePolymorphic reports whether method, declared on className, has
// the exact shape JVMS §2.9.3/§4.3.3 requires for descriptor resolution to
// defer to the receiver's actual argument types rather than the
// compile-time descriptor: a single formal parameter of type Object[],
// declared both ACC_NATIVE and ACC_VARARGS. This covers
// MethodHandle.invoke/invokeExact and the VarHandle accessors without
// hardcoding their names, matching how javac/the JVM recognize the family
// (spec.md §4.8's invokedynamic notes).
func IsSignaturePolymorphic(className string, method *MethodInfo) bool {
	if className != "java/lang/invoke/MethodHandle" && className != "java/lang/invoke/VarHandle" {
		return false
	}
	const required = AccNative | AccVarargs
	if method.AccessFlags&required != required {
		return false
	}
	desc, err := ParseMethodDescriptor(method.Descriptor)
	if err != nil || len(desc.Params) != 1 {
		return false
	}
	p := desc.Params[0]
	return p.Kind == '[' && p.Elem != nil && p.Elem.Kind == 'L' && p.Elem.ClassName == "java/lang/Object"
}
