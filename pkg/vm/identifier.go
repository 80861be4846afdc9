package vm

import "strings"

// ClassIdentifier is a canonical (package, name) pair. Two identifiers
// denoting the same class compare equal regardless of which surface form
// (dotted, slashed, or a field descriptor) they were parsed from.
type ClassIdentifier struct {
	Package string
	Name    string
}

// primitiveWrappers maps a standalone descriptor character to the class
// identifier of its boxed wrapper, per spec.md §3.
var primitiveWrappers = map[byte]ClassIdentifier{
	'B': {"java/lang", "Byte"},
	'C': {"java/lang", "Character"},
	'D': {"java/lang", "Double"},
	'F': {"java/lang", "Float"},
	'I': {"java/lang", "Integer"},
	'J': {"java/lang", "Long"},
	'S': {"java/lang", "Short"},
	'Z': {"java/lang", "Boolean"},
}

// primitiveWrapperNames maps a primitive type name ("int", "boolean", ...)
// used by Class.getPrimitiveClass to its wrapper identifier.
var primitiveWrapperNames = map[string]ClassIdentifier{
	"byte":    {"java/lang", "Byte"},
	"char":    {"java/lang", "Character"},
	"double":  {"java/lang", "Double"},
	"float":   {"java/lang", "Float"},
	"int":     {"java/lang", "Integer"},
	"long":    {"java/lang", "Long"},
	"short":   {"java/lang", "Short"},
	"boolean": {"java/lang", "Boolean"},
	"void":    {"java/lang", "Void"},
}

// NewClassIdentifier canonicalizes a class name that may be in dotted form
// ("java.lang.String"), slashed form ("java/lang/String"), an "L...;"
// field descriptor, an array descriptor ("[...", stripped to the element
// class), or a standalone primitive type character.
func NewClassIdentifier(raw string) ClassIdentifier {
	s := raw

	// Array descriptors: strip leading dimension markers, keep the element.
	for strings.HasPrefix(s, "[") {
		s = s[1:]
	}

	if len(s) == 1 {
		if wrapper, ok := primitiveWrappers[s[0]]; ok {
			return wrapper
		}
	}

	if strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") {
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, ".", "/")

	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return ClassIdentifier{Package: "", Name: s}
	}
	return ClassIdentifier{Package: s[:idx], Name: s[idx+1:]}
}

// PrimitiveWrapperByName resolves a primitive type name ("int", "void", ...)
// to its boxed wrapper identifier, used by Class.getPrimitiveClass.
func PrimitiveWrapperByName(name string) (ClassIdentifier, bool) {
	id, ok := primitiveWrapperNames[name]
	return id, ok
}

// Slashed renders the identifier in class-file internal-name form
// ("java/lang/String"), reconstructing what ThisClass/SuperClass would
// decode to.
func (c ClassIdentifier) Slashed() string {
	if c.Package == "" {
		return c.Name
	}
	return c.Package + "/" + c.Name
}

// Dotted renders the identifier in source form ("java.lang.String").
func (c ClassIdentifier) Dotted() string {
	if c.Package == "" {
		return c.Name
	}
	return c.Package + "." + c.Name
}

func (c ClassIdentifier) String() string { return c.Slashed() }
