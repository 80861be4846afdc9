package vm

import "testing"

func TestNewClassIdentifierRoundTrip(t *testing.T) {
	cases := []struct {
		raw     string
		pkg     string
		name    string
	}{
		{"java/lang/String", "java/lang", "String"},
		{"java.lang.String", "java/lang", "String"},
		{"Ljava/lang/String;", "java/lang", "String"},
		{"[Ljava/lang/String;", "java/lang", "String"},
		{"[[I", "java/lang", "Integer"},
		{"Hello", "", "Hello"},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			id := NewClassIdentifier(c.raw)
			if id.Package != c.pkg || id.Name != c.name {
				t.Errorf("NewClassIdentifier(%q) = %+v, want {%q %q}", c.raw, id, c.pkg, c.name)
			}
		})
	}
}

func TestClassIdentifierEquality(t *testing.T) {
	a := NewClassIdentifier("java.lang.String")
	b := NewClassIdentifier("Ljava/lang/String;")
	if a != b {
		t.Errorf("identifiers for the same class should compare equal: %+v != %+v", a, b)
	}
}

func TestClassIdentifierStrings(t *testing.T) {
	id := ClassIdentifier{Package: "java/lang", Name: "String"}
	if id.Slashed() != "java/lang/String" {
		t.Errorf("Slashed() = %q", id.Slashed())
	}
	if id.Dotted() != "java.lang.String" {
		t.Errorf("Dotted() = %q", id.Dotted())
	}
}

func TestPrimitiveWrapperByName(t *testing.T) {
	id, ok := PrimitiveWrapperByName("int")
	if !ok || id.Name != "Integer" {
		t.Errorf("PrimitiveWrapperByName(\"int\") = %+v, %v", id, ok)
	}
	if _, ok := PrimitiveWrapperByName("notaprimitive"); ok {
		t.Error("expected ok=false for unknown name")
	}
}
