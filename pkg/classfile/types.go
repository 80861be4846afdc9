package classfile

// Access flags (JVMS §4.1, §4.5, §4.6).
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccSynchronized = 0x0020
	AccVolatile   = 0x0040
	AccBridge     = 0x0040
	AccTransient  = 0x0080
	AccVarargs    = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccStrict     = 0x0800
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

// ClassFile represents a parsed .class file (JVMS §4.1).
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo

	SourceFile       string
	NestHostIndex    uint16
	NestMembers      []uint16
	BootstrapMethods []BootstrapMethod
	InnerClasses     []InnerClassEntry
	EnclosingClass   uint16
	EnclosingMethod  uint16
	PermittedSubclasses []uint16
	Signature        string
	Deprecated       bool
}

// ConstantPoolEntry is implemented by every resolved constant pool entry.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle resolves a CONSTANT_MethodHandle_info (JVMS §4.4.8).
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

// ConstantMethodType resolves a CONSTANT_MethodType_info (JVMS §4.4.9).
type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic resolves CONSTANT_Dynamic_info (JVMS §4.4.10).
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return TagDynamic }

// ConstantInvokeDynamic resolves CONSTANT_InvokeDynamic_info (JVMS §4.4.10).
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

// MethodInfo represents a method_info structure (JVMS §4.6).
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
	Exceptions  []string // throws clause, from the Exceptions attribute
}

// FieldInfo represents a field_info structure (JVMS §4.5).
type FieldInfo struct {
	AccessFlags   uint16
	Name          string
	Descriptor    string
	Attributes    []AttributeInfo
	ConstantValue ConstantPoolEntry // non-nil iff a ConstantValue attribute was present
}

// AttributeInfo is a parsed-but-not-further-interpreted attribute: every
// attribute is parsed into either a dedicated struct (Code, LineNumberTable,
// etc.) stored on its owner, or, for attributes this VM has no further use
// for (Signature, Deprecated, RuntimeVisibleAnnotations, ...), into Data
// here so that round-tripping is lossless. An attribute name absent from
// both the dedicated-struct list and this catch-all is a hard parse error
// (spec.md §4.1): this VM never silently skips an attribute it doesn't
// recognize by name.
type AttributeInfo struct {
	Name string
	Data []byte
}

// CodeAttribute represents the Code attribute of a method (JVMS §4.7.3).
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals          uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	LineNumberTable   []LineNumberEntry
	LocalVariableTable []LocalVariableEntry
	StackMapTable     []StackMapFrame
	Attributes        []AttributeInfo
}

// ExceptionHandler is one entry of a Code attribute's exception table
// (JVMS §4.7.3). CatchType is a constant pool CONSTANT_Class index, or 0
// for a catch-all (finally) handler.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

type LocalVariableEntry struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

// StackMapFrame is the shape of a StackMapTable entry (JVMS §4.7.4).
// parseCodeAttribute does not decode StackMapTable: CodeAttribute's
// StackMapTable slice stays empty and the attribute's raw bytes are kept
// in CodeAttribute.Attributes. The interpreter does not consult it.
type StackMapFrame struct {
	FrameType uint8
	OffsetDelta uint16
}

// InnerClassEntry is one entry of the InnerClasses attribute (JVMS §4.7.6).
type InnerClassEntry struct {
	InnerClassIndex      uint16
	OuterClassIndex      uint16
	InnerNameIndex       uint16
	InnerClassAccessFlags uint16
}

// BootstrapMethod is one entry of the BootstrapMethods attribute
// (JVMS §4.7.23), used to resolve invokedynamic call sites.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// KnownAttributes lists every attribute name this parser recognizes
// (JVMS §4.7). An attribute outside this set is a hard parse error
// (spec.md §4.1) rather than a silently-skipped byte range: this parser
// never guesses at the shape of something it doesn't understand.
var KnownAttributes = map[string]bool{
	"Code":                             true,
	"LineNumberTable":                  true,
	"LocalVariableTable":               true,
	"LocalVariableTypeTable":           true,
	"StackMapTable":                    true,
	"Exceptions":                       true,
	"Signature":                        true,
	"Deprecated":                       true,
	"SourceFile":                       true,
	"NestMembers":                      true,
	"NestHost":                         true,
	"BootstrapMethods":                 true,
	"InnerClasses":                     true,
	"MethodParameters":                 true,
	"EnclosingMethod":                  true,
	"PermittedSubclasses":              true,
	"RuntimeVisibleAnnotations":        true,
	"RuntimeInvisibleAnnotations":      true,
	"RuntimeVisibleParameterAnnotations":   true,
	"RuntimeInvisibleParameterAnnotations": true,
	"ConstantValue":                    true,
	"SourceDebugExtension":             true,
	"Synthetic":                        true,
}

// MethodParameter is one entry of the MethodParameters attribute
// (JVMS §4.7.24).
type MethodParameter struct {
	Name        string
	AccessFlags uint16
}
