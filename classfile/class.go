package classfile

// ProgramClass is the class model built while parsing JBC text or reading a
// binary class file: version, access flags, this/super class, interfaces,
// members, and the handful of class-level attributes this module
// recognises. It is a plain struct rather than a visitor sink, since both
// the text parser and the binary reader build it up field by field before
// handing it to a printer or writer.
type ProgramClass struct {
	Pool *ConstantPool

	MajorVersion int
	MinorVersion int
	AccessFlags  int

	ThisClass  string // internal name
	SuperClass string // "" means no superclass (only valid for java/lang/Object and module-info)
	Interfaces []string

	Fields  []*Field
	Methods []*Method

	SourceFile string
	SourceDir  string // supplemented feature, not a real JVMS attribute but ProGuard's own
	Signature  string
	Deprecated bool
	Synthetic  bool

	InnerClasses []InnerClassInfo

	EnclosingClass            string
	EnclosingMethodName       string
	EnclosingMethodDescriptor string
	HasEnclosingMethod        bool

	NestHost    string
	NestMembers []string

	BootstrapMethods []BootstrapMethod

	RuntimeVisibleAnnotations       []Annotation
	RuntimeInvisibleAnnotations     []Annotation
	RuntimeVisibleTypeAnnotations   []TypeAnnotation
	RuntimeInvisibleTypeAnnotations []TypeAnnotation

	Module          *ModuleAttr
	ModuleMainClass string
	ModulePackages  []string
}

// InnerClassInfo is one inner_classes entry (JVMS §4.7.6).
type InnerClassInfo struct {
	InnerClass  string
	OuterClass  string // "" if not a member of another class
	InnerName   string // "" if anonymous
	AccessFlags int
}

// BootstrapMethod is one bootstrap_methods entry (JVMS §4.7.23).
type BootstrapMethod struct {
	MethodHandleIndex int
	Arguments         []int
}

// ModuleAttr models the Module attribute (JVMS §4.7.25).
type ModuleAttr struct {
	Name    string
	Flags   int
	Version string

	Requires []ModuleRequire
	Exports  []ModulePackageEdge
	Opens    []ModulePackageEdge
	Uses     []string
	Provides []ModuleProvide
}

type ModuleRequire struct {
	Name    string
	Flags   int
	Version string
}

// ModulePackageEdge models one exports or opens entry.
type ModulePackageEdge struct {
	Package string
	Flags   int
	To      []string
}

type ModuleProvide struct {
	Service string
	With    []string
}

// Field is the member model for a field_info (JVMS §4.5).
type Field struct {
	AccessFlags int
	Name        string
	Descriptor  string

	HasConstantValue bool
	ConstantValue    int // constant_pool index

	Signature  string
	Deprecated bool
	Synthetic  bool

	RuntimeVisibleAnnotations       []Annotation
	RuntimeInvisibleAnnotations     []Annotation
	RuntimeVisibleTypeAnnotations   []TypeAnnotation
	RuntimeInvisibleTypeAnnotations []TypeAnnotation
}

// MethodParameter is one entry of a MethodParameters attribute (JVMS
// §4.7.24). Only ReadClass fills these in; the JBC parser and printer do not
// handle method parameters.
type MethodParameter struct {
	Name        string // "" if unnamed
	AccessFlags int
}

// Method is the member model for a method_info (JVMS §4.6).
type Method struct {
	AccessFlags int
	Name        string
	Descriptor  string

	Parameters []MethodParameter // written whenever non-empty; no elision of unnamed, unflagged entries
	Throws     []string          // internal class names, from the Exceptions attribute

	Code *CodeAttribute // nil for abstract/native methods

	Signature  string
	Deprecated bool
	Synthetic  bool

	RuntimeVisibleAnnotations            []Annotation
	RuntimeInvisibleAnnotations          []Annotation
	RuntimeVisibleParameterAnnotations   [][]Annotation
	RuntimeInvisibleParameterAnnotations [][]Annotation
	RuntimeVisibleTypeAnnotations        []TypeAnnotation
	RuntimeInvisibleTypeAnnotations      []TypeAnnotation

	AnnotationDefault *ElementValue
}

// CodeAttribute is the nested Code attribute model (JVMS §4.7.3), produced
// by CodeComposer.End. StackMapTable is left as opaque bytes: it is
// generated by the external preverifier, never interpreted here.
type CodeAttribute struct {
	MaxStack  int
	MaxLocals int
	Code      []byte

	Exceptions    []ExceptionInfo
	LineNumbers   []LineNumberInfo
	LocalVars     []LocalVariableInfo
	LocalVarTypes []LocalVariableTypeInfo

	TypeAnnotationsVisible   []TypeAnnotation
	TypeAnnotationsInvisible []TypeAnnotation

	StackMapTable []byte
}
