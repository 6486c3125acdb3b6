package classfile

import "github.com/Guardsquare/proguard-assembler/internal/typeref"

// IsCodeRelativeTarget reports whether a type_annotation target_info sort
// refers into a Code attribute's byte stream (a local variable range, or an
// instruction offset), as opposed to a class/field/method-signature
// position that exists independent of any method body. The parser and
// ReadClass use this to copy a method's code-relative type annotations onto
// its CodeAttribute, where the printer's labels collector finds their offsets.
func IsCodeRelativeTarget(targetType int) bool {
	switch targetType {
	case typeref.LocalVariable, typeref.ResourceVariable, typeref.ExceptionParameter,
		typeref.Instanceof, typeref.New, typeref.ConstructorReference, typeref.MethodReference,
		typeref.Cast, typeref.ConstructorInvocationTypeArgument, typeref.MethodInvocationTypeArgument,
		typeref.ConstructorReferenceTypeArgument, typeref.MethodReferenceTypeArgument:
		return true
	}
	return false
}

// ElementValue is the tagged union of "ElementValue dispatch":
// a primitive/string constant, a class literal, an enum constant, a nested
// annotation, or an array of element values. Tag uses the JVMS §4.7.16.1
// element_value tag bytes ('B','C','D','F','I','J','S','Z','s','e','c','@','[').
type ElementValue struct {
	Tag byte

	// Primitive / string: index into the constant pool.
	ConstIndex int

	// Enum constant ('e').
	EnumTypeName  string // internal descriptor of the enum type
	EnumConstName string

	// Class literal ('c'): internal descriptor, or a method descriptor
	// return-type-style encoding for "void.class".
	ClassInfo string

	// Annotation value ('@').
	Annotation *Annotation

	// Array value ('[').
	Array []ElementValue
}

// Annotation is the annotation model of .
type Annotation struct {
	TypeName string // internal descriptor, e.g. "Lcom/example/Foo;"
	Elements []AnnotationElement
}

// AnnotationElement is one "name = elementValue" pair.
type AnnotationElement struct {
	Name  string
	Value ElementValue
}

// LocalVarTarget is one entry of a localvar_target (JVMS §4.7.20.1), used
// by local_variable / resource_variable type-annotation targets.
type LocalVarTarget struct {
	Start, End *Label
	Slot       int
}

// TypeAnnotation is the type-annotation model of : a target_info
// (selected by TargetType, one of internal/typeref's sort constants) plus a
// type_path and the annotation payload itself. Only the field group
// matching TargetType is meaningful, mirroring the Instruction tagged union
// in classfile/instruction.go.
type TypeAnnotation struct {
	TargetType int // internal/typeref sort value

	TypeParameterIndex int // parameter_generic_class / parameter_generic_method

	SuperTypeIndex int // extends: 65535 for the superclass, else an interfaces[] index

	BoundIndex struct{ Type, Bound int } // bound_generic_class / bound_generic_method

	FormalParameterIndex int // parameter
	ThrowsTypeIndex      int // throws

	LocalVars            []LocalVarTarget // local_variable / resource_variable
	ExceptionTableIndex  int              // catch

	Offset *Label // instance_of / new / method_reference_new / method_reference

	TypeArgumentIndex int // cast / argument_generic_method* targets

	TypePath typeref.TypePath

	Annotation Annotation
}
