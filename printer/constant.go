package printer

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/cptag"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
)

// refKindNames is the inverse of the parser's refKindKeywords (// method-handle reference-kind keywords).
var refKindNames = map[int]string{
	opcodes.HGetField:         "getfield",
	opcodes.HGetStatic:        "getstatic",
	opcodes.HPutField:         "putfield",
	opcodes.HPutStatic:        "putstatic",
	opcodes.HInvokeVirtual:    "invokevirtual",
	opcodes.HInvokeStatic:     "invokestatic",
	opcodes.HInvokeSpecial:    "invokespecial",
	opcodes.HNewInvokeSpecial: "newinvokespecial",
	opcodes.HInvokeInterface:  "invokeinterface",
}

// classLiteral converts a CONSTANT_Class_info's stored name (which for an
// array class is already a full descriptor, and for everything else is a
// bare slash-separated internal name) into the external (dotted) form the
// Constant Translator's print direction emits.
func classLiteral(name string) string {
	if len(name) > 0 && name[0] == '[' {
		return classfile.ExternalType(name)
	}
	return classfile.ExternalType("L" + name + ";")
}

// PrintFieldOrMethodRef renders a Fieldref/Methodref/InterfaceMethodref pool
// entry as "type # type identifier" / "type # returnType identifier(args)"
//, used both for a MethodHandle's referenced member and for
// field/method-access instructions.
func PrintFieldOrMethodRef(pool *classfile.ConstantPool, index int) (string, error) {
	e := pool.Get(index)
	owner := pool.ClassName(e.Index1)
	name, descriptor := pool.NameAndTypeOf(e.Index2)
	ownerLit := classfile.ExternalType("L" + owner + ";")
	switch e.Tag {
	case cptag.Fieldref:
		return fmt.Sprintf("%s # %s %s", ownerLit, classfile.ExternalType(descriptor), name), nil
	case cptag.Methodref, cptag.InterfaceMethodref:
		ret := classfile.ExternalType(classfile.MethodReturnType(descriptor))
		args := classfile.MethodArgumentTypes(descriptor)
		argStrs := make([]string, len(args))
		for i, a := range args {
			argStrs[i] = classfile.ExternalType(a)
		}
		return fmt.Sprintf("%s # %s %s(%s)", ownerLit, ret, name, joinComma(argStrs)), nil
	}
	return "", jbcerr.NewPrint("constant pool index %d is not a field or method reference", index)
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// PrintLoadableConstant renders a constant-pool entry the way it would need
// to be spelled so that parser.ParseLoadableConstant reads it back to the
// same entry. typeHint narrows an Integer entry's printed form per
// classfile.FieldTypeHint ("boolean"/"char"/""):
// outside of a hint, a plain Integer always prints as a bare decimal literal,
// matching parseInferredConstant's default int-typing rule.
func PrintLoadableConstant(pool *classfile.ConstantPool, index int, typeHint string) (string, error) {
	e := pool.Get(index)
	switch e.Tag {
	case cptag.Integer:
		switch typeHint {
		case "boolean":
			if e.Int32 != 0 {
				return "true", nil
			}
			return "false", nil
		case "char":
			return "'" + EscapeChar(rune(e.Int32)) + "'", nil
		default:
			return FormatInt32(e.Int32), nil
		}
	case cptag.Float:
		return FormatFloat32(e.Float32), nil
	case cptag.Long:
		return FormatInt64(e.Int64), nil
	case cptag.Double:
		return FormatFloat64(e.Float64), nil
	case cptag.String:
		return `"` + EscapeString(pool.Get(e.Index1).UTF8) + `"`, nil
	case cptag.Class:
		return classLiteral(pool.Get(e.Index1).UTF8), nil
	case cptag.MethodHandle:
		kind, ok := refKindNames[e.RefKind]
		if !ok {
			return "", jbcerr.NewPrint("unknown method handle reference kind %d", e.RefKind)
		}
		ref, err := PrintFieldOrMethodRef(pool, e.Index1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(MethodHandle) %s %s", kind, ref), nil
	case cptag.MethodType:
		descriptor := pool.Get(e.Index1).UTF8
		ret := classfile.ExternalType(classfile.MethodReturnType(descriptor))
		args := classfile.MethodArgumentTypes(descriptor)
		argStrs := make([]string, len(args))
		for i, a := range args {
			argStrs[i] = classfile.ExternalType(a)
		}
		return fmt.Sprintf("(MethodType) (%s) %s", joinComma(argStrs), ret), nil
	case cptag.Dynamic:
		name, descriptor := pool.NameAndTypeOf(e.Index2)
		return fmt.Sprintf("(Dynamic) %d # %s %s", e.Index1, classfile.ExternalType(descriptor), name), nil
	}
	return "", jbcerr.NewPrint("constant pool index %d is not a loadable constant (tag %d)", index, e.Tag)
}
