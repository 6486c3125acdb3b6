package classfile

import "strings"

// primitiveDescriptors holds the single-character JVM-internal codes for
// primitive types, used when disambiguating external (dotted) names.
var primitiveDescriptors = map[string]string{
	"void":    "V",
	"boolean": "Z",
	"char":    "C",
	"byte":    "B",
	"short":   "S",
	"int":     "I",
	"float":   "F",
	"long":    "J",
	"double":  "D",
}

var primitiveExternal = func() map[string]string {
	m := make(map[string]string, len(primitiveDescriptors))
	for ext, internal := range primitiveDescriptors {
		m[internal] = ext
	}
	return m
}()

// InternalType converts an external (dotted, source-level) type name such as
// "java.lang.String" or "int[][]" into its JVM-internal descriptor form
// ("Ljava/lang/String;" or "[[I"). Used by the Expectation Layer's
// expect_type.
func InternalType(external string) string {
	dims := 0
	base := external
	for strings.HasSuffix(base, "[]") {
		dims++
		base = strings.TrimSuffix(base, "[]")
	}
	base = strings.TrimSpace(base)

	var core string
	if internal, ok := primitiveDescriptors[base]; ok {
		core = internal
	} else {
		core = "L" + strings.ReplaceAll(base, ".", "/") + ";"
	}
	return strings.Repeat("[", dims) + core
}

// ExternalType is the inverse of InternalType, used by the printer to
// convert an internal descriptor back to its external (dotted) form.
func ExternalType(internal string) string {
	dims := 0
	i := 0
	for i < len(internal) && internal[i] == '[' {
		dims++
		i++
	}
	rest := internal[i:]

	var base string
	switch {
	case len(rest) == 0:
		base = ""
	case rest[0] == 'L':
		base = strings.ReplaceAll(strings.TrimSuffix(rest[1:], ";"), "/", ".")
	default:
		if ext, ok := primitiveExternal[rest]; ok {
			base = ext
		} else {
			base = rest
		}
	}
	return base + strings.Repeat("[]", dims)
}

// descriptorLength returns how many bytes of `descriptor` starting at
// `offset` make up one complete field descriptor (used to walk a method
// descriptor's argument list one type at a time).
func descriptorLength(descriptor string, offset int) int {
	start := offset
	for offset < len(descriptor) && descriptor[offset] == '[' {
		offset++
	}
	if offset >= len(descriptor) {
		return offset - start
	}
	if descriptor[offset] == 'L' {
		for offset < len(descriptor) && descriptor[offset] != ';' {
			offset++
		}
		return offset - start + 1
	}
	return offset - start + 1
}

// MethodArgumentTypes splits a method descriptor "(T1T2...)Rt" into its
// argument internal types.
func MethodArgumentTypes(descriptor string) []string {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil
	}
	var args []string
	offset := 1
	for offset < len(descriptor) && descriptor[offset] != ')' {
		n := descriptorLength(descriptor, offset)
		args = append(args, descriptor[offset:offset+n])
		offset += n
	}
	return args
}

// MethodReturnType returns the internal return type of a method descriptor.
func MethodReturnType(descriptor string) string {
	idx := strings.IndexByte(descriptor, ')')
	if idx < 0 || idx+1 >= len(descriptor) {
		return "V"
	}
	return descriptor[idx+1:]
}

// BuildMethodDescriptor assembles "(T1T2...)Rt" from parsed pieces, used by
// expect_method_args.
func BuildMethodDescriptor(args []string, ret string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(a)
	}
	b.WriteByte(')')
	b.WriteString(ret)
	return b.String()
}

// ParameterSize returns the number of local-variable slots occupied by a
// method descriptor's arguments (long/double count as two), used by the
// invokeinterface `count` byte rule in .
func ParameterSize(descriptor string) int {
	size := 0
	for _, arg := range MethodArgumentTypes(descriptor) {
		if arg == "J" || arg == "D" {
			size += 2
		} else {
			size++
		}
	}
	return size
}

// FieldTypeHint classifies a field/variable's internal descriptor into the
// small set the Constant Translator uses to disambiguate integer
// printing: "boolean", "char", "byte", "short", "int", or "" (no hint, i.e.
// long/float/double/array/object, which are never ambiguous with a plain
// integer literal).
func FieldTypeHint(internal string) string {
	switch internal {
	case "Z":
		return "boolean"
	case "C":
		return "char"
	case "B":
		return "byte"
	case "S":
		return "short"
	case "I":
		return "int"
	default:
		return ""
	}
}
