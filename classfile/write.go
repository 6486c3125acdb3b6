package classfile

import (
	"fmt"
	"io"
	"math"
	"unicode/utf16"

	"github.com/Guardsquare/proguard-assembler/internal/cptag"
	"github.com/Guardsquare/proguard-assembler/internal/typeref"
)

// magic is the class file signature (JVMS §4.1).
const magic = 0xCAFEBABE

// WriteClass serialises a class model to the binary .class format (JVMS
// §4.1), the write-direction counterpart of ReadClass. Every name/descriptor
// still carried as a plain Go string on the model (field/method
// names, class names, attribute payloads) is interned into the constant
// pool here, on demand, before the pool itself is serialised — by the time
// writeConstantPool runs, every index the rest of the class body looks up
// has already been assigned and dedup guarantees it stays stable.
func WriteClass(cls *ProgramClass, w io.Writer) error {
	fieldBlocks := make([][]byte, len(cls.Fields))
	for i, f := range cls.Fields {
		b, err := writeField(cls.Pool, f)
		if err != nil {
			return err
		}
		fieldBlocks[i] = b
	}

	methodBlocks := make([][]byte, len(cls.Methods))
	for i, m := range cls.Methods {
		b, err := writeMethod(cls.Pool, m)
		if err != nil {
			return err
		}
		methodBlocks[i] = b
	}

	classAttrs, err := writeClassAttributes(cls)
	if err != nil {
		return err
	}

	thisIdx := cls.Pool.Class(cls.ThisClass)
	superIdx := 0
	if cls.SuperClass != "" {
		superIdx = cls.Pool.Class(cls.SuperClass)
	}
	ifaceIdxs := make([]int, len(cls.Interfaces))
	for i, n := range cls.Interfaces {
		ifaceIdxs[i] = cls.Pool.Class(n)
	}

	// Every interned index above, and every one buried inside fieldBlocks/
	// methodBlocks/classAttrs, was assigned by a pool.UTF8/pool.Class/etc.
	// call that already happened; the pool is now final.
	var b []byte
	b = u4(b, magic)
	b = u2(b, cls.MinorVersion)
	b = u2(b, cls.MajorVersion)
	b = writeConstantPool(cls.Pool, b)
	b = u2(b, cls.AccessFlags)
	b = u2(b, thisIdx)
	b = u2(b, superIdx)
	b = u2(b, len(ifaceIdxs))
	for _, idx := range ifaceIdxs {
		b = u2(b, idx)
	}
	b = u2(b, len(fieldBlocks))
	for _, fb := range fieldBlocks {
		b = append(b, fb...)
	}
	b = u2(b, len(methodBlocks))
	for _, mb := range methodBlocks {
		b = append(b, mb...)
	}
	b = append(b, classAttrs...)

	_, err = w.Write(b)
	return err
}

func writeConstantPool(pool *ConstantPool, b []byte) []byte {
	count := pool.Count()
	b = u2(b, count)
	for i := 1; i < count; i++ {
		e := pool.Get(i)
		if e.Tag == 0 {
			continue // phantom second slot of a preceding Long/Double
		}
		b = u1(b, e.Tag)
		switch e.Tag {
		case cptag.Utf8:
			encoded := modifiedUTF8(e.UTF8)
			b = u2(b, len(encoded))
			b = append(b, encoded...)
		case cptag.Integer:
			b = u4(b, int(uint32(e.Int32)))
		case cptag.Float:
			b = u4(b, int(math.Float32bits(e.Float32)))
		case cptag.Long:
			v := uint64(e.Int64)
			b = u4(b, int(uint32(v>>32)))
			b = u4(b, int(uint32(v)))
		case cptag.Double:
			v := math.Float64bits(e.Float64)
			b = u4(b, int(uint32(v>>32)))
			b = u4(b, int(uint32(v)))
		case cptag.Class, cptag.String, cptag.MethodType, cptag.Module, cptag.Package:
			b = u2(b, e.Index1)
		case cptag.Fieldref, cptag.Methodref, cptag.InterfaceMethodref, cptag.NameAndType,
			cptag.Dynamic, cptag.InvokeDynamic:
			b = u2(b, e.Index1)
			b = u2(b, e.Index2)
		case cptag.MethodHandle:
			b = u1(b, e.RefKind)
			b = u2(b, e.Index1)
		}
	}
	return b
}

// modifiedUTF8 encodes s per JVMS §4.4.7: NUL and characters above U+FFFF
// are encoded differently than plain UTF-8 (NUL as the two-byte form
// 0xC0 0x80, astral code points as a pair of three-byte surrogate
// encodings rather than a four-byte sequence). The standard library has no
// ready-made encoder for this JVM-specific variant, so it is spelled out by
// hand; every other string/byte concern in this package goes through a pool
// or lexer helper instead of a one-off like this.
func modifiedUTF8(s string) []byte {
	var out []byte
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r <= 0x7F:
			out = append(out, byte(r))
		case r <= 0x7FF:
			out = append(out, byte(0xC0|(r>>6)), byte(0x80|(r&0x3F)))
		case r <= 0xFFFF:
			out = append(out, byte(0xE0|(r>>12)), byte(0x80|((r>>6)&0x3F)), byte(0x80|(r&0x3F)))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = append(out, encodeSurrogate(hi)...)
			out = append(out, encodeSurrogate(lo)...)
		}
	}
	return out
}

func encodeSurrogate(r rune) []byte {
	return []byte{byte(0xE0 | (r >> 12)), byte(0x80 | ((r >> 6) & 0x3F)), byte(0x80 | (r & 0x3F))}
}

func attr(pool *ConstantPool, name string, body []byte) []byte {
	var b []byte
	b = u2(b, pool.UTF8(name))
	b = u4(b, len(body))
	b = append(b, body...)
	return b
}

func writeField(pool *ConstantPool, f *Field) ([]byte, error) {
	var attrs [][]byte
	if f.HasConstantValue {
		var body []byte
		body = u2(body, f.ConstantValue)
		attrs = append(attrs, attr(pool, "ConstantValue", body))
	}
	common, err := writeCommonAttributes(pool, f.Signature, f.Deprecated, f.Synthetic,
		f.RuntimeVisibleAnnotations, f.RuntimeInvisibleAnnotations,
		f.RuntimeVisibleTypeAnnotations, f.RuntimeInvisibleTypeAnnotations, noOffsetTarget)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, common...)

	var b []byte
	b = u2(b, f.AccessFlags)
	b = u2(b, pool.UTF8(f.Name))
	b = u2(b, pool.UTF8(f.Descriptor))
	b = u2(b, len(attrs))
	for _, a := range attrs {
		b = append(b, a...)
	}
	return b, nil
}

func writeMethod(pool *ConstantPool, m *Method) ([]byte, error) {
	var attrs [][]byte

	if len(m.Parameters) > 0 {
		var body []byte
		body = u1(body, len(m.Parameters))
		for _, mp := range m.Parameters {
			name := 0
			if mp.Name != "" {
				name = pool.UTF8(mp.Name)
			}
			body = u2(body, name)
			body = u2(body, mp.AccessFlags)
		}
		attrs = append(attrs, attr(pool, "MethodParameters", body))
	}

	if len(m.Throws) > 0 {
		var body []byte
		body = u2(body, len(m.Throws))
		for _, t := range m.Throws {
			body = u2(body, pool.Class(t))
		}
		attrs = append(attrs, attr(pool, "Exceptions", body))
	}

	if len(m.RuntimeVisibleParameterAnnotations) > 0 {
		b, err := writeParameterAnnotations(pool, m.RuntimeVisibleParameterAnnotations)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeVisibleParameterAnnotations", b))
	}
	if len(m.RuntimeInvisibleParameterAnnotations) > 0 {
		b, err := writeParameterAnnotations(pool, m.RuntimeInvisibleParameterAnnotations)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeInvisibleParameterAnnotations", b))
	}
	if m.AnnotationDefault != nil {
		body, err := writeElementValue(pool, *m.AnnotationDefault)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "AnnotationDefault", body))
	}

	var labelOf func(*Label) int
	if m.Code != nil {
		labelOf = func(l *Label) int { return l.Offset() }
	}
	common, err := writeCommonAttributes(pool, m.Signature, m.Deprecated, m.Synthetic,
		m.RuntimeVisibleAnnotations, m.RuntimeInvisibleAnnotations,
		m.RuntimeVisibleTypeAnnotations, m.RuntimeInvisibleTypeAnnotations, labelOf)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, common...)

	if m.Code != nil {
		body, err := writeCode(pool, m.Code)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "Code", body))
	}

	var b []byte
	b = u2(b, m.AccessFlags)
	b = u2(b, pool.UTF8(m.Name))
	b = u2(b, pool.UTF8(m.Descriptor))
	b = u2(b, len(attrs))
	for _, a := range attrs {
		b = append(b, a...)
	}
	return b, nil
}

func writeCode(pool *ConstantPool, code *CodeAttribute) ([]byte, error) {
	var b []byte
	b = u2(b, code.MaxStack)
	b = u2(b, code.MaxLocals)
	b = u4(b, len(code.Code))
	b = append(b, code.Code...)

	b = u2(b, len(code.Exceptions))
	for _, e := range code.Exceptions {
		catchType := 0
		if e.CatchType != "" {
			catchType = pool.Class(e.CatchType)
		}
		b = u2(b, e.Start.Offset())
		b = u2(b, e.End.Offset())
		b = u2(b, e.Handler.Offset())
		b = u2(b, catchType)
	}

	var subAttrs [][]byte
	if len(code.LineNumbers) > 0 {
		var body []byte
		body = u2(body, len(code.LineNumbers))
		for _, ln := range code.LineNumbers {
			body = u2(body, ln.Start.Offset())
			body = u2(body, ln.Line)
		}
		subAttrs = append(subAttrs, attr(pool, "LineNumberTable", body))
	}
	if len(code.LocalVars) > 0 {
		var body []byte
		body = u2(body, len(code.LocalVars))
		for _, lv := range code.LocalVars {
			start := lv.Start.Offset()
			body = u2(body, start)
			body = u2(body, lv.End.Offset()-start)
			body = u2(body, pool.UTF8(lv.Name))
			body = u2(body, pool.UTF8(lv.Descriptor))
			body = u2(body, lv.Slot)
		}
		subAttrs = append(subAttrs, attr(pool, "LocalVariableTable", body))
	}
	if len(code.LocalVarTypes) > 0 {
		var body []byte
		body = u2(body, len(code.LocalVarTypes))
		for _, lv := range code.LocalVarTypes {
			start := lv.Start.Offset()
			body = u2(body, start)
			body = u2(body, lv.End.Offset()-start)
			body = u2(body, pool.UTF8(lv.Name))
			body = u2(body, pool.UTF8(lv.Signature))
			body = u2(body, lv.Slot)
		}
		subAttrs = append(subAttrs, attr(pool, "LocalVariableTypeTable", body))
	}
	if len(code.StackMapTable) > 0 {
		subAttrs = append(subAttrs, attr(pool, "StackMapTable", code.StackMapTable))
	}

	b = u2(b, len(subAttrs))
	for _, a := range subAttrs {
		b = append(b, a...)
	}
	return b, nil
}

// noOffsetTarget is passed for field-level and class-level type annotations,
// which can never carry a code-relative target_info.
func noOffsetTarget(l *Label) int {
	panic("classfile: unexpected code-relative type annotation outside a method")
}

func writeCommonAttributes(pool *ConstantPool, signature string, deprecated, synthetic bool,
	visible, invisible []Annotation, visibleType, invisibleType []TypeAnnotation, labelOf func(*Label) int) ([][]byte, error) {
	var attrs [][]byte
	if signature != "" {
		var body []byte
		body = u2(body, pool.UTF8(signature))
		attrs = append(attrs, attr(pool, "Signature", body))
	}
	if deprecated {
		attrs = append(attrs, attr(pool, "Deprecated", nil))
	}
	if synthetic {
		attrs = append(attrs, attr(pool, "Synthetic", nil))
	}
	if len(visible) > 0 {
		body, err := writeAnnotations(pool, visible)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeVisibleAnnotations", body))
	}
	if len(invisible) > 0 {
		body, err := writeAnnotations(pool, invisible)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeInvisibleAnnotations", body))
	}
	if len(visibleType) > 0 {
		body, err := writeTypeAnnotations(pool, visibleType, labelOf)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeVisibleTypeAnnotations", body))
	}
	if len(invisibleType) > 0 {
		body, err := writeTypeAnnotations(pool, invisibleType, labelOf)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "RuntimeInvisibleTypeAnnotations", body))
	}
	return attrs, nil
}

func writeAnnotations(pool *ConstantPool, anns []Annotation) ([]byte, error) {
	var b []byte
	b = u2(b, len(anns))
	for _, a := range anns {
		ab, err := writeAnnotation(pool, a)
		if err != nil {
			return nil, err
		}
		b = append(b, ab...)
	}
	return b, nil
}

func writeAnnotation(pool *ConstantPool, a Annotation) ([]byte, error) {
	var b []byte
	b = u2(b, pool.UTF8(a.TypeName))
	b = u2(b, len(a.Elements))
	for _, el := range a.Elements {
		b = u2(b, pool.UTF8(el.Name))
		ev, err := writeElementValue(pool, el.Value)
		if err != nil {
			return nil, err
		}
		b = append(b, ev...)
	}
	return b, nil
}

func writeElementValue(pool *ConstantPool, ev ElementValue) ([]byte, error) {
	var b []byte
	b = u1(b, int(ev.Tag))
	switch ev.Tag {
	case 'Z', 'C', 'B', 'S', 'I', 'J', 'F', 'D', 's':
		b = u2(b, ev.ConstIndex)
	case 'e':
		b = u2(b, pool.UTF8(ev.EnumTypeName))
		b = u2(b, pool.UTF8(ev.EnumConstName))
	case 'c':
		b = u2(b, pool.UTF8(ev.ClassInfo))
	case '@':
		ab, err := writeAnnotation(pool, *ev.Annotation)
		if err != nil {
			return nil, err
		}
		b = append(b, ab...)
	case '[':
		b = u2(b, len(ev.Array))
		for _, v := range ev.Array {
			vb, err := writeElementValue(pool, v)
			if err != nil {
				return nil, err
			}
			b = append(b, vb...)
		}
	default:
		return nil, fmt.Errorf("classfile: unknown element value tag %q", ev.Tag)
	}
	return b, nil
}

func writeParameterAnnotations(pool *ConstantPool, groups [][]Annotation) ([]byte, error) {
	var b []byte
	b = u1(b, len(groups))
	for _, g := range groups {
		gb, err := writeAnnotations(pool, g)
		if err != nil {
			return nil, err
		}
		b = append(b, gb...)
	}
	return b, nil
}

func writeTypeAnnotations(pool *ConstantPool, anns []TypeAnnotation, labelOf func(*Label) int) ([]byte, error) {
	var b []byte
	b = u2(b, len(anns))
	for _, ta := range anns {
		tb, err := writeTypeAnnotation(pool, ta, labelOf)
		if err != nil {
			return nil, err
		}
		b = append(b, tb...)
	}
	return b, nil
}

func writeTypeAnnotation(pool *ConstantPool, ta TypeAnnotation, labelOf func(*Label) int) ([]byte, error) {
	var b []byte
	b = u1(b, ta.TargetType)
	switch ta.TargetType {
	case typeref.ClassTypeParameter, typeref.MethodTypeParameter:
		b = u1(b, ta.TypeParameterIndex)
	case typeref.ClassExtends:
		b = u2(b, ta.SuperTypeIndex)
	case typeref.ClassTypeParameterBound, typeref.MethodTypeParameterBound:
		b = u1(b, ta.BoundIndex.Type)
		b = u1(b, ta.BoundIndex.Bound)
	case typeref.Field, typeref.MethodReturn, typeref.MethodReceiver:
		// empty target_info
	case typeref.MethodFormalParameter:
		b = u1(b, ta.FormalParameterIndex)
	case typeref.Throws:
		b = u2(b, ta.ThrowsTypeIndex)
	case typeref.LocalVariable, typeref.ResourceVariable:
		b = u2(b, len(ta.LocalVars))
		for _, lv := range ta.LocalVars {
			start := lv.Start.Offset()
			b = u2(b, start)
			b = u2(b, lv.End.Offset()-start)
			b = u2(b, lv.Slot)
		}
	case typeref.ExceptionParameter:
		b = u2(b, ta.ExceptionTableIndex)
	case typeref.Instanceof, typeref.New, typeref.ConstructorReference, typeref.MethodReference:
		b = u2(b, labelOf(ta.Offset))
	case typeref.Cast, typeref.ConstructorInvocationTypeArgument, typeref.MethodInvocationTypeArgument,
		typeref.ConstructorReferenceTypeArgument, typeref.MethodReferenceTypeArgument:
		b = u2(b, labelOf(ta.Offset))
		b = u1(b, ta.TypeArgumentIndex)
	default:
		return nil, fmt.Errorf("classfile: unknown type annotation target_type %d", ta.TargetType)
	}

	b = u1(b, len(ta.TypePath.Steps))
	for _, step := range ta.TypePath.Steps {
		b = u1(b, step.Kind)
		b = u1(b, step.TypeArgumentIndex)
	}

	ab, err := writeAnnotation(pool, ta.Annotation)
	if err != nil {
		return nil, err
	}
	return append(b, ab...), nil
}

func writeClassAttributes(cls *ProgramClass) ([]byte, error) {
	pool := cls.Pool
	var attrs [][]byte

	if cls.SourceFile != "" {
		var body []byte
		body = u2(body, pool.UTF8(cls.SourceFile))
		attrs = append(attrs, attr(pool, "SourceFile", body))
	}
	if cls.SourceDir != "" {
		var body []byte
		body = u2(body, pool.UTF8(cls.SourceDir))
		attrs = append(attrs, attr(pool, "SourceDir", body))
	}
	if len(cls.InnerClasses) > 0 {
		var body []byte
		body = u2(body, len(cls.InnerClasses))
		for _, ic := range cls.InnerClasses {
			body = u2(body, pool.Class(ic.InnerClass))
			outer := 0
			if ic.OuterClass != "" {
				outer = pool.Class(ic.OuterClass)
			}
			body = u2(body, outer)
			name := 0
			if ic.InnerName != "" {
				name = pool.UTF8(ic.InnerName)
			}
			body = u2(body, name)
			body = u2(body, ic.AccessFlags)
		}
		attrs = append(attrs, attr(pool, "InnerClasses", body))
	}
	if cls.HasEnclosingMethod || cls.EnclosingClass != "" {
		var body []byte
		body = u2(body, pool.Class(cls.EnclosingClass))
		nt := 0
		if cls.HasEnclosingMethod {
			nt = pool.NameAndType(cls.EnclosingMethodName, cls.EnclosingMethodDescriptor)
		}
		body = u2(body, nt)
		attrs = append(attrs, attr(pool, "EnclosingMethod", body))
	}
	if cls.NestHost != "" {
		var body []byte
		body = u2(body, pool.Class(cls.NestHost))
		attrs = append(attrs, attr(pool, "NestHost", body))
	}
	if len(cls.NestMembers) > 0 {
		var body []byte
		body = u2(body, len(cls.NestMembers))
		for _, n := range cls.NestMembers {
			body = u2(body, pool.Class(n))
		}
		attrs = append(attrs, attr(pool, "NestMembers", body))
	}
	if len(cls.BootstrapMethods) > 0 {
		var body []byte
		body = u2(body, len(cls.BootstrapMethods))
		for _, bm := range cls.BootstrapMethods {
			body = u2(body, bm.MethodHandleIndex)
			body = u2(body, len(bm.Arguments))
			for _, a := range bm.Arguments {
				body = u2(body, a)
			}
		}
		attrs = append(attrs, attr(pool, "BootstrapMethods", body))
	}
	if cls.ModuleMainClass != "" {
		var body []byte
		body = u2(body, pool.Class(cls.ModuleMainClass))
		attrs = append(attrs, attr(pool, "ModuleMainClass", body))
	}
	if len(cls.ModulePackages) > 0 {
		var body []byte
		body = u2(body, len(cls.ModulePackages))
		for _, p := range cls.ModulePackages {
			body = u2(body, pool.Package(p))
		}
		attrs = append(attrs, attr(pool, "ModulePackages", body))
	}
	if cls.Module != nil {
		body, err := writeModule(pool, cls.Module)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr(pool, "Module", body))
	}

	common, err := writeCommonAttributes(pool, cls.Signature, cls.Deprecated, cls.Synthetic,
		cls.RuntimeVisibleAnnotations, cls.RuntimeInvisibleAnnotations,
		cls.RuntimeVisibleTypeAnnotations, cls.RuntimeInvisibleTypeAnnotations, noOffsetTarget)
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, common...)

	var b []byte
	b = u2(b, len(attrs))
	for _, a := range attrs {
		b = append(b, a...)
	}
	return b, nil
}

func writeModule(pool *ConstantPool, mod *ModuleAttr) ([]byte, error) {
	var b []byte
	b = u2(b, pool.Module(mod.Name))
	b = u2(b, mod.Flags)
	version := 0
	if mod.Version != "" {
		version = pool.UTF8(mod.Version)
	}
	b = u2(b, version)

	b = u2(b, len(mod.Requires))
	for _, r := range mod.Requires {
		b = u2(b, pool.Module(r.Name))
		b = u2(b, r.Flags)
		v := 0
		if r.Version != "" {
			v = pool.UTF8(r.Version)
		}
		b = u2(b, v)
	}

	writeEdges := func(edges []ModulePackageEdge) {
		b = u2(b, len(edges))
		for _, e := range edges {
			b = u2(b, pool.Package(e.Package))
			b = u2(b, e.Flags)
			b = u2(b, len(e.To))
			for _, t := range e.To {
				b = u2(b, pool.Module(t))
			}
		}
	}
	writeEdges(mod.Exports)
	writeEdges(mod.Opens)

	b = u2(b, len(mod.Uses))
	for _, u := range mod.Uses {
		b = u2(b, pool.Class(u))
	}

	b = u2(b, len(mod.Provides))
	for _, pr := range mod.Provides {
		b = u2(b, pool.Class(pr.Service))
		b = u2(b, len(pr.With))
		for _, w := range pr.With {
			b = u2(b, pool.Class(w))
		}
	}
	return b, nil
}
