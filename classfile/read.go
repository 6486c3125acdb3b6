package classfile

import (
	"fmt"
	"io"
	"math"

	"github.com/Guardsquare/proguard-assembler/internal/cptag"
	"github.com/Guardsquare/proguard-assembler/internal/typeref"
)

// cursor is a bounds-checked reader over an in-memory class file, the
// read-direction counterpart of the u1/u2/u4 append helpers in encode.go.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) u1() (int, error) {
	if c.pos+1 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := int(c.buf[c.pos])
	c.pos++
	return v, nil
}

func (c *cursor) u2() (int, error) {
	if c.pos+2 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := int(c.buf[c.pos])<<8 | int(c.buf[c.pos+1])
	c.pos += 2
	return v, nil
}

func (c *cursor) u4() (int, error) {
	if c.pos+4 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := int(c.buf[c.pos])<<24 | int(c.buf[c.pos+1])<<16 | int(c.buf[c.pos+2])<<8 | int(c.buf[c.pos+3])
	c.pos += 4
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func newResolvedLabel(offset int) *Label {
	l := &Label{}
	l.resolve(offset)
	return l
}

// ReadClass parses the binary .class format (JVMS §4.1) into a class model,
// the read-direction counterpart of WriteClass: the same
// magic/pool/access/this/super/interfaces/fields/methods/attributes walk as
// WriteClass, driven over a byte cursor and building a ProgramClass
// directly rather than calling into a streaming visitor.
func ReadClass(r io.Reader) (*ProgramClass, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := &cursor{buf: data}

	m, err := c.u4()
	if err != nil {
		return nil, err
	}
	if uint32(m) != magic {
		return nil, fmt.Errorf("classfile: not a class file (bad magic %#x)", uint32(m))
	}
	minor, err := c.u2()
	if err != nil {
		return nil, err
	}
	major, err := c.u2()
	if err != nil {
		return nil, err
	}

	pool, err := readConstantPool(c)
	if err != nil {
		return nil, err
	}

	accessFlags, err := c.u2()
	if err != nil {
		return nil, err
	}
	thisIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	superIdx, err := c.u2()
	if err != nil {
		return nil, err
	}

	cls := &ProgramClass{
		Pool:         pool,
		MajorVersion: major,
		MinorVersion: minor,
		AccessFlags:  accessFlags,
		ThisClass:    pool.ClassName(thisIdx),
	}
	if superIdx != 0 {
		cls.SuperClass = pool.ClassName(superIdx)
	}

	ifaceCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < ifaceCount; i++ {
		idx, err := c.u2()
		if err != nil {
			return nil, err
		}
		cls.Interfaces = append(cls.Interfaces, pool.ClassName(idx))
	}

	fieldCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < fieldCount; i++ {
		f, err := readField(c, pool)
		if err != nil {
			return nil, err
		}
		cls.Fields = append(cls.Fields, f)
	}

	methodCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < methodCount; i++ {
		meth, err := readMethod(c, pool)
		if err != nil {
			return nil, err
		}
		cls.Methods = append(cls.Methods, meth)
	}

	if err := readClassAttributes(c, pool, cls); err != nil {
		return nil, err
	}
	return cls, nil
}

func readConstantPool(c *cursor) (*ConstantPool, error) {
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	pool := &ConstantPool{entries: make([]Entry, count)}
	pool.dedup = make(map[string]int)
	for i := 1; i < count; i++ {
		tag, err := c.u1()
		if err != nil {
			return nil, err
		}
		e := Entry{Tag: tag}
		switch tag {
		case cptag.Utf8:
			n, err := c.u2()
			if err != nil {
				return nil, err
			}
			raw, err := c.bytes(n)
			if err != nil {
				return nil, err
			}
			e.UTF8 = decodeModifiedUTF8(raw)
		case cptag.Integer:
			v, err := c.u4()
			if err != nil {
				return nil, err
			}
			e.Int32 = int32(uint32(v))
		case cptag.Float:
			v, err := c.u4()
			if err != nil {
				return nil, err
			}
			e.Float32 = math.Float32frombits(uint32(v))
		case cptag.Long:
			hi, err := c.u4()
			if err != nil {
				return nil, err
			}
			lo, err := c.u4()
			if err != nil {
				return nil, err
			}
			e.Int64 = int64(uint64(uint32(hi))<<32 | uint64(uint32(lo)))
		case cptag.Double:
			hi, err := c.u4()
			if err != nil {
				return nil, err
			}
			lo, err := c.u4()
			if err != nil {
				return nil, err
			}
			bits := uint64(uint32(hi))<<32 | uint64(uint32(lo))
			e.Float64 = math.Float64frombits(bits)
		case cptag.Class, cptag.String, cptag.MethodType, cptag.Module, cptag.Package:
			idx, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.Index1 = idx
		case cptag.Fieldref, cptag.Methodref, cptag.InterfaceMethodref, cptag.NameAndType,
			cptag.Dynamic, cptag.InvokeDynamic:
			i1, err := c.u2()
			if err != nil {
				return nil, err
			}
			i2, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.Index1, e.Index2 = i1, i2
		case cptag.MethodHandle:
			kind, err := c.u1()
			if err != nil {
				return nil, err
			}
			ref, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.RefKind, e.Index1 = kind, ref
		default:
			return nil, fmt.Errorf("classfile: unknown constant pool tag %d at index %d", tag, i)
		}
		pool.entries[i] = e
		if cptag.Slots(tag) == 2 {
			i++ // phantom second slot
		}
	}
	return pool, nil
}

// decodeModifiedUTF8 is the read-direction inverse of modifiedUTF8 in
// write.go. The standard library has no ready-made decoder for the JVM's
// modified-UTF8 string form, so it is spelled out by hand, matching the
// encoder it mirrors.
func decodeModifiedUTF8(b []byte) string {
	var out []rune
	for i := 0; i < len(b); {
		b0 := b[i]
		switch {
		case b0&0x80 == 0:
			out = append(out, rune(b0))
			i++
		case b0&0xE0 == 0xC0:
			r := rune(b0&0x1F)<<6 | rune(b[i+1]&0x3F)
			out = append(out, r)
			i += 2
		default: // 0xE0 prefix: plain BMP codepoint or one half of a surrogate pair
			r := rune(b0&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			i += 3
			if r >= 0xD800 && r <= 0xDBFF && i+3 <= len(b) && b[i]&0xF0 == 0xE0 {
				lo := rune(b[i]&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
				if lo >= 0xDC00 && lo <= 0xDFFF {
					r = 0x10000 + (r-0xD800)<<10 + (lo - 0xDC00)
					i += 3
				}
			}
			out = append(out, r)
		}
	}
	return string(out)
}

// attribute reads one attribute_info's name and raw body.
func readAttribute(c *cursor, pool *ConstantPool) (string, []byte, error) {
	nameIdx, err := c.u2()
	if err != nil {
		return "", nil, err
	}
	length, err := c.u4()
	if err != nil {
		return "", nil, err
	}
	body, err := c.bytes(length)
	if err != nil {
		return "", nil, err
	}
	return pool.Get(nameIdx).UTF8, body, nil
}

func readField(c *cursor, pool *ConstantPool) (*Field, error) {
	accessFlags, err := c.u2()
	if err != nil {
		return nil, err
	}
	nameIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	descIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	f := &Field{AccessFlags: accessFlags, Name: pool.Get(nameIdx).UTF8, Descriptor: pool.Get(descIdx).UTF8}

	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		name, body, err := readAttribute(c, pool)
		if err != nil {
			return nil, err
		}
		if err := applyFieldAttribute(f, pool, name, body); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func applyFieldAttribute(f *Field, pool *ConstantPool, name string, body []byte) error {
	bc := &cursor{buf: body}
	switch name {
	case "ConstantValue":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		f.HasConstantValue = true
		f.ConstantValue = idx
	case "Signature":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		f.Signature = pool.Get(idx).UTF8
	case "Deprecated":
		f.Deprecated = true
	case "Synthetic":
		f.Synthetic = true
	case "RuntimeVisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		f.RuntimeVisibleAnnotations = anns
	case "RuntimeInvisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		f.RuntimeInvisibleAnnotations = anns
	case "RuntimeVisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		f.RuntimeVisibleTypeAnnotations = anns
	case "RuntimeInvisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		f.RuntimeInvisibleTypeAnnotations = anns
	}
	return nil
}

func readMethod(c *cursor, pool *ConstantPool) (*Method, error) {
	accessFlags, err := c.u2()
	if err != nil {
		return nil, err
	}
	nameIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	descIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	m := &Method{AccessFlags: accessFlags, Name: pool.Get(nameIdx).UTF8, Descriptor: pool.Get(descIdx).UTF8}

	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		name, body, err := readAttribute(c, pool)
		if err != nil {
			return nil, err
		}
		if err := applyMethodAttribute(m, pool, name, body); err != nil {
			return nil, err
		}
	}
	if m.Code != nil {
		for _, ta := range m.RuntimeVisibleTypeAnnotations {
			if IsCodeRelativeTarget(ta.TargetType) {
				m.Code.TypeAnnotationsVisible = append(m.Code.TypeAnnotationsVisible, ta)
			}
		}
		for _, ta := range m.RuntimeInvisibleTypeAnnotations {
			if IsCodeRelativeTarget(ta.TargetType) {
				m.Code.TypeAnnotationsInvisible = append(m.Code.TypeAnnotationsInvisible, ta)
			}
		}
	}
	return m, nil
}

func applyMethodAttribute(m *Method, pool *ConstantPool, name string, body []byte) error {
	bc := &cursor{buf: body}
	switch name {
	case "MethodParameters":
		n, err := bc.u1()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			nameIdx, err := bc.u2()
			if err != nil {
				return err
			}
			flags, err := bc.u2()
			if err != nil {
				return err
			}
			paramName := ""
			if nameIdx != 0 {
				paramName = pool.Get(nameIdx).UTF8
			}
			m.Parameters = append(m.Parameters, MethodParameter{Name: paramName, AccessFlags: flags})
		}
	case "Exceptions":
		n, err := bc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			idx, err := bc.u2()
			if err != nil {
				return err
			}
			m.Throws = append(m.Throws, pool.ClassName(idx))
		}
	case "Signature":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		m.Signature = pool.Get(idx).UTF8
	case "Deprecated":
		m.Deprecated = true
	case "Synthetic":
		m.Synthetic = true
	case "RuntimeVisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		m.RuntimeVisibleAnnotations = anns
	case "RuntimeInvisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		m.RuntimeInvisibleAnnotations = anns
	case "RuntimeVisibleParameterAnnotations":
		groups, err := readParameterAnnotations(bc, pool)
		if err != nil {
			return err
		}
		m.RuntimeVisibleParameterAnnotations = groups
	case "RuntimeInvisibleParameterAnnotations":
		groups, err := readParameterAnnotations(bc, pool)
		if err != nil {
			return err
		}
		m.RuntimeInvisibleParameterAnnotations = groups
	case "RuntimeVisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		m.RuntimeVisibleTypeAnnotations = anns
	case "RuntimeInvisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		m.RuntimeInvisibleTypeAnnotations = anns
	case "AnnotationDefault":
		ev, err := readElementValue(bc, pool)
		if err != nil {
			return err
		}
		m.AnnotationDefault = &ev
	case "Code":
		code, err := readCode(bc, pool)
		if err != nil {
			return err
		}
		m.Code = code
		// The method's code-relative type annotations are copied onto code
		// by readMethod once all of the method's attributes have been read,
		// whichever order they came in.
	}
	return nil
}

func readCode(bc *cursor, pool *ConstantPool) (*CodeAttribute, error) {
	maxStack, err := bc.u2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := bc.u2()
	if err != nil {
		return nil, err
	}
	codeLen, err := bc.u4()
	if err != nil {
		return nil, err
	}
	codeBytes, err := bc.bytes(codeLen)
	if err != nil {
		return nil, err
	}
	code := &CodeAttribute{MaxStack: maxStack, MaxLocals: maxLocals, Code: append([]byte(nil), codeBytes...)}

	excCount, err := bc.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < excCount; i++ {
		start, err := bc.u2()
		if err != nil {
			return nil, err
		}
		end, err := bc.u2()
		if err != nil {
			return nil, err
		}
		handler, err := bc.u2()
		if err != nil {
			return nil, err
		}
		catchIdx, err := bc.u2()
		if err != nil {
			return nil, err
		}
		catchType := ""
		if catchIdx != 0 {
			catchType = pool.ClassName(catchIdx)
		}
		code.Exceptions = append(code.Exceptions, ExceptionInfo{
			Start: newResolvedLabel(start), End: newResolvedLabel(end),
			Handler: newResolvedLabel(handler), CatchType: catchType,
		})
	}

	attrCount, err := bc.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < attrCount; i++ {
		name, body, err := readAttribute(bc, pool)
		if err != nil {
			return nil, err
		}
		if err := applyCodeAttribute(code, pool, name, body); err != nil {
			return nil, err
		}
	}
	return code, nil
}

func applyCodeAttribute(code *CodeAttribute, pool *ConstantPool, name string, body []byte) error {
	sc := &cursor{buf: body}
	switch name {
	case "LineNumberTable":
		n, err := sc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			start, err := sc.u2()
			if err != nil {
				return err
			}
			line, err := sc.u2()
			if err != nil {
				return err
			}
			code.LineNumbers = append(code.LineNumbers, LineNumberInfo{Start: newResolvedLabel(start), Line: line})
		}
	case "LocalVariableTable":
		n, err := sc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			start, err := sc.u2()
			if err != nil {
				return err
			}
			length, err := sc.u2()
			if err != nil {
				return err
			}
			nameIdx, err := sc.u2()
			if err != nil {
				return err
			}
			descIdx, err := sc.u2()
			if err != nil {
				return err
			}
			slot, err := sc.u2()
			if err != nil {
				return err
			}
			code.LocalVars = append(code.LocalVars, LocalVariableInfo{
				Start: newResolvedLabel(start), End: newResolvedLabel(start + length),
				Slot: slot, Name: pool.Get(nameIdx).UTF8, Descriptor: pool.Get(descIdx).UTF8,
			})
		}
	case "LocalVariableTypeTable":
		n, err := sc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			start, err := sc.u2()
			if err != nil {
				return err
			}
			length, err := sc.u2()
			if err != nil {
				return err
			}
			nameIdx, err := sc.u2()
			if err != nil {
				return err
			}
			sigIdx, err := sc.u2()
			if err != nil {
				return err
			}
			slot, err := sc.u2()
			if err != nil {
				return err
			}
			code.LocalVarTypes = append(code.LocalVarTypes, LocalVariableTypeInfo{
				Start: newResolvedLabel(start), End: newResolvedLabel(start + length),
				Slot: slot, Name: pool.Get(nameIdx).UTF8, Signature: pool.Get(sigIdx).UTF8,
			})
		}
	case "StackMapTable":
		code.StackMapTable = append([]byte(nil), body...)
	}
	return nil
}

func readAnnotations(c *cursor, pool *ConstantPool) ([]Annotation, error) {
	n, err := c.u2()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, n)
	for i := 0; i < n; i++ {
		a, err := readAnnotation(c, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func readAnnotation(c *cursor, pool *ConstantPool) (Annotation, error) {
	typeIdx, err := c.u2()
	if err != nil {
		return Annotation{}, err
	}
	n, err := c.u2()
	if err != nil {
		return Annotation{}, err
	}
	a := Annotation{TypeName: pool.Get(typeIdx).UTF8}
	for i := 0; i < n; i++ {
		nameIdx, err := c.u2()
		if err != nil {
			return Annotation{}, err
		}
		ev, err := readElementValue(c, pool)
		if err != nil {
			return Annotation{}, err
		}
		a.Elements = append(a.Elements, AnnotationElement{Name: pool.Get(nameIdx).UTF8, Value: ev})
	}
	return a, nil
}

func readElementValue(c *cursor, pool *ConstantPool) (ElementValue, error) {
	tag, err := c.u1()
	if err != nil {
		return ElementValue{}, err
	}
	ev := ElementValue{Tag: byte(tag)}
	switch tag {
	case 'Z', 'C', 'B', 'S', 'I', 'J', 'F', 'D', 's':
		idx, err := c.u2()
		if err != nil {
			return ElementValue{}, err
		}
		ev.ConstIndex = idx
	case 'e':
		typeIdx, err := c.u2()
		if err != nil {
			return ElementValue{}, err
		}
		constIdx, err := c.u2()
		if err != nil {
			return ElementValue{}, err
		}
		ev.EnumTypeName = pool.Get(typeIdx).UTF8
		ev.EnumConstName = pool.Get(constIdx).UTF8
	case 'c':
		idx, err := c.u2()
		if err != nil {
			return ElementValue{}, err
		}
		ev.ClassInfo = pool.Get(idx).UTF8
	case '@':
		a, err := readAnnotation(c, pool)
		if err != nil {
			return ElementValue{}, err
		}
		ev.Annotation = &a
	case '[':
		n, err := c.u2()
		if err != nil {
			return ElementValue{}, err
		}
		for i := 0; i < n; i++ {
			v, err := readElementValue(c, pool)
			if err != nil {
				return ElementValue{}, err
			}
			ev.Array = append(ev.Array, v)
		}
	default:
		return ElementValue{}, fmt.Errorf("classfile: unknown element value tag %q", rune(tag))
	}
	return ev, nil
}

func readParameterAnnotations(c *cursor, pool *ConstantPool) ([][]Annotation, error) {
	n, err := c.u1()
	if err != nil {
		return nil, err
	}
	out := make([][]Annotation, n)
	for i := 0; i < n; i++ {
		anns, err := readAnnotations(c, pool)
		if err != nil {
			return nil, err
		}
		out[i] = anns
	}
	return out, nil
}

// readTypeAnnotations reads a RuntimeVisible/InvisibleTypeAnnotations body.
// labelOf is unused at read time (offsets are resolved directly into Labels
// as they're read) and kept only so this mirrors the printer/writer's
// labelOf-threading shape; it is always nil here.
func readTypeAnnotations(c *cursor, pool *ConstantPool, labelOf func(int) *Label) ([]TypeAnnotation, error) {
	n, err := c.u2()
	if err != nil {
		return nil, err
	}
	out := make([]TypeAnnotation, 0, n)
	for i := 0; i < n; i++ {
		ta, err := readTypeAnnotation(c, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, ta)
	}
	return out, nil
}

func readTypeAnnotation(c *cursor, pool *ConstantPool) (TypeAnnotation, error) {
	targetType, err := c.u1()
	if err != nil {
		return TypeAnnotation{}, err
	}
	ta := TypeAnnotation{TargetType: targetType}
	switch targetType {
	case typeref.ClassTypeParameter, typeref.MethodTypeParameter:
		v, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.TypeParameterIndex = v
	case typeref.ClassExtends:
		v, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.SuperTypeIndex = v
	case typeref.ClassTypeParameterBound, typeref.MethodTypeParameterBound:
		t, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		b, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.BoundIndex.Type, ta.BoundIndex.Bound = t, b
	case typeref.Field, typeref.MethodReturn, typeref.MethodReceiver:
	case typeref.MethodFormalParameter:
		v, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.FormalParameterIndex = v
	case typeref.Throws:
		v, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.ThrowsTypeIndex = v
	case typeref.LocalVariable, typeref.ResourceVariable:
		n, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		for i := 0; i < n; i++ {
			start, err := c.u2()
			if err != nil {
				return TypeAnnotation{}, err
			}
			length, err := c.u2()
			if err != nil {
				return TypeAnnotation{}, err
			}
			slot, err := c.u2()
			if err != nil {
				return TypeAnnotation{}, err
			}
			ta.LocalVars = append(ta.LocalVars, LocalVarTarget{
				Start: newResolvedLabel(start), End: newResolvedLabel(start + length), Slot: slot,
			})
		}
	case typeref.ExceptionParameter:
		v, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.ExceptionTableIndex = v
	case typeref.Instanceof, typeref.New, typeref.ConstructorReference, typeref.MethodReference:
		off, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.Offset = newResolvedLabel(off)
	case typeref.Cast, typeref.ConstructorInvocationTypeArgument, typeref.MethodInvocationTypeArgument,
		typeref.ConstructorReferenceTypeArgument, typeref.MethodReferenceTypeArgument:
		off, err := c.u2()
		if err != nil {
			return TypeAnnotation{}, err
		}
		argIdx, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.Offset = newResolvedLabel(off)
		ta.TypeArgumentIndex = argIdx
	default:
		return TypeAnnotation{}, fmt.Errorf("classfile: unknown type annotation target_type %d", targetType)
	}

	pathLen, err := c.u1()
	if err != nil {
		return TypeAnnotation{}, err
	}
	for i := 0; i < pathLen; i++ {
		kind, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		argIdx, err := c.u1()
		if err != nil {
			return TypeAnnotation{}, err
		}
		ta.TypePath.Steps = append(ta.TypePath.Steps, typeref.TypePathStep{Kind: kind, TypeArgumentIndex: argIdx})
	}

	ann, err := readAnnotation(c, pool)
	if err != nil {
		return TypeAnnotation{}, err
	}
	ta.Annotation = ann
	return ta, nil
}

func readClassAttributes(c *cursor, pool *ConstantPool, cls *ProgramClass) error {
	count, err := c.u2()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		name, body, err := readAttribute(c, pool)
		if err != nil {
			return err
		}
		if err := applyClassAttribute(cls, pool, name, body); err != nil {
			return err
		}
	}
	return nil
}

func applyClassAttribute(cls *ProgramClass, pool *ConstantPool, name string, body []byte) error {
	bc := &cursor{buf: body}
	switch name {
	case "SourceFile":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.SourceFile = pool.Get(idx).UTF8
	case "SourceDir":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.SourceDir = pool.Get(idx).UTF8
	case "Signature":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.Signature = pool.Get(idx).UTF8
	case "Deprecated":
		cls.Deprecated = true
	case "Synthetic":
		cls.Synthetic = true
	case "InnerClasses":
		n, err := bc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			innerIdx, err := bc.u2()
			if err != nil {
				return err
			}
			outerIdx, err := bc.u2()
			if err != nil {
				return err
			}
			nameIdx, err := bc.u2()
			if err != nil {
				return err
			}
			flags, err := bc.u2()
			if err != nil {
				return err
			}
			ic := InnerClassInfo{InnerClass: pool.ClassName(innerIdx), AccessFlags: flags}
			if outerIdx != 0 {
				ic.OuterClass = pool.ClassName(outerIdx)
			}
			if nameIdx != 0 {
				ic.InnerName = pool.Get(nameIdx).UTF8
			}
			cls.InnerClasses = append(cls.InnerClasses, ic)
		}
	case "EnclosingMethod":
		classIdx, err := bc.u2()
		if err != nil {
			return err
		}
		ntIdx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.EnclosingClass = pool.ClassName(classIdx)
		if ntIdx != 0 {
			cls.HasEnclosingMethod = true
			cls.EnclosingMethodName, cls.EnclosingMethodDescriptor = pool.NameAndTypeOf(ntIdx)
		}
	case "NestHost":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.NestHost = pool.ClassName(idx)
	case "NestMembers":
		n, err := bc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			idx, err := bc.u2()
			if err != nil {
				return err
			}
			cls.NestMembers = append(cls.NestMembers, pool.ClassName(idx))
		}
	case "BootstrapMethods":
		n, err := bc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			handleIdx, err := bc.u2()
			if err != nil {
				return err
			}
			argCount, err := bc.u2()
			if err != nil {
				return err
			}
			bm := BootstrapMethod{MethodHandleIndex: handleIdx}
			for j := 0; j < argCount; j++ {
				a, err := bc.u2()
				if err != nil {
					return err
				}
				bm.Arguments = append(bm.Arguments, a)
			}
			cls.BootstrapMethods = append(cls.BootstrapMethods, bm)
		}
	case "RuntimeVisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		cls.RuntimeVisibleAnnotations = anns
	case "RuntimeInvisibleAnnotations":
		anns, err := readAnnotations(bc, pool)
		if err != nil {
			return err
		}
		cls.RuntimeInvisibleAnnotations = anns
	case "RuntimeVisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		cls.RuntimeVisibleTypeAnnotations = anns
	case "RuntimeInvisibleTypeAnnotations":
		anns, err := readTypeAnnotations(bc, pool, nil)
		if err != nil {
			return err
		}
		cls.RuntimeInvisibleTypeAnnotations = anns
	case "Module":
		mod, err := readModule(bc, pool)
		if err != nil {
			return err
		}
		cls.Module = mod
	case "ModuleMainClass":
		idx, err := bc.u2()
		if err != nil {
			return err
		}
		cls.ModuleMainClass = pool.ClassName(idx)
	case "ModulePackages":
		n, err := bc.u2()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			idx, err := bc.u2()
			if err != nil {
				return err
			}
			cls.ModulePackages = append(cls.ModulePackages, pool.Get(pool.Get(idx).Index1).UTF8)
		}
	}
	return nil
}

func readModule(c *cursor, pool *ConstantPool) (*ModuleAttr, error) {
	nameIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	flags, err := c.u2()
	if err != nil {
		return nil, err
	}
	versionIdx, err := c.u2()
	if err != nil {
		return nil, err
	}
	mod := &ModuleAttr{Name: pool.Get(pool.Get(nameIdx).Index1).UTF8, Flags: flags}
	if versionIdx != 0 {
		mod.Version = pool.Get(versionIdx).UTF8
	}

	n, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		reqIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		reqFlags, err := c.u2()
		if err != nil {
			return nil, err
		}
		reqVerIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		r := ModuleRequire{Name: pool.Get(pool.Get(reqIdx).Index1).UTF8, Flags: reqFlags}
		if reqVerIdx != 0 {
			r.Version = pool.Get(reqVerIdx).UTF8
		}
		mod.Requires = append(mod.Requires, r)
	}

	readEdges := func() ([]ModulePackageEdge, error) {
		cnt, err := c.u2()
		if err != nil {
			return nil, err
		}
		var edges []ModulePackageEdge
		for i := 0; i < cnt; i++ {
			pkgIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			eFlags, err := c.u2()
			if err != nil {
				return nil, err
			}
			toCount, err := c.u2()
			if err != nil {
				return nil, err
			}
			e := ModulePackageEdge{Package: pool.Get(pool.Get(pkgIdx).Index1).UTF8, Flags: eFlags}
			for j := 0; j < toCount; j++ {
				toIdx, err := c.u2()
				if err != nil {
					return nil, err
				}
				e.To = append(e.To, pool.Get(pool.Get(toIdx).Index1).UTF8)
			}
			edges = append(edges, e)
		}
		return edges, nil
	}
	exports, err := readEdges()
	if err != nil {
		return nil, err
	}
	mod.Exports = exports
	opens, err := readEdges()
	if err != nil {
		return nil, err
	}
	mod.Opens = opens

	usesCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < usesCount; i++ {
		idx, err := c.u2()
		if err != nil {
			return nil, err
		}
		mod.Uses = append(mod.Uses, pool.ClassName(idx))
	}

	providesCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < providesCount; i++ {
		svcIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		withCount, err := c.u2()
		if err != nil {
			return nil, err
		}
		pr := ModuleProvide{Service: pool.ClassName(svcIdx)}
		for j := 0; j < withCount; j++ {
			withIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			pr.With = append(pr.With, pool.ClassName(withIdx))
		}
		mod.Provides = append(mod.Provides, pr)
	}
	return mod, nil
}
