package parser

import (
	"strings"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

// refKindKeywords maps the method-handle reference-kind keywords
// to their JVMS reference_kind values.
var refKindKeywords = map[string]int{
	"getfield":         opcodes.HGetField,
	"getstatic":        opcodes.HGetStatic,
	"putfield":         opcodes.HPutField,
	"putstatic":        opcodes.HPutStatic,
	"invokevirtual":    opcodes.HInvokeVirtual,
	"invokestatic":     opcodes.HInvokeStatic,
	"invokespecial":    opcodes.HInvokeSpecial,
	"newinvokespecial": opcodes.HNewInvokeSpecial,
	"invokeinterface":  opcodes.HInvokeInterface,
}

var refKindKeywordSet = func() map[string]bool {
	m := make(map[string]bool, len(refKindKeywords))
	for k := range refKindKeywords {
		m[k] = true
	}
	return m
}()

// internalClassName strips a field-descriptor's "L...;" wrapper, used when
// a type parsed via ExpectType is actually a class/interface owner (// field/method reference syntax).
func internalClassName(descriptor string) string {
	if strings.HasPrefix(descriptor, "L") && strings.HasSuffix(descriptor, ";") {
		return descriptor[1 : len(descriptor)-1]
	}
	return descriptor
}

// parseRefOwner parses the optional "[type] '#'" prefix of a field/method
// reference: a bare '#' means "this class".
func (p *Parser) parseRefOwner() (string, error) {
	ok, err := p.AcceptPunct('#')
	if err != nil {
		return "", err
	}
	if ok {
		return p.currentClass, nil
	}
	owner, err := p.ExpectType()
	if err != nil {
		return "", err
	}
	if err := p.ExpectPunct('#'); err != nil {
		return "", err
	}
	return internalClassName(owner), nil
}

// ParseFieldRef parses "[type] '#' type identifier" and interns a
// CONSTANT_Fieldref_info, returning its constant pool index and descriptor.
func (p *Parser) ParseFieldRef() (index int, descriptor string, err error) {
	owner, err := p.parseRefOwner()
	if err != nil {
		return 0, "", err
	}
	descriptor, err = p.ExpectType()
	if err != nil {
		return 0, "", err
	}
	name, err := p.ExpectWord()
	if err != nil {
		return 0, "", err
	}
	return p.pool.Fieldref(owner, name, descriptor), descriptor, nil
}

// ParseMethodRef parses "[type] '#' returnType identifier '(' argTypes ')'"
// and interns a CONSTANT_Methodref_info or CONSTANT_InterfaceMethodref_info.
func (p *Parser) ParseMethodRef(interfaceKind bool) (index int, descriptor string, err error) {
	owner, err := p.parseRefOwner()
	if err != nil {
		return 0, "", err
	}
	ret, err := p.ExpectType()
	if err != nil {
		return 0, "", err
	}
	name, err := p.ExpectMethodName()
	if err != nil {
		return 0, "", err
	}
	args, err := p.ExpectMethodArgs()
	if err != nil {
		return 0, "", err
	}
	descriptor = classfile.BuildMethodDescriptor(args, ret)
	if interfaceKind {
		return p.pool.InterfaceMethodref(owner, name, descriptor), descriptor, nil
	}
	return p.pool.Methodref(owner, name, descriptor), descriptor, nil
}

// ParseInvokeDynamicRef parses the invokedynamic instruction's operand: a
// bootstrap-method index, '#', return type, method name, and arg list.
func (p *Parser) ParseInvokeDynamicRef() (index int, descriptor string, err error) {
	bsm, err := p.ExpectNumber()
	if err != nil {
		return 0, "", err
	}
	if err := p.ExpectPunct('#'); err != nil {
		return 0, "", err
	}
	ret, err := p.ExpectType()
	if err != nil {
		return 0, "", err
	}
	name, err := p.ExpectMethodName()
	if err != nil {
		return 0, "", err
	}
	args, err := p.ExpectMethodArgs()
	if err != nil {
		return 0, "", err
	}
	descriptor = classfile.BuildMethodDescriptor(args, ret)
	return p.pool.InvokeDynamic(int(bsm), name, descriptor), descriptor, nil
}

var castTypeWords = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true, "int": true,
	"long": true, "float": true, "double": true, "String": true, "Class": true,
	"MethodHandle": true, "MethodType": true, "Dynamic": true,
}

// ParseLoadableConstant reads a loadable constant : either the
// explicit-cast form "(T) literal" or one of the inferred forms.
func (p *Parser) ParseLoadableConstant() (int, error) {
	ok, err := p.AcceptPunct('(')
	if err != nil {
		return 0, err
	}
	if ok {
		castType, err := p.ExpectWord()
		if err != nil {
			return 0, err
		}
		if !castTypeWords[castType] {
			return 0, jbcerr.NewParse(p.Line(), "unknown loadable-constant cast type %q", castType)
		}
		if err := p.ExpectPunct(')'); err != nil {
			return 0, err
		}
		return p.parseCastConstant(castType)
	}
	return p.parseInferredConstant()
}

func (p *Parser) parseCastConstant(castType string) (int, error) {
	switch castType {
	case "boolean":
		n, err := p.ExpectNumber()
		if err != nil {
			return 0, err
		}
		v := int32(n)
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return p.pool.Integer(v), nil
	case "byte", "short", "int":
		n, err := p.ExpectNumber()
		if err != nil {
			return 0, err
		}
		return p.pool.Integer(int32(n)), nil
	case "char":
		tok, err := p.next()
		if err != nil {
			return 0, err
		}
		switch tok.Kind {
		case lexer.QuotedChar:
			return p.pool.Integer(int32(tok.Ch)), nil
		case lexer.Number:
			return p.pool.Integer(int32(tok.Num)), nil
		default:
			return 0, jbcerr.Expected(tok.Line, "a char or number", tok.Describe())
		}
	case "long":
		n, err := p.ExpectNumber()
		if err != nil {
			return 0, err
		}
		return p.pool.Long(int64(n)), nil
	case "float":
		n, err := p.ExpectNumber()
		if err != nil {
			return 0, err
		}
		return p.pool.Float(float32(n)), nil
	case "double":
		n, err := p.ExpectNumber()
		if err != nil {
			return 0, err
		}
		return p.pool.Double(n), nil
	case "String":
		s, err := p.ExpectString()
		if err != nil {
			return 0, err
		}
		return p.pool.StringConst(s), nil
	case "Class":
		internal, err := p.ExpectType()
		if err != nil {
			return 0, err
		}
		return p.pool.Class(internalClassName(internal)), nil
	case "MethodHandle":
		return p.parseMethodHandle()
	case "MethodType":
		return p.parseMethodTypeConstant()
	case "Dynamic":
		return p.parseDynamicConstant()
	}
	return 0, jbcerr.NewParse(p.Line(), "unknown loadable-constant cast type %q", castType)
}

func (p *Parser) parseMethodHandle() (int, error) {
	kind, err := p.ExpectKeyword(refKindKeywordSet)
	if err != nil {
		return 0, err
	}
	kindConst := refKindKeywords[kind]
	var refIdx int
	switch kindConst {
	case opcodes.HGetField, opcodes.HGetStatic, opcodes.HPutField, opcodes.HPutStatic:
		refIdx, _, err = p.ParseFieldRef()
	case opcodes.HInvokeInterface:
		refIdx, _, err = p.ParseMethodRef(true)
	default:
		refIdx, _, err = p.ParseMethodRef(false)
	}
	if err != nil {
		return 0, err
	}
	return p.pool.MethodHandle(kindConst, refIdx), nil
}

func (p *Parser) parseMethodTypeConstant() (int, error) {
	args, err := p.ExpectMethodArgs()
	if err != nil {
		return 0, err
	}
	ret, err := p.ExpectType()
	if err != nil {
		return 0, err
	}
	return p.pool.MethodType(classfile.BuildMethodDescriptor(args, ret)), nil
}

func (p *Parser) parseDynamicConstant() (int, error) {
	bsm, err := p.ExpectNumber()
	if err != nil {
		return 0, err
	}
	if err := p.ExpectPunct('#'); err != nil {
		return 0, err
	}
	typ, err := p.ExpectType()
	if err != nil {
		return 0, err
	}
	name, err := p.ExpectWord()
	if err != nil {
		return 0, err
	}
	return p.pool.Dynamic(int(bsm), name, typ), nil
}

func (p *Parser) parseInferredConstant() (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	switch tok.Kind {
	case lexer.QuotedChar:
		return p.pool.Integer(int32(tok.Ch)), nil
	case lexer.QuotedString:
		return p.pool.StringConst(tok.Str), nil
	case lexer.Number:
		suffix, err := p.parseNumberSuffix()
		if err != nil {
			return 0, err
		}
		switch suffix {
		case "d":
			return p.pool.Double(tok.Num), nil
		case "f":
			return p.pool.Float(float32(tok.Num)), nil
		case "l":
			return p.pool.Long(int64(tok.Num)), nil
		default:
			return p.pool.Integer(int32(tok.Num)), nil
		}
	case lexer.Word:
		switch tok.Str {
		case "true":
			return p.pool.Integer(1), nil
		case "false":
			return p.pool.Integer(0), nil
		}
		p.pushBack()
		internal, err := p.ExpectType()
		if err != nil {
			return 0, err
		}
		return p.pool.Class(internalClassName(internal)), nil
	default:
		return 0, jbcerr.Expected(tok.Line, "a loadable constant", tok.Describe())
	}
}

// parseNumberSuffix consumes a following single-letter d/D/f/F/l/L suffix
// word, if present, and normalizes it to "d"/"f"/"l"/"".
func (p *Parser) parseNumberSuffix() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind == lexer.Word && len(tok.Str) == 1 {
		switch tok.Str {
		case "d", "D":
			return "d", nil
		case "f", "F":
			return "f", nil
		case "l", "L":
			return "l", nil
		}
	}
	p.pushBack()
	return "", nil
}
