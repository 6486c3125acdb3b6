package parser

import (
	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/typeref"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

var targetInfoKeywordSet = func() map[string]bool {
	m := make(map[string]bool, len(typeref.TargetKeyword))
	for k := range typeref.TargetKeyword {
		m[k] = true
	}
	return m
}()

var typePathKeywordSet = func() map[string]bool {
	m := make(map[string]bool, len(typeref.PathKeyword))
	for k := range typeref.PathKeyword {
		m[k] = true
	}
	return m
}()

// ParseAnnotation parses "['@'] type { (ident '=' elementValue [';'])* }".
// The ';' after an element value is optional.
func (p *Parser) ParseAnnotation() (classfile.Annotation, error) {
	if _, err := p.AcceptPunct('@'); err != nil {
		return classfile.Annotation{}, err
	}
	typeName, err := p.ExpectType()
	if err != nil {
		return classfile.Annotation{}, err
	}
	if err := p.ExpectPunct('{'); err != nil {
		return classfile.Annotation{}, err
	}
	var elements []classfile.AnnotationElement
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return classfile.Annotation{}, err
		}
		if ok {
			break
		}
		name, err := p.ExpectWord()
		if err != nil {
			return classfile.Annotation{}, err
		}
		if err := p.ExpectPunct('='); err != nil {
			return classfile.Annotation{}, err
		}
		val, err := p.ParseElementValue()
		if err != nil {
			return classfile.Annotation{}, err
		}
		if _, err := p.AcceptPunct(';'); err != nil {
			return classfile.Annotation{}, err
		}
		elements = append(elements, classfile.AnnotationElement{Name: name, Value: val})
	}
	return classfile.Annotation{TypeName: typeName, Elements: elements}, nil
}

// ParseElementValue dispatches on the element-value shapes of .
func (p *Parser) ParseElementValue() (classfile.ElementValue, error) {
	ok, err := p.AcceptPunct('(')
	if err != nil {
		return classfile.ElementValue{}, err
	}
	if ok {
		word, err := p.ExpectWord()
		if err != nil {
			return classfile.ElementValue{}, err
		}
		if word != "Array" {
			return classfile.ElementValue{}, jbcerr.NewParse(p.Line(), "unknown element-value cast %q", word)
		}
		if err := p.ExpectPunct(')'); err != nil {
			return classfile.ElementValue{}, err
		}
		return p.parseArrayValue()
	}

	tok, err := p.next()
	if err != nil {
		return classfile.ElementValue{}, err
	}
	switch tok.Kind {
	case lexer.Punct:
		switch tok.Ch {
		case '@':
			ann, err := p.ParseAnnotation()
			if err != nil {
				return classfile.ElementValue{}, err
			}
			return classfile.ElementValue{Tag: '@', Annotation: &ann}, nil
		case '{':
			p.pushBack()
			return p.parseArrayValue()
		}
		return classfile.ElementValue{}, jbcerr.Expected(tok.Line, "an element value", tok.Describe())

	case lexer.QuotedChar:
		idx := p.pool.Integer(int32(tok.Ch))
		if err := p.ExpectPunct(';'); err != nil {
			return classfile.ElementValue{}, err
		}
		return classfile.ElementValue{Tag: 'C', ConstIndex: idx}, nil

	case lexer.QuotedString:
		idx := p.pool.UTF8(tok.Str)
		if err := p.ExpectPunct(';'); err != nil {
			return classfile.ElementValue{}, err
		}
		return classfile.ElementValue{Tag: 's', ConstIndex: idx}, nil

	case lexer.Number:
		suffix, err := p.parseNumberSuffix()
		if err != nil {
			return classfile.ElementValue{}, err
		}
		var tag byte
		var idx int
		switch suffix {
		case "d":
			tag, idx = 'D', p.pool.Double(tok.Num)
		case "f":
			tag, idx = 'F', p.pool.Float(float32(tok.Num))
		case "l":
			tag, idx = 'J', p.pool.Long(int64(tok.Num))
		default:
			tag, idx = 'I', p.pool.Integer(int32(tok.Num))
		}
		if err := p.ExpectPunct(';'); err != nil {
			return classfile.ElementValue{}, err
		}
		return classfile.ElementValue{Tag: tag, ConstIndex: idx}, nil

	case lexer.Word:
		if tok.Str == "true" || tok.Str == "false" {
			v := int32(0)
			if tok.Str == "true" {
				v = 1
			}
			idx := p.pool.Integer(v)
			if err := p.ExpectPunct(';'); err != nil {
				return classfile.ElementValue{}, err
			}
			return classfile.ElementValue{Tag: 'Z', ConstIndex: idx}, nil
		}
		p.pushBack()
		typeName, err := p.ExpectType()
		if err != nil {
			return classfile.ElementValue{}, err
		}
		isEnum, err := p.AcceptPunct('#')
		if err != nil {
			return classfile.ElementValue{}, err
		}
		if isEnum {
			constName, err := p.ExpectWord()
			if err != nil {
				return classfile.ElementValue{}, err
			}
			if err := p.ExpectPunct(';'); err != nil {
				return classfile.ElementValue{}, err
			}
			return classfile.ElementValue{Tag: 'e', EnumTypeName: typeName, EnumConstName: constName}, nil
		}
		if err := p.ExpectPunct(';'); err != nil {
			return classfile.ElementValue{}, err
		}
		return classfile.ElementValue{Tag: 'c', ClassInfo: typeName}, nil
	}
	return classfile.ElementValue{}, jbcerr.Expected(tok.Line, "an element value", tok.Describe())
}

func (p *Parser) parseArrayValue() (classfile.ElementValue, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return classfile.ElementValue{}, err
	}
	var values []classfile.ElementValue
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return classfile.ElementValue{}, err
		}
		if ok {
			break
		}
		v, err := p.ParseElementValue()
		if err != nil {
			return classfile.ElementValue{}, err
		}
		values = append(values, v)
	}
	return classfile.ElementValue{Tag: '[', Array: values}, nil
}

// ParseTypeAnnotation parses "annotation targetInfo { typePath* }",
// dispatching the target_info shape on the matched keyword.
func (p *Parser) ParseTypeAnnotation() (classfile.TypeAnnotation, error) {
	ann, err := p.ParseAnnotation()
	if err != nil {
		return classfile.TypeAnnotation{}, err
	}
	keyword, err := p.ExpectKeyword(targetInfoKeywordSet)
	if err != nil {
		return classfile.TypeAnnotation{}, err
	}
	ta := classfile.TypeAnnotation{Annotation: ann, TargetType: typeref.TargetKeyword[keyword]}

	if err := p.parseTargetInfoBody(&ta, keyword); err != nil {
		return classfile.TypeAnnotation{}, err
	}

	if err := p.ExpectPunct('{'); err != nil {
		return classfile.TypeAnnotation{}, err
	}
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return classfile.TypeAnnotation{}, err
		}
		if ok {
			break
		}
		pathKeyword, err := p.ExpectKeyword(typePathKeywordSet)
		if err != nil {
			return classfile.TypeAnnotation{}, err
		}
		step := typeref.TypePathStep{Kind: typeref.PathKeyword[pathKeyword]}
		tok, err := p.next()
		if err != nil {
			return classfile.TypeAnnotation{}, err
		}
		if tok.Kind == lexer.Number {
			step.TypeArgumentIndex = int(tok.Num)
		} else {
			p.pushBack()
		}
		if err := p.ExpectPunct(';'); err != nil {
			return classfile.TypeAnnotation{}, err
		}
		ta.TypePath.Steps = append(ta.TypePath.Steps, step)
	}
	return ta, nil
}

func (p *Parser) parseTargetInfoBody(ta *classfile.TypeAnnotation, keyword string) error {
	switch keyword {
	case "parameter_generic_class", "parameter_generic_method":
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.TypeParameterIndex = int(n)
	case "extends":
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.SuperTypeIndex = int(n)
	case "bound_generic_class", "bound_generic_method":
		n1, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		n2, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.BoundIndex.Type = int(n1)
		ta.BoundIndex.Bound = int(n2)
	case "field", "return", "receiver":
		// no operand
	case "parameter":
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.FormalParameterIndex = int(n)
	case "throws":
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.ThrowsTypeIndex = int(n)
	case "local_variable", "resource_variable":
		if err := p.ExpectPunct('{'); err != nil {
			return err
		}
		for {
			ok, err := p.AcceptPunct('}')
			if err != nil {
				return err
			}
			if ok {
				break
			}
			start, err := p.ExpectOffset()
			if err != nil {
				return err
			}
			end, err := p.ExpectOffset()
			if err != nil {
				return err
			}
			n, err := p.ExpectNumber()
			if err != nil {
				return err
			}
			if err := p.ExpectPunct(';'); err != nil {
				return err
			}
			ta.LocalVars = append(ta.LocalVars, classfile.LocalVarTarget{Start: start, End: end, Slot: int(n)})
		}
	case "catch":
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.ExceptionTableIndex = int(n)
	case "instance_of", "new", "method_reference_new", "method_reference":
		lbl, err := p.ExpectOffset()
		if err != nil {
			return err
		}
		ta.Offset = lbl
	case "cast", "argument_generic_method_new", "argument_generic_method",
		"argument_generic_method_reference_new", "argument_generic_method_reference":
		lbl, err := p.ExpectOffset()
		if err != nil {
			return err
		}
		ta.Offset = lbl
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		ta.TypeArgumentIndex = int(n)
	}
	return nil
}
