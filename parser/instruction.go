package parser

import (
	"strings"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

// newarrayTypeWords maps the newarray primitive-type keyword to
// its JVMS §6.5.newarray atype code.
var newarrayTypeWords = map[string]int{
	"boolean": opcodes.TBoolean, "char": opcodes.TChar, "float": opcodes.TFloat,
	"double": opcodes.TDouble, "byte": opcodes.TByte, "short": opcodes.TShort,
	"int": opcodes.TInt, "long": opcodes.TLong,
}

type pendingLocalVar struct {
	start      *classfile.Label
	name       string
	descriptor string // field descriptor for startlocalvar, signature for startlocalvartype
}

// ParseMethodBody parses "{" { label | pseudoInstruction | realInstruction }
// "}", driving a classfile.CodeComposer, and returns the
// finished Code attribute. m's already-parsed type annotations that target
// a position inside this body are copied onto the Code attribute, where the
// printer's labels collector finds their offsets.
func (p *Parser) ParseMethodBody(m *classfile.Method) (*classfile.CodeAttribute, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}

	composer := classfile.BeginCodeFragment(classfile.MaxLabels)
	pendingVars := map[int]*pendingLocalVar{}
	pendingVarTypes := map[int]*pendingLocalVar{}

	for {
		done, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		if err := p.parseBodyItem(composer, pendingVars, pendingVarTypes); err != nil {
			return nil, err
		}
	}

	for slot, pv := range pendingVars {
		return nil, jbcerr.NewParse(p.Line(), "startlocalvar %d (%s) missing matching endlocalvar", slot, pv.name)
	}
	for slot, pv := range pendingVarTypes {
		return nil, jbcerr.NewParse(p.Line(), "startlocalvartype %d (%s) missing matching endlocalvartype", slot, pv.name)
	}

	composed, err := composer.End()
	if err != nil {
		return nil, err
	}

	code := &classfile.CodeAttribute{
		MaxStack:      composed.MaxStack,
		MaxLocals:     composed.MaxLocals,
		Code:          composed.Bytes,
		Exceptions:    composed.Exceptions,
		LineNumbers:   composed.LineNumbers,
		LocalVars:     composed.LocalVars,
		LocalVarTypes: composed.LocalVarTypes,
	}
	for _, ta := range m.RuntimeVisibleTypeAnnotations {
		if classfile.IsCodeRelativeTarget(ta.TargetType) {
			code.TypeAnnotationsVisible = append(code.TypeAnnotationsVisible, ta)
		}
	}
	for _, ta := range m.RuntimeInvisibleTypeAnnotations {
		if classfile.IsCodeRelativeTarget(ta.TargetType) {
			code.TypeAnnotationsInvisible = append(code.TypeAnnotationsInvisible, ta)
		}
	}
	return code, nil
}

// parseBodyItem parses one item of a method body: a label definition, a
// pseudo-instruction, or a real instruction.
func (p *Parser) parseBodyItem(c *classfile.CodeComposer, pendingVars, pendingVarTypes map[int]*pendingLocalVar) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.Word {
		return jbcerr.Expected(tok.Line, "a label, pseudo-instruction, or mnemonic", tok.Describe())
	}
	word := tok.Str

	if ok, err := p.AcceptPunct(':'); err != nil {
		return err
	} else if ok {
		return c.AppendLabel(p.label(word))
	}

	switch word {
	case "catch":
		return p.parseCatch(c)
	case "line":
		return p.parseLine(c)
	case "startlocalvar":
		return p.parseStartLocalVar(c, pendingVars)
	case "endlocalvar":
		return p.parseEndLocalVar(c, pendingVars)
	case "startlocalvartype":
		return p.parseStartLocalVarType(c, pendingVarTypes)
	case "endlocalvartype":
		return p.parseEndLocalVarType(c, pendingVarTypes)
	}

	return p.parseRealInstruction(c, word)
}

func (p *Parser) parseCatch(c *classfile.CodeComposer) error {
	var catchType string
	if ok, err := p.AcceptWord("any"); err != nil {
		return err
	} else if !ok {
		t, err := p.ExpectType()
		if err != nil {
			return err
		}
		catchType = internalClassName(t)
	}
	from, err := p.ExpectOffset()
	if err != nil {
		return err
	}
	to, err := p.ExpectOffset()
	if err != nil {
		return err
	}
	handler, err := p.ExpectOffset()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	c.AppendException(classfile.ExceptionInfo{Start: from, End: to, Handler: handler, CatchType: catchType})
	return nil
}

func (p *Parser) parseLine(c *classfile.CodeComposer) error {
	n, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	mark := p.newSyntheticLabel()
	if err := c.AppendLabel(mark); err != nil {
		return err
	}
	c.InsertLineNumber(classfile.LineNumberInfo{Start: mark, Line: int(n)})
	return nil
}

func (p *Parser) parseStartLocalVar(c *classfile.CodeComposer, pending map[int]*pendingLocalVar) error {
	slot, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	name, err := p.ExpectWord()
	if err != nil {
		return err
	}
	descriptor, err := p.ExpectType()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	if _, exists := pending[int(slot)]; exists {
		return jbcerr.NewParse(p.Line(), "startlocalvar %d (%s) nested under an already-open startlocalvar", int(slot), name)
	}
	mark := p.newSyntheticLabel()
	if err := c.AppendLabel(mark); err != nil {
		return err
	}
	pending[int(slot)] = &pendingLocalVar{start: mark, name: name, descriptor: descriptor}
	return nil
}

func (p *Parser) parseEndLocalVar(c *classfile.CodeComposer, pending map[int]*pendingLocalVar) error {
	slot, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	pv, ok := pending[int(slot)]
	if !ok {
		return jbcerr.NewParse(p.Line(), "endlocalvar %d has no matching startlocalvar", int(slot))
	}
	delete(pending, int(slot))
	mark := p.newSyntheticLabel()
	if err := c.AppendLabel(mark); err != nil {
		return err
	}
	c.AppendLocalVariable(classfile.LocalVariableInfo{
		Start: pv.start, End: mark, Slot: int(slot), Name: pv.name, Descriptor: pv.descriptor,
	})
	return nil
}

func (p *Parser) parseStartLocalVarType(c *classfile.CodeComposer, pending map[int]*pendingLocalVar) error {
	slot, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	name, err := p.ExpectWord()
	if err != nil {
		return err
	}
	signature, err := p.ExpectString()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	if _, exists := pending[int(slot)]; exists {
		return jbcerr.NewParse(p.Line(), "startlocalvartype %d (%s) nested under an already-open startlocalvartype", int(slot), name)
	}
	mark := p.newSyntheticLabel()
	if err := c.AppendLabel(mark); err != nil {
		return err
	}
	pending[int(slot)] = &pendingLocalVar{start: mark, name: name, descriptor: signature}
	return nil
}

func (p *Parser) parseEndLocalVarType(c *classfile.CodeComposer, pending map[int]*pendingLocalVar) error {
	slot, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	pv, ok := pending[int(slot)]
	if !ok {
		return jbcerr.NewParse(p.Line(), "endlocalvartype %d has no matching startlocalvartype", int(slot))
	}
	delete(pending, int(slot))
	mark := p.newSyntheticLabel()
	if err := c.AppendLabel(mark); err != nil {
		return err
	}
	c.AppendLocalVariableType(classfile.LocalVariableTypeInfo{
		Start: pv.start, End: mark, Slot: int(slot), Name: pv.name, Signature: pv.descriptor,
	})
	return nil
}

// parseRealInstruction parses one JVM instruction mnemonic and its operands
//, appending it to c.
func (p *Parser) parseRealInstruction(c *classfile.CodeComposer, word string) error {
	// A direct mnemonic (including the real opcodes ldc_w/ldc2_w/goto_w/
	// jsr_w, which are NOT a "_w"-suffixed widening of some other opcode)
	// always wins; only fall back to interpreting a trailing "_w" as the
	// widening marker for var/iinc/goto/jsr instructions that have no
	// mnemonic of their own under that spelling.
	opcode, ok := opcodes.MnemonicToOpcode[word]
	wide := false
	if !ok && strings.HasSuffix(word, "_w") {
		base := word[:len(word)-2]
		if op, baseOK := opcodes.MnemonicToOpcode[base]; baseOK && opcodes.IsWideable(op) {
			opcode, ok, wide = op, true, true
		}
	}
	if !ok {
		return jbcerr.NewParse(p.Line(), "unknown instruction mnemonic %q", word)
	}

	in := &classfile.Instruction{Opcode: opcode, Wide: wide}

	switch opcodes.Shape(opcode) {
	case opcodes.ShapeNone:
		// no operand

	case opcodes.ShapeVarInsn:
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		in.Slot = int(n)

	case opcodes.ShapeIincInsn:
		slot, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		delta, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		in.Slot = int(slot)
		in.IincConst = int(delta)

	case opcodes.ShapeIntInsn:
		if opcode == opcodes.Newarray {
			word, err := p.ExpectWord()
			if err != nil {
				return err
			}
			t, ok := newarrayTypeWords[word]
			if !ok {
				return jbcerr.NewParse(p.Line(), "unknown newarray element type %q", word)
			}
			in.IntOperand = t
		} else {
			n, err := p.ExpectNumber()
			if err != nil {
				return err
			}
			in.IntOperand = int(n)
		}

	case opcodes.ShapeTypeInsn:
		t, err := p.ExpectType()
		if err != nil {
			return err
		}
		in.ConstantIndex = p.pool.Class(internalClassName(t))

	case opcodes.ShapeMultiANewArray:
		t, err := p.ExpectType()
		if err != nil {
			return err
		}
		dims, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		in.ConstantIndex = p.pool.Class(t)
		in.Dimensions = int(dims)

	case opcodes.ShapeFieldInsn:
		idx, descriptor, err := p.ParseFieldRef()
		if err != nil {
			return err
		}
		in.ConstantIndex = idx
		in.Descriptor = descriptor
		in.IsStatic = opcode == opcodes.Getstatic || opcode == opcodes.Putstatic

	case opcodes.ShapeMethodInsn:
		idx, descriptor, err := p.ParseMethodRef(false)
		if err != nil {
			return err
		}
		in.ConstantIndex = idx
		in.Descriptor = descriptor
		in.IsStatic = opcode == opcodes.Invokestatic

	case opcodes.ShapeInvokeInterface:
		idx, descriptor, err := p.ParseMethodRef(true)
		if err != nil {
			return err
		}
		in.ConstantIndex = idx
		in.Descriptor = descriptor
		in.InterfaceCount = classfile.ParameterSize(descriptor) + 1

	case opcodes.ShapeInvokeDynamic:
		idx, descriptor, err := p.ParseInvokeDynamicRef()
		if err != nil {
			return err
		}
		in.ConstantIndex = idx
		in.Descriptor = descriptor

	case opcodes.ShapeLdc:
		idx, err := p.ParseLoadableConstant()
		if err != nil {
			return err
		}
		in.ConstantIndex = idx

	case opcodes.ShapeBranch:
		target, err := p.ExpectOffset()
		if err != nil {
			return err
		}
		in.Target = target
		if opcode == opcodes.Goto && wide {
			in.Opcode = opcodes.GotoW
			in.Wide = false
		} else if opcode == opcodes.Jsr && wide {
			in.Opcode = opcodes.JsrW
			in.Wide = false
		}

	case opcodes.ShapeTableSwitch:
		if err := p.parseTableSwitch(in); err != nil {
			return err
		}
		return p.finishInstruction(c, in, false)

	case opcodes.ShapeLookupSwitch:
		if err := p.parseLookupSwitch(in); err != nil {
			return err
		}
		return p.finishInstruction(c, in, false)
	}

	return p.finishInstruction(c, in, true)
}

// finishInstruction consumes an optional trailing ';' and appends in.
// needsSemi is false for the switches, whose own sub-grammar already
// consumed the ';' after their closing '}'; a further ';' is still accepted.
func (p *Parser) finishInstruction(c *classfile.CodeComposer, in *classfile.Instruction, needsSemi bool) error {
	if _, err := p.AcceptPunct(';'); err != nil {
		return err
	}
	c.AppendInstruction(in)
	return nil
}

// parseTableSwitch parses:
//
//	tableswitch low high default LABEL { LABEL ; LABEL ; ... } ;
func (p *Parser) parseTableSwitch(in *classfile.Instruction) error {
	low, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	high, err := p.ExpectNumber()
	if err != nil {
		return err
	}
	if err := p.expectWordLiteral("default"); err != nil {
		return err
	}
	def, err := p.ExpectOffset()
	if err != nil {
		return err
	}
	in.Low = int(low)
	in.High = int(high)
	in.DefaultTarget = def

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
		target, err := p.ExpectOffset()
		if err != nil {
			return err
		}
		in.TargetsTable = append(in.TargetsTable, target)
		if err := p.ExpectPunct(';'); err != nil {
			return err
		}
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	if in.High-in.Low+1 != len(in.TargetsTable) {
		return jbcerr.NewParse(p.Line(), "tableswitch declares %d..%d but lists %d targets", in.Low, in.High, len(in.TargetsTable))
	}
	return nil
}

// parseLookupSwitch parses:
//
//	lookupswitch default LABEL { NUMBER : LABEL ; NUMBER : LABEL ; ... } ;
//
// Case values must be strictly increasing.
func (p *Parser) parseLookupSwitch(in *classfile.Instruction) error {
	if err := p.expectWordLiteral("default"); err != nil {
		return err
	}
	def, err := p.ExpectOffset()
	if err != nil {
		return err
	}
	in.DefaultTarget = def

	if err := p.ExpectPunct('{'); err != nil {
		return err
	}
	havePrev := false
	var prev int32
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return err
		}
		if ok {
			break
		}
		n, err := p.ExpectNumber()
		if err != nil {
			return err
		}
		caseVal := int32(n)
		if havePrev && caseVal <= prev {
			return jbcerr.NewParse(p.Line(), "lookupswitch case values must be strictly increasing, got %d after %d", caseVal, prev)
		}
		havePrev = true
		prev = caseVal
		if err := p.ExpectPunct(':'); err != nil {
			return err
		}
		target, err := p.ExpectOffset()
		if err != nil {
			return err
		}
		if err := p.ExpectPunct(';'); err != nil {
			return err
		}
		in.Cases = append(in.Cases, caseVal)
		in.TargetsLookup = append(in.TargetsLookup, target)
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	return nil
}
