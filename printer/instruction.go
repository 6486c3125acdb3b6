package printer

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
)

// newarrayTypeNames is the inverse of the parser's newarrayTypeWords for
// the newarray atype operand.
var newarrayTypeNames = map[int]string{
	opcodes.TBoolean: "boolean", opcodes.TChar: "char",
	opcodes.TFloat: "float", opcodes.TDouble: "double",
	opcodes.TByte: "byte", opcodes.TShort: "short",
	opcodes.TInt: "int", opcodes.TLong: "long",
}

// PrintMethodBody prints a method's Code attribute as a braced
// pseudo-instruction stream, the inverse of parser.ParseMethodBody: decode
// the raw bytecode back into instructions
// (classfile.DecodeInstructions), assign every referenced offset a symbolic
// name (CollectLabels), then walk the instructions in byte order emitting a
// label definition, any line-number/local-variable marker due at that
// offset, and the instruction itself.
func PrintMethodBody(p *Printer, pool *classfile.ConstantPool, code *classfile.CodeAttribute) error {
	decoded, labelNames, err := decodeAndCollect(code)
	if err != nil {
		return err
	}
	labels := func(offset int) (string, error) { return lookupLabel(labelNames, offset) }

	p.OpenPlain()

	for _, e := range code.Exceptions {
		catchType := "any"
		if e.CatchType != "" {
			catchType = classfile.ExternalType("L" + e.CatchType + ";")
		}
		start, err := labels(e.Start.Offset())
		if err != nil {
			return err
		}
		end, err := labels(e.End.Offset())
		if err != nil {
			return err
		}
		handler, err := labels(e.Handler.Offset())
		if err != nil {
			return err
		}
		p.Stmt("catch %s %s %s %s", catchType, start, end, handler)
	}

	markers := map[int][]string{}
	for _, ln := range code.LineNumbers {
		off := ln.Start.Offset()
		markers[off] = append(markers[off], fmt.Sprintf("line %d;", ln.Line))
	}
	for _, lv := range code.LocalVars {
		s, e := lv.Start.Offset(), lv.End.Offset()
		markers[s] = append(markers[s], fmt.Sprintf("startlocalvar %d %s %s;", lv.Slot, lv.Name, classfile.ExternalType(lv.Descriptor)))
		markers[e] = append(markers[e], fmt.Sprintf("endlocalvar %d;", lv.Slot))
	}
	for _, lvt := range code.LocalVarTypes {
		s, e := lvt.Start.Offset(), lvt.End.Offset()
		markers[s] = append(markers[s], fmt.Sprintf("startlocalvartype %d %s %q;", lvt.Slot, lvt.Name, lvt.Signature))
		markers[e] = append(markers[e], fmt.Sprintf("endlocalvartype %d;", lvt.Slot))
	}

	offsets := make(map[int]bool, len(decoded)+len(markers))
	for _, in := range decoded {
		offsets[in.Offset] = true
	}
	for off := range markers {
		offsets[off] = true
	}
	for off := range labelNames {
		offsets[off] = true
	}

	byOffset := make(map[int]*classfile.DecodedInstruction, len(decoded))
	for i := range decoded {
		byOffset[decoded[i].Offset] = &decoded[i]
	}

	for _, off := range sortedOffsets(offsets) {
		if name, ok := labelNames[off]; ok {
			p.Raw("%s:", name)
		}
		for _, line := range markers[off] {
			p.Raw("%s", line)
		}
		if in, ok := byOffset[off]; ok {
			text, err := printInstruction(pool, *in, labels)
			if err != nil {
				return err
			}
			p.Raw("%s", text)
		}
	}

	p.Close()
	return p.Err()
}

func decodeAndCollect(code *classfile.CodeAttribute) ([]classfile.DecodedInstruction, map[int]string, error) {
	decoded, err := classfile.DecodeInstructions(code.Code)
	if err != nil {
		return nil, nil, jbcerr.NewPrint("%v", err)
	}
	return decoded, CollectLabels(decoded, code), nil
}

// CodeLabels resolves a method's label names without printing anything,
// for use by the method-attribute printer: a code-relative type annotation
// (see classfile.IsCodeRelativeTarget) is still printed among the method's
// ordinary attributes, not nested inside the Code block, so it needs the
// same offset->name mapping PrintMethodBody builds internally.
func CodeLabels(code *classfile.CodeAttribute) (LabelName, error) {
	_, labelNames, err := decodeAndCollect(code)
	if err != nil {
		return nil, err
	}
	return func(offset int) (string, error) { return lookupLabel(labelNames, offset) }, nil
}

// printInstruction renders one decoded instruction as a single
// semicolon-terminated line (except table/lookupswitch, which are
// themselves multi-line braced forms), the inverse of
// parser.parseRealInstruction's per-shape switch.
func printInstruction(pool *classfile.ConstantPool, in classfile.DecodedInstruction, labels LabelName) (string, error) {
	mnemonic, ok := opcodes.Mnemonic[in.Opcode]
	if !ok {
		return "", jbcerr.NewPrint("unknown opcode %d", in.Opcode)
	}

	switch opcodes.Shape(in.Opcode) {
	case opcodes.ShapeNone:
		return mnemonic + ";", nil

	case opcodes.ShapeVarInsn:
		if in.Wide {
			return fmt.Sprintf("%s_w %d;", mnemonic, in.Slot), nil
		}
		return fmt.Sprintf("%s %d;", mnemonic, in.Slot), nil

	case opcodes.ShapeIincInsn:
		if in.Wide {
			return fmt.Sprintf("iinc_w %d %d;", in.Slot, in.IincConst), nil
		}
		return fmt.Sprintf("iinc %d %d;", in.Slot, in.IincConst), nil

	case opcodes.ShapeIntInsn:
		if in.Opcode == opcodes.Newarray {
			word, ok := newarrayTypeNames[in.IntOperand]
			if !ok {
				return "", jbcerr.NewPrint("unknown newarray atype %d", in.IntOperand)
			}
			return fmt.Sprintf("newarray %s;", word), nil
		}
		return fmt.Sprintf("%s %d;", mnemonic, in.IntOperand), nil

	case opcodes.ShapeTypeInsn:
		name := classLiteral(pool.ClassName(in.ConstantIndex))
		return fmt.Sprintf("%s %s;", mnemonic, name), nil

	case opcodes.ShapeFieldInsn, opcodes.ShapeMethodInsn, opcodes.ShapeInvokeInterface:
		ref, err := PrintFieldOrMethodRef(pool, in.ConstantIndex)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s;", mnemonic, ref), nil

	case opcodes.ShapeInvokeDynamic:
		e := pool.Get(in.ConstantIndex)
		name, descriptor := pool.NameAndTypeOf(e.Index2)
		ret := classfile.ExternalType(classfile.MethodReturnType(descriptor))
		args := classfile.MethodArgumentTypes(descriptor)
		argStrs := make([]string, len(args))
		for i, a := range args {
			argStrs[i] = classfile.ExternalType(a)
		}
		return fmt.Sprintf("invokedynamic %d # %s %s(%s);", e.Index1, ret, name, joinComma(argStrs)), nil

	case opcodes.ShapeMultiANewArray:
		name := classLiteral(pool.ClassName(in.ConstantIndex))
		return fmt.Sprintf("multianewarray %s %d;", name, in.Dimensions), nil

	case opcodes.ShapeLdc:
		val, err := PrintLoadableConstant(pool, in.ConstantIndex, "")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s;", mnemonic, val), nil

	case opcodes.ShapeBranch:
		target, err := labels(in.TargetOffset)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s;", mnemonic, target), nil

	case opcodes.ShapeTableSwitch:
		return printTableSwitch(in, labels)

	case opcodes.ShapeLookupSwitch:
		return printLookupSwitch(in, labels)
	}

	return "", jbcerr.NewPrint("unhandled instruction shape for opcode %d", in.Opcode)
}

func printTableSwitch(in classfile.DecodedInstruction, labels LabelName) (string, error) {
	def, err := labels(in.DefaultOffset)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, off := range in.TargetOffsetsTable {
		name, err := labels(off)
		if err != nil {
			return "", err
		}
		parts = append(parts, name+" ;")
	}
	return fmt.Sprintf("tableswitch %d %d default %s { %s };", in.Low, in.High, def, joinSpace(parts)), nil
}

func printLookupSwitch(in classfile.DecodedInstruction, labels LabelName) (string, error) {
	def, err := labels(in.DefaultOffset)
	if err != nil {
		return "", err
	}
	var parts []string
	for i, c := range in.Cases {
		name, err := labels(in.TargetOffsetsLookup[i])
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%d : %s ;", c, name))
	}
	return fmt.Sprintf("lookupswitch default %s { %s };", def, joinSpace(parts)), nil
}
