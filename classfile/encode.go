package classfile

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
)

func u1(b []byte, v int) []byte { return append(b, byte(v)) }
func u2(b []byte, v int) []byte { return append(b, byte(v>>8), byte(v)) }
func u4(b []byte, v int) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// encodeInstruction writes one instruction's bytes, given the byte offset it
// starts at (needed for branch deltas and switch padding). Grounded on the
// operand shapes from internal/opcodes.Shape; this is the write-direction
// counterpart of decode.go's decode switch, which reads the same shapes off
// a byte stream.
func encodeInstruction(in *Instruction, here int) ([]byte, error) {
	b := []byte{byte(in.Opcode)}

	switch opcodes.Shape(in.Opcode) {
	case opcodes.ShapeNone:
		return b, nil

	case opcodes.ShapeVarInsn:
		if in.Wide {
			b = []byte{opcodes.Wide, byte(in.Opcode)}
			b = u2(b, in.Slot)
		} else {
			b = u1(b, in.Slot)
		}
		return b, nil

	case opcodes.ShapeIincInsn:
		if in.Wide {
			b = []byte{opcodes.Wide, opcodes.Iinc}
			b = u2(b, in.Slot)
			b = append(b, byte(in.IincConst>>8), byte(in.IincConst))
		} else {
			b = u1(b, in.Slot)
			b = append(b, byte(in.IincConst))
		}
		return b, nil

	case opcodes.ShapeIntInsn:
		if in.Opcode == opcodes.Sipush {
			b = append(b, byte(in.IntOperand>>8), byte(in.IntOperand))
		} else {
			b = u1(b, in.IntOperand)
		}
		return b, nil

	case opcodes.ShapeTypeInsn, opcodes.ShapeFieldInsn, opcodes.ShapeMethodInsn:
		return u2(b, in.ConstantIndex), nil

	case opcodes.ShapeInvokeInterface:
		b = u2(b, in.ConstantIndex)
		b = u1(b, in.InterfaceCount)
		b = u1(b, 0)
		return b, nil

	case opcodes.ShapeInvokeDynamic:
		b = u2(b, in.ConstantIndex)
		b = u2(b, 0)
		return b, nil

	case opcodes.ShapeMultiANewArray:
		b = u2(b, in.ConstantIndex)
		b = u1(b, in.Dimensions)
		return b, nil

	case opcodes.ShapeLdc:
		if in.Opcode == opcodes.Ldc {
			return u1(b, in.ConstantIndex), nil
		}
		return u2(b, in.ConstantIndex), nil

	case opcodes.ShapeBranch:
		if in.Target == nil {
			return nil, fmt.Errorf("branch instruction missing target label")
		}
		delta := in.Target.Offset() - here
		if in.Opcode == opcodes.GotoW || in.Opcode == opcodes.JsrW || in.Wide {
			if in.Opcode == opcodes.Goto {
				b = []byte{opcodes.GotoW}
			} else if in.Opcode == opcodes.Jsr {
				b = []byte{opcodes.JsrW}
			}
			return u4(b, delta), nil
		}
		if delta < -32768 || delta > 32767 {
			return nil, fmt.Errorf("branch delta %d out of 16-bit range", delta)
		}
		return append(b, byte(delta>>8), byte(delta)), nil

	case opcodes.ShapeTableSwitch:
		return encodeTableSwitch(in, here)

	case opcodes.ShapeLookupSwitch:
		return encodeLookupSwitch(in, here)
	}

	return b, nil
}

func padTo4(b []byte, here int) []byte {
	for (here+len(b))%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func encodeTableSwitch(in *Instruction, here int) ([]byte, error) {
	if in.DefaultTarget == nil {
		return nil, fmt.Errorf("tableswitch missing default target")
	}
	b := []byte{byte(opcodes.Tableswitch)}
	b = padTo4(b, here)
	b = u4(b, in.DefaultTarget.Offset()-here)
	b = u4(b, in.Low)
	b = u4(b, in.High)
	for _, t := range in.TargetsTable {
		if t == nil {
			return nil, fmt.Errorf("tableswitch missing a case target")
		}
		b = u4(b, t.Offset()-here)
	}
	return b, nil
}

func encodeLookupSwitch(in *Instruction, here int) ([]byte, error) {
	if in.DefaultTarget == nil {
		return nil, fmt.Errorf("lookupswitch missing default target")
	}
	if len(in.Cases) != len(in.TargetsLookup) {
		return nil, fmt.Errorf("lookupswitch has %d cases but %d targets", len(in.Cases), len(in.TargetsLookup))
	}
	b := []byte{byte(opcodes.Lookupswitch)}
	b = padTo4(b, here)
	b = u4(b, in.DefaultTarget.Offset()-here)
	b = u4(b, len(in.Cases))
	for i, c := range in.Cases {
		b = u4(b, int(c))
		t := in.TargetsLookup[i]
		if t == nil {
			return nil, fmt.Errorf("lookupswitch missing target for case %d", c)
		}
		b = u4(b, t.Offset()-here)
	}
	return b, nil
}

// stackDelta estimates an instruction's net operand-stack effect, used only
// to build a conservative max_stack (see CodeComposer.computeMaxStack).
func stackDelta(in *Instruction) int {
	if d, ok := fixedStackDelta[in.Opcode]; ok {
		return d
	}
	switch opcodes.Shape(in.Opcode) {
	case opcodes.ShapeVarInsn:
		switch in.Opcode {
		case opcodes.Istore, opcodes.Fstore, opcodes.Astore:
			return -1
		case opcodes.Lstore, opcodes.Dstore:
			return -2
		case opcodes.Iload, opcodes.Fload, opcodes.Aload:
			return 1
		case opcodes.Lload, opcodes.Dload:
			return 2
		}
		return 0
	case opcodes.ShapeIincInsn:
		return 0
	case opcodes.ShapeIntInsn:
		return 1
	case opcodes.ShapeTypeInsn:
		// new, anewarray, checkcast and instanceof are all listed in
		// fixedStackDelta, which is consulted first; this is a fallback.
		return 0
	case opcodes.ShapeMultiANewArray:
		return 1 - in.Dimensions
	case opcodes.ShapeFieldInsn:
		return fieldStackDelta(in)
	case opcodes.ShapeMethodInsn, opcodes.ShapeInvokeInterface:
		return methodStackDelta(in)
	case opcodes.ShapeInvokeDynamic:
		return methodStackDelta(in)
	case opcodes.ShapeLdc:
		if in.Opcode == opcodes.Ldc2W {
			return 2
		}
		return 1
	case opcodes.ShapeBranch:
		return branchStackDelta(in.Opcode)
	case opcodes.ShapeTableSwitch, opcodes.ShapeLookupSwitch:
		return -1
	}
	return 0
}

// fixedStackDelta covers every opcode whose stack effect never depends on an
// operand (JVMS §6.5, "Operand Stack" rows): the zero-operand opcodes plus
// operand-carrying ones such as new, anewarray, checkcast, instanceof and ret.
var fixedStackDelta = map[int]int{
	opcodes.Nop: 0, opcodes.AconstNull: 1,
	opcodes.IconstM1: 1, opcodes.Iconst0: 1, opcodes.Iconst1: 1, opcodes.Iconst2: 1,
	opcodes.Iconst3: 1, opcodes.Iconst4: 1, opcodes.Iconst5: 1,
	opcodes.Lconst0: 2, opcodes.Lconst1: 2,
	opcodes.Fconst0: 1, opcodes.Fconst1: 1, opcodes.Fconst2: 1,
	opcodes.Dconst0: 2, opcodes.Dconst1: 2,
	opcodes.Iload0: 1, opcodes.Iload1: 1, opcodes.Iload2: 1, opcodes.Iload3: 1,
	opcodes.Fload0: 1, opcodes.Fload1: 1, opcodes.Fload2: 1, opcodes.Fload3: 1,
	opcodes.Aload0: 1, opcodes.Aload1: 1, opcodes.Aload2: 1, opcodes.Aload3: 1,
	opcodes.Lload0: 2, opcodes.Lload1: 2, opcodes.Lload2: 2, opcodes.Lload3: 2,
	opcodes.Dload0: 2, opcodes.Dload1: 2, opcodes.Dload2: 2, opcodes.Dload3: 2,
	opcodes.Istore0: -1, opcodes.Istore1: -1, opcodes.Istore2: -1, opcodes.Istore3: -1,
	opcodes.Fstore0: -1, opcodes.Fstore1: -1, opcodes.Fstore2: -1, opcodes.Fstore3: -1,
	opcodes.Astore0: -1, opcodes.Astore1: -1, opcodes.Astore2: -1, opcodes.Astore3: -1,
	opcodes.Lstore0: -2, opcodes.Lstore1: -2, opcodes.Lstore2: -2, opcodes.Lstore3: -2,
	opcodes.Dstore0: -2, opcodes.Dstore1: -2, opcodes.Dstore2: -2, opcodes.Dstore3: -2,
	opcodes.Iaload: -1, opcodes.Faload: -1, opcodes.Aaload: -1, opcodes.Baload: -1,
	opcodes.Caload: -1, opcodes.Saload: -1,
	opcodes.Laload: 0, opcodes.Daload: 0, // pop array+index(2), push 2
	opcodes.Iastore: -3, opcodes.Fastore: -3, opcodes.Aastore: -3, opcodes.Bastore: -3,
	opcodes.Castore: -3, opcodes.Sastore: -3,
	opcodes.Lastore: -4, opcodes.Dastore: -4,
	opcodes.Pop: -1, opcodes.Pop2: -2,
	opcodes.Dup: 1, opcodes.DupX1: 1, opcodes.DupX2: 1,
	opcodes.Dup2: 2, opcodes.Dup2X1: 2, opcodes.Dup2X2: 2,
	opcodes.Swap: 0,
	opcodes.Iadd: -1, opcodes.Fadd: -1, opcodes.Isub: -1, opcodes.Fsub: -1,
	opcodes.Imul: -1, opcodes.Fmul: -1, opcodes.Idiv: -1, opcodes.Fdiv: -1,
	opcodes.Irem: -1, opcodes.Frem: -1,
	opcodes.Ladd: -2, opcodes.Dadd: -2, opcodes.Lsub: -2, opcodes.Dsub: -2,
	opcodes.Lmul: -2, opcodes.Dmul: -2, opcodes.Ldiv: -2, opcodes.Ddiv: -2,
	opcodes.Lrem: -2, opcodes.Drem: -2,
	opcodes.Ineg: 0, opcodes.Fneg: 0, opcodes.Lneg: 0, opcodes.Dneg: 0,
	opcodes.Ishl: -1, opcodes.Ishr: -1, opcodes.Iushr: -1,
	opcodes.Lshl: -1, opcodes.Lshr: -1, opcodes.Lushr: -1,
	opcodes.Iand: -1, opcodes.Ior: -1, opcodes.Ixor: -1,
	opcodes.Land: -2, opcodes.Lor: -2, opcodes.Lxor: -2,
	opcodes.I2l: 1, opcodes.I2d: 1, opcodes.F2l: 1, opcodes.F2d: 1,
	opcodes.I2f: 0, opcodes.F2i: 0, opcodes.I2b: 0, opcodes.I2c: 0, opcodes.I2s: 0,
	opcodes.L2i: -1, opcodes.L2f: -1, opcodes.D2i: -1, opcodes.D2f: -1,
	opcodes.L2d: 0, opcodes.D2l: 0,
	opcodes.Lcmp: -3, opcodes.Fcmpl: -1, opcodes.Fcmpg: -1,
	opcodes.Dcmpl: -3, opcodes.Dcmpg: -3,
	opcodes.Ireturn: -1, opcodes.Freturn: -1, opcodes.Areturn: -1,
	opcodes.Lreturn: -2, opcodes.Dreturn: -2, opcodes.Return: 0,
	opcodes.Arraylength: 0, opcodes.Athrow: -1,
	opcodes.Monitorenter: -1, opcodes.Monitorexit: -1,
	opcodes.New: 1, opcodes.Anewarray: 0, opcodes.Checkcast: 0, opcodes.Instanceof: 0,
	opcodes.Ret: 0,
}

func branchStackDelta(opcode int) int {
	switch opcode {
	case opcodes.Ifeq, opcodes.Ifne, opcodes.Iflt, opcodes.Ifge, opcodes.Ifgt, opcodes.Ifle,
		opcodes.Ifnull, opcodes.Ifnonnull:
		return -1
	case opcodes.IfIcmpeq, opcodes.IfIcmpne, opcodes.IfIcmplt, opcodes.IfIcmpge,
		opcodes.IfIcmpgt, opcodes.IfIcmple, opcodes.IfAcmpeq, opcodes.IfAcmpne:
		return -2
	case opcodes.Jsr, opcodes.JsrW:
		return 1
	}
	return 0 // goto/goto_w
}

func fieldStackDelta(in *Instruction) int {
	width := 1
	if in.Descriptor == "J" || in.Descriptor == "D" {
		width = 2
	}
	switch in.Opcode {
	case opcodes.Getstatic:
		return width
	case opcodes.Putstatic:
		return -width
	case opcodes.Getfield:
		return width - 1
	case opcodes.Putfield:
		return -width - 1
	}
	return 0
}

func methodStackDelta(in *Instruction) int {
	pop := ParameterSize(in.Descriptor)
	if !in.IsStatic && in.Opcode != opcodes.Invokedynamic {
		pop++ // implicit objectref
	}
	ret := MethodReturnType(in.Descriptor)
	push := 0
	switch ret {
	case "V":
		push = 0
	case "J", "D":
		push = 2
	default:
		push = 1
	}
	return push - pop
}
