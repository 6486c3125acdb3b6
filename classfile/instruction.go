package classfile

import "github.com/Guardsquare/proguard-assembler/internal/opcodes"

// Instruction is the tagged union from "Instruction". Exactly one
// group of the type-specific fields is meaningful, selected by
// opcodes.Shape(Opcode). Branch targets and switch jump targets are *Label
// pointers while the method body is being composed; Label.Offset is only
// valid after CodeComposer.End.
type Instruction struct {
	Opcode int

	// Constant-kind: CP index for ldc/getstatic/putfield/invoke*/new/
	// anewarray/checkcast/instanceof/multianewarray.
	ConstantIndex int

	// Variable (iload/istore/.../ret/iinc)
	Slot      int
	Wide      bool
	IincConst int

	// IntInsn (bipush/sipush/newarray)
	IntOperand int

	// InvokeInterface
	InterfaceCount int

	// MultiANewArray
	Dimensions int

	// Branch
	Target *Label

	// TableSwitch
	Low, High     int
	DefaultTarget *Label
	TargetsTable  []*Label

	// LookupSwitch
	Cases         []int32
	TargetsLookup []*Label

	// Descriptor carries the resolved field/method descriptor alongside a
	// Field/Method/InvokeInterface/InvokeDynamic instruction's ConstantIndex,
	// so the Code Composer can compute a conservative max_stack without
	// needing a ConstantPool reference of its own.
	Descriptor string
	// IsStatic marks getstatic/putstatic/invokestatic, which push/pop no
	// implicit `this`/owner-object operand.
	IsStatic bool
}

// Width reports the instruction's encoded size in bytes given its current
// Wide flag / branch kind (width table). tableswitch/lookupswitch
// report -1 since their size depends on the instruction's own byte offset
// (padding to a 4-byte boundary); the composer computes those directly.
func (in *Instruction) Width() int {
	shape := opcodes.Shape(in.Opcode)
	switch shape {
	case opcodes.ShapeVarInsn:
		if in.Wide {
			return 4
		}
		return 2
	case opcodes.ShapeIincInsn:
		if in.Wide {
			return 6
		}
		return 3
	case opcodes.ShapeIntInsn:
		if in.Opcode == opcodes.Sipush {
			return 3
		}
		return 2
	case opcodes.ShapeTypeInsn, opcodes.ShapeFieldInsn, opcodes.ShapeMethodInsn:
		return 3
	case opcodes.ShapeInvokeInterface, opcodes.ShapeInvokeDynamic:
		return 5
	case opcodes.ShapeMultiANewArray:
		return 4
	case opcodes.ShapeLdc:
		if in.Opcode == opcodes.Ldc {
			return 2
		}
		return 3
	case opcodes.ShapeBranch:
		if in.Opcode == opcodes.GotoW || in.Opcode == opcodes.JsrW || in.Wide {
			return 5
		}
		return 3
	case opcodes.ShapeTableSwitch, opcodes.ShapeLookupSwitch:
		return -1
	default:
		return 1
	}
}
