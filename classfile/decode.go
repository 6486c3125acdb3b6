package classfile

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
)

// DecodedInstruction is one instruction read back off a Code attribute's
// raw byte array, the read-direction counterpart of Instruction: branch and
// switch targets are absolute byte offsets rather than *Label (the printer's
// Labels Collector, , turns the offsets this package surfaces into
// the symbolic names a disassembly prints).
type DecodedInstruction struct {
	Offset int // this instruction's own starting byte offset
	Opcode int
	Wide   bool

	ConstantIndex int

	Slot      int
	IincConst int

	IntOperand int

	InterfaceCount int
	Dimensions     int

	TargetOffset int // branch

	Low, High          int
	DefaultOffset      int
	TargetOffsetsTable []int

	Cases               []int32
	TargetOffsetsLookup []int

	Descriptor string
	IsStatic   bool
}

func readU1(code []byte, at int) int { return int(code[at]) }
func readU2(code []byte, at int) int { return int(code[at])<<8 | int(code[at+1]) }
func readI1(code []byte, at int) int { return int(int8(code[at])) }
func readI2(code []byte, at int) int { return int(int16(code[at])<<8 | int16(code[at+1])) }
func readI4(code []byte, at int) int {
	return int(int32(code[at])<<24 | int32(code[at+1])<<16 | int32(code[at+2])<<8 | int32(code[at+3]))
}

// DecodeInstructions walks code from byte 0, producing one DecodedInstruction
// per opcode: the printer's read side of the Code Composer contract,
// dispatching on the same operand shapes encode.go's write side uses.
func DecodeInstructions(code []byte) ([]DecodedInstruction, error) {
	var out []DecodedInstruction
	offset := 0
	for offset < len(code) {
		start := offset
		op := int(code[offset])
		offset++

		if op == opcodes.Wide {
			if offset >= len(code) {
				return nil, fmt.Errorf("truncated wide instruction at offset %d", start)
			}
			real := int(code[offset])
			offset++
			di := DecodedInstruction{Offset: start, Opcode: real, Wide: true}
			if real == opcodes.Iinc {
				di.Slot = readU2(code, offset)
				di.IincConst = readI2(code, offset+2)
				offset += 4
			} else {
				di.Slot = readU2(code, offset)
				offset += 2
			}
			out = append(out, di)
			continue
		}

		di := DecodedInstruction{Offset: start, Opcode: op}
		switch opcodes.Shape(op) {
		case opcodes.ShapeNone:

		case opcodes.ShapeVarInsn:
			di.Slot = readU1(code, offset)
			offset++

		case opcodes.ShapeIincInsn:
			di.Slot = readU1(code, offset)
			di.IincConst = readI1(code, offset+1)
			offset += 2

		case opcodes.ShapeIntInsn:
			if op == opcodes.Sipush {
				di.IntOperand = readI2(code, offset)
				offset += 2
			} else if op == opcodes.Newarray {
				di.IntOperand = readU1(code, offset)
				offset++
			} else {
				di.IntOperand = readI1(code, offset)
				offset++
			}

		case opcodes.ShapeTypeInsn, opcodes.ShapeFieldInsn, opcodes.ShapeMethodInsn:
			di.ConstantIndex = readU2(code, offset)
			offset += 2

		case opcodes.ShapeInvokeInterface:
			di.ConstantIndex = readU2(code, offset)
			di.InterfaceCount = readU1(code, offset+2)
			offset += 4 // index(2) + count(1) + reserved(1)

		case opcodes.ShapeInvokeDynamic:
			di.ConstantIndex = readU2(code, offset)
			offset += 4 // index(2) + reserved(2)

		case opcodes.ShapeMultiANewArray:
			di.ConstantIndex = readU2(code, offset)
			di.Dimensions = readU1(code, offset+2)
			offset += 3

		case opcodes.ShapeLdc:
			if op == opcodes.Ldc {
				di.ConstantIndex = readU1(code, offset)
				offset++
			} else {
				di.ConstantIndex = readU2(code, offset)
				offset += 2
			}

		case opcodes.ShapeBranch:
			if op == opcodes.GotoW || op == opcodes.JsrW {
				di.TargetOffset = start + readI4(code, offset)
				offset += 4
			} else {
				di.TargetOffset = start + readI2(code, offset)
				offset += 2
			}

		case opcodes.ShapeTableSwitch:
			pad := (4 - (offset)%4) % 4
			offset += pad
			di.DefaultOffset = start + readI4(code, offset)
			di.Low = readI4(code, offset+4)
			di.High = readI4(code, offset+8)
			offset += 12
			n := di.High - di.Low + 1
			for i := 0; i < n; i++ {
				di.TargetOffsetsTable = append(di.TargetOffsetsTable, start+readI4(code, offset))
				offset += 4
			}

		case opcodes.ShapeLookupSwitch:
			pad := (4 - (offset)%4) % 4
			offset += pad
			di.DefaultOffset = start + readI4(code, offset)
			npairs := readI4(code, offset+4)
			offset += 8
			for i := 0; i < npairs; i++ {
				di.Cases = append(di.Cases, int32(readI4(code, offset)))
				di.TargetOffsetsLookup = append(di.TargetOffsetsLookup, start+readI4(code, offset+4))
				offset += 8
			}

		default:
			return nil, fmt.Errorf("unknown opcode %d at offset %d", op, start)
		}

		out = append(out, di)
	}
	return out, nil
}
