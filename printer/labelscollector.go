package printer

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/internal/typeref"
)

// CollectLabels is the Labels Collector pre-pass of : a single walk
// over a decoded Code attribute that enumerates every byte offset anything
// refers to (a branch target, a switch's default or case target, an
// exception-table bound, a local-variable range endpoint, or a code-relative
// type annotation's offset) and assigns each one a symbolic "labelN" name,
// in the order the offset was first seen. Printing then substitutes these
// names for the corresponding raw offsets instead of ever printing a bare
// integer position.
//
// Unlike printing a label from a *Label object that already carries a
// resolved name, here the direction is reversed: offsets are all we have,
// coming out of a decoded byte array, so this pass manufactures the names
// a text disassembly needs instead of finding them ready-made.
func CollectLabels(instrs []classfile.DecodedInstruction, code *classfile.CodeAttribute) map[int]string {
	order := []int{}
	seen := make(map[int]bool)
	see := func(offset int) {
		if !seen[offset] {
			seen[offset] = true
			order = append(order, offset)
		}
	}

	for _, in := range instrs {
		if isBranchOpcode(in) {
			see(in.TargetOffset)
		}
		if len(in.TargetOffsetsTable) > 0 || len(in.TargetOffsetsLookup) > 0 {
			see(in.DefaultOffset)
			for _, t := range in.TargetOffsetsTable {
				see(t)
			}
			for _, t := range in.TargetOffsetsLookup {
				see(t)
			}
		}
	}

	for _, e := range code.Exceptions {
		see(e.Start.Offset())
		see(e.End.Offset())
		see(e.Handler.Offset())
	}
	for _, lv := range code.LocalVars {
		see(lv.Start.Offset())
		see(lv.End.Offset())
	}
	for _, lvt := range code.LocalVarTypes {
		see(lvt.Start.Offset())
		see(lvt.End.Offset())
	}
	for _, ta := range code.TypeAnnotationsVisible {
		seeTypeAnnotationOffsets(ta, see)
	}
	for _, ta := range code.TypeAnnotationsInvisible {
		seeTypeAnnotationOffsets(ta, see)
	}

	names := make(map[int]string, len(order))
	for i, off := range order {
		names[off] = fmt.Sprintf("label%d", i+1)
	}
	return names
}

func seeTypeAnnotationOffsets(ta classfile.TypeAnnotation, see func(int)) {
	switch ta.TargetType {
	case typeref.LocalVariable, typeref.ResourceVariable:
		for _, lv := range ta.LocalVars {
			see(lv.Start.Offset())
			see(lv.End.Offset())
		}
	case typeref.Instanceof, typeref.New, typeref.ConstructorReference, typeref.MethodReference,
		typeref.Cast, typeref.ConstructorInvocationTypeArgument, typeref.MethodInvocationTypeArgument,
		typeref.ConstructorReferenceTypeArgument, typeref.MethodReferenceTypeArgument:
		if ta.Offset != nil {
			see(ta.Offset.Offset())
		}
	}
}

// isBranchOpcode reports whether in is a goto/if*/jsr-family instruction, so
// a branch to offset 0 (method entry) is still collected as a target.
func isBranchOpcode(in classfile.DecodedInstruction) bool {
	return opcodes.Shape(in.Opcode) == opcodes.ShapeBranch
}
