package classfile

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
)

// MaxLabels bounds the number of distinct labels a single method body may
// define, "a code composer with max_labels = 65534".
const MaxLabels = 65534

// ExceptionInfo is one exception_table entry (JVMS §4.7.3), with symbolic
// bounds until CodeComposer.End resolves them to bytecode offsets.
type ExceptionInfo struct {
	Start, End, Handler *Label
	// CatchType is the internal name of the caught class, or "" for a
	// `catch any` / finally handler (stored as catch_type index 0).
	CatchType string
}

// LineNumberInfo is one line_number_table entry (JVMS §4.7.12).
type LineNumberInfo struct {
	Start *Label
	Line  int
}

// LocalVariableInfo is one local_variable_table entry (JVMS §4.7.13).
type LocalVariableInfo struct {
	Start, End       *Label
	Slot             int
	Name, Descriptor string
}

// LocalVariableTypeInfo is one local_variable_type_table entry (JVMS §4.7.14).
type LocalVariableTypeInfo struct {
	Start, End     *Label
	Slot           int
	Name, Signature string
}

type composerItem struct {
	label *Label       // non-nil for a label marker
	instr *Instruction // non-nil for an instruction
}

// CodeComposer accumulates labels, instructions, exception ranges, and
// line-number entries during a single pass over a method body's
// pseudo-instruction stream, then resolves every symbolic offset and lays
// out the final `code` byte array in End.
//
// Unlike a control-flow-graph writer built around reading bytecode, this
// composer grows the buffer while writing it from a textual instruction
// stream, so it needs no basic-block or frame graph — only the
// forward/backward label resolution Label's resolved bit already models.
type CodeComposer struct {
	maxLabels int
	items     []composerItem
	labelSet  map[*Label]bool

	exceptions    []ExceptionInfo
	lineNumbers   []LineNumberInfo
	localVars     []LocalVariableInfo
	localVarTypes []LocalVariableTypeInfo

	ended bool
}

// BeginCodeFragment starts composing one method body.
func BeginCodeFragment(maxLabels int) *CodeComposer {
	if maxLabels <= 0 {
		maxLabels = MaxLabels
	}
	return &CodeComposer{
		maxLabels: maxLabels,
		labelSet:  make(map[*Label]bool),
	}
}

// AppendLabel associates a symbolic label with the composer's current
// output position.
func (c *CodeComposer) AppendLabel(l *Label) error {
	if c.labelSet[l] {
		return fmt.Errorf("label %q already appended", l.Name)
	}
	if len(c.labelSet) >= c.maxLabels {
		return fmt.Errorf("method exceeds the maximum of %d labels", c.maxLabels)
	}
	c.labelSet[l] = true
	c.items = append(c.items, composerItem{label: l})
	return nil
}

// AppendInstruction appends one instruction (// "append_instruction(offset, instruction)").
func (c *CodeComposer) AppendInstruction(in *Instruction) {
	c.items = append(c.items, composerItem{instr: in})
}

// AppendException records one exception handler range.
func (c *CodeComposer) AppendException(info ExceptionInfo) {
	c.exceptions = append(c.exceptions, info)
}

// InsertLineNumber records one source line marker.
func (c *CodeComposer) InsertLineNumber(info LineNumberInfo) {
	c.lineNumbers = append(c.lineNumbers, info)
}

// AppendLocalVariable records one local_variable_table entry.
func (c *CodeComposer) AppendLocalVariable(info LocalVariableInfo) {
	c.localVars = append(c.localVars, info)
}

// AppendLocalVariableType records one local_variable_type_table entry.
func (c *CodeComposer) AppendLocalVariableType(info LocalVariableTypeInfo) {
	c.localVarTypes = append(c.localVarTypes, info)
}

// ComposedCode is the result of CodeComposer.End: a finished `code` array
// plus its resolved exception/line/local-variable tables.
type ComposedCode struct {
	Bytes         []byte
	MaxStack      int
	MaxLocals     int
	Exceptions    []ExceptionInfo // offsets resolved (labels still carry the offset, for printing)
	LineNumbers   []LineNumberInfo
	LocalVars     []LocalVariableInfo
	LocalVarTypes []LocalVariableTypeInfo
}

// End performs a two-pass layout: lay out instructions assuming narrow
// branch/var forms, discover any goto/jsr whose resolved relative offset no
// longer fits in a signed 16-bit value, widen it to goto_w/jsr_w, and repeat
// until the layout is stable. Each pass binds every symbolic offset
// (instructions' own position, and every *Label referenced anywhere) anew;
// once stable, no Label is left unresolved.
func (c *CodeComposer) End() (*ComposedCode, error) {
	if c.ended {
		return nil, fmt.Errorf("code fragment already ended")
	}
	c.ended = true

	if err := c.checkLocalVariableBalance(); err != nil {
		return nil, err
	}

	for {
		widenedAny, err := c.layoutOnce()
		if err != nil {
			return nil, err
		}
		if !widenedAny {
			break
		}
	}

	buf, err := c.emit()
	if err != nil {
		return nil, err
	}

	maxLocals := c.computeMaxLocals()
	maxStack := c.computeMaxStack()

	return &ComposedCode{
		Bytes:         buf,
		MaxStack:      maxStack,
		MaxLocals:     maxLocals,
		Exceptions:    c.exceptions,
		LineNumbers:   c.lineNumbers,
		LocalVars:     c.localVars,
		LocalVarTypes: c.localVarTypes,
	}, nil
}

// layoutOnce computes every item's offset (and every label's offset) under
// the current set of Wide flags, widening any branch whose target no
// longer fits a signed short and reporting that a re-layout is needed.
func (c *CodeComposer) layoutOnce() (widenedAny bool, err error) {
	// First walk: bind every label to its offset, and remember where each
	// instruction itself starts, all under the current set of Wide flags.
	starts := make([]int, len(c.items))
	offset := 0
	for i, item := range c.items {
		if item.label != nil {
			item.label.resolve(offset)
			continue
		}
		starts[i] = offset
		in := item.instr
		w := in.Width()
		if w < 0 {
			w = c.switchWidth(in, offset)
		}
		offset += w
	}

	// Second pass: with every label now bound (and every instruction's own
	// start fixed for this iteration), check whether any narrow branch's
	// target is now out of a signed short's range. Widening here only flips
	// a flag; the next full layoutOnce call re-derives label offsets from
	// scratch under the new flags, so reads of starts[i] within this pass
	// stay internally consistent even as later entries get widened.
	for i, item := range c.items {
		if item.label == nil && opcodes.Shape(item.instr.Opcode) == opcodes.ShapeBranch {
			in := item.instr
			if in.Target != nil && in.Opcode != opcodes.GotoW && in.Opcode != opcodes.JsrW && !in.Wide {
				delta := in.Target.Offset() - starts[i]
				if delta < -32768 || delta > 32767 {
					if in.Opcode != opcodes.Goto && in.Opcode != opcodes.Jsr {
						return false, fmt.Errorf("branch target for opcode %d is out of 16-bit range and has no wide form", in.Opcode)
					}
					in.Wide = true
					widenedAny = true
				}
			}
		}
	}
	return widenedAny, nil
}

// switchWidth computes a [table|lookup]switch's encoded width at a given
// byte offset: opcode + 0-3 padding bytes to a 4-byte boundary + operands.
func (c *CodeComposer) switchWidth(in *Instruction, offset int) int {
	pad := (4 - (offset+1)%4) % 4
	switch opcodes.Shape(in.Opcode) {
	case opcodes.ShapeTableSwitch:
		return 1 + pad + 12 + 4*len(in.TargetsTable)
	case opcodes.ShapeLookupSwitch:
		return 1 + pad + 8 + 8*len(in.Cases)
	}
	return 1
}

func (c *CodeComposer) emit() ([]byte, error) {
	var buf []byte
	for _, item := range c.items {
		if item.label != nil {
			continue
		}
		in := item.instr
		here := len(buf)
		b, err := encodeInstruction(in, here)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return buf, nil
}

func (c *CodeComposer) checkLocalVariableBalance() error {
	// Every LocalVariableInfo/LocalVariableTypeInfo here was only created by
	// a matched startlocalvar/endlocalvar pair at the parser level, so by
	// the time we reach the composer the pairing invariant already holds;
	// this is a defensive re-check that both ends share method scope.
	for _, lv := range c.localVars {
		if lv.Start == nil || lv.End == nil {
			return fmt.Errorf("local variable %q missing start or end label", lv.Name)
		}
	}
	for _, lv := range c.localVarTypes {
		if lv.Start == nil || lv.End == nil {
			return fmt.Errorf("local variable type %q missing start or end label", lv.Name)
		}
	}
	return nil
}

func (c *CodeComposer) computeMaxLocals() int {
	max := 0
	bump := func(slot, width int) {
		if slot+width > max {
			max = slot + width
		}
	}
	for _, item := range c.items {
		if item.instr == nil {
			continue
		}
		in := item.instr
		switch opcodes.Shape(in.Opcode) {
		case opcodes.ShapeVarInsn:
			bump(in.Slot, slotWidth(in.Opcode))
		case opcodes.ShapeIincInsn:
			bump(in.Slot, 1)
		}
	}
	for _, lv := range c.localVars {
		w := 1
		if lv.Descriptor == "J" || lv.Descriptor == "D" {
			w = 2
		}
		bump(lv.Slot, w)
	}
	return max
}

func slotWidth(opcode int) int {
	switch opcode {
	case opcodes.Lload, opcodes.Dload, opcodes.Lstore, opcodes.Dstore:
		return 2
	}
	return 1
}

// computeMaxStack walks the instruction stream once, in textual order,
// accumulating a conservative running stack depth. This does not attempt
// real data-flow merging across branch targets — that is the external
// preverifier's job once stack maps are involved — applied here to the one
// numeric field every Code attribute must carry regardless of class
// version.
func (c *CodeComposer) computeMaxStack() int {
	depth, max := 0, 0
	push := func(n int) {
		depth += n
		if depth > max {
			max = depth
		}
		if depth < 0 {
			depth = 0
		}
	}
	for _, item := range c.items {
		if item.instr == nil {
			continue
		}
		push(stackDelta(item.instr))
	}
	return max
}
