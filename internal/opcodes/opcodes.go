// Package opcodes holds the JVM instruction opcode values, access flag bits,
// and reference-kind constants used throughout the parser, printer, and code
// composer. The numeric values come straight from the JVM specification;
// the mnemonic table and operand-shape metadata are this module's own addition,
// needed to drive the parser and printer's instruction tables.
package opcodes

// Java class file major versions, keyed the same way javap reports them.
const (
	V1_1 = 45
	V1_2 = 46
	V1_3 = 47
	V1_4 = 48
	V1_5 = 49
	V1_6 = 50
	V1_7 = 51
	V1_8 = 52
	V9   = 53
	V10  = 54
	V11  = 55
	V12  = 56
	V13  = 57
)

// Class, field, method, and module access flags (JVMS §4.1, §4.5, §4.6, §4.7.25).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccOpen         = 0x0020
	AccTransitive   = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccStaticPhase  = 0x0040
	AccVarargs      = 0x0080
	AccTransient    = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccMandated     = 0x8000
	AccModule       = 0x8000
	AccDeprecated   = 0x20000 // synthesized from the Deprecated attribute, not a real flag bit
)

// Reference kinds for CONSTANT_MethodHandle_info (JVMS §4.4.8).
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

// newarray type codes (JVMS §6.5.newarray).
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

// Instruction opcodes (JVMS §6.5). Grouped by operand shape.
const (
	Nop         = 0
	AconstNull  = 1
	IconstM1    = 2
	Iconst0     = 3
	Iconst1     = 4
	Iconst2     = 5
	Iconst3     = 6
	Iconst4     = 7
	Iconst5     = 8
	Lconst0     = 9
	Lconst1     = 10
	Fconst0     = 11
	Fconst1     = 12
	Fconst2     = 13
	Dconst0     = 14
	Dconst1     = 15
	Bipush      = 16
	Sipush      = 17
	Ldc         = 18
	LdcW        = 19
	Ldc2W       = 20
	Iload       = 21
	Lload       = 22
	Fload       = 23
	Dload       = 24
	Aload       = 25
	Iload0      = 26
	Iload1      = 27
	Iload2      = 28
	Iload3      = 29
	Lload0      = 30
	Lload1      = 31
	Lload2      = 32
	Lload3      = 33
	Fload0      = 34
	Fload1      = 35
	Fload2      = 36
	Fload3      = 37
	Dload0      = 38
	Dload1      = 39
	Dload2      = 40
	Dload3      = 41
	Aload0      = 42
	Aload1      = 43
	Aload2      = 44
	Aload3      = 45
	Iaload      = 46
	Laload      = 47
	Faload      = 48
	Daload      = 49
	Aaload      = 50
	Baload      = 51
	Caload      = 52
	Saload      = 53
	Istore      = 54
	Lstore      = 55
	Fstore      = 56
	Dstore      = 57
	Astore      = 58
	Istore0     = 59
	Istore1     = 60
	Istore2     = 61
	Istore3     = 62
	Lstore0     = 63
	Lstore1     = 64
	Lstore2     = 65
	Lstore3     = 66
	Fstore0     = 67
	Fstore1     = 68
	Fstore2     = 69
	Fstore3     = 70
	Dstore0     = 71
	Dstore1     = 72
	Dstore2     = 73
	Dstore3     = 74
	Astore0     = 75
	Astore1     = 76
	Astore2     = 77
	Astore3     = 78
	Iastore     = 79
	Lastore     = 80
	Fastore     = 81
	Dastore     = 82
	Aastore     = 83
	Bastore     = 84
	Castore     = 85
	Sastore     = 86
	Pop         = 87
	Pop2        = 88
	Dup         = 89
	DupX1       = 90
	DupX2       = 91
	Dup2        = 92
	Dup2X1      = 93
	Dup2X2      = 94
	Swap        = 95
	Iadd        = 96
	Ladd        = 97
	Fadd        = 98
	Dadd        = 99
	Isub        = 100
	Lsub        = 101
	Fsub        = 102
	Dsub        = 103
	Imul        = 104
	Lmul        = 105
	Fmul        = 106
	Dmul        = 107
	Idiv        = 108
	Ldiv        = 109
	Fdiv        = 110
	Ddiv        = 111
	Irem        = 112
	Lrem        = 113
	Frem        = 114
	Drem        = 115
	Ineg        = 116
	Lneg        = 117
	Fneg        = 118
	Dneg        = 119
	Ishl        = 120
	Lshl        = 121
	Ishr        = 122
	Lshr        = 123
	Iushr       = 124
	Lushr       = 125
	Iand        = 126
	Land        = 127
	Ior         = 128
	Lor         = 129
	Ixor        = 130
	Lxor        = 131
	Iinc        = 132
	I2l         = 133
	I2f         = 134
	I2d         = 135
	L2i         = 136
	L2f         = 137
	L2d         = 138
	F2i         = 139
	F2l         = 140
	F2d         = 141
	D2i         = 142
	D2l         = 143
	D2f         = 144
	I2b         = 145
	I2c         = 146
	I2s         = 147
	Lcmp        = 148
	Fcmpl       = 149
	Fcmpg       = 150
	Dcmpl       = 151
	Dcmpg       = 152
	Ifeq        = 153
	Ifne        = 154
	Iflt        = 155
	Ifge        = 156
	Ifgt        = 157
	Ifle        = 158
	IfIcmpeq    = 159
	IfIcmpne    = 160
	IfIcmplt    = 161
	IfIcmpge    = 162
	IfIcmpgt    = 163
	IfIcmple    = 164
	IfAcmpeq    = 165
	IfAcmpne    = 166
	Goto        = 167
	Jsr         = 168
	Ret         = 169
	Tableswitch = 170
	Lookupswitch = 171
	Ireturn     = 172
	Lreturn     = 173
	Freturn     = 174
	Dreturn     = 175
	Areturn     = 176
	Return      = 177
	Getstatic   = 178
	Putstatic   = 179
	Getfield    = 180
	Putfield    = 181
	Invokevirtual   = 182
	Invokespecial   = 183
	Invokestatic    = 184
	Invokeinterface = 185
	Invokedynamic   = 186
	New             = 187
	Newarray        = 188
	Anewarray       = 189
	Arraylength     = 190
	Athrow          = 191
	Checkcast       = 192
	Instanceof      = 193
	Monitorenter    = 194
	Monitorexit     = 195
	Wide            = 196
	Multianewarray  = 197
	Ifnull          = 198
	Ifnonnull       = 199
	GotoW           = 200
	JsrW            = 201
)

// OperandShape classifies how an instruction's operands are encoded, driving
// both the Instructions Parser (which operand grammar to use) and the Code
// Composer (how many bytes to emit and whether a wide/short variant exists).
type OperandShape int

const (
	ShapeNone OperandShape = iota
	ShapeVarInsn
	ShapeIincInsn
	ShapeIntInsn    // bipush/sipush/newarray
	ShapeTypeInsn   // new/anewarray/checkcast/instanceof
	ShapeMultiANewArray
	ShapeFieldInsn
	ShapeMethodInsn
	ShapeInvokeInterface
	ShapeInvokeDynamic
	ShapeLdc
	ShapeBranch
	ShapeTableSwitch
	ShapeLookupSwitch
)

// Mnemonic is the textual JBC mnemonic for an opcode (lowercase, matching
// the JBC surface syntax of ).
var Mnemonic = map[int]string{
	Nop: "nop", AconstNull: "aconst_null", IconstM1: "iconst_m1", Iconst0: "iconst_0",
	Iconst1: "iconst_1", Iconst2: "iconst_2", Iconst3: "iconst_3", Iconst4: "iconst_4",
	Iconst5: "iconst_5", Lconst0: "lconst_0", Lconst1: "lconst_1", Fconst0: "fconst_0",
	Fconst1: "fconst_1", Fconst2: "fconst_2", Dconst0: "dconst_0", Dconst1: "dconst_1",
	Bipush: "bipush", Sipush: "sipush", Ldc: "ldc", LdcW: "ldc_w", Ldc2W: "ldc2_w",
	Iload: "iload", Lload: "lload", Fload: "fload", Dload: "dload", Aload: "aload",
	Iload0: "iload_0", Iload1: "iload_1", Iload2: "iload_2", Iload3: "iload_3",
	Lload0: "lload_0", Lload1: "lload_1", Lload2: "lload_2", Lload3: "lload_3",
	Fload0: "fload_0", Fload1: "fload_1", Fload2: "fload_2", Fload3: "fload_3",
	Dload0: "dload_0", Dload1: "dload_1", Dload2: "dload_2", Dload3: "dload_3",
	Aload0: "aload_0", Aload1: "aload_1", Aload2: "aload_2", Aload3: "aload_3",
	Iaload: "iaload", Laload: "laload", Faload: "faload", Daload: "daload",
	Aaload: "aaload", Baload: "baload", Caload: "caload", Saload: "saload",
	Istore: "istore", Lstore: "lstore", Fstore: "fstore", Dstore: "dstore", Astore: "astore",
	Istore0: "istore_0", Istore1: "istore_1", Istore2: "istore_2", Istore3: "istore_3",
	Lstore0: "lstore_0", Lstore1: "lstore_1", Lstore2: "lstore_2", Lstore3: "lstore_3",
	Fstore0: "fstore_0", Fstore1: "fstore_1", Fstore2: "fstore_2", Fstore3: "fstore_3",
	Dstore0: "dstore_0", Dstore1: "dstore_1", Dstore2: "dstore_2", Dstore3: "dstore_3",
	Astore0: "astore_0", Astore1: "astore_1", Astore2: "astore_2", Astore3: "astore_3",
	Iastore: "iastore", Lastore: "lastore", Fastore: "fastore", Dastore: "dastore",
	Aastore: "aastore", Bastore: "bastore", Castore: "castore", Sastore: "sastore",
	Pop: "pop", Pop2: "pop2", Dup: "dup", DupX1: "dup_x1", DupX2: "dup_x2",
	Dup2: "dup2", Dup2X1: "dup2_x1", Dup2X2: "dup2_x2", Swap: "swap",
	Iadd: "iadd", Ladd: "ladd", Fadd: "fadd", Dadd: "dadd",
	Isub: "isub", Lsub: "lsub", Fsub: "fsub", Dsub: "dsub",
	Imul: "imul", Lmul: "lmul", Fmul: "fmul", Dmul: "dmul",
	Idiv: "idiv", Ldiv: "ldiv", Fdiv: "fdiv", Ddiv: "ddiv",
	Irem: "irem", Lrem: "lrem", Frem: "frem", Drem: "drem",
	Ineg: "ineg", Lneg: "lneg", Fneg: "fneg", Dneg: "dneg",
	Ishl: "ishl", Lshl: "lshl", Ishr: "ishr", Lshr: "lshr",
	Iushr: "iushr", Lushr: "lushr", Iand: "iand", Land: "land",
	Ior: "ior", Lor: "lor", Ixor: "ixor", Lxor: "lxor",
	Iinc: "iinc", I2l: "i2l", I2f: "i2f", I2d: "i2d", L2i: "l2i", L2f: "l2f", L2d: "l2d",
	F2i: "f2i", F2l: "f2l", F2d: "f2d", D2i: "d2i", D2l: "d2l", D2f: "d2f",
	I2b: "i2b", I2c: "i2c", I2s: "i2s",
	Lcmp: "lcmp", Fcmpl: "fcmpl", Fcmpg: "fcmpg", Dcmpl: "dcmpl", Dcmpg: "dcmpg",
	Ifeq: "ifeq", Ifne: "ifne", Iflt: "iflt", Ifge: "ifge", Ifgt: "ifgt", Ifle: "ifle",
	IfIcmpeq: "if_icmpeq", IfIcmpne: "if_icmpne", IfIcmplt: "if_icmplt",
	IfIcmpge: "if_icmpge", IfIcmpgt: "if_icmpgt", IfIcmple: "if_icmple",
	IfAcmpeq: "if_acmpeq", IfAcmpne: "if_acmpne",
	Goto: "goto", Jsr: "jsr", Ret: "ret",
	Tableswitch: "tableswitch", Lookupswitch: "lookupswitch",
	Ireturn: "ireturn", Lreturn: "lreturn", Freturn: "freturn", Dreturn: "dreturn",
	Areturn: "areturn", Return: "return",
	Getstatic: "getstatic", Putstatic: "putstatic", Getfield: "getfield", Putfield: "putfield",
	Invokevirtual: "invokevirtual", Invokespecial: "invokespecial", Invokestatic: "invokestatic",
	Invokeinterface: "invokeinterface", Invokedynamic: "invokedynamic",
	New: "new", Newarray: "newarray", Anewarray: "anewarray", Arraylength: "arraylength",
	Athrow: "athrow", Checkcast: "checkcast", Instanceof: "instanceof",
	Monitorenter: "monitorenter", Monitorexit: "monitorexit",
	Multianewarray: "multianewarray", Ifnull: "ifnull", Ifnonnull: "ifnonnull",
	GotoW: "goto_w", JsrW: "jsr_w",
}

// MnemonicToOpcode is the inverse of Mnemonic, built once at init time and
// consulted by the Instructions Parser for every bare-word token.
var MnemonicToOpcode = func() map[string]int {
	m := make(map[string]int, len(Mnemonic))
	for op, name := range Mnemonic {
		m[name] = op
	}
	return m
}()

// Shape reports how an opcode's operands are laid out.
func Shape(opcode int) OperandShape {
	switch opcode {
	case Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret:
		return ShapeVarInsn
	case Iinc:
		return ShapeIincInsn
	case Bipush, Sipush, Newarray:
		return ShapeIntInsn
	case New, Anewarray, Checkcast, Instanceof:
		return ShapeTypeInsn
	case Multianewarray:
		return ShapeMultiANewArray
	case Getstatic, Putstatic, Getfield, Putfield:
		return ShapeFieldInsn
	case Invokevirtual, Invokespecial, Invokestatic:
		return ShapeMethodInsn
	case Invokeinterface:
		return ShapeInvokeInterface
	case Invokedynamic:
		return ShapeInvokeDynamic
	case Ldc, LdcW, Ldc2W:
		return ShapeLdc
	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle, IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge,
		IfIcmpgt, IfIcmple, IfAcmpeq, IfAcmpne, Goto, Jsr, Ifnull, Ifnonnull, GotoW, JsrW:
		return ShapeBranch
	case Tableswitch:
		return ShapeTableSwitch
	case Lookupswitch:
		return ShapeLookupSwitch
	default:
		return ShapeNone
	}
}

// IsWideable reports whether opcode has a "_w"-suffixed or wide-prefixed
// counterpart in the JBC surface syntax (: the `_w` mnemonic suffix
// sets the wide flag for var instructions; goto/jsr widen to goto_w/jsr_w).
func IsWideable(opcode int) bool {
	switch Shape(opcode) {
	case ShapeVarInsn, ShapeIincInsn:
		return true
	}
	return opcode == Goto || opcode == Jsr
}

// WideBranch returns the _w variant of a goto/jsr opcode.
func WideBranch(opcode int) int {
	switch opcode {
	case Goto:
		return GotoW
	case Jsr:
		return JsrW
	}
	return opcode
}
