package jbc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guardsquare/proguard-assembler/classfile"
)

// helloWorld is scenario S1.
const helloWorld = `
import java.lang.String;
import java.lang.System;
import java.io.PrintStream;
version 8;
public class Hello {
    public static void main(final String[] args) {
        getstatic System#PrintStream out
        ldc "Hello World!"
        invokevirtual PrintStream#void println(String)
        return
    }
}
`

func TestAssembleHelloWorld(t *testing.T) {
	data, err := Assemble(strings.NewReader(helloWorld))
	require.NoError(t, err)

	cls, err := classfile.ReadClass(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 52, cls.MajorVersion)
	assert.Equal(t, "Hello", cls.ThisClass)
	require.Len(t, cls.Methods, 1)

	m := cls.Methods[0]
	assert.Equal(t, "main", m.Name)
	assert.Equal(t, "([Ljava/lang/String;)V", m.Descriptor)
	require.NotNil(t, m.Code)

	decoded, err := classfile.DecodeInstructions(m.Code.Code)
	require.NoError(t, err)
	require.Len(t, decoded, 4)

	mnemonics := make([]string, len(decoded))
	for i, in := range decoded {
		mnemonics[i] = opcodeName(in.Opcode)
	}
	assert.Equal(t, []string{"getstatic", "ldc", "invokevirtual", "return"}, mnemonics)
}

// TestAssembleThenDisassembleRoundTrips is round-trip law 2, applied
// to S1: disassembling assemble(S) and assembling the result again must
// give the same class bytes.
func TestAssembleThenDisassembleRoundTrips(t *testing.T) {
	data, err := Assemble(strings.NewReader(helloWorld))
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, Disassemble(bytes.NewReader(data), &text))

	data2, err := Assemble(strings.NewReader(text.String()))
	require.NoError(t, err)
	assert.Equal(t, data, data2, "re-assembling the disassembly should reproduce the same bytes")
}

// branchBody is scenario S2.
const branchBody = `
public class BranchTest {
    public int test(int x) {
        iload_1
        ifeq skip
        iconst_1
        ireturn
        skip:
        iconst_0
        ireturn
    }
}
`

func TestDisassembleRenamesLabels(t *testing.T) {
	data, err := Assemble(strings.NewReader(branchBody))
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, Disassemble(bytes.NewReader(data), &text))
	out := text.String()

	assert.Contains(t, out, "ifeq label1;")
	assert.Contains(t, out, "label1:")
	assert.NotContains(t, out, "skip")
}

// enumDecl is scenario S5.
const enumDecl = `public enum E;`

func TestEnumDefaultSuper(t *testing.T) {
	cls, err := ParseText(strings.NewReader(enumDecl))
	require.NoError(t, err)

	assert.Equal(t, "java/lang/Enum", cls.SuperClass)
	const wantFlags = 0x0020 /* ACC_SUPER */ | 0x4000 /* ACC_ENUM */ | 0x0001 /* ACC_PUBLIC */
	assert.Equal(t, wantFlags, cls.AccessFlags)
}

// invalidOpcode is scenario S6.
const invalidOpcode = `
public class Bad {
    public void m() {
        apples
    }
}
`

func TestUnknownOpcodeIsParseError(t *testing.T) {
	_, err := ParseText(strings.NewReader(invalidOpcode))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apples")
}

// nonMonotonicSwitch is scenario S3.
const nonMonotonicSwitch = `
public class Switcher {
    public void m(int x) {
        iload_1
        lookupswitch default c { 3 : a ; 1 : b ; };
        a:
        b:
        c:
        return
    }
}
`

func TestLookupSwitchMustBeStrictlyIncreasing(t *testing.T) {
	_, err := ParseText(strings.NewReader(nonMonotonicSwitch))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}

// annotationElementValues is scenario S4.
const annotationElementValues = `
public class Annotated [
    RuntimeVisibleAnnotations {
        @Foo { x = 3.14d; y = "s"; z = (Array){ 1; 2; 3; }; }
    }
] {
}
`

func TestAnnotationElementValueInference(t *testing.T) {
	cls, err := ParseText(strings.NewReader(annotationElementValues))
	require.NoError(t, err)

	require.Len(t, cls.RuntimeVisibleAnnotations, 1)
	ann := cls.RuntimeVisibleAnnotations[0]
	require.Len(t, ann.Elements, 3)

	assert.Equal(t, byte('D'), ann.Elements[0].Value.Tag)
	assert.Equal(t, byte('s'), ann.Elements[1].Value.Tag)
	assert.Equal(t, byte('['), ann.Elements[2].Value.Tag)
	for _, v := range ann.Elements[2].Value.Array {
		assert.Equal(t, byte('I'), v.Tag)
	}
}

func opcodeName(op int) string {
	names := map[int]string{0xB2: "getstatic", 0x12: "ldc", 0xB6: "invokevirtual", 0xB1: "return"}
	if n, ok := names[op]; ok {
		return n
	}
	return "?"
}
