package preverify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Guardsquare/proguard-assembler/classfile"
)

func TestEligibleRequiresCodeAndVersion(t *testing.T) {
	withCode := &classfile.Method{Code: &classfile.CodeAttribute{}}
	withoutCode := &classfile.Method{}

	old := &classfile.ProgramClass{MajorVersion: 49}
	modern := &classfile.ProgramClass{MajorVersion: 52}

	assert.False(t, Eligible(old, withCode), "a pre-SE6 class never needs a StackMapTable")
	assert.False(t, Eligible(modern, withoutCode), "an abstract/native method has no code to verify")
	assert.True(t, Eligible(modern, withCode))
}

func TestDefaultPreverifyIsNoop(t *testing.T) {
	cls := &classfile.ProgramClass{
		MajorVersion: 52,
		Methods: []*classfile.Method{
			{Code: &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 1}},
		},
	}

	err := Default{}.Preverify(cls, NewLibrary())
	assert.NoError(t, err)
	assert.Nil(t, cls.Methods[0].Code.StackMapTable, "Default must never attach a frame table it cannot compute correctly")
}

func TestLibraryAddAndLookup(t *testing.T) {
	lib := NewLibrary()
	_, ok := lib.Lookup("com/example/Foo")
	assert.False(t, ok)

	cls := &classfile.ProgramClass{ThisClass: "com/example/Foo"}
	lib.Add(cls)

	got, ok := lib.Lookup("com/example/Foo")
	assert.True(t, ok)
	assert.Same(t, cls, got)
}
