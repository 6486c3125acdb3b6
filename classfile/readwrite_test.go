package classfile

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

// TestWriteReadRoundTrips builds a class model directly (bypassing the
// parser, since this test lives in package classfile), serialises it, reads
// it back, and diffs the two models structurally. The Pool field is excluded
// from the diff since ReadClass allocates a fresh *ConstantPool with its own
// internal layout; everything the pool is reachable through (names,
// descriptors, constant values) is already flattened onto the model itself
// and is covered by the rest of the diff.
func TestWriteReadRoundTrips(t *testing.T) {
	pool := NewConstantPool()
	cls := &ProgramClass{
		Pool:         pool,
		MajorVersion: 52,
		MinorVersion: 0,
		AccessFlags:  0x0021, // ACC_PUBLIC | ACC_SUPER
		ThisClass:    "com/example/Foo",
		SuperClass:   "java/lang/Object",
		Interfaces:   []string{"java/io/Serializable"},
		SourceFile:   "Foo.java",
		Signature:    "Lcom/example/Foo;",
		Fields: []*Field{
			{
				AccessFlags:      0x0002, // ACC_PRIVATE
				Name:             "count",
				Descriptor:       "I",
				HasConstantValue: true,
				ConstantValue:    pool.Integer(7),
			},
		},
	}

	method := &Method{
		AccessFlags: 0x0001, // ACC_PUBLIC
		Name:        "get",
		Descriptor:  "()I",
		Code: &CodeAttribute{
			MaxStack:  1,
			MaxLocals: 1,
			Code:      []byte{0x1A, 0xAC}, // iload_0; ireturn
			LineNumbers: []LineNumberInfo{
				{Start: newResolvedLabel(0), Line: 10},
			},
		},
	}
	cls.Methods = append(cls.Methods, method)

	var buf bytes.Buffer
	require.NoError(t, WriteClass(cls, &buf))

	got, err := ReadClass(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	opts := []cmp.Option{
		cmpopts.IgnoreFields(ProgramClass{}, "Pool"),
		cmp.Comparer(func(a, b *Label) bool {
			if a == nil || b == nil {
				return a == b
			}
			return a.Offset() == b.Offset()
		}),
	}
	if diff := cmp.Diff(cls, got, opts...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
