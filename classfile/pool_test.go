package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantPoolDedup(t *testing.T) {
	pool := NewConstantPool()

	a := pool.UTF8("java/lang/String")
	b := pool.UTF8("java/lang/String")
	assert.Equal(t, a, b, "interning the same UTF8 twice should return the same index")

	c := pool.Class("java/lang/String")
	d := pool.Class("java/lang/String")
	assert.Equal(t, c, d)

	intIdx := pool.Integer(42)
	assert.Equal(t, intIdx, pool.Integer(42))
	assert.NotEqual(t, intIdx, pool.Integer(43))
}

func TestConstantPoolLongDoubleReserveTwoSlots(t *testing.T) {
	pool := NewConstantPool()

	before := pool.Count()
	longIdx := pool.Long(123456789)
	assert.Equal(t, before+2, pool.Count(), "a Long entry should reserve its own slot plus a phantom slot")
	assert.Equal(t, int64(123456789), pool.Get(longIdx).Int64)

	before = pool.Count()
	doubleIdx := pool.Double(3.5)
	assert.Equal(t, before+2, pool.Count(), "a Double entry should reserve its own slot plus a phantom slot")
	assert.Equal(t, 3.5, pool.Get(doubleIdx).Float64)
}

func TestConstantPoolFieldrefSharesNameAndType(t *testing.T) {
	pool := NewConstantPool()

	f1 := pool.Fieldref("com/example/Foo", "bar", "I")
	f2 := pool.Fieldref("com/example/Foo", "bar", "I")
	assert.Equal(t, f1, f2)

	f3 := pool.Fieldref("com/example/Foo", "baz", "I")
	assert.NotEqual(t, f1, f3)

	name, descriptor := pool.NameAndTypeOf(pool.Get(f1).Index2)
	assert.Equal(t, "bar", name)
	assert.Equal(t, "I", descriptor)
	assert.Equal(t, "com/example/Foo", pool.ClassName(pool.Get(f1).Index1))
}
