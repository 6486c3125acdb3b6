package classfile

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/internal/cptag"
)

// Entry is one constant_pool slot (JVMS §4.4). Index 0 is never used (the
// JVM reserves it); long/double entries consume the slot that follows them
// too, and that phantom second slot holds an empty Entry (Tag 0).
type Entry struct {
	Tag int

	// Utf8
	UTF8 string
	// Integer / Float
	Int32   int32
	Float32 float32
	// Long / Double
	Int64   int64
	Float64 float64
	// Class, String, MethodType, Module, Package: an index into the pool.
	Index1 int
	// Fieldref, Methodref, InterfaceMethodref, NameAndType, Dynamic,
	// InvokeDynamic: a second index.
	Index2 int
	// MethodHandle
	RefKind int
}

// ConstantPool is the editor described in "Constant pool (interface
// consumed from class-model library)": a 1-based, deduplicating, growable
// table, built up as JBC text is parsed or filled from class bytes by
// ReadClass.
type ConstantPool struct {
	entries []Entry // entries[0] is the reserved slot
	dedup   map[string]int
}

// NewConstantPool returns an empty pool with only the reserved slot 0.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: []Entry{{}},
		dedup:   make(map[string]int),
	}
}

// Count returns one past the highest valid index (i.e. the constant_pool_count
// field of the class file).
func (p *ConstantPool) Count() int {
	return len(p.entries)
}

// Get returns the entry at a 1-based index.
func (p *ConstantPool) Get(index int) Entry {
	return p.entries[index]
}

func (p *ConstantPool) add(key string, e Entry) int {
	if idx, ok := p.dedup[key]; ok {
		return idx
	}
	idx := len(p.entries)
	p.entries = append(p.entries, e)
	if cptag.Slots(e.Tag) == 2 {
		p.entries = append(p.entries, Entry{}) // phantom second slot
	}
	p.dedup[key] = idx
	return idx
}

// UTF8 interns a UTF-8 string constant and returns its index.
func (p *ConstantPool) UTF8(s string) int {
	return p.add("u:"+s, Entry{Tag: cptag.Utf8, UTF8: s})
}

// Integer interns an int constant.
func (p *ConstantPool) Integer(v int32) int {
	return p.add(fmt.Sprintf("i:%d", v), Entry{Tag: cptag.Integer, Int32: v})
}

// Float interns a float constant.
func (p *ConstantPool) Float(v float32) int {
	return p.add(fmt.Sprintf("f:%x", v), Entry{Tag: cptag.Float, Float32: v})
}

// Long interns a long constant (consumes two pool slots).
func (p *ConstantPool) Long(v int64) int {
	return p.add(fmt.Sprintf("l:%d", v), Entry{Tag: cptag.Long, Int64: v})
}

// Double interns a double constant (consumes two pool slots).
func (p *ConstantPool) Double(v float64) int {
	return p.add(fmt.Sprintf("d:%x", v), Entry{Tag: cptag.Double, Float64: v})
}

// Class interns a CONSTANT_Class_info by internal name (e.g. "java/lang/String").
func (p *ConstantPool) Class(internalName string) int {
	nameIdx := p.UTF8(internalName)
	return p.add(fmt.Sprintf("c:%d", nameIdx), Entry{Tag: cptag.Class, Index1: nameIdx})
}

// StringConst interns a CONSTANT_String_info.
func (p *ConstantPool) StringConst(value string) int {
	utfIdx := p.UTF8(value)
	return p.add(fmt.Sprintf("s:%d", utfIdx), Entry{Tag: cptag.String, Index1: utfIdx})
}

// NameAndType interns a CONSTANT_NameAndType_info.
func (p *ConstantPool) NameAndType(name, descriptor string) int {
	n := p.UTF8(name)
	d := p.UTF8(descriptor)
	return p.add(fmt.Sprintf("nt:%d:%d", n, d), Entry{Tag: cptag.NameAndType, Index1: n, Index2: d})
}

// Fieldref interns a CONSTANT_Fieldref_info.
func (p *ConstantPool) Fieldref(owner, name, descriptor string) int {
	c := p.Class(owner)
	nt := p.NameAndType(name, descriptor)
	return p.add(fmt.Sprintf("fr:%d:%d", c, nt), Entry{Tag: cptag.Fieldref, Index1: c, Index2: nt})
}

// Methodref interns a CONSTANT_Methodref_info.
func (p *ConstantPool) Methodref(owner, name, descriptor string) int {
	c := p.Class(owner)
	nt := p.NameAndType(name, descriptor)
	return p.add(fmt.Sprintf("mr:%d:%d", c, nt), Entry{Tag: cptag.Methodref, Index1: c, Index2: nt})
}

// InterfaceMethodref interns a CONSTANT_InterfaceMethodref_info.
func (p *ConstantPool) InterfaceMethodref(owner, name, descriptor string) int {
	c := p.Class(owner)
	nt := p.NameAndType(name, descriptor)
	return p.add(fmt.Sprintf("imr:%d:%d", c, nt), Entry{Tag: cptag.InterfaceMethodref, Index1: c, Index2: nt})
}

// MethodType interns a CONSTANT_MethodType_info.
func (p *ConstantPool) MethodType(descriptor string) int {
	d := p.UTF8(descriptor)
	return p.add(fmt.Sprintf("mt:%d", d), Entry{Tag: cptag.MethodType, Index1: d})
}

// MethodHandle interns a CONSTANT_MethodHandle_info; refIndex must already
// point at a Fieldref/Methodref/InterfaceMethodref entry.
func (p *ConstantPool) MethodHandle(kind int, refIndex int) int {
	return p.add(fmt.Sprintf("mh:%d:%d", kind, refIndex), Entry{Tag: cptag.MethodHandle, RefKind: kind, Index1: refIndex})
}

// Dynamic interns a CONSTANT_Dynamic_info; bootstrapIndex is an index into
// the class's BootstrapMethods attribute.
func (p *ConstantPool) Dynamic(bootstrapIndex int, name, descriptor string) int {
	nt := p.NameAndType(name, descriptor)
	return p.add(fmt.Sprintf("dyn:%d:%d", bootstrapIndex, nt), Entry{Tag: cptag.Dynamic, Index1: bootstrapIndex, Index2: nt})
}

// InvokeDynamic interns a CONSTANT_InvokeDynamic_info.
func (p *ConstantPool) InvokeDynamic(bootstrapIndex int, name, descriptor string) int {
	nt := p.NameAndType(name, descriptor)
	return p.add(fmt.Sprintf("idyn:%d:%d", bootstrapIndex, nt), Entry{Tag: cptag.InvokeDynamic, Index1: bootstrapIndex, Index2: nt})
}

// Module interns a CONSTANT_Module_info.
func (p *ConstantPool) Module(name string) int {
	n := p.UTF8(name)
	return p.add(fmt.Sprintf("mod:%d", n), Entry{Tag: cptag.Module, Index1: n})
}

// Package interns a CONSTANT_Package_info.
func (p *ConstantPool) Package(name string) int {
	n := p.UTF8(name)
	return p.add(fmt.Sprintf("pkg:%d", n), Entry{Tag: cptag.Package, Index1: n})
}

// ClassName resolves a CONSTANT_Class_info index back to its internal name.
func (p *ConstantPool) ClassName(classIndex int) string {
	return p.Get(p.Get(classIndex).Index1).UTF8
}

// NameAndTypeOf resolves a CONSTANT_NameAndType_info index to (name, descriptor).
func (p *ConstantPool) NameAndTypeOf(ntIndex int) (string, string) {
	e := p.Get(ntIndex)
	return p.Get(e.Index1).UTF8, p.Get(e.Index2).UTF8
}
