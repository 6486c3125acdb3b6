// Package preverify defines the external collaborator of // "Preverifier": given the class currently being assembled and a pool of
// library classes resolved from the classpath, mutate every eligible method
// in place to attach a StackMapTable. Full stack-map frame inference (a
// bytecode type-flow analysis over the library pool) is explicitly out of
// scope for this repository (Non-goals: "stack-map generation /
// preverification belong to the external preverifier only") — this package
// supplies the interface and the hook `cmd/assembler` calls, plus a
// conservative Default that never emits an incorrect frame table.
package preverify

import "github.com/Guardsquare/proguard-assembler/classfile"

// libraryClassVersion is the first class file major version (Java SE 6,
// JVMS history) at which the JVM verifier requires a StackMapTable.
const libraryClassVersion = 50

// Preverifier is the collaborator interface; cmd/assembler calls it after
// every successful assembly, with an empty Library when no classpath was
// supplied.
type Preverifier interface {
	Preverify(cls *classfile.ProgramClass, library *Library) error
}

// Library is a pool of library classes loaded from the classpath, keyed by
// internal name, used to resolve field/method ownership and supertype
// chains during frame inference.
type Library struct {
	classes map[string]*classfile.ProgramClass
}

// NewLibrary returns an empty library pool.
func NewLibrary() *Library {
	return &Library{classes: make(map[string]*classfile.ProgramClass)}
}

// Add registers a class in the library pool, keyed by its internal name.
func (l *Library) Add(cls *classfile.ProgramClass) {
	l.classes[cls.ThisClass] = cls
}

// Lookup resolves an internal class name against the library pool.
func (l *Library) Lookup(internalName string) (*classfile.ProgramClass, bool) {
	cls, ok := l.classes[internalName]
	return cls, ok
}

// Eligible reports whether a method needs a StackMapTable under the JVM
// verifier: it has a Code attribute, and its owning class is at least
// version 50 (Java SE 6).
func Eligible(cls *classfile.ProgramClass, m *classfile.Method) bool {
	return m.Code != nil && cls.MajorVersion >= libraryClassVersion
}

// Default is the built-in Preverifier wired into cmd/assembler. It never
// emits a StackMapTable: computing one correctly requires verifying every
// instruction's operand-stack and local-variable types against the library
// pool's inheritance graph, which this repository does not implement (see
// DESIGN.md). Leaving CodeAttribute.StackMapTable unset is always safe —
// the class still round-trips byte-for-byte through assemble/disassemble —
// whereas a wrong frame table would make the class unverifiable. Default
// exists so the collaborator boundary (and the classpath argument that feeds
// it a Library) is exercised end to end even though no real preverifier
// backs it.
type Default struct{}

// Preverify implements Preverifier. It is a deliberate no-op; see the type
// doc comment for why that is the correct conservative behavior here.
func (Default) Preverify(cls *classfile.ProgramClass, library *Library) error {
	return nil
}
