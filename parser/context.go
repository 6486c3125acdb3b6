// Package parser implements the JBC-text → class-model half of the
// translator: the expectation layer, constant translator's parse
// direction, class/member parser, attribute parser, annotations parser,
// and instructions parser.
package parser

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

// Parser holds every per-translation-unit resource the grammar needs: the
// token stream, the imports table, the constant pool being built, and (while
// inside a method body) the current label map and code composer. All of it
// is scoped to one class file and discarded once Parse returns.
type Parser struct {
	ts      *lexer.TokenSource
	imports map[string]string
	pool    *classfile.ConstantPool

	// currentClass is the internal name of the class currently being
	// parsed, used to resolve a bare '#' in a field/method reference to
	// the class being defined.
	currentClass string

	// labels is reset at the start of every method body (one label
	// namespace per method, "Label map").
	labels map[string]*classfile.Label

	// syntheticLabels counts anonymous labels minted for pseudo-instructions
	// that need a position marker but no user-visible name (line,
	// startlocalvar/endlocalvar).
	syntheticLabels int
}

// New creates a Parser reading from ts and building into pool.
func New(ts *lexer.TokenSource, pool *classfile.ConstantPool) *Parser {
	return &Parser{
		ts:      ts,
		imports: make(map[string]string),
		pool:    pool,
	}
}

// Pool returns the constant pool this parser is interning into.
func (p *Parser) Pool() *classfile.ConstantPool { return p.pool }

// Line returns the current 1-based source line, for building ParseErrors
// outside of the expect_* helpers.
func (p *Parser) Line() int { return p.ts.Line() }

// addImport records a "import dotted.Name;" declaration: the imports table
// maps the simple (last-component) name to the full dotted name (// "Imports table").
func (p *Parser) addImport(dotted string) {
	simple := dotted
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			simple = dotted[i+1:]
			break
		}
	}
	p.imports[simple] = dotted
}

// resetLabels starts a fresh label namespace for a new method body.
func (p *Parser) resetLabels() {
	p.labels = make(map[string]*classfile.Label)
	p.syntheticLabels = 0
}

// newSyntheticLabel mints a fresh, unnamed Label for pseudo-instructions
// that mark a position but have no source-level label name.
func (p *Parser) newSyntheticLabel() *classfile.Label {
	p.syntheticLabels++
	return classfile.NewLabel(fmt.Sprintf("<synthetic-%d>", p.syntheticLabels))
}

// label returns the *Label for name, creating it on first mention so that a
// forward reference and its later definition share the same object.
func (p *Parser) label(name string) *classfile.Label {
	if l, ok := p.labels[name]; ok {
		return l
	}
	l := classfile.NewLabel(name)
	p.labels[name] = l
	return l
}
