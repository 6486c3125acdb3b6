// Package jbc wires the Token Source, Parser, Printer, and the binary
// classfile reader/writer into the two translation directions a caller
// actually wants: Assemble (JBC text -> classfile.ProgramClass -> .class
// bytes) and Disassemble (.class bytes -> classfile.ProgramClass -> JBC
// text), driving one class at a time.
package jbc

import (
	"bytes"
	"io"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/lexer"
	"github.com/Guardsquare/proguard-assembler/parser"
	"github.com/Guardsquare/proguard-assembler/printer"
)

// ParseText reads JBC source text from r and returns the class model it
// describes, without touching any binary representation. Exposed
// separately from Assemble so jbc's own round-trip tests, and any caller
// that only wants the in-memory model, don't have to serialize to bytes
// first.
func ParseText(r io.Reader) (*classfile.ProgramClass, error) {
	pool := classfile.NewConstantPool()
	ts := lexer.New(r)
	p := parser.New(ts, pool)
	return p.ParseClass()
}

// PrintText renders a class model as JBC text.
func PrintText(cls *classfile.ProgramClass, w io.Writer) error {
	return printer.PrintClass(cls, w)
}

// Assemble translates JBC source text into a binary .class file. It parses
// the text into a class model and immediately serializes that model to
// bytes, so a caller never has to juggle the two steps separately.
func Assemble(r io.Reader) ([]byte, error) {
	cls, err := ParseText(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := classfile.WriteClass(cls, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Disassemble translates a binary .class file into JBC source text, the
// binary-input half of bidirectional translator.
func Disassemble(r io.Reader, w io.Writer) error {
	cls, err := classfile.ReadClass(r)
	if err != nil {
		return err
	}
	return printer.PrintClass(cls, w)
}
