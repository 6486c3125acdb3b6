package parser

import (
	"strings"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

func (p *Parser) next() (lexer.Token, error) {
	return p.ts.Next()
}

func (p *Parser) pushBack() {
	p.ts.PushBack()
}

// ExpectWord consumes a Word token or fails.
func (p *Parser) ExpectWord() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind != lexer.Word {
		return "", jbcerr.Expected(tok.Line, "a word", tok.Describe())
	}
	return tok.Str, nil
}

// ExpectNumber consumes a Number token or fails.
func (p *Parser) ExpectNumber() (float64, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != lexer.Number {
		return 0, jbcerr.Expected(tok.Line, "a number", tok.Describe())
	}
	return tok.Num, nil
}

// ExpectString consumes a QuotedString token or fails.
func (p *Parser) ExpectString() (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind != lexer.QuotedString {
		return "", jbcerr.Expected(tok.Line, "a string", tok.Describe())
	}
	return tok.Str, nil
}

// ExpectChar consumes a QuotedChar token or fails.
func (p *Parser) ExpectChar() (rune, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != lexer.QuotedChar {
		return 0, jbcerr.Expected(tok.Line, "a char", tok.Describe())
	}
	return tok.Ch, nil
}

// ExpectPunct consumes a specific punctuation rune or fails.
func (p *Parser) ExpectPunct(c rune) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.Punct || tok.Ch != c {
		return jbcerr.Expected(tok.Line, "'"+string(c)+"'", tok.Describe())
	}
	return nil
}

// AcceptPunct reports whether the next token is punctuation c, consuming it
// on a match and pushing back on a miss.
func (p *Parser) AcceptPunct(c rune) (bool, error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	if tok.Kind == lexer.Punct && tok.Ch == c {
		return true, nil
	}
	p.pushBack()
	return false, nil
}

// AcceptWord reports whether the next token is the given word, consuming it
// on a match and pushing back on a miss.
func (p *Parser) AcceptWord(word string) (bool, error) {
	tok, err := p.next()
	if err != nil {
		return false, err
	}
	if tok.Kind == lexer.Word && tok.Str == word {
		return true, nil
	}
	p.pushBack()
	return false, nil
}

// ExpectKeyword consumes a word and fails unless it is a member of set;
// returns which one matched.
func (p *Parser) ExpectKeyword(set map[string]bool) (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	if tok.Kind != lexer.Word || !set[tok.Str] {
		return "", jbcerr.Expected(tok.Line, "one of a known keyword set", tok.Describe())
	}
	return tok.Str, nil
}

// ExpectType reads a word, resolves it through the imports table, consumes
// zero or more "[]" pairs, and returns the JVM-internal descriptor.
func (p *Parser) ExpectType() (string, error) {
	name, err := p.ExpectWord()
	if err != nil {
		return "", err
	}
	if full, ok := p.imports[name]; ok {
		name = full
	}
	external := name
	for {
		ok, err := p.AcceptPunct('[')
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		if err := p.ExpectPunct(']'); err != nil {
			return "", err
		}
		external += "[]"
	}
	return classfile.InternalType(external), nil
}

// ExpectMethodArgs reads "( type , type ... )" and returns "(T1T2...)".
func (p *Parser) ExpectMethodArgs() ([]string, error) {
	if err := p.ExpectPunct('('); err != nil {
		return nil, err
	}
	var args []string
	ok, err := p.AcceptPunct(')')
	if err != nil {
		return nil, err
	}
	if ok {
		return args, nil
	}
	for {
		t, err := p.ExpectType()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		ok, err := p.AcceptPunct(',')
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	if err := p.ExpectPunct(')'); err != nil {
		return nil, err
	}
	return args, nil
}

// ExpectMethodName accepts a plain word, or "<init>"/"<clinit>" written as
// angle-bracketed words (expect_method_name).
func (p *Parser) ExpectMethodName() (string, error) {
	ok, err := p.AcceptPunct('<')
	if err != nil {
		return "", err
	}
	if ok {
		name, err := p.ExpectWord()
		if err != nil {
			return "", err
		}
		if err := p.ExpectPunct('>'); err != nil {
			return "", err
		}
		return "<" + name + ">", nil
	}
	return p.ExpectWord()
}

// classAccessSugar maps the class-kind sugar keywords to the flags they add
// on top of their own bit.
var classAccessSugar = map[string]int{
	"class":      opcodes.AccSuper,
	"enum":       opcodes.AccSuper | opcodes.AccEnum,
	"interface":  opcodes.AccAbstract | opcodes.AccInterface,
	"module":     opcodes.AccModule,
	"@interface": opcodes.AccAbstract | opcodes.AccInterface | opcodes.AccAnnotation,
}

var accessFlagWords = map[string]int{
	"public":       opcodes.AccPublic,
	"private":      opcodes.AccPrivate,
	"protected":    opcodes.AccProtected,
	"static":       opcodes.AccStatic,
	"final":        opcodes.AccFinal,
	"super":        opcodes.AccSuper,
	"synchronized": opcodes.AccSynchronized,
	"volatile":     opcodes.AccVolatile,
	"transient":    opcodes.AccTransient,
	"bridge":       opcodes.AccBridge,
	"varargs":      opcodes.AccVarargs,
	"native":       opcodes.AccNative,
	"abstract":     opcodes.AccAbstract,
	"strictfp":     opcodes.AccStrict,
	"synthetic":    opcodes.AccSynthetic,
	"mandated":     opcodes.AccMandated,
	"open":         opcodes.AccOpen,
	"transitive":   opcodes.AccTransitive,
	"static_phase": opcodes.AccStaticPhase,
}

// ExpectAccessFlags accepts flag keywords until the next token is not a
// flag, returning their OR (expect_access_flags).
func (p *Parser) ExpectAccessFlags() (int, error) {
	flags := 0
	for {
		tok, err := p.next()
		if err != nil {
			return 0, err
		}
		if tok.Kind != lexer.Word {
			p.pushBack()
			return flags, nil
		}
		if bit, ok := accessFlagWords[tok.Str]; ok {
			flags |= bit
			continue
		}
		p.pushBack()
		return flags, nil
	}
}

// ExpectClassAccessFlags is ExpectAccessFlags plus the class-kind sugar
// keywords (class/enum/interface/module/@interface), each of which also
// terminates the flag list.
func (p *Parser) ExpectClassAccessFlags() (flags int, kind string, err error) {
	flags, err = p.ExpectAccessFlags()
	if err != nil {
		return 0, "", err
	}
	ok, err := p.AcceptPunct('@')
	if err != nil {
		return 0, "", err
	}
	if ok {
		if err := p.expectWordLiteral("interface"); err != nil {
			return 0, "", err
		}
		flags |= classAccessSugar["@interface"]
		return flags, "@interface", nil
	}
	tok, err := p.next()
	if err != nil {
		return 0, "", err
	}
	if tok.Kind == lexer.Word {
		if sugar, ok := classAccessSugar[tok.Str]; ok {
			flags |= sugar
			return flags, tok.Str, nil
		}
	}
	p.pushBack()
	return flags, "", jbcerr.Expected(p.Line(), "a class kind keyword", "something else")
}

func (p *Parser) expectWordLiteral(word string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.Word || tok.Str != word {
		return jbcerr.Expected(tok.Line, "word "+word, tok.Describe())
	}
	return nil
}

// ExpectOffset reads a label name, registering it with a fresh (unresolved)
// Label on first mention, and returns that Label (expect_offset).
func (p *Parser) ExpectOffset() (*classfile.Label, error) {
	name, err := p.ExpectWord()
	if err != nil {
		return nil, err
	}
	return p.label(name), nil
}

// splitDotted is a small helper used when parsing field/method references.
func splitDotted(s string) (string, string) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+1:]
}
