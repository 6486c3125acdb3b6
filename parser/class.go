package parser

import (
	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
	"github.com/Guardsquare/proguard-assembler/lexer"
)

// defaultMajorVersion is used when a class file omits the "version" clause:
// Java 8's class-file version, a reasonable default for a hand-written JBC
// source that doesn't care about preverification.
const defaultMajorVersion = 52

// versionLiterals maps every accepted "version" directive literal to its
// class-file major version: the bare JDK feature-release numbers 5-13
// (major 49-57) and their old-style "1.N" synonyms, plus "1.0"-"1.4" for
// the major versions (45-48) that predate the bare-number spelling.
var versionLiterals = map[float64]int{
	1.0: 45, 1.1: 45, 1.2: 46, 1.3: 47, 1.4: 48,
	1.5: 49, 1.6: 50, 1.7: 51, 1.8: 52, 1.9: 53,
	5: 49, 6: 50, 7: 51, 8: 52, 9: 53, 10: 54, 11: 55, 12: 56, 13: 57,
}

// ParseClass parses one translation unit: "{ import } [ version ] classDecl".
func (p *Parser) ParseClass() (*classfile.ProgramClass, error) {
	for {
		ok, err := p.AcceptWord("import")
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		dotted, err := p.ExpectWord()
		if err != nil {
			return nil, err
		}
		if err := p.ExpectPunct(';'); err != nil {
			return nil, err
		}
		p.addImport(dotted)
	}

	major, minor := defaultMajorVersion, 0
	if ok, err := p.AcceptWord("version"); err != nil {
		return nil, err
	} else if ok {
		n, err := p.ExpectNumber()
		if err != nil {
			return nil, err
		}
		m, ok := versionLiterals[n]
		if !ok {
			return nil, jbcerr.NewParse(p.Line(), "unrecognized class file version %v", n)
		}
		major = m
		if err := p.ExpectPunct(';'); err != nil {
			return nil, err
		}
	}

	cls, err := p.parseClassDecl()
	if err != nil {
		return nil, err
	}
	cls.MajorVersion = major
	cls.MinorVersion = minor
	return cls, nil
}

func (p *Parser) parseClassDecl() (*classfile.ProgramClass, error) {
	flags, kind, err := p.ExpectClassAccessFlags()
	if err != nil {
		return nil, err
	}
	// Class names in the header are never array types, so they are read
	// without ExpectType's "[]" handling, which would take the '[' that
	// opens a class attribute block.
	className := func() (string, error) {
		name, err := p.ExpectWord()
		if err != nil {
			return "", err
		}
		if full, ok := p.imports[name]; ok {
			name = full
		}
		return classfile.InternalType(name), nil
	}
	thisType, err := className()
	if err != nil {
		return nil, err
	}
	thisClass := internalClassName(thisType)

	cls := &classfile.ProgramClass{
		Pool:        p.pool,
		AccessFlags: flags,
		ThisClass:   thisClass,
	}
	p.currentClass = thisClass

	hasExtends := false
	if kind != "module" {
		if ok, err := p.AcceptWord("extends"); err != nil {
			return nil, err
		} else if ok {
			superType, err := className()
			if err != nil {
				return nil, err
			}
			cls.SuperClass = internalClassName(superType)
			hasExtends = true
		}
	}

	if ok, err := p.AcceptWord("implements"); err != nil {
		return nil, err
	} else if ok {
		for {
			t, err := className()
			if err != nil {
				return nil, err
			}
			cls.Interfaces = append(cls.Interfaces, internalClassName(t))
			more, err := p.AcceptPunct(',')
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}
	}

	applyDefaultSupertype(cls, kind, hasExtends)
	applyDefaultInterfaces(cls, kind)

	if err := p.ParseClassAttributes(cls); err != nil {
		return nil, err
	}

	// A bare trailing ';' is sugar for an empty body "{}" (e.g. "public
	// enum E;" for a marker enum with no constants or members).
	if empty, err := p.AcceptPunct(';'); err != nil {
		return nil, err
	} else if empty {
		return cls, nil
	}

	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	for {
		done, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		if err := p.parseMember(cls); err != nil {
			return nil, err
		}
	}
	return cls, nil
}

// applyDefaultSupertype fills in SuperClass default-
// supertype policy when no explicit "extends" clause was given: enums
// extend java/lang/Enum, modules and java/lang/Object itself have no
// superclass, everything else extends java/lang/Object.
func applyDefaultSupertype(cls *classfile.ProgramClass, kind string, hasExtends bool) {
	if hasExtends {
		return
	}
	switch {
	case kind == "module":
		cls.SuperClass = ""
	case cls.ThisClass == "java/lang/Object":
		cls.SuperClass = ""
	case cls.AccessFlags&opcodes.AccEnum != 0:
		cls.SuperClass = "java/lang/Enum"
	default:
		cls.SuperClass = "java/lang/Object"
	}
}

// applyDefaultInterfaces implements the default-interface policy: an
// annotation type that didn't explicitly implement
// java/lang/annotation/Annotation gets it added.
func applyDefaultInterfaces(cls *classfile.ProgramClass, kind string) {
	const annotationInterface = "java/lang/annotation/Annotation"
	if cls.AccessFlags&opcodes.AccAnnotation == 0 {
		return
	}
	for _, i := range cls.Interfaces {
		if i == annotationInterface {
			return
		}
	}
	cls.Interfaces = append(cls.Interfaces, annotationInterface)
}

// parseMember parses one fieldDecl, methodDecl, or clinitDecl
// and appends it to cls.
func (p *Parser) parseMember(cls *classfile.ProgramClass) error {
	sawStatic := false
	if ok, err := p.AcceptWord("static"); err != nil {
		return err
	} else if ok {
		if ok, err := p.AcceptPunct('{'); err != nil {
			return err
		} else if ok {
			p.pushBack()
			return p.parseClinit(cls)
		}
		sawStatic = true // "static" was a plain access flag, not the clinit shorthand
	}

	flags, err := p.ExpectAccessFlags()
	if err != nil {
		return err
	}
	if sawStatic {
		flags |= opcodes.AccStatic
	}

	typeName, err := p.ExpectType()
	if err != nil {
		return err
	}

	nameTok, err := p.next()
	if err != nil {
		return err
	}
	var name string
	if nameTok.Kind == lexer.Punct && nameTok.Ch == '<' {
		word, err := p.ExpectWord()
		if err != nil {
			return err
		}
		if err := p.ExpectPunct('>'); err != nil {
			return err
		}
		name = "<" + word + ">"
	} else if nameTok.Kind == lexer.Word {
		name = nameTok.Str
	} else {
		return jbcerr.Expected(nameTok.Line, "a member name", nameTok.Describe())
	}

	isMethod, err := p.AcceptPunct('(')
	if err != nil {
		return err
	}
	if isMethod {
		p.pushBack()
		return p.parseMethodDecl(cls, flags, typeName, name)
	}
	return p.parseFieldDecl(cls, flags, typeName, name)
}

func (p *Parser) parseFieldDecl(cls *classfile.ProgramClass, flags int, typeName, name string) error {
	f := &classfile.Field{AccessFlags: flags, Name: name, Descriptor: typeName}
	if ok, err := p.AcceptPunct('='); err != nil {
		return err
	} else if ok {
		idx, err := p.ParseLoadableConstant()
		if err != nil {
			return err
		}
		f.HasConstantValue = true
		f.ConstantValue = idx
	}
	if err := p.ParseFieldAttributes(f); err != nil {
		return err
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	cls.Fields = append(cls.Fields, f)
	return nil
}

func (p *Parser) parseMethodDecl(cls *classfile.ProgramClass, flags int, returnType, name string) error {
	args, err := p.ExpectMethodArgs()
	if err != nil {
		return err
	}
	m := &classfile.Method{
		AccessFlags: flags,
		Name:        name,
		Descriptor:  classfile.BuildMethodDescriptor(args, returnType),
	}
	// One label namespace per method: reset before the
	// attribute block so a RuntimeVisibleTypeAnnotations local_variable
	// target can reference the same offsets the body below defines.
	p.resetLabels()

	if ok, err := p.AcceptWord("throws"); err != nil {
		return err
	} else if ok {
		for {
			t, err := p.ExpectType()
			if err != nil {
				return err
			}
			m.Throws = append(m.Throws, internalClassName(t))
			more, err := p.AcceptPunct(',')
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
	}

	if err := p.ParseMethodAttributes(m); err != nil {
		return err
	}

	if ok, err := p.AcceptPunct(';'); err != nil {
		return err
	} else if ok {
		cls.Methods = append(cls.Methods, m)
		return nil
	}

	code, err := p.ParseMethodBody(m)
	if err != nil {
		return err
	}
	m.Code = code
	cls.Methods = append(cls.Methods, m)
	return nil
}

func (p *Parser) parseClinit(cls *classfile.ProgramClass) error {
	m := &classfile.Method{
		AccessFlags: opcodes.AccStatic,
		Name:        "<clinit>",
		Descriptor:  "()V",
	}
	p.resetLabels()
	code, err := p.ParseMethodBody(m)
	if err != nil {
		return err
	}
	m.Code = code
	cls.Methods = append(cls.Methods, m)
	return nil
}
