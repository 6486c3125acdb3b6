package printer

import (
	"io"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
)

// defaultMajorVersion mirrors parser.defaultMajorVersion: a
// class at this version prints no explicit "version" clause, since omitting
// it reparses to the same default.
const defaultMajorVersion = 52

// versionLiterals is the inverse of parser.versionLiterals: each class-file
// major version's canonical "version" directive spelling. Majors 45-48
// print the old "1.N" form since they predate the bare-number spelling;
// 49 and up print the bare JDK feature-release number.
var versionLiterals = map[int]string{
	45: "1.1", 46: "1.2", 47: "1.3", 48: "1.4",
	49: "5", 50: "6", 51: "7", 52: "8", 53: "9",
	54: "10", 55: "11", 56: "12", 57: "13",
}

// classKind returns the class-kind sugar keyword for flags, and the bits
// that keyword already accounts for (so FormatAccessFlags doesn't print
// them a second time as plain keywords).
func classKind(flags int) (kind string, skip int) {
	switch {
	case flags&opcodes.AccAnnotation != 0:
		return "@interface", opcodes.AccAbstract | opcodes.AccInterface | opcodes.AccAnnotation
	case flags&opcodes.AccInterface != 0:
		return "interface", opcodes.AccAbstract | opcodes.AccInterface
	case flags&opcodes.AccModule != 0:
		return "module", opcodes.AccModule
	case flags&opcodes.AccEnum != 0:
		return "enum", opcodes.AccSuper | opcodes.AccEnum
	default:
		return "class", opcodes.AccSuper
	}
}

// PrintClass prints a complete class model as JBC text,
// the inverse of parser.ParseClass. Every member is rendered through the
// printers built in this package rather than a visitor callback, since the
// source is a fully-built classfile.ProgramClass rather than a streaming
// reader callback.
func PrintClass(cls *classfile.ProgramClass, w io.Writer) error {
	p := New(w)

	if cls.MajorVersion != defaultMajorVersion {
		if lit, ok := versionLiterals[cls.MajorVersion]; ok {
			p.Stmt("version %s", lit)
		} else {
			p.Stmt("version %d", cls.MajorVersion)
		}
	}

	kind, skip := classKind(cls.AccessFlags)
	thisLit := classfile.ExternalType("L" + cls.ThisClass + ";")
	header := FormatAccessFlags(cls.AccessFlags, skip) + kind + " " + thisLit
	if cls.SuperClass != "" {
		header += " extends " + classfile.ExternalType("L"+cls.SuperClass+";")
	}
	if len(cls.Interfaces) > 0 {
		var names []string
		for _, i := range cls.Interfaces {
			names = append(names, classfile.ExternalType("L"+i+";"))
		}
		header += " implements " + joinComma(names)
	}
	p.Raw(header)
	if err := PrintClassAttributes(p, cls); err != nil {
		return err
	}

	p.Open("")
	for i, f := range cls.Fields {
		if i > 0 {
			p.Blank()
		}
		if err := printField(p, cls.Pool, f); err != nil {
			return err
		}
	}
	for i, m := range cls.Methods {
		if i > 0 || len(cls.Fields) > 0 {
			p.Blank()
		}
		if err := printMethod(p, cls.Pool, m); err != nil {
			return err
		}
	}
	p.Close()

	return p.Err()
}

func printField(p *Printer, pool *classfile.ConstantPool, f *classfile.Field) error {
	header := FormatAccessFlags(f.AccessFlags, 0) + classfile.ExternalType(f.Descriptor) + " " + f.Name
	if f.HasConstantValue {
		hint := classfile.FieldTypeHint(f.Descriptor)
		val, err := PrintLoadableConstant(pool, f.ConstantValue, hint)
		if err != nil {
			return err
		}
		header += " = " + val
	}
	p.Raw(header)
	if err := PrintFieldAttributes(p, pool, f); err != nil {
		return err
	}
	p.Stmt("")
	return p.Err()
}

func printMethod(p *Printer, pool *classfile.ConstantPool, m *classfile.Method) error {
	ret := classfile.ExternalType(classfile.MethodReturnType(m.Descriptor))
	args := classfile.MethodArgumentTypes(m.Descriptor)
	argStrs := make([]string, len(args))
	for i, a := range args {
		argStrs[i] = classfile.ExternalType(a)
	}
	header := FormatAccessFlags(m.AccessFlags, 0) + ret + " " + m.Name + "(" + joinComma(argStrs) + ")"
	if len(m.Throws) > 0 {
		var thrown []string
		for _, t := range m.Throws {
			thrown = append(thrown, classfile.ExternalType("L"+t+";"))
		}
		header += " throws " + joinComma(thrown)
	}

	var labels LabelName = noOffsetLabels
	if m.Code != nil {
		l, err := CodeLabels(m.Code)
		if err != nil {
			return err
		}
		labels = l
	}

	p.Raw(header)
	if err := PrintMethodAttributes(p, pool, m, labels); err != nil {
		return err
	}
	if m.Code == nil {
		p.Stmt("")
		return p.Err()
	}
	return PrintMethodBody(p, pool, m.Code)
}
