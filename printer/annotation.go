package printer

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/typeref"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
)

// LabelName resolves a Code-relative offset to the symbolic name the Labels
// Collector assigned it. Every caller here only ever asks about
// an offset it itself just read off a *classfile.Label that CodeComposer/
// DecodeInstructions already resolved, so a missing entry is a printer bug,
// reported as the PrintError asks for rather than a panic.
type LabelName func(offset int) (string, error)

func lookupLabel(names map[int]string, offset int) (string, error) {
	name, ok := names[offset]
	if !ok {
		return "", jbcerr.NewPrint("no label assigned to offset %d", offset)
	}
	return name, nil
}

// PrintAnnotation prints "type { name = value; ... }", the
// inverse of parser.ParseAnnotation.
func PrintAnnotation(p *Printer, pool *classfile.ConstantPool, ann classfile.Annotation) error {
	p.Open("%s", classfile.ExternalType(ann.TypeName))
	if err := printAnnotationElements(p, pool, ann.Elements); err != nil {
		return err
	}
	p.Close()
	return p.Err()
}

// printAnnotationElements prints each "name = value" pair. Every
// ElementValue production is fully self-terminating (a trailing ';' for the
// scalar/enum/class forms, a trailing '}' for nested-annotation and array
// forms), so the line is written with Raw rather than Stmt to avoid
// double-terminating it.
func printAnnotationElements(p *Printer, pool *classfile.ConstantPool, elements []classfile.AnnotationElement) error {
	for _, el := range elements {
		val, err := printElementValueLine(pool, el.Value)
		if err != nil {
			return err
		}
		p.Raw("%s = %s", el.Name, val)
	}
	return nil
}

// printElementValueLine renders one element value including its own
// grammar-mandated terminator.
func printElementValueLine(pool *classfile.ConstantPool, ev classfile.ElementValue) (string, error) {
	scalar, isScalar, err := scalarElementValue(pool, ev)
	if err != nil {
		return "", err
	}
	if isScalar {
		return scalar + ";", nil
	}
	switch ev.Tag {
	case '@':
		return inlineAnnotation(pool, *ev.Annotation)
	case '[':
		var parts []string
		for _, v := range ev.Array {
			s, err := printElementValueLine(pool, v)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "{ " + joinSpace(parts) + " }", nil
	}
	return "", jbcerr.NewPrint("unknown element value tag %q", ev.Tag)
}

// scalarElementValue handles every tag whose grammar production is a single
// literal terminated by ';' (everything but nested-annotation and array).
func scalarElementValue(pool *classfile.ConstantPool, ev classfile.ElementValue) (text string, ok bool, err error) {
	switch ev.Tag {
	case 'Z':
		if pool.Get(ev.ConstIndex).Int32 != 0 {
			return "true", true, nil
		}
		return "false", true, nil
	case 'C':
		return "'" + EscapeChar(rune(pool.Get(ev.ConstIndex).Int32)) + "'", true, nil
	case 'B', 'S', 'I':
		return FormatInt32(pool.Get(ev.ConstIndex).Int32), true, nil
	case 'J':
		return FormatInt64(pool.Get(ev.ConstIndex).Int64), true, nil
	case 'F':
		return FormatFloat32(pool.Get(ev.ConstIndex).Float32), true, nil
	case 'D':
		return FormatFloat64(pool.Get(ev.ConstIndex).Float64), true, nil
	case 's':
		return `"` + EscapeString(pool.Get(ev.ConstIndex).UTF8) + `"`, true, nil
	case 'c':
		return classfile.ExternalType(ev.ClassInfo), true, nil
	case 'e':
		return fmt.Sprintf("%s # %s", classfile.ExternalType(ev.EnumTypeName), ev.EnumConstName), true, nil
	case '@', '[':
		return "", false, nil
	}
	return "", false, jbcerr.NewPrint("unknown element value tag %q", ev.Tag)
}

// inlineAnnotation renders a nested annotation value on a single line
// ("@" is implicit in the element-value grammar; the type name alone
// followed by its braced element list is what ParseElementValue's '@'
// branch reads via ParseAnnotation).
func inlineAnnotation(pool *classfile.ConstantPool, ann classfile.Annotation) (string, error) {
	var parts []string
	for _, el := range ann.Elements {
		val, err := printElementValueLine(pool, el.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s = %s", el.Name, val))
	}
	return fmt.Sprintf("@%s { %s }", classfile.ExternalType(ann.TypeName), joinSpace(parts)), nil
}

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// PrintTypeAnnotation prints "type { elements } targetInfo { typePath* }",
// the inverse of parser.ParseTypeAnnotation.
func PrintTypeAnnotation(p *Printer, pool *classfile.ConstantPool, ta classfile.TypeAnnotation, labels LabelName) error {
	keyword, ok := typeref.TargetName[ta.TargetType]
	if !ok {
		return jbcerr.NewPrint("unknown type-annotation target sort %d", ta.TargetType)
	}

	body, err := printTargetInfoBody(ta, keyword, labels)
	if err != nil {
		return err
	}

	p.Open("%s", classfile.ExternalType(ta.Annotation.TypeName))
	if err := printAnnotationElements(p, pool, ta.Annotation.Elements); err != nil {
		return err
	}
	p.Close()
	p.Open("%s%s", keyword, body)
	for _, step := range ta.TypePath.Steps {
		name, ok := typeref.PathName[step.Kind]
		if !ok {
			return jbcerr.NewPrint("unknown type-path step kind %d", step.Kind)
		}
		if step.Kind == typeref.TypeArgument {
			p.Stmt("%s %d", name, step.TypeArgumentIndex)
		} else {
			p.Stmt("%s", name)
		}
	}
	p.Close()
	return p.Err()
}

func printTargetInfoBody(ta classfile.TypeAnnotation, keyword string, labels LabelName) (string, error) {
	switch keyword {
	case "parameter_generic_class", "parameter_generic_method":
		return fmt.Sprintf(" %d", ta.TypeParameterIndex), nil
	case "extends":
		return fmt.Sprintf(" %d", ta.SuperTypeIndex), nil
	case "bound_generic_class", "bound_generic_method":
		return fmt.Sprintf(" %d %d", ta.BoundIndex.Type, ta.BoundIndex.Bound), nil
	case "field", "return", "receiver":
		return "", nil
	case "parameter":
		return fmt.Sprintf(" %d", ta.FormalParameterIndex), nil
	case "throws":
		return fmt.Sprintf(" %d", ta.ThrowsTypeIndex), nil
	case "local_variable", "resource_variable":
		var parts []string
		for _, lv := range ta.LocalVars {
			start, err := labels(lv.Start.Offset())
			if err != nil {
				return "", err
			}
			end, err := labels(lv.End.Offset())
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s %s %d ;", start, end, lv.Slot))
		}
		return " { " + joinSpace(parts) + " }", nil
	case "catch":
		return fmt.Sprintf(" %d", ta.ExceptionTableIndex), nil
	case "instance_of", "new", "method_reference_new", "method_reference":
		name, err := labels(ta.Offset.Offset())
		if err != nil {
			return "", err
		}
		return " " + name, nil
	case "cast", "argument_generic_method_new", "argument_generic_method",
		"argument_generic_method_reference_new", "argument_generic_method_reference":
		name, err := labels(ta.Offset.Offset())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(" %s %d", name, ta.TypeArgumentIndex), nil
	}
	return "", jbcerr.NewPrint("unknown target-info keyword %q", keyword)
}

func joinSemi(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " ; "
		}
		out += s
	}
	return out
}
