package printer

import (
	"fmt"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
)

// attributeEntry is one would-be line of an attribute block: write is only
// invoked (and the keyword only printed) once present reports true, so an
// attribute block with nothing to say is elided entirely (mirror:
// the parser only expects a '[' when one is there to read).
type attributeEntry struct {
	present bool
	write   func()
}

func printAttributeBlock(p *Printer, entries []attributeEntry) {
	any := false
	for _, e := range entries {
		if e.present {
			any = true
			break
		}
	}
	if !any {
		return
	}
	p.OpenBracket()
	for _, e := range entries {
		if e.present {
			e.write()
		}
	}
	p.CloseBracket()
}

func printAnnotationBlock(p *Printer, pool *classfile.ConstantPool, keyword string, anns []classfile.Annotation) error {
	p.Open("%s", keyword)
	for _, a := range anns {
		if err := PrintAnnotation(p, pool, a); err != nil {
			return err
		}
	}
	p.Close()
	return p.Err()
}

func printTypeAnnotationBlock(p *Printer, pool *classfile.ConstantPool, keyword string, anns []classfile.TypeAnnotation, labels LabelName) error {
	p.Open("%s", keyword)
	for _, a := range anns {
		if err := PrintTypeAnnotation(p, pool, a, labels); err != nil {
			return err
		}
	}
	p.Close()
	return p.Err()
}

func printParameterAnnotationBlock(p *Printer, pool *classfile.ConstantPool, keyword string, groups [][]classfile.Annotation) error {
	p.Open("%s", keyword)
	for _, group := range groups {
		p.Open("")
		for _, a := range group {
			if err := PrintAnnotation(p, pool, a); err != nil {
				return err
			}
		}
		p.Close()
	}
	p.Close()
	return p.Err()
}

func printTypeList(p *Printer, keyword string, names []string) {
	p.Open("%s", keyword)
	for _, n := range names {
		p.Stmt("%s", classfile.ExternalType("L"+n+";"))
	}
	p.Close()
}

// PrintClassAttributes prints a class's "[ ... ]" attribute block, the
// inverse of parser.ParseClassAttributes.
func PrintClassAttributes(p *Printer, cls *classfile.ProgramClass) error {
	var err error
	entries := []attributeEntry{
		{cls.SourceFile != "", func() { p.Stmt("SourceFile %q", cls.SourceFile) }},
		{cls.SourceDir != "", func() { p.Stmt("SourceDir %q", cls.SourceDir) }},
		{cls.Signature != "", func() { p.Stmt("Signature %q", cls.Signature) }},
		{cls.Deprecated, func() { p.Stmt("Deprecated") }},
		{cls.Synthetic, func() { p.Stmt("Synthetic") }},
		{len(cls.InnerClasses) > 0, func() { printInnerClasses(p, cls.InnerClasses) }},
		{cls.HasEnclosingMethod || cls.EnclosingClass != "", func() { printEnclosingMethod(p, cls) }},
		{cls.NestHost != "", func() { p.Stmt("NestHost %s", classfile.ExternalType("L"+cls.NestHost+";")) }},
		{len(cls.NestMembers) > 0, func() { printTypeList(p, "NestMembers", cls.NestMembers) }},
		{len(cls.BootstrapMethods) > 0, func() { err = printBootstrapMethods(p, cls) }},
		{len(cls.RuntimeVisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, cls.Pool, "RuntimeVisibleAnnotations", cls.RuntimeVisibleAnnotations)
		}},
		{len(cls.RuntimeInvisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, cls.Pool, "RuntimeInvisibleAnnotations", cls.RuntimeInvisibleAnnotations)
		}},
		{len(cls.RuntimeVisibleTypeAnnotations) > 0, func() {
			err = printTypeAnnotationBlock(p, cls.Pool, "RuntimeVisibleTypeAnnotations", cls.RuntimeVisibleTypeAnnotations, noOffsetLabels)
		}},
		{len(cls.RuntimeInvisibleTypeAnnotations) > 0, func() {
			err = printTypeAnnotationBlock(p, cls.Pool, "RuntimeInvisibleTypeAnnotations", cls.RuntimeInvisibleTypeAnnotations, noOffsetLabels)
		}},
		{cls.Module != nil, func() { printModule(p, cls.Module) }},
		{cls.ModuleMainClass != "", func() {
			p.Stmt("ModuleMainClass %s", classfile.ExternalType("L"+cls.ModuleMainClass+";"))
		}},
		{len(cls.ModulePackages) > 0, func() { printTypeList(p, "ModulePackages", cls.ModulePackages) }},
	}
	printAttributeBlock(p, entries)
	if err != nil {
		return err
	}
	return p.Err()
}

// noOffsetLabels is used for class/field-level type annotations, whose
// target-info sorts (per classfile.IsCodeRelativeTarget) never reference a
// Code-attribute offset, so the label lookup is never actually invoked.
func noOffsetLabels(offset int) (string, error) {
	return "", fmt.Errorf("unexpected code-relative offset %d outside a method body", offset)
}

func printInnerClasses(p *Printer, infos []classfile.InnerClassInfo) {
	p.Open("InnerClasses")
	for _, ic := range infos {
		line := FormatAccessFlags(ic.AccessFlags, 0) + classfile.ExternalType("L"+ic.InnerClass+";")
		if ic.OuterClass != "" {
			line += " in " + classfile.ExternalType("L"+ic.OuterClass+";")
		}
		if ic.InnerName != "" {
			line += " as " + ic.InnerName
		}
		p.Stmt("%s", line)
	}
	p.Close()
}

func printEnclosingMethod(p *Printer, cls *classfile.ProgramClass) {
	line := "EnclosingMethod " + classfile.ExternalType("L"+cls.EnclosingClass+";")
	if cls.HasEnclosingMethod {
		ret := classfile.ExternalType(classfile.MethodReturnType(cls.EnclosingMethodDescriptor))
		args := classfile.MethodArgumentTypes(cls.EnclosingMethodDescriptor)
		argStrs := make([]string, len(args))
		for i, a := range args {
			argStrs[i] = classfile.ExternalType(a)
		}
		line += fmt.Sprintf(" # %s %s(%s)", ret, cls.EnclosingMethodName, joinComma(argStrs))
	}
	p.Stmt("%s", line)
}

func printBootstrapMethods(p *Printer, cls *classfile.ProgramClass) error {
	p.Open("BootstrapMethods")
	for _, bm := range cls.BootstrapMethods {
		handle, err := PrintLoadableConstant(cls.Pool, bm.MethodHandleIndex, "")
		if err != nil {
			return err
		}
		var args []string
		for _, a := range bm.Arguments {
			s, err := PrintLoadableConstant(cls.Pool, a, "")
			if err != nil {
				return err
			}
			args = append(args, s)
		}
		p.Stmt("%s(%s)", handle, joinComma(args))
	}
	p.Close()
	return nil
}

func printModule(p *Printer, mod *classfile.ModuleAttr) {
	header := "Module " + mod.Name
	if mod.Flags&opcodes.AccOpen != 0 {
		header += " open"
	}
	if mod.Version != "" {
		header += fmt.Sprintf(" version %q", mod.Version)
	}
	p.Open("%s", header)
	if len(mod.Requires) > 0 {
		p.Open("requires")
		for _, r := range mod.Requires {
			line := FormatAccessFlags(r.Flags, 0) + r.Name
			if r.Version != "" {
				line += fmt.Sprintf(" version %q", r.Version)
			}
			p.Stmt("%s", line)
		}
		p.Close()
	}
	if len(mod.Exports) > 0 {
		printModuleEdges(p, "exports", mod.Exports)
	}
	if len(mod.Opens) > 0 {
		printModuleEdges(p, "opens", mod.Opens)
	}
	if len(mod.Uses) > 0 {
		printTypeList(p, "uses", mod.Uses)
	}
	if len(mod.Provides) > 0 {
		p.Open("provides")
		for _, pr := range mod.Provides {
			p.Open("%s with", classfile.ExternalType("L"+pr.Service+";"))
			for _, w := range pr.With {
				p.Stmt("%s", classfile.ExternalType("L"+w+";"))
			}
			p.Close()
		}
		p.Close()
	}
	p.Close()
}

func printModuleEdges(p *Printer, keyword string, edges []classfile.ModulePackageEdge) {
	p.Open("%s", keyword)
	for _, e := range edges {
		header := FormatAccessFlags(e.Flags, 0) + classfile.ExternalType("L"+e.Package+";")
		if len(e.To) > 0 {
			p.Open("%s to", header)
			for _, t := range e.To {
				p.Stmt("%s", classfile.ExternalType("L"+t+";"))
			}
			p.Close()
		} else {
			p.Stmt("%s", header)
		}
	}
	p.Close()
}

// PrintFieldAttributes prints a field's "[ ... ]" attribute block.
func PrintFieldAttributes(p *Printer, pool *classfile.ConstantPool, f *classfile.Field) error {
	var err error
	entries := []attributeEntry{
		{f.Signature != "", func() { p.Stmt("Signature %q", f.Signature) }},
		{f.Deprecated, func() { p.Stmt("Deprecated") }},
		{f.Synthetic, func() { p.Stmt("Synthetic") }},
		{len(f.RuntimeVisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, pool, "RuntimeVisibleAnnotations", f.RuntimeVisibleAnnotations)
		}},
		{len(f.RuntimeInvisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, pool, "RuntimeInvisibleAnnotations", f.RuntimeInvisibleAnnotations)
		}},
		{len(f.RuntimeVisibleTypeAnnotations) > 0, func() {
			err = printTypeAnnotationBlock(p, pool, "RuntimeVisibleTypeAnnotations", f.RuntimeVisibleTypeAnnotations, noOffsetLabels)
		}},
		{len(f.RuntimeInvisibleTypeAnnotations) > 0, func() {
			err = printTypeAnnotationBlock(p, pool, "RuntimeInvisibleTypeAnnotations", f.RuntimeInvisibleTypeAnnotations, noOffsetLabels)
		}},
	}
	printAttributeBlock(p, entries)
	if err != nil {
		return err
	}
	return p.Err()
}

// PrintMethodAttributes prints a method's "[ ... ]" attribute block. labels
// resolves the Code-attribute offsets a code-relative type annotation's
// target_info refers to (classfile.IsCodeRelativeTarget); pass noOffsetLabels
// for an abstract/native method, which cannot carry one.
func PrintMethodAttributes(p *Printer, pool *classfile.ConstantPool, m *classfile.Method, labels LabelName) error {
	var err error
	visible := m.RuntimeVisibleTypeAnnotations
	invisible := m.RuntimeInvisibleTypeAnnotations
	entries := []attributeEntry{
		{m.Signature != "", func() { p.Stmt("Signature %q", m.Signature) }},
		{m.Deprecated, func() { p.Stmt("Deprecated") }},
		{m.Synthetic, func() { p.Stmt("Synthetic") }},
		{len(m.RuntimeVisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, pool, "RuntimeVisibleAnnotations", m.RuntimeVisibleAnnotations)
		}},
		{len(m.RuntimeInvisibleAnnotations) > 0, func() {
			err = printAnnotationBlock(p, pool, "RuntimeInvisibleAnnotations", m.RuntimeInvisibleAnnotations)
		}},
		{len(m.RuntimeVisibleParameterAnnotations) > 0, func() {
			err = printParameterAnnotationBlock(p, pool, "RuntimeVisibleParameterAnnotations", m.RuntimeVisibleParameterAnnotations)
		}},
		{len(m.RuntimeInvisibleParameterAnnotations) > 0, func() {
			err = printParameterAnnotationBlock(p, pool, "RuntimeInvisibleParameterAnnotations", m.RuntimeInvisibleParameterAnnotations)
		}},
		{len(visible) > 0, func() {
			err = printTypeAnnotationBlock(p, pool, "RuntimeVisibleTypeAnnotations", visible, labels)
		}},
		{len(invisible) > 0, func() {
			err = printTypeAnnotationBlock(p, pool, "RuntimeInvisibleTypeAnnotations", invisible, labels)
		}},
		{m.AnnotationDefault != nil, func() {
			var val string
			val, err = printElementValueLine(pool, *m.AnnotationDefault)
			if err == nil {
				p.Raw("AnnotationDefault %s", val)
			}
		}},
	}
	printAttributeBlock(p, entries)
	if err != nil {
		return err
	}
	return p.Err()
}
