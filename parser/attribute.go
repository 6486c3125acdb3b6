package parser

import (
	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/internal/opcodes"
	"github.com/Guardsquare/proguard-assembler/jbcerr"
)

// attributeBlock runs the loop described in : the opening '[' of
// an attribute block enters a loop that reads a keyword and dispatches to
// handle(keyword); the block ends at ']'.
func (p *Parser) attributeBlock(handle func(keyword string) error) error {
	ok, err := p.AcceptPunct('[')
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for {
		done, err := p.AcceptPunct(']')
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		keyword, err := p.ExpectWord()
		if err != nil {
			return err
		}
		if err := handle(keyword); err != nil {
			return err
		}
	}
}

func (p *Parser) parseAnnotationBlock() ([]classfile.Annotation, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	var out []classfile.Annotation
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
		a, err := p.ParseAnnotation()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
}

func (p *Parser) parseTypeAnnotationBlock() ([]classfile.TypeAnnotation, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	var out []classfile.TypeAnnotation
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
		a, err := p.ParseTypeAnnotation()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
}

func (p *Parser) parseParameterAnnotationBlock() ([][]classfile.Annotation, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	var out [][]classfile.Annotation
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
		ann, err := p.parseAnnotationBlock()
		if err != nil {
			return nil, err
		}
		out = append(out, ann)
	}
}

func (p *Parser) parseTypeList() ([]string, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	var out []string
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
		t, err := p.ExpectType()
		if err != nil {
			return nil, err
		}
		if err := p.ExpectPunct(';'); err != nil {
			return nil, err
		}
		out = append(out, internalClassName(t))
	}
}

// ParseClassAttributes parses a class's "[ ... ]" attribute block into cls.
func (p *Parser) ParseClassAttributes(cls *classfile.ProgramClass) error {
	return p.attributeBlock(func(keyword string) error {
		switch keyword {
		case "SourceFile":
			s, err := p.ExpectString()
			if err != nil {
				return err
			}
			cls.SourceFile = s
			return p.ExpectPunct(';')
		case "SourceDir":
			s, err := p.ExpectString()
			if err != nil {
				return err
			}
			cls.SourceDir = s
			return p.ExpectPunct(';')
		case "Signature":
			s, err := p.ExpectString()
			if err != nil {
				return err
			}
			cls.Signature = s
			return p.ExpectPunct(';')
		case "Deprecated":
			cls.Deprecated = true
			return p.ExpectPunct(';')
		case "Synthetic":
			cls.Synthetic = true
			return p.ExpectPunct(';')
		case "InnerClasses":
			return p.parseInnerClasses(cls)
		case "EnclosingMethod":
			return p.parseEnclosingMethod(cls)
		case "NestHost":
			t, err := p.ExpectType()
			if err != nil {
				return err
			}
			cls.NestHost = internalClassName(t)
			return p.ExpectPunct(';')
		case "NestMembers":
			members, err := p.parseTypeList()
			if err != nil {
				return err
			}
			cls.NestMembers = members
			return nil
		case "BootstrapMethods":
			return p.parseBootstrapMethods(cls)
		case "RuntimeVisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			cls.RuntimeVisibleAnnotations = a
			return nil
		case "RuntimeInvisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			cls.RuntimeInvisibleAnnotations = a
			return nil
		case "RuntimeVisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			cls.RuntimeVisibleTypeAnnotations = a
			return nil
		case "RuntimeInvisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			cls.RuntimeInvisibleTypeAnnotations = a
			return nil
		case "Module":
			return p.parseModule(cls)
		case "ModuleMainClass":
			t, err := p.ExpectType()
			if err != nil {
				return err
			}
			cls.ModuleMainClass = internalClassName(t)
			return p.ExpectPunct(';')
		case "ModulePackages":
			pkgs, err := p.parseTypeList()
			if err != nil {
				return err
			}
			cls.ModulePackages = pkgs
			return nil
		}
		return jbcerr.NewParse(p.Line(), "unknown attribute %q", keyword)
	})
}

func (p *Parser) parseInnerClasses(cls *classfile.ProgramClass) error {
	if err := p.ExpectPunct('{'); err != nil {
		return err
	}
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		flags, err := p.ExpectAccessFlags()
		if err != nil {
			return err
		}
		inner, err := p.ExpectType()
		if err != nil {
			return err
		}
		info := classfile.InnerClassInfo{InnerClass: internalClassName(inner), AccessFlags: flags}
		if ok, err := p.AcceptWord("in"); err != nil {
			return err
		} else if ok {
			outer, err := p.ExpectType()
			if err != nil {
				return err
			}
			info.OuterClass = internalClassName(outer)
		}
		if ok, err := p.AcceptWord("as"); err != nil {
			return err
		} else if ok {
			name, err := p.ExpectWord()
			if err != nil {
				return err
			}
			info.InnerName = name
		}
		if err := p.ExpectPunct(';'); err != nil {
			return err
		}
		cls.InnerClasses = append(cls.InnerClasses, info)
	}
}

func (p *Parser) parseEnclosingMethod(cls *classfile.ProgramClass) error {
	t, err := p.ExpectType()
	if err != nil {
		return err
	}
	cls.EnclosingClass = internalClassName(t)
	if ok, err := p.AcceptPunct('#'); err != nil {
		return err
	} else if ok {
		ret, err := p.ExpectType()
		if err != nil {
			return err
		}
		name, err := p.ExpectMethodName()
		if err != nil {
			return err
		}
		args, err := p.ExpectMethodArgs()
		if err != nil {
			return err
		}
		cls.EnclosingMethodName = name
		cls.EnclosingMethodDescriptor = classfile.BuildMethodDescriptor(args, ret)
		cls.HasEnclosingMethod = true
	}
	return p.ExpectPunct(';')
}

func (p *Parser) parseBootstrapMethods(cls *classfile.ProgramClass) error {
	if err := p.ExpectPunct('{'); err != nil {
		return err
	}
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		handleIdx, err := p.ParseLoadableConstant()
		if err != nil {
			return err
		}
		if err := p.ExpectPunct('('); err != nil {
			return err
		}
		var args []int
		if ok, err := p.AcceptPunct(')'); err != nil {
			return err
		} else if !ok {
			for {
				idx, err := p.ParseLoadableConstant()
				if err != nil {
					return err
				}
				args = append(args, idx)
				if ok, err := p.AcceptPunct(','); err != nil {
					return err
				} else if !ok {
					break
				}
			}
			if err := p.ExpectPunct(')'); err != nil {
				return err
			}
		}
		if err := p.ExpectPunct(';'); err != nil {
			return err
		}
		cls.BootstrapMethods = append(cls.BootstrapMethods, classfile.BootstrapMethod{
			MethodHandleIndex: handleIdx,
			Arguments:         args,
		})
	}
}

func (p *Parser) parseModuleEdgeList(kind string) ([]classfile.ModulePackageEdge, error) {
	if err := p.ExpectPunct('{'); err != nil {
		return nil, err
	}
	var out []classfile.ModulePackageEdge
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
		flags, err := p.ExpectAccessFlags()
		if err != nil {
			return nil, err
		}
		t, err := p.ExpectType()
		if err != nil {
			return nil, err
		}
		edge := classfile.ModulePackageEdge{Package: internalClassName(t), Flags: flags}
		if ok, err := p.AcceptWord("to"); err != nil {
			return nil, err
		} else if ok {
			targets, err := p.parseTypeList()
			if err != nil {
				return nil, err
			}
			edge.To = targets
		} else if err := p.ExpectPunct(';'); err != nil {
			return nil, err
		}
		out = append(out, edge)
	}
}

func (p *Parser) parseModule(cls *classfile.ProgramClass) error {
	name, err := p.ExpectWord()
	if err != nil {
		return err
	}
	mod := &classfile.ModuleAttr{Name: name}
	if ok, err := p.AcceptWord("open"); err != nil {
		return err
	} else if ok {
		mod.Flags |= opcodes.AccOpen
	}
	if ok, err := p.AcceptWord("version"); err != nil {
		return err
	} else if ok {
		v, err := p.ExpectString()
		if err != nil {
			return err
		}
		mod.Version = v
	}
	if err := p.ExpectPunct(';'); err != nil {
		return err
	}
	for {
		matched := false
		for _, section := range []string{"requires", "exports", "opens", "uses", "provides"} {
			ok, err := p.AcceptWord(section)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			matched = true
			switch section {
			case "requires":
				if err := p.parseModuleRequires(mod); err != nil {
					return err
				}
			case "exports":
				edges, err := p.parseModuleEdgeList("exports")
				if err != nil {
					return err
				}
				mod.Exports = edges
			case "opens":
				edges, err := p.parseModuleEdgeList("opens")
				if err != nil {
					return err
				}
				mod.Opens = edges
			case "uses":
				uses, err := p.parseTypeList()
				if err != nil {
					return err
				}
				mod.Uses = uses
			case "provides":
				if err := p.parseModuleProvides(mod); err != nil {
					return err
				}
			}
			break
		}
		if !matched {
			cls.Module = mod
			return nil
		}
	}
}

func (p *Parser) parseModuleRequires(mod *classfile.ModuleAttr) error {
	if err := p.ExpectPunct('{'); err != nil {
		return err
	}
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		flags, err := p.ExpectAccessFlags()
		if err != nil {
			return err
		}
		name, err := p.ExpectWord()
		if err != nil {
			return err
		}
		req := classfile.ModuleRequire{Name: name, Flags: flags}
		if ok, err := p.AcceptWord("version"); err != nil {
			return err
		} else if ok {
			v, err := p.ExpectString()
			if err != nil {
				return err
			}
			req.Version = v
		}
		if err := p.ExpectPunct(';'); err != nil {
			return err
		}
		mod.Requires = append(mod.Requires, req)
	}
}

func (p *Parser) parseModuleProvides(mod *classfile.ModuleAttr) error {
	if err := p.ExpectPunct('{'); err != nil {
		return err
	}
	for {
		ok, err := p.AcceptPunct('}')
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		service, err := p.ExpectType()
		if err != nil {
			return err
		}
		if err := p.expectWordLiteral("with"); err != nil {
			return err
		}
		with, err := p.parseTypeList()
		if err != nil {
			return err
		}
		mod.Provides = append(mod.Provides, classfile.ModuleProvide{
			Service: internalClassName(service),
			With:    with,
		})
	}
}

// ParseFieldAttributes parses a field's "[ ... ]" attribute block into f.
func (p *Parser) ParseFieldAttributes(f *classfile.Field) error {
	return p.attributeBlock(func(keyword string) error {
		switch keyword {
		case "Signature":
			s, err := p.ExpectString()
			if err != nil {
				return err
			}
			f.Signature = s
			return p.ExpectPunct(';')
		case "Deprecated":
			f.Deprecated = true
			return p.ExpectPunct(';')
		case "Synthetic":
			f.Synthetic = true
			return p.ExpectPunct(';')
		case "RuntimeVisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			f.RuntimeVisibleAnnotations = a
			return nil
		case "RuntimeInvisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			f.RuntimeInvisibleAnnotations = a
			return nil
		case "RuntimeVisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			f.RuntimeVisibleTypeAnnotations = a
			return nil
		case "RuntimeInvisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			f.RuntimeInvisibleTypeAnnotations = a
			return nil
		}
		return jbcerr.NewParse(p.Line(), "unknown attribute %q", keyword)
	})
}

// ParseMethodAttributes parses a method's "[ ... ]" attribute block into m.
func (p *Parser) ParseMethodAttributes(m *classfile.Method) error {
	return p.attributeBlock(func(keyword string) error {
		switch keyword {
		case "Signature":
			s, err := p.ExpectString()
			if err != nil {
				return err
			}
			m.Signature = s
			return p.ExpectPunct(';')
		case "Deprecated":
			m.Deprecated = true
			return p.ExpectPunct(';')
		case "Synthetic":
			m.Synthetic = true
			return p.ExpectPunct(';')
		case "RuntimeVisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeVisibleAnnotations = a
			return nil
		case "RuntimeInvisibleAnnotations":
			a, err := p.parseAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeInvisibleAnnotations = a
			return nil
		case "RuntimeVisibleParameterAnnotations":
			a, err := p.parseParameterAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeVisibleParameterAnnotations = a
			return nil
		case "RuntimeInvisibleParameterAnnotations":
			a, err := p.parseParameterAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeInvisibleParameterAnnotations = a
			return nil
		case "RuntimeVisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeVisibleTypeAnnotations = a
			return nil
		case "RuntimeInvisibleTypeAnnotations":
			a, err := p.parseTypeAnnotationBlock()
			if err != nil {
				return err
			}
			m.RuntimeInvisibleTypeAnnotations = a
			return nil
		case "AnnotationDefault":
			v, err := p.ParseElementValue()
			if err != nil {
				return err
			}
			m.AnnotationDefault = &v
			return nil
		}
		return jbcerr.NewParse(p.Line(), "unknown attribute %q", keyword)
	})
}
