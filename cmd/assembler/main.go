// Command assembler is the CLI surface: `assembler [classpath]
// input output`, translating each entry of input by extension
// (.class -> disassemble, .jbc -> assemble, anything else -> copy) and
// writing the results to output.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Guardsquare/proguard-assembler/classfile"
	"github.com/Guardsquare/proguard-assembler/container"
	"github.com/Guardsquare/proguard-assembler/jbc"
	"github.com/Guardsquare/proguard-assembler/preverify"
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "assembler [classpath] input output",
		Short: "Translate between JBC text and binary .class files",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  run,
	}
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var classpath, input, output string
	if len(args) == 3 {
		classpath, input, output = args[0], args[1], args[2]
	} else {
		input, output = args[0], args[1]
	}

	var verifier preverify.Preverifier = preverify.Default{}
	library := preverify.NewLibrary()
	if classpath != "" {
		if err := loadLibrary(classpath, library); err != nil {
			return fmt.Errorf("loading classpath: %w", err)
		}
	}

	entries, err := container.Read(input, log)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	out := make([]container.Entry, 0, len(entries))
	for _, e := range entries {
		converted, err := translateEntry(e, verifier, library)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		out = append(out, converted)
	}

	if err := container.Write(output, out, log); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}

// translateEntry routes a single container entry by extension, // "on a mixed archive, each entry is routed by extension".
func translateEntry(e container.Entry, verifier preverify.Preverifier, library *preverify.Library) (container.Entry, error) {
	switch strings.ToLower(filepath.Ext(e.Name)) {
	case ".class":
		var buf bytes.Buffer
		if err := jbc.Disassemble(bytes.NewReader(e.Data), &buf); err != nil {
			return container.Entry{}, err
		}
		return container.Entry{Name: stripExt(e.Name) + ".jbc", Data: buf.Bytes()}, nil

	case ".jbc":
		cls, err := jbc.ParseText(bytes.NewReader(e.Data))
		if err != nil {
			return container.Entry{}, err
		}
		if err := verifier.Preverify(cls, library); err != nil {
			return container.Entry{}, err
		}
		var buf bytes.Buffer
		if err := classfile.WriteClass(cls, &buf); err != nil {
			return container.Entry{}, err
		}
		return container.Entry{Name: stripExt(e.Name) + ".class", Data: buf.Bytes()}, nil

	default:
		log.WithField("entry", e.Name).Debug("assembler: copying entry unchanged")
		return e, nil
	}
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// loadLibrary reads every .class file reachable from a path-separator
// delimited classpath (files, directories, or .jar/.jmod archives) into a
// preverify.Library.
func loadLibrary(classpath string, library *preverify.Library) error {
	for _, entry := range strings.Split(classpath, string(os.PathListSeparator)) {
		if entry == "" {
			continue
		}
		files, err := container.Read(entry, log)
		if err != nil {
			return err
		}
		for _, f := range files {
			if strings.ToLower(filepath.Ext(f.Name)) != ".class" {
				continue
			}
			cls, err := classfile.ReadClass(bytes.NewReader(f.Data))
			if err != nil {
				log.WithField("entry", f.Name).WithError(err).Warn("assembler: skipping unreadable library class")
				continue
			}
			library.Add(cls)
		}
	}
	return nil
}
