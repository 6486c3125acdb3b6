// Package container implements readers/writers for .class, .jar, .jmod,
// .jbc, and plain directories, so cmd/assembler can route archive entries
// and directory trees the same way it routes single files. archive/zip is
// stdlib, used directly since no third-party JAR reader fits this use
// (see DESIGN.md).
package container

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// jmodClassesPrefix is the path prefix every class entry carries inside a
// .jmod archive; it is stripped on read and re-added on write.
const jmodClassesPrefix = "classes/"

// Entry is one file inside a container: a single .class/.jbc file, a
// directory tree member, or a .jar/.jmod archive member. Name is always
// forward-slash separated and, for .jmod archives, already has the
// classes/ prefix stripped.
type Entry struct {
	Name string
	Data []byte
}

// Kind classifies a path by its container extension.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindJar
	KindJmod
)

// KindOf classifies path for routing purposes.
func KindOf(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return kindOfExtension(path), nil
		}
		return 0, err
	}
	if info.IsDir() {
		return KindDir, nil
	}
	return kindOfExtension(path), nil
}

func kindOfExtension(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar":
		return KindJar
	case ".jmod":
		return KindJmod
	default:
		return KindFile
	}
}

// Read loads every entry found at path: a single file becomes one entry
// named by its base name, a directory is walked recursively, and a .jar or
// .jmod is unpacked via archive/zip.
func Read(path string, log logrus.FieldLogger) ([]Entry, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindDir:
		return readDir(path, log)
	case KindJar:
		return readArchive(path, "", log)
	case KindJmod:
		return readArchive(path, jmodClassesPrefix, log)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Entry{{Name: filepath.Base(path), Data: data}}, nil
	}
}

func readDir(root string, log logrus.FieldLogger) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		log.WithField("entry", rel).Debug("container: read directory entry")
		entries = append(entries, Entry{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func readArchive(path, stripPrefix string, log logrus.FieldLogger) ([]Entry, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("container: opening %s: %w", path, err)
	}
	defer r.Close()

	var entries []Entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if stripPrefix != "" {
			if !strings.HasPrefix(name, stripPrefix) {
				log.WithField("entry", name).Debug("container: skipping non-classes jmod member")
				continue
			}
			name = strings.TrimPrefix(name, stripPrefix)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("container: reading %s in %s: %w", f.Name, path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("container: reading %s in %s: %w", f.Name, path, err)
		}
		log.WithField("entry", name).Debug("container: read archive entry")
		entries = append(entries, Entry{Name: name, Data: data})
	}
	return entries, nil
}

// Write stores entries at path, inferring a directory tree, a .jar/.jmod
// archive, or (when there's exactly one entry and path doesn't name a
// directory) a single file, from path's own shape.
func Write(path string, entries []Entry, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jar":
		return writeArchive(path, entries, "", log)
	case ".jmod":
		return writeArchive(path, entries, jmodClassesPrefix, log)
	}

	if len(entries) == 1 && !strings.HasSuffix(path, string(os.PathSeparator)) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return writeDir(path, entries, log)
		}
		return writeFile(path, entries[0].Data, log)
	}
	return writeDir(path, entries, log)
}

func writeFile(path string, data []byte, log logrus.FieldLogger) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	log.WithField("path", path).Debug("container: writing file")
	return os.WriteFile(path, data, 0o644)
}

func writeDir(root string, entries []Entry, log logrus.FieldLogger) error {
	for _, e := range entries {
		dest := filepath.Join(root, filepath.FromSlash(e.Name))
		if err := writeFile(dest, e.Data, log); err != nil {
			return err
		}
	}
	return nil
}

func writeArchive(path string, entries []Entry, addPrefix string, log logrus.FieldLogger) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		name := addPrefix + e.Name
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("container: creating %s in %s: %w", name, path, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return fmt.Errorf("container: writing %s in %s: %w", name, path, err)
		}
		log.WithField("entry", name).Debug("container: wrote archive entry")
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes(), log)
}
