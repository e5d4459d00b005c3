package release

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultLibDirs are searched for needed libraries after the binary's own
// rpath and runpath
var DefaultLibDirs = []string{
	"/lib",
	"/lib64",
	"/usr/lib",
	"/usr/lib64",
	"/lib/x86_64-linux-gnu",
	"/usr/lib/x86_64-linux-gnu",
	"/lib/aarch64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
}

// Linkage describes the dynamic linking requirements of an ELF binary
type Linkage struct {
	Interpreter string
	Needed      []string
	RPath       []string
	Missing     []string
}

// InspectELF reads the interpreter, needed libraries and search path of
// the binary at path. The boolean is false when path is not an ELF file.
func InspectELF(path string) (*Linkage, bool, error) {
	isELF, err := hasELFMagic(path)
	if err != nil || !isELF {
		return nil, false, err
	}

	f, err := elf.Open(path)
	if err != nil {
		return nil, true, err
	}
	defer f.Close()

	l := &Linkage{}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_INTERP {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, true, fmt.Errorf("failed to read interpreter: %w", err)
		}
		l.Interpreter = string(bytes.TrimRight(data, "\x00"))
	}

	if l.Needed, err = f.ImportedLibraries(); err != nil {
		return nil, true, fmt.Errorf("failed to read needed libraries: %w", err)
	}

	origin := filepath.Dir(path)
	for _, tag := range []elf.DynTag{elf.DT_RUNPATH, elf.DT_RPATH} {
		values, err := f.DynString(tag)
		if err != nil {
			return nil, true, fmt.Errorf("failed to read %s: %w", tag, err)
		}
		for _, v := range values {
			l.RPath = append(l.RPath, SplitSearchPath(v, origin)...)
		}
	}

	return l, true, nil
}

func hasELFMagic(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, len(elf.ELFMAG))
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return string(magic) == elf.ELFMAG, nil
}

// SplitSearchPath splits a colon separated rpath and expands $ORIGIN
func SplitSearchPath(value, origin string) []string {
	var dirs []string
	for _, dir := range strings.Split(value, ":") {
		if dir == "" {
			continue
		}
		dir = strings.ReplaceAll(dir, "${ORIGIN}", origin)
		dir = strings.ReplaceAll(dir, "$ORIGIN", origin)
		dirs = append(dirs, dir)
	}
	return dirs
}

// CheckLinkage verifies that the interpreter and every needed library of
// the binary at path can be resolved. searchDirs extend DefaultLibDirs.
// Non-ELF binaries always pass.
func CheckLinkage(path string, searchDirs []string) (*Linkage, error) {
	l, isELF, err := InspectELF(path)
	if err != nil {
		return nil, err
	}
	if !isELF {
		logrus.Debugf("%s is not an ELF binary, skipping linkage check", path)
		return nil, nil
	}

	if err := l.Resolve(searchDirs); err != nil {
		return l, err
	}

	logrus.Debugf("Linkage of %s ok: interpreter=%q needed=%v", path, l.Interpreter, l.Needed)
	return l, nil
}

// Resolve looks up the interpreter and needed libraries, searching the
// binary's rpath, then DefaultLibDirs, then extraDirs. Anything not found
// is recorded in Missing.
func (l *Linkage) Resolve(extraDirs []string) error {
	l.Missing = nil
	if l.Interpreter != "" {
		if _, err := os.Stat(l.Interpreter); err != nil {
			l.Missing = append(l.Missing, l.Interpreter)
		}
	}

	dirs := make([]string, 0, len(l.RPath)+len(DefaultLibDirs)+len(extraDirs))
	dirs = append(dirs, l.RPath...)
	dirs = append(dirs, DefaultLibDirs...)
	dirs = append(dirs, extraDirs...)
	for _, lib := range l.Needed {
		if !findLibrary(lib, dirs) {
			l.Missing = append(l.Missing, lib)
		}
	}

	if len(l.Missing) > 0 {
		return fmt.Errorf("unresolved: %s", strings.Join(l.Missing, ", "))
	}
	return nil
}

func findLibrary(lib string, dirs []string) bool {
	if filepath.IsAbs(lib) {
		_, err := os.Stat(lib)
		return err == nil
	}
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, lib)); err == nil {
			return true
		}
	}
	return false
}
