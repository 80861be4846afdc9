package vm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"
)

// mmapThreshold is the file size above which a ByteSource maps the backing
// archive into memory instead of reading it whole into a []byte, following
// saferwall/pe's file.go pattern of memory-mapping large binaries rather
// than copying them (SPEC_FULL.md's Domain Stack).
const mmapThreshold = 8 * 1024 * 1024

// jmodHeader is the 4-byte magic every .jmod file begins with, ahead of an
// ordinary zip central directory (JMOD file format).
var jmodHeader = []byte("JM\x01\x00")

// JmodSource reads classes out of a JDK .jmod module file: classes live
// under "classes/" with a ".class" suffix, exactly as the teacher's
// JmodClassLoader assumed, generalized here to also accept an mmap'd
// backing store for large jmods.
type JmodSource struct {
	path   string
	data   []byte
	mm     mmap.MMap
	reader *zip.Reader
}

func NewJmodSource(path string) (*JmodSource, error) {
	s := &JmodSource{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JmodSource) open() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}

	var raw []byte
	if info.Size() >= mmapThreshold {
		f, err := os.Open(s.path)
		if err != nil {
			return err
		}
		defer f.Close()
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			return err
		}
		s.mm = m
		raw = m
	} else {
		raw, err = os.ReadFile(s.path)
		if err != nil {
			return err
		}
		s.data = raw
	}

	if len(raw) < len(jmodHeader) || !bytes.Equal(raw[:len(jmodHeader)], jmodHeader) {
		return fmt.Errorf("%s is not a jmod file (bad magic)", s.path)
	}
	body := raw[len(jmodHeader):]
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("opening jmod zip directory: %w", err)
	}
	s.reader = zr
	return nil
}

func (s *JmodSource) Bytes(name string) ([]byte, bool, error) {
	f, err := s.reader.Open("classes/" + name + ".class")
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ArchiveSource reads classes out of a .jar (or a plain .zip laid out the
// same way): a class "a/b/C" lives at "a/b/C.class" at the archive root.
type ArchiveSource struct {
	path string
	mm   mmap.MMap
	reader *zip.Reader
}

func NewArchiveSource(path string) (*ArchiveSource, error) {
	s := &ArchiveSource{path: path}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() >= mmapThreshold {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			return nil, err
		}
		s.mm = m
		zr, err := zip.NewReader(bytes.NewReader(m), int64(len(m)))
		if err != nil {
			return nil, err
		}
		s.reader = zr
		return s, nil
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	s.reader = &zr.Reader
	return s, nil
}

func (s *ArchiveSource) Bytes(name string) ([]byte, bool, error) {
	f, err := s.reader.Open(name + ".class")
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// DirectorySource reads a class straight off disk from a directory of
// loose .class files, the layout a user classpath entry uses.
type DirectorySource struct {
	Root string
}

func (s DirectorySource) Bytes(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, name+".class"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}
