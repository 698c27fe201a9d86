// Package fsread implements the byte-accurate filesystem collaborator the
// spec names in its external interfaces: a bounded read of a file's
// contents plus a stat check for size and regular-file-ness.
package fsread

import "os"

// Reader is the filesystem collaborator interface.
type Reader interface {
	// Stat reports the file's size in bytes and whether it is a regular
	// file. ok is false if the path cannot be stat'd.
	Stat(path string) (size int64, isRegular bool, ok bool)

	// ReadFile returns the file's contents, or ok=false on any error.
	ReadFile(path string) (contents []byte, ok bool)
}

// osReader reads directly from the local filesystem.
type osReader struct{}

// New returns the reference os-backed Reader.
func New() Reader {
	return osReader{}
}

func (osReader) Stat(path string) (int64, bool, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, false
	}
	return info.Size(), info.Mode().IsRegular(), true
}

func (osReader) ReadFile(path string) ([]byte, bool) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return contents, true
}
