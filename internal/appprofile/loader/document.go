package loader

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io/fs"
	"time"
)

// emptyDocument is the JSON used for files that do not exist or hold
// nothing but whitespace and comments.
var emptyDocument = []byte("{}")

// Fingerprint identifies the on-disk state of a file at load time.
type Fingerprint struct {
	// Exists is false when the file was missing.
	Exists bool
	// Size is the file size in bytes.
	Size int64
	// ModTime is the modification time reported by the file system.
	ModTime time.Time
	// Sum is the SHA-256 of the file contents.
	Sum [sha256.Size]byte
}

// Equal reports whether two fingerprints describe the same file state.
// Two missing files are always equal.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Exists != other.Exists {
		return false
	}
	if !f.Exists {
		return true
	}
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime) && f.Sum == other.Sum
}

// TakeFingerprint reads the current state of path. A missing file yields
// a fingerprint with Exists set to false and no error.
func TakeFingerprint(fsys FileSystem, path string) (Fingerprint, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, nil
		}
		return Fingerprint{}, &ReadError{Path: path, Err: err}
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, nil
		}
		return Fingerprint{}, &ReadError{Path: path, Err: err}
	}
	return fingerprintOf(info, data), nil
}

func fingerprintOf(info fs.FileInfo, data []byte) Fingerprint {
	return Fingerprint{
		Exists:  true,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Sum:     sha256.Sum256(data),
	}
}

// Document is one configuration file as read from disk.
type Document struct {
	// Path is the file path.
	Path string
	// Exists is false when the file was missing at load time.
	Exists bool
	// Raw is the file contents exactly as read.
	Raw []byte
	// JSON is the contents converted to strict JSON. It is "{}" for
	// missing or blank files.
	JSON []byte
	// Fingerprint records the file state at load time.
	Fingerprint Fingerprint
}

// Load reads and parses the file at path.
//
// A missing file is not an error: the returned document has Exists set to
// false and an empty object as its JSON. Unreadable files return a
// *ReadError and malformed files a *ParseError.
func Load(fsys FileSystem, path string) (*Document, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{Path: path, JSON: emptyDocument}, nil
		}
		return nil, &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ReadError{Path: path, Err: errors.New("is a directory")}
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{Path: path, JSON: emptyDocument}, nil
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	js, err := Parse(path, data)
	if err != nil {
		return nil, err
	}

	return &Document{
		Path:        path,
		Exists:      true,
		Raw:         data,
		JSON:        js,
		Fingerprint: fingerprintOf(info, data),
	}, nil
}

// Parse converts configuration syntax to strict JSON and checks that the
// result is well formed. Input holding only whitespace and comments parses
// as an empty object.
func Parse(path string, data []byte) ([]byte, error) {
	js := ToJSON(data)
	if len(bytes.TrimSpace(js)) == 0 {
		return emptyDocument, nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(js, &raw); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			perr.Line, perr.Column = position(js, syn.Offset)
		}
		return nil, perr
	}

	return js, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line = 1 + bytes.Count(prefix, []byte{'\n'})
	col = len(prefix) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}
