package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is the captured metadata of a single path.
// Path is relative to the repository root and is the entry's key.
type Entry struct {
	Path string
	Mode uint32 // raw st_mode, file type bits included
	UID  uint32
	GID  uint32
}

// Equal reports whether e and other are field-wise identical.
// Paths are compared byte for byte, without normalization.
func (e Entry) Equal(other Entry) bool {
	return e == other
}

// String renders the entry as a metafile line without the trailing newline:
//
//	<path>\t<mode in octal>\t<uid>\t<gid>
func (e Entry) String() string {
	var b strings.Builder
	b.Grow(len(e.Path) + 24)
	b.WriteString(e.Path)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatUint(uint64(e.Mode), 8))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatUint(uint64(e.UID), 10))
	b.WriteByte('\t')
	b.WriteString(strconv.FormatUint(uint64(e.GID), 10))
	return b.String()
}

// ParseEntry parses a single metafile line produced by Entry.String.
// Fields after the fourth are ignored.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 {
		return Entry{}, &MalformedError{Msg: "expected 4 fields"}
	}
	if fields[0] == "" {
		return Entry{}, &MalformedError{Msg: "empty path"}
	}

	mode, err := parseField("mode", fields[1], 8)
	if err != nil {
		return Entry{}, err
	}
	uid, err := parseField("uid", fields[2], 10)
	if err != nil {
		return Entry{}, err
	}
	gid, err := parseField("gid", fields[3], 10)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{Path: fields[0], Mode: mode, UID: uid, GID: gid}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// noID is (uid_t)-1, which lchown(2) reads as "leave unchanged".
const noID = 1<<32 - 1

// Validate reports a *MalformedError if e cannot be stored in a metafile and
// read back unchanged: the path must be non-empty, must not start with '#'
// (it would read as a comment) and must not contain tabs or line breaks.
// An id of 4294967295 is rejected because it cannot be set.
func (e Entry) Validate() error {
	switch {
	case e.Path == "":
		return &MalformedError{Msg: "empty path"}
	case strings.HasPrefix(e.Path, "#"):
		return &MalformedError{Msg: fmt.Sprintf("path %q starts with '#'", e.Path)}
	case strings.ContainsAny(e.Path, "\t\n\r"):
		return &MalformedError{Msg: fmt.Sprintf("path %q contains a tab or line break", e.Path)}
	case e.UID == noID:
		return &MalformedError{Msg: fmt.Sprintf("invalid uid %d: reserved", e.UID)}
	case e.GID == noID:
		return &MalformedError{Msg: fmt.Sprintf("invalid gid %d: reserved", e.GID)}
	}
	return nil
}

func parseField(name, value string, base int) (uint32, error) {
	n, err := strconv.ParseUint(value, base, 32)
	if err != nil {
		var cause error = err
		if ne, ok := err.(*strconv.NumError); ok {
			cause = ne.Err
		}
		return 0, &MalformedError{
			Msg: fmt.Sprintf("invalid %s %q: %v", name, value, cause),
			Err: err,
		}
	}
	return uint32(n), nil
}
