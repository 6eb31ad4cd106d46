package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Header is the magic token opening every metafile.
	Header = "#%GIT-METAFILE"

	// Version is the only format version this package reads and writes.
	Version uint32 = 1

	columnsComment = "# <path>\t<mode>\t<uid>\t<gid>"
	trailerComment = "# vim: set ts=16"

	maxLineSize = 1 << 20
)

// LineResult is the outcome of parsing one body line: either an Entry or
// a *MalformedError carrying the line number.
type LineResult struct {
	Line  int
	Entry Entry
	Err   error
}

// Scan reads a metafile and returns its version together with one result per
// entry line. Comments and empty lines produce no result. Repeated paths are
// reported as malformed lines wrapping ErrDuplicatePath. A line longer than
// 1 MiB is reported as malformed without aborting the scan.
//
// A missing or malformed header, an unsupported version, or a read failure
// is returned as the error and no line results are produced.
func Scan(r io.Reader) (uint32, []LineResult, error) {
	lr := &lineReader{br: bufio.NewReaderSize(r, 64*1024)}

	var header string
	found := false
	for {
		line, tooLong, ok := lr.next()
		if !ok {
			break
		}
		if tooLong {
			return 0, nil, &MalformedError{Msg: "missing or malformed header"}
		}
		if line == "" {
			continue
		}
		header, found = line, true
		break
	}
	if lr.err != nil {
		return 0, nil, fmt.Errorf("reading metafile: %w", lr.err)
	}
	if !found {
		return 0, nil, &MalformedError{Msg: "missing or malformed header"}
	}

	version, err := parseHeader(header)
	if err != nil {
		return 0, nil, err
	}
	if version != Version {
		return version, nil, &UnsupportedVersionError{Version: version}
	}

	var results []LineResult
	seen := make(map[string]int)
	for {
		line, tooLong, ok := lr.next()
		if !ok {
			break
		}
		if tooLong {
			results = append(results, LineResult{Line: lr.lineNo, Err: &MalformedError{
				Line: lr.lineNo,
				Msg:  fmt.Sprintf("line longer than %d bytes", maxLineSize),
			}})
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		res := LineResult{Line: lr.lineNo}
		entry, err := ParseEntry(line)
		switch {
		case err != nil:
			var me *MalformedError
			if errors.As(err, &me) {
				err = me.atLine(lr.lineNo)
			}
			res.Err = err
		case seen[entry.Path] != 0:
			res.Err = &MalformedError{
				Line: lr.lineNo,
				Msg:  fmt.Sprintf("duplicate path %q (first seen at line %d)", entry.Path, seen[entry.Path]),
				Err:  ErrDuplicatePath,
			}
		default:
			seen[entry.Path] = lr.lineNo
			res.Entry = entry
		}
		results = append(results, res)
	}
	if lr.err != nil {
		return 0, nil, fmt.Errorf("reading metafile: %w", lr.err)
	}

	return version, results, nil
}

// lineReader splits input into lines without a size limit on the input.
// Lines over maxLineSize are consumed but their content is dropped.
type lineReader struct {
	br     *bufio.Reader
	lineNo int
	err    error
}

// next returns the next line without its terminator. ok is false at the end
// of input or after a read error, which is kept in lr.err.
func (lr *lineReader) next() (line string, tooLong, ok bool) {
	var buf []byte
	for {
		chunk, isPrefix, err := lr.br.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lr.err = err
			}
			return "", false, false
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			lr.lineNo++
			return strings.TrimSuffix(string(buf), "\r"), tooLong, true
		}
	}
}

func parseHeader(line string) (uint32, error) {
	if !strings.HasPrefix(line, Header) {
		return 0, &MalformedError{Msg: "missing or malformed header"}
	}
	v, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, Header)), 10, 32)
	if err != nil {
		return 0, &MalformedError{Msg: "missing or malformed header", Err: err}
	}
	return uint32(v), nil
}

// DecodeOptions controls how Decode treats malformed entry lines.
type DecodeOptions struct {
	// Strict aborts on the first malformed line. When false (the default),
	// malformed lines are skipped and handed to OnError.
	Strict bool

	// OnError receives each skipped line error in lenient mode. May be nil.
	OnError func(err error)
}

// Decode parses a complete metafile into a Snapshot.
func Decode(r io.Reader, opts DecodeOptions) (*Snapshot, error) {
	version, results, err := Scan(r)
	if err != nil {
		return nil, err
	}

	s := New()
	s.Version = version
	for _, res := range results {
		if res.Err != nil {
			if opts.Strict {
				return nil, res.Err
			}
			if opts.OnError != nil {
				opts.OnError(res.Err)
			}
			continue
		}
		// Scan already filtered duplicates.
		s.index[res.Entry.Path] = len(s.Entries)
		s.Entries = append(s.Entries, res.Entry)
	}
	return s, nil
}

// Read opens and decodes the metafile at path.
func Read(path string, opts DecodeOptions) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metafile: %w", err)
	}
	defer f.Close()

	return Decode(f, opts)
}

// Encode writes s to w in the current format version.
func Encode(w io.Writer, s *Snapshot) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d\n%s\n", Header, Version, columnsComment)
	for _, e := range s.Entries {
		bw.WriteString(e.String())
		bw.WriteByte('\n')
	}
	bw.WriteString(trailerComment)
	bw.WriteByte('\n')

	// bufio.Writer keeps the first write error and returns it from Flush.
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing metafile: %w", err)
	}
	return nil
}

// Write encodes s to path. The content goes to a temporary file in the same
// directory first and is renamed over path, so a failed write leaves any
// existing metafile intact. An existing file keeps its permission bits.
func Write(path string, s *Snapshot) error {
	perm := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating metafile: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting metafile permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing metafile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing metafile: %w", err)
	}
	return nil
}
