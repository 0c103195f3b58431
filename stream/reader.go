// Package stream implements the I/O shell's input side: parsing
// observed 32-bit outputs from either ASCII numeric lines or raw
// little-endian binary words (spec.md §4.6, §6).
package stream

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/tomcrypto/pcg-breaker/breakerr"
)

// ByteOrder selects the word order for --binary mode. spec.md's Design
// Notes flag native-endian binary mode as underspecified; we resolve it
// concretely as a flag (SPEC_FULL.md §10.1) rather than leaving it
// implicit, defaulting to little-endian.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Reader yields consecutive 32-bit outputs from an input stream. It
// makes no attempt to tolerate or skip malformed input: any parse
// failure is fatal, matching spec.md §7's "malformed input" category.
type Reader struct {
	scan   *bufio.Scanner
	br     *bufio.Reader
	binary bool
	order  ByteOrder
	lineNo int
	offset int64
}

// NewLineReader parses one `0x`-prefixed-hex or decimal token per line,
// whitespace-trimmed, matching spec.md §4.6's line mode.
func NewLineReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scan: s}
}

// NewBinaryReader parses raw 32-bit words in the given byte order.
func NewBinaryReader(r io.Reader, order ByteOrder) *Reader {
	return &Reader{br: bufio.NewReader(r), binary: true, order: order}
}

// Next returns the next observed output, or io.EOF once the stream is
// exhausted cleanly. In line mode an unparseable token is a
// breakerr.KindMalformedInput failure naming the offending line, and a
// failure of the underlying read is breakerr.KindIO; in binary mode any
// read that stops short of a full word is breakerr.KindMalformedInput
// naming the byte offset (spec.md §7.3).
func (r *Reader) Next() (uint32, error) {
	if r.binary {
		return r.nextBinary()
	}
	return r.nextLine()
}

func (r *Reader) nextLine() (uint32, error) {
	for r.scan.Scan() {
		r.lineNo++
		tok := strings.TrimSpace(r.scan.Text())
		if tok == "" {
			continue
		}
		v, err := parseToken(tok)
		if err != nil {
			return 0, breakerr.Wrapf(breakerr.KindMalformedInput, err, "line %d: %q", r.lineNo, tok)
		}
		return v, nil
	}
	if err := r.scan.Err(); err != nil {
		return 0, breakerr.Wrapf(breakerr.KindIO, err, "reading line %d", r.lineNo+1)
	}
	return 0, io.EOF
}

func (r *Reader) nextBinary() (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(r.br, buf[:])
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, breakerr.Wrapf(breakerr.KindMalformedInput, err, "truncated word at offset %d (%d bytes read)", r.offset, n)
	}
	r.offset += 4

	if r.order == BigEndian {
		return binary.BigEndian.Uint32(buf[:]), nil
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// parseToken accepts a 0x-prefixed hex literal or a plain decimal
// literal, matching spec.md §4.6.
func parseToken(tok string) (uint32, error) {
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		v, err := strconv.ParseUint(tok[2:], 16, 32)
		return uint32(v), err
	}
	v, err := strconv.ParseUint(tok, 10, 32)
	return uint32(v), err
}
