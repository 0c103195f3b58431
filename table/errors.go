package table

import "errors"

var (
	errShortHeader    = errors.New("table: file shorter than header")
	errBadMagic       = errors.New("table: bad magic, not a PCG-Breaker table")
	errBadChecksum    = errors.New("table: header checksum mismatch")
	errBadVersion     = errors.New("table: unsupported version")
	errBadRecordWidth = errors.New("table: unexpected record width")
	errBadBucketCount = errors.New("table: unexpected bucket count")
)
