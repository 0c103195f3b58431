// Package table implements table.bin: a ≈1GiB, position-indexed,
// read-only lookup from a 17-bit key (derived from two consecutive
// 32-bit generator outputs) to the set of high-bit state/increment
// fragments consistent with that observation.
//
// The on-disk layout, grounded in the corpus's slotcache SLC1 header
// (fixed-offset fields, trailing CRC32), is:
//
//	[0, HeaderSize)                         fixed header, see Header
//	[HeaderSize, HeaderSize+8*BucketCount)  BucketOffsets, one uint64 each
//	[DataOffset, EOF)                       bucket payloads: uint32 count
//	                                         followed by count*RecordWidth
//	                                         bytes of packed Records
package table

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	// Magic identifies a well-formed table.bin; readers refuse anything else.
	Magic = "PCGT"

	// Version is bumped whenever the on-disk layout changes incompatibly.
	Version uint32 = 1

	// HeaderSize is the fixed size, in bytes, of the file header.
	HeaderSize = 64

	// RecordWidth is the width, in bytes, of one packed Record.
	RecordWidth = 8

	// KeyBits is the width of the bucket key derived from two
	// consecutive outputs.
	KeyBits = 17

	// BucketCount is the fixed number of buckets, 2^KeyBits.
	BucketCount = 1 << KeyBits
)

// Header offsets within the first HeaderSize bytes.
const (
	offMagic       = 0x00 // [4]byte
	offVersion     = 0x04 // uint32
	offRecordWidth = 0x08 // uint32
	offBucketCount = 0x0C // uint32
	offBucketBound = 0x10 // uint32, largest observed bucket size
	offTotalRecs   = 0x18 // uint64
	offDataOffset  = 0x20 // uint64
	offReserved    = 0x28 // reserved through 0x3B
	offHeaderCRC32 = 0x3C // uint32, last 4 bytes
)

// Header is the decoded form of table.bin's fixed-size header.
type Header struct {
	Version     uint32
	RecordWidth uint32
	BucketCount uint32
	BucketBound uint32 // largest bucket observed while building
	TotalRecs   uint64
	DataOffset  uint64 // byte offset where bucket payloads begin
}

// BucketOffsetsOffset is where the BucketOffsets array begins: right
// after the fixed header.
const BucketOffsetsOffset = HeaderSize

// EncodeHeader serializes h into a HeaderSize-byte slice with a valid
// trailing CRC32C checksum.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[offMagic:], Magic)
	binary.LittleEndian.PutUint32(buf[offVersion:], h.Version)
	binary.LittleEndian.PutUint32(buf[offRecordWidth:], h.RecordWidth)
	binary.LittleEndian.PutUint32(buf[offBucketCount:], h.BucketCount)
	binary.LittleEndian.PutUint32(buf[offBucketBound:], h.BucketBound)
	binary.LittleEndian.PutUint64(buf[offTotalRecs:], h.TotalRecs)
	binary.LittleEndian.PutUint64(buf[offDataOffset:], h.DataOffset)

	crc := crc32.Checksum(buf[:offHeaderCRC32], crc32.MakeTable(crc32.Castagnoli))
	binary.LittleEndian.PutUint32(buf[offHeaderCRC32:], crc)
	return buf
}

// DecodeHeader parses and validates a HeaderSize-byte slice, checking
// the magic, the checksum, and that BucketCount matches the compiled-in
// constant (the engine has no way to size its bucket-key derivation
// around a different value).
func DecodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, errShortHeader
	}
	if string(buf[offMagic:offMagic+4]) != Magic {
		return h, errBadMagic
	}

	gotCRC := binary.LittleEndian.Uint32(buf[offHeaderCRC32:])
	wantCRC := crc32.Checksum(buf[:offHeaderCRC32], crc32.MakeTable(crc32.Castagnoli))
	if gotCRC != wantCRC {
		return h, errBadChecksum
	}

	h.Version = binary.LittleEndian.Uint32(buf[offVersion:])
	h.RecordWidth = binary.LittleEndian.Uint32(buf[offRecordWidth:])
	h.BucketCount = binary.LittleEndian.Uint32(buf[offBucketCount:])
	h.BucketBound = binary.LittleEndian.Uint32(buf[offBucketBound:])
	h.TotalRecs = binary.LittleEndian.Uint64(buf[offTotalRecs:])
	h.DataOffset = binary.LittleEndian.Uint64(buf[offDataOffset:])

	if h.Version != Version {
		return h, errBadVersion
	}
	if h.RecordWidth != RecordWidth {
		return h, errBadRecordWidth
	}
	if h.BucketCount != BucketCount {
		return h, errBadBucketCount
	}
	return h, nil
}
