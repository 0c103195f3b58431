package table

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tomcrypto/pcg-breaker/breakerr"
)

// Reader memory-maps table.bin read-only and exposes O(1) bucket
// lookups. Grounded in the corpus's slotcache mmapAndCreateCache /
// go-mph patterns: the file is opened once, mapped once, and kept
// mapped for the reader's entire lifetime; Lookup decodes each bucket
// into a freshly allocated slice, so its results do not borrow from the
// mapping.
type Reader struct {
	header  Header
	data    []byte // the full mmap'd file
	offsets []uint64
}

// Open opens path, validates its header, and maps it read-only.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, breakerr.Wrapf(breakerr.KindIO, err, "open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, breakerr.Wrapf(breakerr.KindIO, err, "stat %s", path)
	}
	if info.Size() < HeaderSize {
		return nil, breakerr.New(breakerr.KindCorruptTable, "table.bin shorter than header")
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, breakerr.Wrapf(breakerr.KindIO, err, "mmap %s", path)
	}

	header, err := DecodeHeader(data[:HeaderSize])
	if err != nil {
		_ = unix.Munmap(data)
		return nil, breakerr.Wrapf(breakerr.KindCorruptTable, err, "decode header of %s", path)
	}

	offsetsBytes := data[BucketOffsetsOffset : BucketOffsetsOffset+BucketCount*8]
	offsets := make([]uint64, BucketCount)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(offsetsBytes[i*8:])
		if offsets[i]+4 > uint64(len(data)) {
			_ = unix.Munmap(data)
			return nil, breakerr.New(breakerr.KindCorruptTable, "bucket offset out of range")
		}
	}

	return &Reader{header: header, data: data, offsets: offsets}, nil
}

// Header returns the validated, decoded file header.
func (r *Reader) Header() Header { return r.header }

// Lookup returns the records stored under a 17-bit key. Go gives us no
// safe way to reinterpret an arbitrarily-aligned mmap'd byte range as
// a []Record without unsafe and a padding guarantee the builder does
// not make, so Lookup takes the fallback spec.md §9 sanctions for
// implementations "without such a facility": it copies eagerly into a
// freshly allocated slice. The underlying mapping itself is never
// copied — only this small per-call decode.
func (r *Reader) Lookup(key uint32) ([]Record, error) {
	if key >= BucketCount {
		return nil, breakerr.New(breakerr.KindCorruptTable, "bucket key out of range")
	}
	off := r.offsets[key]
	if off+4 > uint64(len(r.data)) {
		return nil, breakerr.New(breakerr.KindCorruptTable, "bucket offset out of range")
	}

	count := binary.LittleEndian.Uint32(r.data[off : off+4])
	start := off + 4
	end := start + uint64(count)*RecordWidth
	if end > uint64(len(r.data)) {
		return nil, breakerr.New(breakerr.KindCorruptTable, "bucket payload out of range")
	}

	recs := make([]Record, count)
	for i := range recs {
		b := r.data[start+uint64(i)*RecordWidth:]
		recs[i] = Record(binary.LittleEndian.Uint64(b))
	}
	return recs, nil
}

// Close unmaps the file. The Reader must not be used afterward; Record
// slices already returned by Lookup are copies and stay readable.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if err != nil {
		return breakerr.Wrap(breakerr.KindIO, err, "munmap table.bin")
	}
	return nil
}
