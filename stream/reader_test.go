package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReaderParsesHexAndDecimal(t *testing.T) {
	r := NewLineReader(strings.NewReader("0x5FAAB311\n  \n3735928559\n0XFF\n"))

	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5FAAB311), v)

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(3735928559), v)

	v, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFF), v)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReaderRejectsMalformedToken(t *testing.T) {
	r := NewLineReader(strings.NewReader("not-a-number\n"))
	_, err := r.Next()
	assert.Error(t, err)
}

func TestBinaryReaderLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], 0xDEADBEEF)
	buf.Write(word[:])

	r := NewBinaryReader(&buf, LittleEndian)
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBinaryReaderBigEndian(t *testing.T) {
	var buf bytes.Buffer
	var word [4]byte
	binary.BigEndian.PutUint32(word[:], 0xCAFEBABE)
	buf.Write(word[:])

	r := NewBinaryReader(&buf, BigEndian)
	v, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)
}

func TestBinaryReaderRejectsTruncatedWord(t *testing.T) {
	r := NewBinaryReader(bytes.NewReader([]byte{1, 2, 3}), LittleEndian)
	_, err := r.Next()
	assert.Error(t, err)
}
