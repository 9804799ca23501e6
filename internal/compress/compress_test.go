package compress

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDecompressLZNT1UncompressedBlock(t *testing.T) {
	payload := bytes.Repeat([]byte{0x41}, 100)
	buf := make([]byte, 2+len(payload))
	header := uint16(len(payload) - 3) // compressed bit clear
	binary.LittleEndian.PutUint16(buf[0:2], header)
	copy(buf[2:], payload)

	out, err := DecompressLZNT1Unit(buf, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("got %d bytes, want %d", len(out), len(payload))
	}
}

func TestDecompressLZNT1CompressedBlockLiterals(t *testing.T) {
	// Hand-craft a tiny compressed block: flags byte 0x00 means every
	// following byte this round is a literal, so this exercises the
	// literal path of decompressBlock without needing a real encoder.
	literals := []byte("ABCDEFGH")
	block := append([]byte{0x00}, literals...)
	header := uint16(len(block)-3) | blockHeaderCompressedBit
	buf := make([]byte, 2+len(block))
	binary.LittleEndian.PutUint16(buf[0:2], header)
	copy(buf[2:], block)

	out, err := DecompressLZNT1Unit(buf, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, literals) {
		t.Fatalf("got %q, want %q", out, literals)
	}
}

func TestDecompressLZNT1BackReference(t *testing.T) {
	// flags=0x20 (bit 5 set) over 5 literal bytes then one back-reference
	// token. Output so far after 5 literals is len=5, so splitBits(5)
	// computes on n=4: bits=0 -> 1<<1=2, 4>=2 true; bits=1 -> 1<<2=4,
	// 4>=4 true; bits=2 -> 1<<3=8, 4>=8 false -> offsetBits=3,
	// lengthBits=13.
	literals := []byte("ABCDE")
	// Back-reference: length=3 (encoded length-3=0), backOffset=5
	// (encoded offset-1=4), token = (4<<13)|0 = 0x8000.
	token := make([]byte, 2)
	binary.LittleEndian.PutUint16(token, uint16(4<<13))
	block := append([]byte{0x20}, literals...)
	block = append(block, token...)

	header := uint16(len(block)-3) | blockHeaderCompressedBit
	buf := make([]byte, 2+len(block))
	binary.LittleEndian.PutUint16(buf[0:2], header)
	copy(buf[2:], block)

	out, err := DecompressLZNT1Unit(buf, 4096)
	if err != nil {
		t.Fatal(err)
	}
	want := "ABCDEABC" // back-reference copies 3 bytes starting 5 back -> "ABC"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

type fakeDecompressor struct {
	out []byte
}

func (f fakeDecompressor) Decompress(compressed []byte, maxSize int) ([]byte, error) {
	return f.out, nil
}

func TestWOFReaderChunkedRandomAccess(t *testing.T) {
	Register(AlgorithmXpress4K, fakeDecompressor{out: bytes.Repeat([]byte{0x42}, 4096)})
	defer Unregister(AlgorithmXpress4K)

	header := WOFHeader{Algorithm: AlgorithmXpress4K, UncompressedSize: 8000}
	// totalChunks = ceil(8000/4096) = 2, so 1 table entry (4 bytes since
	// uncompressed size < 4GiB).
	tableSize := 4
	compressedPayload := bytes.Repeat([]byte{0xFF}, 20) // arbitrary compressed bytes, fakeDecompressor ignores them
	buf := make([]byte, tableSize+len(compressedPayload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(10)) // chunk 0 ends at table+10

	r, err := NewReader(readerAtFromBytes(buf), header, int64(len(buf)))
	if err != nil {
		t.Fatal(err)
	}

	out := make([]byte, 10)
	n, err := r.ReadAt(out, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("n = %d", n)
	}
	for _, b := range out {
		if b != 0x42 {
			t.Fatalf("expected decoded bytes, got %x", out)
		}
	}
}

type bytesReaderAt struct{ b []byte }

func (r bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, bytesEOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, bytesEOF
	}
	return n, nil
}

var bytesEOF = errShortRead{}

type errShortRead struct{}

func (errShortRead) Error() string { return "short read" }

func readerAtFromBytes(b []byte) bytesReaderAt { return bytesReaderAt{b: b} }
