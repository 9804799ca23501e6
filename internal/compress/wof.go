package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrChunkSizeMismatch is a hard error for the file: a chunk decoded to a
// size other than the expected chunk size (except permissibly for the
// final chunk, whose expected size is derived from the uncompressed
// file size), per spec.md 4.5's correctness test.
var ErrChunkSizeMismatch = errors.New("compress: wof chunk decompressed to unexpected size")

// WOFHeader is the descriptor WOF attaches to a compressed file, decoded
// from its reparse point payload (see internal/ntfs.DecodeWOFReparsePoint
// for the reparse point itself; this struct is the algorithm/size tuple
// spec.md 4.5 names).
type WOFHeader struct {
	Algorithm       Algorithm
	UncompressedSize uint64
}

// ChunkTable is the decoded offset table at the start of a file's
// ::WofCompressedData stream: (total_chunks - 1) entries giving the
// cumulative compressed byte offset of each chunk boundary (the first
// chunk always starts right after the table; the last chunk's end is the
// stream's total compressed size).
type ChunkTable struct {
	Offsets    []uint64 // len == totalChunks - 1
	EntryWidth int      // 4 or 8 bytes, per spec.md 4.5
}

// totalChunks returns how many chunks UncompressedSize implies for the
// given chunk size.
func totalChunks(uncompressedSize uint64, chunkSize int) int {
	if uncompressedSize == 0 {
		return 0
	}
	return int((uncompressedSize + uint64(chunkSize) - 1) / uint64(chunkSize))
}

// DecodeChunkTable reads the chunk offset table from the start of a
// WofCompressedData stream. Per spec.md 4.5, entries are 4 bytes when
// uncompressedSize < 4 GiB, else 8 bytes.
func DecodeChunkTable(r io.Reader, header WOFHeader) (ChunkTable, error) {
	n := totalChunks(header.UncompressedSize, header.Algorithm.ChunkSize())
	if n <= 1 {
		return ChunkTable{EntryWidth: entryWidth(header.UncompressedSize)}, nil
	}
	entries := n - 1
	width := entryWidth(header.UncompressedSize)

	buf := make([]byte, entries*width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ChunkTable{}, fmt.Errorf("compress: read chunk table: %w", err)
	}

	t := ChunkTable{EntryWidth: width, Offsets: make([]uint64, entries)}
	for i := 0; i < entries; i++ {
		off := i * width
		if width == 4 {
			t.Offsets[i] = uint64(binary.LittleEndian.Uint32(buf[off : off+4]))
		} else {
			t.Offsets[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		}
	}
	return t, nil
}

func entryWidth(uncompressedSize uint64) int {
	if uncompressedSize >= 4*1024*1024*1024 {
		return 8
	}
	return 4
}

// TableSize returns the chunk table's on-disk byte size.
func (t ChunkTable) TableSize() int64 {
	return int64(len(t.Offsets)) * int64(t.EntryWidth)
}

// ChunkBounds returns the [start, end) compressed-byte range of chunk
// index within the WofCompressedData stream (offsets relative to the
// start of that stream, table included), given the total compressed
// stream size for resolving the final chunk's end.
func (t ChunkTable) ChunkBounds(index int, totalCompressedSize int64) (start, end int64, err error) {
	numChunks := len(t.Offsets) + 1
	if index < 0 || index >= numChunks {
		return 0, 0, fmt.Errorf("compress: chunk %d out of range (%d chunks)", index, numChunks)
	}

	tableSize := t.TableSize()
	if index == 0 {
		start = tableSize
	} else {
		start = tableSize + int64(t.Offsets[index-1])
	}
	if index < len(t.Offsets) {
		end = tableSize + int64(t.Offsets[index])
	} else {
		end = totalCompressedSize
	}
	return start, end, nil
}

// Reader provides random-access reads over a WOF-compressed stream,
// caching the single most recently decoded chunk (spec.md 4.5: "does not
// cache more than one chunk").
type Reader struct {
	src              io.ReaderAt
	header           WOFHeader
	table            ChunkTable
	compressedSize   int64

	cachedIndex int
	cachedData  []byte
	haveCache   bool
}

// NewReader builds a Reader over src (the ::WofCompressedData stream,
// seekable via ReadAt), given the file's WOF header and the total
// compressed stream length (from the alternate stream's own size).
func NewReader(src io.ReaderAt, header WOFHeader, compressedSize int64) (*Reader, error) {
	sr := io.NewSectionReader(src, 0, compressedSize)
	table, err := DecodeChunkTable(sr, header)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, header: header, table: table, compressedSize: compressedSize, cachedIndex: -1}, nil
}

// ReadAt decodes and returns up to len(p) bytes starting at uncompressed
// offset off, per spec.md 4.5's four-step random-read recipe.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || uint64(off) >= r.header.UncompressedSize {
		return 0, io.EOF
	}
	chunkSize := r.header.Algorithm.ChunkSize()
	if chunkSize == 0 {
		return 0, fmt.Errorf("compress: unknown chunk size for %v", r.header.Algorithm)
	}

	n := 0
	for n < len(p) {
		curOff := off + int64(n)
		if uint64(curOff) >= r.header.UncompressedSize {
			break
		}
		chunkIndex := int(curOff / int64(chunkSize))
		intra := int(curOff % int64(chunkSize))

		chunk, err := r.decodeChunk(chunkIndex)
		if err != nil {
			return n, err
		}
		if intra >= len(chunk) {
			break
		}
		copied := copy(p[n:], chunk[intra:])
		n += copied
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *Reader) decodeChunk(index int) ([]byte, error) {
	if r.haveCache && r.cachedIndex == index {
		return r.cachedData, nil
	}

	start, end, err := r.table.ChunkBounds(index, r.compressedSize)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("compress: chunk %d has negative length", index)
	}
	compressed := make([]byte, end-start)
	if _, err := r.src.ReadAt(compressed, start); err != nil {
		return nil, fmt.Errorf("compress: read chunk %d: %w", index, err)
	}

	chunkSize := r.header.Algorithm.ChunkSize()
	expected := chunkSize
	if isLastChunk(index, r.header.UncompressedSize, chunkSize) {
		rem := int(r.header.UncompressedSize % uint64(chunkSize))
		if rem != 0 {
			expected = rem
		}
	}

	decompressor, err := Lookup(r.header.Algorithm)
	if err != nil {
		return nil, err
	}
	decoded, err := decompressor.Decompress(compressed, expected)
	if err != nil {
		return nil, err
	}
	if len(decoded) != expected {
		return nil, fmt.Errorf("%w: chunk %d decoded to %d bytes, want %d", ErrChunkSizeMismatch, index, len(decoded), expected)
	}

	r.cachedIndex = index
	r.cachedData = decoded
	r.haveCache = true
	return decoded, nil
}

func isLastChunk(index int, uncompressedSize uint64, chunkSize int) bool {
	return index == totalChunks(uncompressedSize, chunkSize)-1
}
