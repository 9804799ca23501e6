package vss

import (
	"encoding/binary"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

func TestParseBlockHeaderRejectsMisalignment(t *testing.T) {
	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint64(buf[32:40], BlockSize+1) // next offset not aligned
	_, err := ParseBlockHeader(buf)
	if err != ErrMisalignedBlock {
		t.Fatalf("got %v, want ErrMisalignedBlock", err)
	}
}

func TestParseCatalogBlockSnapshotInfo(t *testing.T) {
	buf := make([]byte, BlockSize)
	// Header: next offset 0 (last block in chain).
	binary.LittleEndian.PutUint64(buf[0:8], CatalogSignature)

	entry := buf[headerSize : headerSize+entrySize]
	binary.LittleEndian.PutUint32(entry[0:4], uint32(EntrySnapshotInfo))
	binary.LittleEndian.PutUint64(entry[8:16], 12345) // size
	g := uuid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")
	copy(entry[16:32], reverseGUIDByteOrder(g[:]))
	binary.LittleEndian.PutUint64(entry[32:40], 7)             // stack position
	binary.LittleEndian.PutUint64(entry[40:48], 0x1)           // flags
	binary.LittleEndian.PutUint64(entry[48:56], 128930364000000000) // some filetime

	// end-of-catalog marker right after
	endEntry := buf[headerSize+entrySize : headerSize+2*entrySize]
	binary.LittleEndian.PutUint32(endEntry[0:4], uint32(EntryEndOfCatalog))

	header, snapshots, diffAreas, err := ParseCatalogBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if header.NextOffset != 0 {
		t.Fatalf("next offset = %d, want 0", header.NextOffset)
	}
	if len(diffAreas) != 0 {
		t.Fatalf("unexpected diff areas: %v", diffAreas)
	}
	if len(snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snapshots))
	}
	si := snapshots[0]
	if si.Size != 12345 {
		t.Errorf("size = %d", si.Size)
	}
	if si.GUID != g {
		t.Errorf("guid = %s, want %s", si.GUID, g)
	}
	if si.StackPosition != 7 {
		t.Errorf("stack position = %d", si.StackPosition)
	}
	if si.CreationTime.Year() < 2000 {
		t.Errorf("creation time decoded implausibly: %v", si.CreationTime)
	}
}

func TestReverseGUIDByteOrderRoundTrip(t *testing.T) {
	g := uuid.MustParse("aabbccdd-eeff-0011-2233-445566778899")
	reversed := reverseGUIDByteOrder(g[:])
	// Reversing twice (with the same mixed-endian transform) on the first
	// 8 bytes and passing through the last 8 unchanged should recover the
	// original field values; the transform is its own inverse on the
	// 4+2+2 byte-swapped prefix.
	back := reverseGUIDByteOrder(reversed)
	if uuid.Must(uuid.FromBytes(back)) != g {
		t.Fatalf("round trip mismatch: got %x, want %x", back, g[:])
	}
}

func TestFiletimeToTimeKnownValue(t *testing.T) {
	// 2020-01-01T00:00:00Z in Windows FILETIME.
	const ft = 132223104000000000
	got := filetimeToTime(ft)
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseLocationTableBlockStopsAtZeroEntry(t *testing.T) {
	buf := make([]byte, BlockSize)
	entry := buf[headerSize : headerSize+locationEntrySize]
	binary.LittleEndian.PutUint64(entry[0:8], 4096)
	binary.LittleEndian.PutUint64(entry[8:16], 16384)
	binary.LittleEndian.PutUint64(entry[16:24], 4096)

	_, entries, err := ParseLocationTableBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Offset != 4096 || entries[0].DataRelativeOffset != 16384 || entries[0].Size != 4096 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestResolveFindsCoveringEntry(t *testing.T) {
	entries := []LocationEntry{
		{Offset: 4096, DataRelativeOffset: 16384, Size: 4096},
		{Offset: 8192, DataRelativeOffset: 32768, Size: 4096},
	}
	off, ok := Resolve(entries, 8200, 100)
	if !ok {
		t.Fatal("expected a match")
	}
	if off != 32768+(8200-8192) {
		t.Fatalf("got offset %d", off)
	}

	if _, ok := Resolve(entries, 100000, 10); ok {
		t.Fatal("expected no match for uncovered range")
	}
}

func TestBitmapIsOverwritten(t *testing.T) {
	bm := &Bitmap{FirstCluster: 10, Bits: []byte{0b00000101}}
	if !bm.IsOverwritten(10) {
		t.Error("cluster 10 (bit 0) should be overwritten")
	}
	if bm.IsOverwritten(11) {
		t.Error("cluster 11 (bit 1) should not be overwritten")
	}
	if !bm.IsOverwritten(12) {
		t.Error("cluster 12 (bit 2) should be overwritten")
	}
	if bm.IsOverwritten(9) {
		t.Error("cluster before FirstCluster should read as unoverwritten")
	}
	if bm.IsOverwritten(1000) {
		t.Error("cluster far past tracked range should read as unoverwritten")
	}
}

// fakeVolume is a minimal in-memory volume.Reader used to exercise the
// catalog/location-table/bitmap chain walkers and ShadowCopyReader
// without any platform-specific backend.
type fakeVolume struct {
	data []byte
	geom volume.Geometry
}

func newFakeVolume(data []byte, clusterSize, sectorSize uint32) *fakeVolume {
	return &fakeVolume{
		data: data,
		geom: volume.Geometry{ClusterSize: clusterSize, SectorSize: sectorSize},
	}
}

func (f *fakeVolume) LoadBootSector() error { return nil }

func (f *fakeVolume) ReadAt(lcn uint64, sectors uint32) ([]byte, error) {
	offset := lcn * uint64(f.geom.ClusterSize)
	n := uint64(sectors) * uint64(f.geom.SectorSize)
	out := make([]byte, n)
	if offset >= uint64(len(f.data)) {
		return out, nil
	}
	avail := uint64(len(f.data)) - offset
	if avail > n {
		avail = n
	}
	copy(out, f.data[offset:offset+avail])
	return out, nil
}

func (f *fakeVolume) Read(p []byte) (int, error)                   { return 0, nil }
func (f *fakeVolume) Seek(offset int64, whence int) (int64, error) { return 0, nil }
func (f *fakeVolume) Close() error                                 { return nil }
func (f *fakeVolume) IsOpen() bool                                 { return true }
func (f *fakeVolume) CanRead() bool                       { return true }
func (f *fakeVolume) CanWrite() bool                      { return false }
func (f *fakeVolume) CanSeek() bool                       { return true }
func (f *fakeVolume) Size() int64                         { return int64(len(f.data)) }
func (f *fakeVolume) GetLength() uint64                   { return uint64(len(f.data)) }
func (f *fakeVolume) GetSerial() uint64                   { return 0 }
func (f *fakeVolume) GetFSType() volume.FSType            { return volume.FSUnknown }
func (f *fakeVolume) Geometry() volume.Geometry           { return f.geom }

var _ volume.Reader = (*fakeVolume)(nil)

func TestReadCatalogSingleBlock(t *testing.T) {
	block := make([]byte, BlockSize)
	binary.LittleEndian.PutUint64(block[0:8], CatalogSignature)
	entry := block[headerSize : headerSize+entrySize]
	binary.LittleEndian.PutUint32(entry[0:4], uint32(EntryDiffAreaInfo))
	binary.LittleEndian.PutUint64(entry[8:16], BlockSize) // FirstDiffTableOffset
	g := uuid.New()
	copy(entry[16:32], reverseGUIDByteOrder(g[:]))
	binary.LittleEndian.PutUint64(entry[32:40], 0)
	binary.LittleEndian.PutUint64(entry[40:48], BlockSize*2) // DiffLocationTableOffset
	binary.LittleEndian.PutUint64(entry[48:56], BlockSize*3) // BitmapOffset

	vol := newFakeVolume(block, 4096, 512)
	cat, err := ReadCatalog(vol, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.DiffAreas) != 1 {
		t.Fatalf("got %d diff areas, want 1", len(cat.DiffAreas))
	}
	if cat.DiffAreas[0].DiffLocationTableOffset != BlockSize*2 {
		t.Errorf("location table offset = %d", cat.DiffAreas[0].DiffLocationTableOffset)
	}
}

func TestFindCatalogStartScansPastNonMatchingBlocks(t *testing.T) {
	data := make([]byte, BlockSize*3)
	target := data[BlockSize*2 : BlockSize*3]
	binary.LittleEndian.PutUint64(target[0:8], CatalogSignature)

	vol := newFakeVolume(data, 4096, 512)
	off, err := FindCatalogStart(vol, 0)
	if err != nil {
		t.Fatal(err)
	}
	if off != BlockSize*2 {
		t.Fatalf("got offset %d, want %d", off, BlockSize*2)
	}
}

func TestFindCatalogStartNotFound(t *testing.T) {
	vol := newFakeVolume(make([]byte, BlockSize*2), 4096, 512)
	if _, err := FindCatalogStart(vol, 0); err != ErrCatalogNotFound {
		t.Fatalf("got %v, want ErrCatalogNotFound", err)
	}
}

func TestReadCatalogRejectsMisalignedStart(t *testing.T) {
	vol := newFakeVolume(make([]byte, BlockSize), 4096, 512)
	if _, err := ReadCatalog(vol, 1); err != ErrMisalignedBlock {
		t.Fatalf("got %v, want ErrMisalignedBlock", err)
	}
}

func TestShadowCopyReaderRoutesByBitmap(t *testing.T) {
	clusterSize := uint32(4096)
	sectorSize := uint32(512)

	live := newFakeVolume(append([]byte{}, buildClusterData(4, clusterSize, 0xAA)...), clusterSize, sectorSize)
	diffArea := newFakeVolume(append([]byte{}, buildClusterData(4, clusterSize, 0xBB)...), clusterSize, sectorSize)

	entries := []LocationEntry{
		{Offset: uint64(clusterSize), DataRelativeOffset: uint64(2 * clusterSize), Size: uint64(clusterSize)},
	}
	bitmap := &Bitmap{FirstCluster: 0, Bits: []byte{0b00000010}} // cluster 1 overwritten

	r := &ShadowCopyReader{
		live:     live,
		diffArea: diffArea,
		entries:  entries,
		bitmap:   bitmap,
		geom:     live.Geometry(),
		logger:   log.New(io.Discard, "", 0),
	}

	// Cluster 0: unchanged, served from live (0xAA).
	buf, err := r.ReadAt(0, uint32(clusterSize/sectorSize))
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xAA {
		t.Fatalf("cluster 0 = %x, want 0xAA", buf[0])
	}

	// Cluster 1: overwritten, served from diff-area cluster 2 (0xBB).
	buf, err = r.ReadAt(1, uint32(clusterSize/sectorSize))
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xBB {
		t.Fatalf("cluster 1 = %x, want 0xBB", buf[0])
	}
}

func buildClusterData(numClusters int, clusterSize uint32, fill byte) []byte {
	out := make([]byte, numClusters*int(clusterSize))
	for i := range out {
		out[i] = fill
	}
	return out
}
