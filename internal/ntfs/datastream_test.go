package ntfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// fakeClusterVolume is a minimal volume.Reader backed by an in-memory
// cluster array, just enough to exercise DataStreamReader's ReadAt
// path without a real NTFS image.
type fakeClusterVolume struct {
	clusters [][]byte
	geom     volume.Geometry
}

func newFakeClusterVolume(clusterSize uint32, clusters ...[]byte) *fakeClusterVolume {
	return &fakeClusterVolume{
		clusters: clusters,
		geom: volume.Geometry{
			SectorSize:  512,
			ClusterSize: clusterSize,
		},
	}
}

func (f *fakeClusterVolume) LoadBootSector() error { return nil }

func (f *fakeClusterVolume) ReadAt(lcn uint64, sectors uint32) ([]byte, error) {
	return f.clusters[lcn], nil
}

func (f *fakeClusterVolume) Read(p []byte) (int, error)                  { return 0, io.EOF }
func (f *fakeClusterVolume) Seek(offset int64, whence int) (int64, error) { return 0, nil }
func (f *fakeClusterVolume) Close() error                                 { return nil }
func (f *fakeClusterVolume) CanRead() bool                                { return true }
func (f *fakeClusterVolume) CanWrite() bool                               { return false }
func (f *fakeClusterVolume) CanSeek() bool                                { return true }
func (f *fakeClusterVolume) IsOpen() bool                                 { return true }
func (f *fakeClusterVolume) Size() int64                                  { return -1 }
func (f *fakeClusterVolume) GetLength() uint64                            { return 0 }
func (f *fakeClusterVolume) GetSerial() uint64                            { return 0 }
func (f *fakeClusterVolume) GetFSType() volume.FSType                     { return volume.FSNTFS }
func (f *fakeClusterVolume) Geometry() volume.Geometry                    { return f.geom }

var _ volume.Reader = (*fakeClusterVolume)(nil)

func TestDataStreamReaderResident(t *testing.T) {
	attr := Attribute{Type: AttrData, Resident: true, ResidentData: []byte("hello world")}
	r, err := NewDataStreamReader(nil, attr)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestDataStreamReaderNonResidentSingleRun(t *testing.T) {
	clusterSize := uint32(512)
	data := bytes.Repeat([]byte("A"), int(clusterSize))
	vol := newFakeClusterVolume(clusterSize, data)

	attr := Attribute{
		Type:     AttrData,
		Resident: false,
		RunList:  []Run{{LengthClusters: 1, LCN: 0}},
		RealSize: 100,
	}
	r, err := NewDataStreamReader(vol, attr)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes (RealSize), got %d", len(got))
	}
}

func TestDataStreamReaderSparseRunYieldsZeros(t *testing.T) {
	clusterSize := uint32(512)
	vol := newFakeClusterVolume(clusterSize)

	attr := Attribute{
		Type:     AttrData,
		Resident: false,
		RunList:  []Run{{LengthClusters: 1, Sparse: true}},
		RealSize: 50,
	}
	r, err := NewDataStreamReader(vol, attr)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 bytes, got %d", len(got))
	}
	for _, b := range got {
		if b != 0 {
			t.Fatalf("expected all-zero sparse content, found %x", b)
		}
	}
}
