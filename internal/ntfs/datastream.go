package ntfs

import (
	"fmt"
	"io"

	"github.com/orcforensics/dfir-orc-go/internal/volume"
)

// DataStreamReader presents one file's $DATA attribute (resident or
// non-resident) as an io.Reader, the missing piece the sample engine
// (C8) and archive pipeline (C9) need to actually read a matched
// file's content off the volume rather than just its metadata.
type DataStreamReader struct {
	reader volume.Reader
	geom   volume.Geometry

	resident []byte // non-nil when the attribute was resident
	runs     []Run
	size     uint64

	pos uint64
}

// NewDataStreamReader builds a reader over attr, using vol to resolve
// non-resident runs into actual bytes. attr must be a DATA attribute
// (resident or not); its RealSize bounds how much of the last cluster
// is returned.
func NewDataStreamReader(vol volume.Reader, attr Attribute) (*DataStreamReader, error) {
	if attr.Type != AttrData {
		return nil, fmt.Errorf("ntfs: NewDataStreamReader: attribute is %s, not DATA", attr.Type)
	}
	if attr.Resident {
		return &DataStreamReader{resident: attr.ResidentData, size: uint64(len(attr.ResidentData))}, nil
	}
	return &DataStreamReader{
		reader: vol,
		geom:   vol.Geometry(),
		runs:   attr.RunList,
		size:   attr.RealSize,
	}, nil
}

func (d *DataStreamReader) Read(p []byte) (int, error) {
	if d.pos >= d.size {
		return 0, io.EOF
	}
	remaining := d.size - d.pos
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}
	if len(p) == 0 {
		return 0, io.EOF
	}

	if d.resident != nil {
		n := copy(p, d.resident[d.pos:])
		d.pos += uint64(n)
		return n, nil
	}

	clusterSize := uint64(d.geom.ClusterSize)
	if clusterSize == 0 {
		return 0, fmt.Errorf("ntfs: data stream reader: zero cluster size")
	}
	sectorsPerCluster := clusterSize / uint64(d.geom.SectorSize)

	vcn := d.pos / clusterSize
	offsetInCluster := d.pos % clusterSize

	lcn, sparse, err := ResolveVCN(d.runs, vcn)
	if err != nil {
		return 0, fmt.Errorf("ntfs: data stream reader: %w", err)
	}

	var clusterBuf []byte
	if sparse {
		clusterBuf = make([]byte, clusterSize)
	} else {
		clusterBuf, err = d.reader.ReadAt(uint64(lcn), uint32(sectorsPerCluster))
		if err != nil {
			return 0, fmt.Errorf("ntfs: data stream reader: read cluster %d: %w", lcn, err)
		}
	}

	n := copy(p, clusterBuf[offsetInCluster:])
	d.pos += uint64(n)
	return n, nil
}

// Close is a no-op: DataStreamReader does not own the underlying
// volume.Reader.
func (d *DataStreamReader) Close() error { return nil }

var _ io.ReadCloser = (*DataStreamReader)(nil)
