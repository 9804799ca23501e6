package ntfs

import (
	"errors"
	"fmt"
)

// Run is one decoded run-list entry: a span of LCN-contiguous clusters, or
// a sparse gap when LCN is the zero value and Sparse is true.
type Run struct {
	LengthClusters uint64
	LCN            int64
	Sparse         bool
}

// ErrMalformedRunList is returned when a run header's length/offset field
// byte counts are inconsistent with the remaining buffer.
var ErrMalformedRunList = errors.New("ntfs: malformed run list")

// DecodeRunList decodes an NTFS data-run list, per spec.md 4.3 step 5: each
// entry starts with a header byte whose low nibble gives the byte-length of
// the following little-endian run length and whose high nibble gives the
// byte-length of the following signed LCN offset (relative to the previous
// run's LCN, sparse runs omit the offset field entirely). The list ends at
// a zero header byte.
func DecodeRunList(buf []byte) ([]Run, error) {
	var runs []Run
	var lastLCN int64
	offset := 0

	for offset < len(buf) {
		header := buf[offset]
		if header == 0 {
			break
		}
		lengthBytes := int(header & 0x0F)
		offsetBytes := int(header>>4) & 0x0F
		offset++

		if offset+lengthBytes > len(buf) {
			return nil, ErrMalformedRunList
		}
		length := decodeLittleEndianUint(buf[offset : offset+lengthBytes])
		offset += lengthBytes

		if offsetBytes == 0 {
			runs = append(runs, Run{LengthClusters: length, Sparse: true})
			continue
		}

		if offset+offsetBytes > len(buf) {
			return nil, ErrMalformedRunList
		}
		delta := decodeSignedLittleEndian(buf[offset : offset+offsetBytes])
		offset += offsetBytes

		lastLCN += delta
		runs = append(runs, Run{LengthClusters: length, LCN: lastLCN})
	}
	return runs, nil
}

func decodeLittleEndianUint(b []byte) uint64 {
	var v uint64
	for i, x := range b {
		v |= uint64(x) << (8 * uint(i))
	}
	return v
}

func decodeSignedLittleEndian(b []byte) int64 {
	v := decodeLittleEndianUint(b)
	// Sign-extend from the top bit of the last byte present.
	bits := uint(len(b)) * 8
	if bits < 64 && v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}

// TotalClusters returns the sum of LengthClusters across every run,
// sparse or not.
func TotalClusters(runs []Run) uint64 {
	var total uint64
	for _, r := range runs {
		total += r.LengthClusters
	}
	return total
}

// ResolveVCN maps a virtual cluster number to (LCN, sparse) using runs,
// returning an error if vcn falls outside the run list's covered range -
// used by the sample engine and archive pipeline to carve out individual
// clusters without materializing the whole data stream (spec.md 4.7/4.9).
func ResolveVCN(runs []Run, vcn uint64) (lcn int64, sparse bool, err error) {
	var cursor uint64
	for _, r := range runs {
		if vcn < cursor+r.LengthClusters {
			if r.Sparse {
				return 0, true, nil
			}
			return r.LCN + int64(vcn-cursor), false, nil
		}
		cursor += r.LengthClusters
	}
	return 0, false, fmt.Errorf("ntfs: vcn %d out of range (run list covers %d clusters)", vcn, cursor)
}
