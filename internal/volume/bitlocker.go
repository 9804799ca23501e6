package volume

import "fmt"

// BitLockerReader wraps another Reader with a decrypted view once a key
// has been supplied out of band (recovery password, clear key, or a TPM
// unlock already performed by the OS). This port does not implement FVEK
// derivation or AES-XTS itself - decrypting a locked volume is squarely
// outside "read-only forensic collection" until the key material is
// already available - but the shape is here so a caller holding an
// unlocked handle (e.g. the OS already mounted it) can still go through
// the same Reader contract as every other backend.
type BitLockerReader struct {
	inner Reader
}

// NewBitLockerReader wraps an already-unlocked inner reader. Use this when
// the volume was unlocked by the OS (or a prior `manage-bde`/WinAPI call)
// and the bytes read from inner are already plaintext.
func NewBitLockerReader(inner Reader) *BitLockerReader {
	return &BitLockerReader{inner: inner}
}

func (r *BitLockerReader) LoadBootSector() error             { return r.inner.LoadBootSector() }
func (r *BitLockerReader) ReadAt(lcn uint64, sectors uint32) ([]byte, error) {
	return r.inner.ReadAt(lcn, sectors)
}
func (r *BitLockerReader) Read(p []byte) (int, error)               { return r.inner.Read(p) }
func (r *BitLockerReader) Seek(offset int64, whence int) (int64, error) {
	return r.inner.Seek(offset, whence)
}
func (r *BitLockerReader) CanRead() bool      { return r.inner.CanRead() }
func (r *BitLockerReader) CanWrite() bool     { return false }
func (r *BitLockerReader) CanSeek() bool      { return r.inner.CanSeek() }
func (r *BitLockerReader) IsOpen() bool       { return r.inner.IsOpen() }
func (r *BitLockerReader) Size() int64        { return r.inner.Size() }
func (r *BitLockerReader) GetLength() uint64  { return r.inner.GetLength() }
func (r *BitLockerReader) GetSerial() uint64  { return r.inner.GetSerial() }
func (r *BitLockerReader) GetFSType() FSType  { return r.inner.GetFSType() }
func (r *BitLockerReader) Geometry() Geometry { return r.inner.Geometry() }

// Close does not close inner: the BitLocker view is always a borrower
// wrapping a handle someone else owns.
func (r *BitLockerReader) Close() error { return nil }

var _ Reader = (*BitLockerReader)(nil)

func newUnsupportedBitLockerError(reason string) error {
	return fmt.Errorf("volume: bitlocker key derivation not supported: %s", reason)
}
