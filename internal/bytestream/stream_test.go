package bytestream

import (
	"io"
	"testing"
)

func TestBufferStreamReadWrite(t *testing.T) {
	s := NewBufferStream([]byte("hello world"))

	buf := make([]byte, 5)
	n, err := s.Read(buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("Read() = %d, %v, %q", n, err, buf)
	}

	if _, err := s.Seek(0, SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	full := make([]byte, 11)
	if _, err := io.ReadFull(s, full); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(full) != "hello world" {
		t.Fatalf("got %q", full)
	}
}

func TestSpanStreamWindow(t *testing.T) {
	inner := NewBufferStream([]byte("0123456789"))
	span := NewSpanStream(inner, 2, 4)

	buf := make([]byte, 10)
	n, err := span.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("Read: %v", err)
	}
	if n != 4 || string(buf[:n]) != "2345" {
		t.Fatalf("got %q (n=%d)", buf[:n], n)
	}

	n, err = span.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatalf("expected EOF, got n=%d err=%v", n, err)
	}
}

func TestXorStreamRoundTrip(t *testing.T) {
	key := []byte{0xAA, 0x55}
	plain := []byte("the quick brown fox")

	encoded := make([]byte, len(plain))
	copy(encoded, plain)
	for i := range encoded {
		encoded[i] ^= key[i%len(key)]
	}

	xs := NewXorStream(NewBufferStream(encoded), key)
	out := make([]byte, len(plain))
	if _, err := io.ReadFull(xs, out); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(out) != string(plain) {
		t.Fatalf("got %q, want %q", out, plain)
	}
}

func TestTeeWriter(t *testing.T) {
	primary := NewBufferStream(nil)
	side := NewBufferStream(nil)
	tee := NewTeeWriter(primary, side)

	if _, err := tee.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(primary.Bytes()) != "payload" || string(side.Bytes()) != "payload" {
		t.Fatalf("tee mismatch: primary=%q side=%q", primary.Bytes(), side.Bytes())
	}
}
