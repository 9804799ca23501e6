package extload

import (
	"testing"

	"github.com/orcforensics/dfir-orc-go/internal/compress"
)

func TestGetUnknownModule(t *testing.T) {
	if _, err := Get[int]("does-not-exist"); err == nil {
		t.Fatal("expected ErrUnknownModule")
	}
}

func TestGetLoadsOnceAndCaches(t *testing.T) {
	calls := 0
	Register("test.counter", func() (any, error) {
		calls++
		return calls, nil
	})
	defer reset()

	v1, err := Get[int]("test.counter")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := Get[int]("test.counter")
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("got v1=%d v2=%d, want both 1 (single load)", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}
	if !Loaded("test.counter") {
		t.Fatal("Loaded should report true after a successful Get")
	}
}

func TestWarmCodecsRegistersAllThreeXpressVariants(t *testing.T) {
	compress.Unregister(compress.AlgorithmXpress4K)
	compress.Unregister(compress.AlgorithmXpress8K)
	compress.Unregister(compress.AlgorithmXpress16K)
	compress.Unregister(compress.AlgorithmLZX)

	if err := WarmCodecs(); err != nil {
		t.Fatal(err)
	}
	for _, alg := range []compress.Algorithm{compress.AlgorithmXpress4K, compress.AlgorithmXpress8K, compress.AlgorithmXpress16K, compress.AlgorithmLZX} {
		if !compress.Registered(alg) {
			t.Errorf("%v not registered after WarmCodecs", alg)
		}
	}
}

// bitPacker packs MSB-first bit codes into the 16-bit-little-endian-word
// stream xpressHuffmanDecompressor expects, mirroring bitReader.fill's
// word-assembly exactly so the test stays independent of any particular
// bit-order mistake in the production reader.
type bitPacker struct {
	bits []bool
}

func (p *bitPacker) push(value uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		p.bits = append(p.bits, (value>>uint(i))&1 == 1)
	}
}

func (p *bitPacker) bytes() []byte {
	bits := append([]bool(nil), p.bits...)
	for len(bits)%16 != 0 {
		bits = append(bits, false)
	}
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i < len(bits); i += 16 {
		var word uint16
		for j := 0; j < 16; j++ {
			if bits[i+j] {
				word |= 1 << uint(15-j)
			}
		}
		out = append(out, byte(word), byte(word>>8))
	}
	return out
}

func TestDecodeXpressHuffmanUniformLengthLiterals(t *testing.T) {
	preamble := make([]byte, 256)
	for i := range preamble {
		preamble[i] = 0x99 // both nibbles = 9: every one of the 512 symbols gets a 9-bit code
	}

	p := &bitPacker{}
	p.push(uint32('H'), 9)
	p.push(uint32('i'), 9)

	stream := append(append([]byte{}, preamble...), p.bytes()...)

	d := xpressHuffmanDecompressor{}
	out, err := d.Decompress(stream, 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Hi" {
		t.Fatalf("got %q, want %q", out, "Hi")
	}
}

func TestBuildHuffmanTableRejectsWrongLength(t *testing.T) {
	if _, err := buildHuffmanTable(make([]byte, 10)); err == nil {
		t.Fatal("expected error for wrong-sized length table")
	}
}
