package extload

import (
	"fmt"

	"github.com/orcforensics/dfir-orc-go/internal/compress"
)

// Module names for the WOF chunk decompressors C5's registry needs a
// registrant for. These are the only modules this package registers.
const (
	ModuleXpressHuffman = "codec.xpress-huffman"
	ModuleLZX           = "codec.lzx"
)

func init() {
	Register(ModuleXpressHuffman, loadXpressHuffman)
	Register(ModuleLZX, loadLZX)
}

// loadXpressHuffman builds the MS-XCA Xpress-Huffman decompressor and
// registers it against every WOF algorithm that uses it
// (xpress4k/8k/16k differ only in chunk size, which wof.go already
// tracks separately - the codec itself is chunk-size agnostic) before
// returning it, so a single Get call wires all three.
func loadXpressHuffman() (any, error) {
	d := xpressHuffmanDecompressor{}
	compress.Register(compress.AlgorithmXpress4K, d)
	compress.Register(compress.AlgorithmXpress8K, d)
	compress.Register(compress.AlgorithmXpress16K, d)
	return d, nil
}

// loadLZX registers a placeholder for MS-XCA LZX. LZX's sliding-window
// match model plus E8 call-address translation is substantially more
// machinery than Xpress Huffman; TODO: implement the LZX block/match
// decoder (original_source's DecompressLZX.cpp would be the reference)
// - until then this registers a Decompressor that fails clearly instead
// of leaving WOF reads against an LZX-compressed file silently
// unsupported.
func loadLZX() (any, error) {
	d := lzxDecompressor{}
	compress.Register(compress.AlgorithmLZX, d)
	return d, nil
}

// WarmCodecs forces every codec module to load, registering its
// decompressor(s) with internal/compress. spec.md 4.10 allows a module
// to be loaded "the first time [it is] actually needed"; this port's
// entry point (cmd/orc) calls WarmCodecs once at startup rather than
// threading an extload lookup through every WOF read site, since every
// collection run that encounters WOF-compressed files needs all three
// chunk sizes anyway.
func WarmCodecs() error {
	if _, err := Get[xpressHuffmanDecompressor](ModuleXpressHuffman); err != nil {
		return fmt.Errorf("extload: loading xpress-huffman: %w", err)
	}
	if _, err := Get[lzxDecompressor](ModuleLZX); err != nil {
		return fmt.Errorf("extload: loading lzx: %w", err)
	}
	return nil
}
