package dsx

import (
	"fmt"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

// silencePackedByte is the 4-bit-packed representation of two consecutive
// zero (silent) 8-bit samples: (0 ^ 0x80) >> 4 == 0x08 per nibble.
const silencePackedByte = 0x88

// pack4bit XOR's each signed 8-bit sample with 0x80 then shifts right 4,
// packing two nibbles per output byte.
func pack4bit(data []byte) []byte {
	n := len(data) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		a := (data[2*i] ^ 0x80) >> 4
		b := (data[2*i+1] ^ 0x80) >> 4
		out[i] = (a & 0xf) | ((b & 0xf) << 4)
	}
	return out
}

// WriteSample emits s's 4-bit packed body. A looped sample splits its
// packed output at loopStart/2, inserts a .loop label there, and continues
// to loopEnd/2; an unlooped sample emits its whole length8/2 body, then a
// .loop label followed by a 32-byte silence tail. Both forms close with a
// .end label.
func WriteSample(w *bufwriter.Writer, label string, s *song.Sample) {
	w.WriteText(fmt.Sprintf("%s:\n", label))

	packed := pack4bit(s.Data8)

	if s.Loop {
		splitAt := clampLen(s.LoopStart/2, len(packed))
		tailEnd := clampLen(s.LoopEnd/2, len(packed))
		w.WriteText("    db " + joinBytes(packed[:splitAt]) + "\n")
		w.WriteText(".loop:\n")
		w.WriteText("    db " + joinBytes(packed[splitAt:tailEnd]) + "\n")
	} else {
		bodyLen := clampLen(s.Length8/2, len(packed))
		w.WriteText("    db " + joinBytes(packed[:bodyLen]) + "\n")
		w.WriteText(".loop:\n")
		silence := make([]byte, 32)
		for i := range silence {
			silence[i] = silencePackedByte
		}
		w.WriteText("    db " + joinBytes(silence) + "\n")
	}

	w.WriteText(".end:\n")
}

func clampLen(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
