package dsx

import (
	"fmt"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

// WriteWavetable downsamples wt to 32 samples at 4-bit resolution and packs
// two nibbles per byte: sample j is picked from Data[j*len/32].
func WriteWavetable(w *bufwriter.Writer, label string, wt *song.Wavetable) {
	w.WriteText(fmt.Sprintf("%s:\n", label))

	n := len(wt.Data)
	samples := make([]int, 32)
	for j := 0; j < 32; j++ {
		idx := 0
		if n > 0 {
			idx = j * n / 32
			if idx >= n {
				idx = n - 1
			}
			samples[j] = wt.Data[idx] & 0xf
		}
	}

	packed := make([]byte, 16)
	for i := 0; i < 16; i++ {
		packed[i] = byte(samples[2*i]) | byte(samples[2*i+1])<<4
	}
	w.WriteText("    db " + joinBytes(packed) + "\n")
}
