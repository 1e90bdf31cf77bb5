package mnm

import (
	"math"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

var magicSampleBank = []byte{0xD1, 0x4D, 0x69, 0x6E, 0x4D, 0x6F, 0x64, 0x53}

// WriteSampleBank writes the MNS sample bank: fixed header, a
// back-patched sample-header table, and DMA-aligned sample bodies.
func WriteSampleBank(w *bufwriter.Writer, s *song.Song) error {
	w.WriteBytes(magicSampleBank)
	w.WriteU16(0x0001)
	w.WriteU16(0) // reserved
	w.WriteU32(0) // file size, back-patched
	w.WriteU16(uint16(len(s.Samples)))
	w.WriteU16(0) // wavetable count
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(0)

	for range s.Samples {
		w.WriteBytes(make([]byte, 0x18))
	}

	startOffsets := make([]uint32, len(s.Samples))
	for i, smp := range s.Samples {
		pad := (4 - w.Tell()%4) % 4
		if pad > 0 {
			w.WriteBytes(make([]byte, pad))
		}
		startOffsets[i] = uint32(w.Tell())

		if smp.Loop {
			w.WriteBytes(smp.Data8[:smp.LoopEnd])
		} else {
			w.WriteBytes(smp.Data8[:smp.Length8])
			w.WriteBytes(make([]byte, 32))
		}
	}

	end := w.Tell()
	w.Seek(0x0C)
	w.WriteU32(uint32(end))

	w.Seek(0x20)
	for i, smp := range s.Samples {
		pitchBase := uint32(0)
		if smp.CenterRate > 0 {
			pitchBase = uint32(math.Log2(smp.CenterRate) * 786432)
		}
		w.WriteU32(pitchBase)
		w.WriteU32(startOffsets[i])
		if smp.Loop {
			w.WriteU32(uint32(smp.LoopStart))
			w.WriteU32(uint32(smp.LoopEnd))
		} else {
			w.WriteU32(uint32(smp.Length8))
			w.WriteU32(uint32(smp.Length8 + 32))
		}
		w.WriteU32(0)
		w.WriteU32(0)
	}
	w.Seek(end)

	return nil
}
