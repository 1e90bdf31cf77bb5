// Package dsx implements the DSX (DevSound eXport) emitter: a
// textual RGBDS assembler source emitting per-channel command streams,
// deduplicated instrument macro tables, wavetables, and 4-bit packed
// samples for a GB-class PSG + PCM playback runtime.
package dsx

import (
	"fmt"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

// GBVolumeTable maps a 0..15 wave-channel volume macro value through the
// driver's four coarse volume steps before emission.
var GBVolumeTable = [16]byte{
	0, 0, 0, 0,
	0x60, 0x60, 0x60, 0x60,
	0x40, 0x40, 0x40, 0x40,
	0x20, 0x20, 0x20, 0x20,
}

// Channel is one already-extracted channel event stream, in exactly one of
// its two shapes (PSG is row-keyed, PCM is tick-keyed).
type Channel struct {
	PSG []PSGRowEvent
	PCM []PCMTickEvent
}

func (c Channel) empty() bool {
	return len(c.PSG) == 0 && len(c.PCM) == 0
}

// Song is everything the DSX emitter needs to materialize one export: the
// per-channel streams already produced by the playback driver and event
// extractor, plus the instruments/wavetables/samples they reference.
type Song struct {
	BaseLabel      string
	Speed1, Speed2 int
	LoopRow        int // -1 = non-looping
	Channels       []Channel
	Instruments    []*song.Instrument
	Wavetables     []*song.Wavetable
	Samples        []*song.Sample
}

// Write materializes the complete DSX assembler text for s into w.
func Write(w *bufwriter.Writer, s *Song) {
	w.WriteText(fmt.Sprintf("SECTION \"%s\",ROMX\n", s.BaseLabel))
	w.WriteText(fmt.Sprintf("%s:\n", s.BaseLabel))
	w.WriteText(fmt.Sprintf("    db %d, %d\n", s.Speed1, s.Speed2))

	for i, ch := range s.Channels {
		if ch.empty() {
			w.WriteText("    dw DSX_DummyChannel\n")
		} else {
			w.WriteText(fmt.Sprintf("    dw %s\n", channelLabel(s.BaseLabel, i)))
		}
	}

	for i, ch := range s.Channels {
		if ch.empty() {
			continue
		}
		label := channelLabel(s.BaseLabel, i)
		if ch.PSG != nil {
			WritePSGChannel(w, label, ch.PSG, s.LoopRow)
		} else {
			WritePCMChannel(w, label, ch.PCM)
		}
	}

	mt := NewMacroTable(s.BaseLabel)
	for _, ins := range s.Instruments {
		WriteMacroLabel(w, mt, scaledVolMacro(ins))
		WriteMacroLabel(w, mt, ins.Arp)
		WriteMacroLabel(w, mt, ins.Wave)
		WriteMacroLabel(w, mt, ins.Pitch)
	}

	for i, wt := range s.Wavetables {
		WriteWavetable(w, fmt.Sprintf("%s_wave%d", s.BaseLabel, i), wt)
	}

	w.WriteText("PUSHS\n")
	for i, smp := range s.Samples {
		w.WriteText(fmt.Sprintf("SECTION \"%s_sample%d_header\",ROMX\n", s.BaseLabel, i))
		w.WriteText(fmt.Sprintf("%s_sample%d:\n", s.BaseLabel, i))
		w.WriteText(fmt.Sprintf("    dw %s_sample%d_data\n", s.BaseLabel, i))
		w.WriteText(fmt.Sprintf("    db %d\n", boolToInt(smp.Loop)))
	}
	for i, smp := range s.Samples {
		WriteSample(w, fmt.Sprintf("%s_sample%d_data", s.BaseLabel, i), smp)
	}
	w.WriteText("POPS\n")
}

func channelLabel(base string, i int) string {
	return fmt.Sprintf("%s_ch%d", base, i)
}

// scaledVolMacro applies GBVolumeTable to a wave-channel instrument's
// volume macro before it reaches the dedup table; other instrument kinds
// pass their volume macro through unchanged.
func scaledVolMacro(ins *song.Instrument) *song.InstrumentMacro {
	if ins == nil || ins.Vol == nil {
		return nil
	}
	if ins.Type != song.InstrumentWave {
		return ins.Vol
	}
	scaled := *ins.Vol
	scaled.Val = make([]int, len(ins.Vol.Val))
	for i, v := range ins.Vol.Val {
		idx := v
		if idx < 0 {
			idx = 0
		}
		if idx > 15 {
			idx = 15
		}
		scaled.Val[i] = int(GBVolumeTable[idx])
	}
	return &scaled
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
