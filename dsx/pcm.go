package dsx

import (
	"strconv"
	"strings"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/event"
)

// PCMTickEvent is one tick-keyed change event on the PCM DAC channel.
type PCMTickEvent struct {
	Tick  int
	Event event.PCMEvent
}

// WritePCMChannel emits one PCM channel's tick-quantized command stream.
// Each event is a single packed byte record: a bitmask byte with bits
// 6=sampleOffset, 5=pitchSet, 4=wait, 3=ins, 2=pitchChange, 1=vol,
// 0=keyOn, followed by the present fields in that order. A wait is folded
// into the record whenever its tick-delta differs from the previously
// emitted wait.
func WritePCMChannel(w *bufwriter.Writer, label string, events []PCMTickEvent) {
	w.WriteText(label + ":\n")
	if len(events) == 0 {
		return
	}

	lastTick := 0
	lastWait := -1

	for _, pe := range events {
		ev := pe.Event
		wait := pe.Tick - lastTick
		hasWait := wait != lastWait

		var mask byte
		if ev.HasSampleOffset {
			mask |= 1 << 6
		}
		if ev.HasPitchSet {
			mask |= 1 << 5
		}
		if hasWait {
			mask |= 1 << 4
		}
		if ev.HasInstrument {
			mask |= 1 << 3
		}
		if ev.HasPitchChange {
			mask |= 1 << 2
		}
		if ev.HasVolume {
			mask |= 1 << 1
		}
		if ev.HasKeyOn {
			mask |= 1 << 0
		}

		record := []byte{mask}
		if ev.HasSampleOffset {
			record = append(record, le32(ev.SampleOffset)...)
		}
		if ev.HasPitchSet {
			record = append(record, le16(ev.PitchSet)...)
		}
		if hasWait {
			record = append(record, byte(wait))
			lastWait = wait
		}
		if ev.HasInstrument {
			record = append(record, byte(ev.Instrument))
		}
		if ev.HasPitchChange {
			record = append(record, le16(ev.PitchChange)...)
		}
		if ev.HasVolume {
			record = append(record, byte(ev.Volume))
		}

		w.WriteText("    db " + joinBytes(record) + "\n")
		lastTick = pe.Tick
	}
}

func le16(v int) []byte {
	return []byte{byte(v & 0xff), byte((v >> 8) & 0xff)}
}

func le32(v int) []byte {
	return []byte{byte(v & 0xff), byte((v >> 8) & 0xff), byte((v >> 16) & 0xff), byte((v >> 24) & 0xff)}
}

func joinBytes(bs []byte) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ", ")
}
