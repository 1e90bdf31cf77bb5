package dsx

import (
	"fmt"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/event"
)

// NoteNames are the 12 chromatic note names in the order the DSX driver
// expects, indexed by note % 12.
var NoteNames = [12]string{
	"C_", "C#", "D_", "D#", "E_", "F_", "F#", "G_", "G#", "A_", "A#", "B_",
}

func noteNameOctave(val int) (string, int) {
	note := val % 12
	octave := val / 12
	return NoteNames[note], octave
}

// PSGRowEvent is one row-keyed change event on a GB PSG channel.
type PSGRowEvent struct {
	Row   int
	Event event.ChangeEvent
}

// WritePSGChannel emits one PSG channel's row-quantized command stream. An
// empty events slice emits no body at all (the caller substitutes
// DSX_DummyChannel for this channel's pointer instead of label). Each
// row's structural/note command is held pending until the following
// event's row is known, so it can be emitted with the duration it is
// actually held for (rows = next key - this key) rather than the gap
// that preceded it.
func WritePSGChannel(w *bufwriter.Writer, label string, events []PSGRowEvent, loopRow int) {
	w.WriteText(fmt.Sprintf("%s:\n", label))
	if len(events) == 0 {
		return
	}

	lastRow := 0
	loopEmitted := loopRow < 0
	var pending *PSGRowEvent

	for i := range events {
		pe := &events[i]
		if pending != nil {
			if !loopEmitted && pending.Row >= loopRow {
				w.WriteText(".loop:\n")
				loopEmitted = true
			}
			writeStructuralCommands(w, pending.Event)
			writePSGNoteCmd(w, pending.Event, pe.Row-lastRow)
		}
		pending = pe
		lastRow = pe.Row
	}

	// The last pending event has no following row to measure its held
	// duration against; it runs back to the loop anchor (or the start of
	// the pattern for a non-looping channel).
	if !loopEmitted && pending.Row >= loopRow {
		w.WriteText(".loop:\n")
		loopEmitted = true
	}
	anchor := loopRow
	if anchor < 0 {
		anchor = 0
	}
	writeStructuralCommands(w, pending.Event)
	writePSGNoteCmd(w, pending.Event, lastRow-anchor)

	if loopRow >= 0 {
		w.WriteText("    sound_jump .loop\n")
	} else {
		w.WriteText("    rest 1\n    sound_end\n")
	}
}

func writeStructuralCommands(w *bufwriter.Writer, ev event.ChangeEvent) {
	if ev.HasSpeed {
		w.WriteText(fmt.Sprintf("    sound_set_speed %d, %d\n", ev.Speed1, ev.Speed2))
	}
	if ev.HasInstrument {
		w.WriteText(fmt.Sprintf("    sound_instrument %d\n", ev.Instrument))
	}
	if ev.HasVolume {
		w.WriteText(fmt.Sprintf("    sound_volume %d\n", ev.Volume))
	}
	if ev.HasSlideUp {
		w.WriteText(fmt.Sprintf("    sound_slide_up %d\n", ev.SlideUp))
	}
	if ev.HasSlideDown {
		w.WriteText(fmt.Sprintf("    sound_slide_down %d\n", ev.SlideDown))
	}
	if ev.HasPortamento {
		w.WriteText(fmt.Sprintf("    sound_portamento %d\n", ev.Portamento))
	}
}

// writePSGNoteCmd emits the row's note|wait|rest|release command, splitting
// the duration into 256-row chunks (every chunk past the first carries no
// note/structural payload, just a continuing wait).
func writePSGNoteCmd(w *bufwriter.Writer, ev event.ChangeEvent, rows int) {
	for rows > 256 {
		emitNoteCmd(w, ev, 256)
		rows -= 256
		ev = event.ChangeEvent{}
	}
	emitNoteCmd(w, ev, rows)
}

func emitNoteCmd(w *bufwriter.Writer, ev event.ChangeEvent, duration int) {
	switch {
	case ev.HasNote && ev.Note == event.NoteOffSentinel:
		w.WriteText(fmt.Sprintf("    rest %d\n", duration))
	case ev.HasNote && ev.Note == event.NoteReleaseSentinel:
		w.WriteText(fmt.Sprintf("    release %d\n", duration))
	case ev.HasNote:
		name, octave := noteNameOctave(ev.Note)
		w.WriteText(fmt.Sprintf("    note %s,%d,%d\n", name, octave, duration))
	default:
		w.WriteText(fmt.Sprintf("    wait %d\n", duration))
	}
}
