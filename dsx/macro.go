package dsx

import (
	"fmt"
	"strings"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

// macroKey is the deduplication key for the instrument macro table:
// (len, loop, rel, waveFlag, isPitch, full val prefix).
type macroKey struct {
	length   int
	loop     int
	rel      int
	waveFlag bool
	isPitch  bool
	vals     string
}

func keyFor(m *song.InstrumentMacro) macroKey {
	return macroKey{
		length:   len(m.Val),
		loop:     m.Loop,
		rel:      m.Release,
		waveFlag: m.IsWaveTableMacro,
		isPitch:  m.IsPitchMacro,
		vals:     valsKey(m.Val),
	}
}

func valsKey(v []int) string {
	var b strings.Builder
	for _, x := range v {
		fmt.Fprintf(&b, "%d,", x)
	}
	return b.String()
}

// MacroTable is the append-only deduplicated table of InstrumentMacro
// values. Each unique entry yields a head label and, when the macro has a
// release point, a second "R" continuation label.
type MacroTable struct {
	prefix  string
	counter int
	index   map[macroKey]string
	order   []*song.InstrumentMacro
}

// NewMacroTable returns an empty table whose generated labels are prefixed
// with prefix.
func NewMacroTable(prefix string) *MacroTable {
	return &MacroTable{prefix: prefix, index: make(map[macroKey]string)}
}

// Label returns the label for m (inserting a new entry on first sight) and
// reports whether this was a new entry — the caller must emit m's body
// only when isNew is true.
func (t *MacroTable) Label(m *song.InstrumentMacro) (label string, isNew bool) {
	if m == nil || len(m.Val) == 0 {
		return "", false
	}
	k := keyFor(m)
	if existing, ok := t.index[k]; ok {
		return existing, false
	}
	label = fmt.Sprintf("%s_macro_%d", t.prefix, t.counter)
	t.counter++
	t.index[k] = label
	t.order = append(t.order, m)
	return label, true
}

// WriteMacroLabel emits m's body under label if it hasn't already been
// written under a different, deduplicated label.
func WriteMacroLabel(w *bufwriter.Writer, t *MacroTable, m *song.InstrumentMacro) (label string) {
	label, isNew := t.Label(m)
	if !isNew || label == "" {
		return label
	}
	if m.IsPitchMacro {
		writePitchMacro(w, label, m)
	} else {
		writeMacro(w, label, m)
	}
	return label
}

// writeMacro run-length compresses a non-pitch macro's values using Speed
// as the per-step repeat count: a run of 2 equal values is emitted inline
// as two bytes; a longer run is
// emitted as [val, seq_wait, n-2], chunked at 255 values; the loop anchor
// is an RGBDS anonymous label, the release point starts a continuation
// labeled labelR, and the stream is closed with seq_end (non-looping) or a
// back-reference to the loop anchor.
func writeMacro(w *bufwriter.Writer, label string, m *song.InstrumentMacro) {
	w.WriteText(fmt.Sprintf("%s:\n", label))

	vals := m.Val
	n := len(vals)
	loopEmitted := false

	i := 0
	for i < n {
		if m.Loop >= 0 && i == m.Loop && !loopEmitted {
			w.WriteText(":\n")
			loopEmitted = true
		}
		if m.Release >= 0 && i == m.Release {
			w.WriteText(fmt.Sprintf("%sR:\n", label))
		}

		v := vals[i]
		run := 1
		for i+run < n && vals[i+run] == v {
			run++
		}

		step := m.Speed
		if step < 1 {
			step = 1
		}
		remaining := run * step
		for remaining > 0 {
			chunk := remaining
			if chunk > 255 {
				chunk = 255
			}
			switch {
			case chunk == 1:
				w.WriteText(fmt.Sprintf("    db %d\n", v))
			case chunk == 2:
				w.WriteText(fmt.Sprintf("    db %d, %d\n", v, v))
			default:
				w.WriteText(fmt.Sprintf("    db %d, seq_wait, %d\n", v, chunk-2))
			}
			remaining -= chunk
		}
		i += run
	}

	if m.Loop >= 0 {
		w.WriteText("    db seq_loop, (:- -@)-1\n")
	} else {
		w.WriteText("    db seq_end\n")
	}
}

// writePitchMacro emits a pitch macro's body. Pitch macros differ from
// other macros in two ways: a leading delay (unrolled inline when
// val[0] != 0, otherwise written as a literal db delay byte) and
// terminators named pitch_loop/pitch_end rather than seq_loop/seq_end.
func writePitchMacro(w *bufwriter.Writer, label string, m *song.InstrumentMacro) {
	w.WriteText(fmt.Sprintf("%s:\n", label))

	vals := m.Val
	if len(vals) == 0 {
		w.WriteText("    db pitch_end\n")
		return
	}

	if m.Delay > 0 && vals[0] != 0 {
		for k := 0; k < m.Delay; k++ {
			w.WriteText(fmt.Sprintf("    db %d\n", vals[0]&0xff))
		}
	} else {
		w.WriteText(fmt.Sprintf("    db %d\n", m.Delay))
	}

	loopEmitted := false
	for i, v := range vals {
		if m.Loop >= 0 && i == m.Loop && !loopEmitted {
			w.WriteText(":\n")
			loopEmitted = true
		}
		if m.Release >= 0 && i == m.Release {
			w.WriteText(fmt.Sprintf("%sR:\n", label))
		}
		for k := 0; k < m.Speed; k++ {
			w.WriteText(fmt.Sprintf("    db %d\n", v))
		}
	}

	if m.Loop >= 0 {
		w.WriteText("    db pitch_loop, (:- -@)-1\n")
	} else {
		w.WriteText("    db pitch_end\n")
	}
}
