package dsx

import (
	"strings"
	"testing"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

func TestKeyForDedupEquality(t *testing.T) {
	a := &song.InstrumentMacro{Val: []int{1, 2, 3}, Loop: 1, Release: -1}
	b := &song.InstrumentMacro{Val: []int{1, 2, 3}, Loop: 1, Release: -1}
	if keyFor(a) != keyFor(b) {
		t.Error("structurally identical macros should produce equal keys")
	}
	c := &song.InstrumentMacro{Val: []int{1, 2, 3}, Loop: 2, Release: -1}
	if keyFor(a) == keyFor(c) {
		t.Error("macros differing only in Loop should produce distinct keys")
	}
}

func TestMacroTableLabelDedup(t *testing.T) {
	mt := NewMacroTable("Song")
	a := &song.InstrumentMacro{Val: []int{1, 2, 3}}
	b := &song.InstrumentMacro{Val: []int{1, 2, 3}} // structurally identical, different pointer
	c := &song.InstrumentMacro{Val: []int{4, 5}}

	label1, isNew1 := mt.Label(a)
	if !isNew1 || label1 != "Song_macro_0" {
		t.Errorf("first label = (%q, %v), want (Song_macro_0, true)", label1, isNew1)
	}

	label2, isNew2 := mt.Label(b)
	if isNew2 || label2 != label1 {
		t.Errorf("duplicate macro got (%q, %v), want (%q, false)", label2, isNew2, label1)
	}

	label3, isNew3 := mt.Label(c)
	if !isNew3 || label3 != "Song_macro_1" {
		t.Errorf("distinct macro got (%q, %v), want (Song_macro_1, true)", label3, isNew3)
	}
}

func TestMacroTableLabelNilOrEmpty(t *testing.T) {
	mt := NewMacroTable("Song")
	if label, isNew := mt.Label(nil); label != "" || isNew {
		t.Errorf("nil macro should yield (\"\", false), got (%q, %v)", label, isNew)
	}
	if label, isNew := mt.Label(&song.InstrumentMacro{}); label != "" || isNew {
		t.Errorf("empty-valued macro should yield (\"\", false), got (%q, %v)", label, isNew)
	}
}

func TestWriteMacroLabelSkipsDuplicateBody(t *testing.T) {
	w := bufwriter.New(64)
	mt := NewMacroTable("Song")
	m := &song.InstrumentMacro{Val: []int{1, 1}, Loop: -1, Release: -1}

	WriteMacroLabel(w, mt, m)
	firstLen := w.Len()
	WriteMacroLabel(w, mt, &song.InstrumentMacro{Val: []int{1, 1}, Loop: -1, Release: -1})
	if w.Len() != firstLen {
		t.Errorf("a duplicate macro should not emit a second body, buffer grew from %d to %d", firstLen, w.Len())
	}
}

func TestWriteMacroRunLengthEncoding(t *testing.T) {
	w := bufwriter.New(64)
	m := &song.InstrumentMacro{Val: []int{5, 5, 5}, Loop: -1, Release: -1}
	writeMacro(w, "lbl", m)
	got := string(w.Bytes())
	want := "lbl:\n    db 5, seq_wait, 1\n    db seq_end\n"
	if got != want {
		t.Errorf("writeMacro run-length = %q, want %q", got, want)
	}
}

func TestWriteMacroChunksAt255(t *testing.T) {
	w := bufwriter.New(256)
	vals := make([]int, 300)
	for i := range vals {
		vals[i] = 7
	}
	m := &song.InstrumentMacro{Val: vals, Loop: -1, Release: -1}
	writeMacro(w, "lbl", m)
	got := string(w.Bytes())
	want := "lbl:\n    db 7, seq_wait, 253\n    db 7, seq_wait, 43\n    db seq_end\n"
	if got != want {
		t.Errorf("writeMacro chunking = %q, want %q", got, want)
	}
}

func TestWriteMacroLoopAndRelease(t *testing.T) {
	w := bufwriter.New(64)
	m := &song.InstrumentMacro{Val: []int{1, 2, 3}, Loop: 1, Release: 2}
	writeMacro(w, "lbl", m)
	got := string(w.Bytes())
	want := "lbl:\n    db 1\n:\n    db 2\nlblR:\n    db 3\n    db seq_loop, (:- -@)-1\n"
	if got != want {
		t.Errorf("writeMacro loop/release = %q, want %q", got, want)
	}
}

func TestWritePitchMacroNoDelay(t *testing.T) {
	w := bufwriter.New(64)
	m := &song.InstrumentMacro{Val: []int{10, 20}, Delay: 0, Speed: 1, Loop: -1, Release: -1}
	writePitchMacro(w, "lbl", m)
	got := string(w.Bytes())
	want := "lbl:\n    db 0\n    db 10\n    db 20\n    db pitch_end\n"
	if got != want {
		t.Errorf("writePitchMacro (no delay) = %q, want %q", got, want)
	}
}

func TestWritePitchMacroEmptyValsEmitsEndOnly(t *testing.T) {
	w := bufwriter.New(32)
	m := &song.InstrumentMacro{Loop: -1, Release: -1}
	writePitchMacro(w, "lbl", m)
	got := string(w.Bytes())
	want := "lbl:\n    db pitch_end\n"
	if got != want {
		t.Errorf("writePitchMacro (empty) = %q, want %q", got, want)
	}
}

func TestWritePitchMacroDelayUnrollsLeadingValue(t *testing.T) {
	w := bufwriter.New(64)
	m := &song.InstrumentMacro{Val: []int{5, 1, 2}, Delay: 3, Speed: 1, Loop: -1, Release: -1}
	writePitchMacro(w, "lbl", m)
	got := string(w.Bytes())
	if strings.Count(got, "db 5\n") != 4 {
		t.Errorf("expected 4 occurrences of 'db 5' (3 delay-unrolled + 1 from the values loop), got %d in %q", strings.Count(got, "db 5\n"), got)
	}
	if !strings.HasSuffix(got, "db pitch_end\n") {
		t.Errorf("non-looping pitch macro should end with pitch_end: %q", got)
	}
}

func TestWritePitchMacroLoopTerminator(t *testing.T) {
	w := bufwriter.New(64)
	m := &song.InstrumentMacro{Val: []int{1, 2}, Delay: 0, Speed: 1, Loop: 0, Release: -1}
	writePitchMacro(w, "lbl", m)
	got := string(w.Bytes())
	if !strings.HasSuffix(got, "db pitch_loop, (:- -@)-1\n") {
		t.Errorf("looping pitch macro should end with pitch_loop, got %q", got)
	}
}
