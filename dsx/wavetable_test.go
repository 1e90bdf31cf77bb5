package dsx

import (
	"strings"
	"testing"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

func TestWriteWavetableDownsamplesTo32Entries(t *testing.T) {
	w := bufwriter.New(64)
	data := make([]int, 64)
	for i := range data {
		data[i] = i % 16
	}
	WriteWavetable(w, "Song_wave0", &song.Wavetable{Data: data})
	got := string(w.Bytes())

	if !strings.HasPrefix(got, "Song_wave0:\n") {
		t.Errorf("missing label: %q", got)
	}
	// 32 packed nibble-pairs => 16 output bytes.
	line := strings.TrimPrefix(strings.TrimSuffix(got, "\n"), "Song_wave0:\n    db ")
	if n := len(strings.Split(line, ", ")); n != 16 {
		t.Errorf("expected 16 packed bytes, got %d: %q", n, line)
	}
}

func TestWriteWavetableEmptyDataDoesNotPanic(t *testing.T) {
	w := bufwriter.New(64)
	WriteWavetable(w, "Song_wave0", &song.Wavetable{})
	got := string(w.Bytes())
	if !strings.Contains(got, "db ") {
		t.Errorf("expected a db line even for empty wavetable data, got %q", got)
	}
}
