package dsx

import (
	"strings"
	"testing"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

func TestPack4Bit(t *testing.T) {
	// 0x00 ^ 0x80 = 0x80, >>4 = 0x8; 0xff ^ 0x80 = 0x7f, >>4 = 0x7.
	got := pack4bit([]byte{0x00, 0xff})
	if len(got) != 1 || got[0] != (0x8|0x7<<4) {
		t.Errorf("pack4bit([0x00,0xff]) = %v, want [%d]", got, 0x8|0x7<<4)
	}
}

func TestClampLen(t *testing.T) {
	if clampLen(-5, 10) != 0 {
		t.Error("negative should clamp to 0")
	}
	if clampLen(20, 10) != 10 {
		t.Error("over-length should clamp to max")
	}
	if clampLen(5, 10) != 5 {
		t.Error("in-range value should pass through")
	}
}

func TestWriteSampleUnlooped(t *testing.T) {
	w := bufwriter.New(128)
	s := &song.Sample{Data8: []byte{0x00, 0xff, 0x00, 0xff}, Length8: 4}
	WriteSample(w, "smp0", s)
	got := string(w.Bytes())

	if !strings.HasPrefix(got, "smp0:\n") {
		t.Errorf("missing label: %q", got)
	}
	if !strings.Contains(got, ".loop:\n") {
		t.Errorf("unlooped sample should still emit a .loop label before its silence tail: %q", got)
	}
	if !strings.HasSuffix(got, ".end:\n") {
		t.Errorf("missing trailing .end label: %q", got)
	}
	// 32 bytes of silencePackedByte (0x88 = 136) joined.
	if !strings.Contains(got, strings.Repeat("136, ", 31)+"136") {
		t.Errorf("expected a 32-byte silence tail: %q", got)
	}
}

func TestWriteSampleLooped(t *testing.T) {
	w := bufwriter.New(128)
	s := &song.Sample{
		Data8:     []byte{0x00, 0x00, 0xff, 0xff, 0x00, 0x00, 0xff, 0xff},
		Length8:   8,
		Loop:      true,
		LoopStart: 4,
		LoopEnd:   8,
	}
	WriteSample(w, "smp0", s)
	got := string(w.Bytes())
	if !strings.Contains(got, ".loop:\n") {
		t.Errorf("looped sample should emit a .loop label: %q", got)
	}
	if strings.Contains(got, "136, 136") {
		t.Errorf("looped sample should not emit a silence tail: %q", got)
	}
}
