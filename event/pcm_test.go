package event

import (
	"testing"

	"github.com/QEStudios/dsxmnm/engine"
)

func TestS4MapInternsInFirstUseOrder(t *testing.T) {
	m := NewS4Map()
	if id := m.Intern(1); id != 0 {
		t.Errorf("first Intern(1) = %d, want 0", id)
	}
	if id := m.Intern(3); id != 1 {
		t.Errorf("first Intern(3) = %d, want 1", id)
	}
	if id := m.Intern(1); id != 0 {
		t.Errorf("repeat Intern(1) = %d, want 0 (cached)", id)
	}
}

func TestExtractPCMKeyOnAndVolume(t *testing.T) {
	last := &LastState{}
	s4 := NewS4Map()

	writes := []engine.RegWrite{
		{Address: PCMAddrInstrument, Value: 1},
		{Address: PCMAddrVolume, Value: 40},
	}
	ev, ok := ExtractPCM(writes, s4, last)
	if !ok {
		t.Fatal("expected an event")
	}
	if !ev.HasKeyOn || !ev.KeyOn {
		t.Errorf("expected key-on, got %+v", ev)
	}
	if !ev.HasInstrument || ev.Instrument != 0 {
		t.Errorf("expected dense instrument id 0, got %+v", ev)
	}
	if !ev.HasVolume || ev.Volume != 40 {
		t.Errorf("expected volume 40, got %+v", ev)
	}
}

func TestExtractPCMInstrumentZeroIsKeyOff(t *testing.T) {
	last := &LastState{Ins: 1}
	s4 := NewS4Map()

	writes := []engine.RegWrite{{Address: PCMAddrInstrument, Value: 0}}
	ev, ok := ExtractPCM(writes, s4, last)
	if !ok || !ev.HasKeyOn || ev.KeyOn {
		t.Fatalf("expected key-off event, got %+v, ok=%v", ev, ok)
	}
}

func TestExtractPCMUnchangedInstrumentNoEvent(t *testing.T) {
	last := &LastState{Ins: 1}
	s4 := NewS4Map()

	writes := []engine.RegWrite{{Address: PCMAddrInstrument, Value: 1}}
	_, ok := ExtractPCM(writes, s4, last)
	if ok {
		t.Fatal("unchanged instrument should not produce an event")
	}
}

func TestExtractPCMSampleOffsetAlwaysFires(t *testing.T) {
	last := &LastState{}
	s4 := NewS4Map()

	writes := []engine.RegWrite{{Address: PCMAddrSampleOffset, Value: 512}}
	ev, ok := ExtractPCM(writes, s4, last)
	if !ok || !ev.HasSampleOffset || ev.SampleOffset != 512 {
		t.Fatalf("sample offset event: got %+v, ok=%v", ev, ok)
	}
}
