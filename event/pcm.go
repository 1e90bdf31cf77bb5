package event

import "github.com/QEStudios/dsxmnm/engine"

// Synthetic PCM dispatch addresses monitored by the PCM event path.
const (
	PCMAddrInstrument   uint32 = 0xFFFE0200
	PCMAddrVolume       uint32 = 0xFFFE0201
	PCMAddrSampleOffset uint32 = 0xFFFE0202
)

// PCMEvent is the tick-keyed change record for the PCM DAC channel.
type PCMEvent struct {
	HasKeyOn bool
	KeyOn    bool

	HasInstrument bool
	Instrument    int // dense index via S4Map

	HasVolume bool
	Volume    int

	HasSampleOffset bool
	SampleOffset    int

	// HasPitchSet/HasPitchChange are carried for the DSX PCM record's full
	// bitmask shape (bits 5 and 2); ExtractPCM never sets them since the
	// PCM path's monitored addresses (0xFFFE0200..02) don't expose a pitch
	// channel. A future pitch-capable PCM dispatch would populate them the
	// same way ExtractPCM populates the others.
	HasPitchSet bool
	PitchSet    int

	HasPitchChange bool
	PitchChange    int
}

// S4Map interns a channel's raw sample indices (instrument-1) into dense,
// 0-based ids in first-use order, mirroring the PCM dispatch's convention
// that instrument 0 means "no sample" and instrument N selects sample N-1.
type S4Map struct {
	ids map[int]int
}

// NewS4Map returns an empty interning table.
func NewS4Map() *S4Map {
	return &S4Map{ids: make(map[int]int)}
}

// Intern returns the dense id for instrument ins (which must be > 0),
// assigning a new one on first use.
func (m *S4Map) Intern(ins int) int {
	raw := ins - 1
	if id, ok := m.ids[raw]; ok {
		return id
	}
	id := len(m.ids)
	m.ids[raw] = id
	return id
}

// ExtractPCM scans the register writes captured during one tick for the PCM
// channel's synthetic instrument/volume/sample-offset addresses, producing a
// PCMEvent and updating last in place.
func ExtractPCM(writes []engine.RegWrite, s4 *S4Map, last *LastState) (ev PCMEvent, ok bool) {
	for _, w := range writes {
		switch w.Address {
		case PCMAddrInstrument:
			ins := int(w.Value)
			if ins != last.Ins {
				ev.HasInstrument = true
				if ins > 0 {
					ev.Instrument = s4.Intern(ins)
				}
				ev.HasKeyOn = true
				ev.KeyOn = ins > 0
				last.Ins = ins
				ok = true
			}
		case PCMAddrVolume:
			vol := int(w.Value)
			if vol != last.Vol {
				ev.HasVolume = true
				ev.Volume = vol
				last.Vol = vol
				ok = true
			}
		case PCMAddrSampleOffset:
			ev.HasSampleOffset = true
			ev.SampleOffset = int(w.Value)
			ok = true
		}
	}
	return ev, ok
}
