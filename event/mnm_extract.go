package event

import "github.com/QEStudios/dsxmnm/engine"

// Field codes on the 0xFFFE_xxyy MinMod channel namespace.
const (
	MNMFieldPitch = iota
	MNMFieldEcho
	MNMFieldVolL
	MNMFieldVolR
	MNMFieldSample
	MNMFieldSampleOffset
)

// DecodeMNMAddress splits a register-write address into (channel, field) if
// it falls in the 0xFFFE_xxyy MinMod namespace.
func DecodeMNMAddress(addr uint32) (ch, field int, ok bool) {
	if addr>>16 != 0xFFFE {
		return 0, 0, false
	}
	low := addr & 0xFFFF
	return int(low >> 8), int(low & 0xFF), true
}

// MNMTickInputs accumulates one MinMod channel's raw register writes for a
// single tick, prior to delta encoding.
type MNMTickInputs struct {
	HasPitch bool
	Pitch    int

	HasEcho bool
	Echo    int

	HasVolL bool
	VolL    int
	HasVolR bool
	VolR    int

	HasSample bool
	Sample    int

	HasSampleOffset bool
	SampleOffset    int
}

// CollectMNMTick partitions one tick's register writes by channel using the
// 0xFFFE_xxyy namespace.
func CollectMNMTick(writes []engine.RegWrite) map[int]*MNMTickInputs {
	out := make(map[int]*MNMTickInputs)
	for _, w := range writes {
		ch, field, ok := DecodeMNMAddress(w.Address)
		if !ok {
			continue
		}
		in, exists := out[ch]
		if !exists {
			in = &MNMTickInputs{}
			out[ch] = in
		}
		switch field {
		case MNMFieldPitch:
			in.HasPitch, in.Pitch = true, int(w.Value)
		case MNMFieldEcho:
			in.HasEcho, in.Echo = true, int(w.Value)
		case MNMFieldVolL:
			in.HasVolL, in.VolL = true, int(w.Value)
		case MNMFieldVolR:
			in.HasVolR, in.VolR = true, int(w.Value)
		case MNMFieldSample:
			in.HasSample, in.Sample = true, int(w.Value)
		case MNMFieldSampleOffset:
			in.HasSampleOffset, in.SampleOffset = true, int(w.Value)
		}
	}
	return out
}

// EncodeMNMTick turns one channel's tick inputs into the set of command
// byte-sequences for this tick. Each returned slice is one opcode and its
// operands; the caller (the MNM body writer) sorts these by leading byte
// before emission, so the order returned here carries no meaning.
func EncodeMNMTick(in *MNMTickInputs, last *LastState, force bool) [][]byte {
	var cmds [][]byte
	if in.HasPitch {
		if c := EncodePitch(last, in.Pitch, force); len(c) > 0 {
			cmds = append(cmds, c)
		}
	}
	if in.HasVolL || in.HasVolR {
		if c := EncodeVolume(last, in.VolL, in.VolR, in.HasVolL, in.HasVolR, force); len(c) > 0 {
			cmds = append(cmds, c)
		}
	}
	if in.HasSample || in.HasSampleOffset {
		if c := EncodeSample(last, in.Sample, in.HasSample, in.SampleOffset, in.HasSampleOffset, force); len(c) > 0 {
			cmds = append(cmds, c)
		}
	}
	if in.HasEcho {
		if c := EncodeEcho(last, in.Echo, force); len(c) > 0 {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
