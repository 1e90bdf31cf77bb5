package event

import "encoding/binary"

// EncodePitch implements the MNM pitch delta-encoding rule. It mutates
// last.Pitch to newPitch and clears last.ForcePitch, returning the command
// bytes to append to the channel's command list for this tick (nil if
// nothing changed and the channel isn't forced).
func EncodePitch(last *LastState, newPitch int, force bool) []byte {
	force = force || last.ForcePitch
	last.ForcePitch = false

	dt := newPitch - last.Pitch
	dtl := dt & 0xff
	dth := (dt >> 8) & 0xff

	if (dt >= 0 && dtl > 0x80) || (dt < 0 && dtl >= 0x80) {
		dtl -= 0x100
		dth += 1
	}
	if dth >= 0x80 {
		dth -= 0x100
	}

	last.Pitch = newPitch

	if dt == 0 && !force {
		return nil
	}

	var out []byte
	switch {
	// Short-delta requires a nonzero low-byte delta: a pure high-byte-only
	// shift (dtl == 0) is not representable in this form since the
	// high-byte short opcode packs ofs(dtl), not ofs(dth) (see the source
	// note on this below) and would otherwise silently encode a no-op.
	case dtl != 0 && abs(dtl) <= 0x20 && abs(dth) <= 0x20 && !force:
		out = append(out, byte(0x60+ofs(dtl)))
		if dth != 0 {
			// NOTE: this reuses dtl rather than dth. That is how the
			// reference encoder behaves; mirrored here deliberately.
			out = append(out, byte(0xA0+ofs(dtl)))
		}
	case (dtl != 0 && dth != 0) || force:
		out = append(out, 0x07, byte(newPitch&0xff), byte((newPitch>>8)&0xff))
	case dth == 0:
		out = append(out, 0x0C, byte(0x80+ofs(dtl)))
	default:
		out = append(out, 0x0D, byte(0x80+ofs(dth)))
	}
	return out
}

// EncodeVolume implements the MNM stereo-volume delta-encoding rule.
// hasVolL/hasVolR indicate which side(s) actually changed this tick; the
// unchanged side holds at its last value so its delta is zero.
func EncodeVolume(last *LastState, newVolL, newVolR int, hasVolL, hasVolR bool, force bool) []byte {
	force = force || last.ForceVolume
	last.ForceVolume = false

	volL, volR := last.VolL, last.VolR
	if hasVolL {
		volL = newVolL
	}
	if hasVolR {
		volR = newVolR
	}

	dtl := volL - last.VolL
	dtr := volR - last.VolR
	last.VolL, last.VolR = volL, volR

	var out []byte
	switch {
	case volL == 0 && volR == 0:
		out = []byte{0x0E}
	case abs(dtl) <= 0x80 && abs(dtr) <= 0x80 && !force:
		switch {
		case dtl == dtr:
			if abs(dtl) <= 8 {
				out = []byte{byte(0x38 + ofs(dtl))}
			} else {
				out = []byte{0x0B, byte(ofs(dtl))}
			}
		case abs(dtl) <= 8 && abs(dtr) <= 8:
			if dtl != 0 {
				out = append(out, byte(0x18+ofs(dtl)))
			}
			if dtr != 0 {
				out = append(out, byte(0x28+ofs(dtr)))
			}
		default:
			out = []byte{0x08, byte(ofs(dtl)), byte(ofs(dtr))}
		}
	default:
		out = []byte{
			0x06,
			byte(volL & 0xff), byte((volL >> 8) & 0xff),
			byte(volR & 0xff), byte((volR >> 8) & 0xff),
		}
	}
	return out
}

// EncodeSample implements the sample-trigger / sample-offset rules.
func EncodeSample(last *LastState, newSample int, hasSample bool, sampleOffset int, hasOffset bool, force bool) []byte {
	force = force || last.ForceSample
	last.ForceSample = false

	var out []byte
	if hasSample {
		if force || newSample != last.Sample {
			out = append(out, 0x09, byte(newSample&0xff), byte((newSample>>8)&0xff))
		} else if !hasOffset {
			out = append(out, 0x0F)
		}
		last.Sample = newSample
	}
	if hasOffset {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(sampleOffset))
		out = append(out, 0x05, b[0], b[1], b[2], b[3])
	}
	return out
}

// EncodeEcho implements the echo rule.
func EncodeEcho(last *LastState, newEcho int, force bool) []byte {
	force = force || last.ForceEcho
	last.ForceEcho = false
	if !force && newEcho == last.Echo {
		return nil
	}
	last.Echo = newEcho
	return []byte{0x0A, byte(newEcho)}
}
