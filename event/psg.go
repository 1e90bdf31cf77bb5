package event

import "github.com/QEStudios/dsxmnm/song"

// ExtractPSG converts one row of a GB PSG channel into a ChangeEvent,
// filtering every field against last and updating last in place. speed1/
// speed2 are the subsong's currently effective tick-per-row pair, not
// necessarily sourced from the row itself. ok is false when the row
// produced no change at all (no event should be keyed for this row).
func ExtractPSG(row song.Row, speed1, speed2 int, last *LastState) (ev ChangeEvent, ok bool) {
	switch {
	case row.Note == 100:
		ev.HasNote, ev.Note = true, NoteOffSentinel
	case row.Note == 101 || row.Note == 102:
		ev.HasNote, ev.Note = true, NoteReleaseSentinel
	case row.Note != 0:
		ev.HasNote, ev.Note = true, row.Note
	}
	if ev.HasNote {
		ok = true
	}

	if row.Instrument >= 0 && row.Instrument != last.Ins {
		ev.HasInstrument, ev.Instrument = true, row.Instrument
		last.Ins = row.Instrument
		ok = true
	}
	if row.Volume >= 0 && row.Volume != last.Vol {
		ev.HasVolume, ev.Volume = true, row.Volume
		last.Vol = row.Volume
		ok = true
	}

	var slideUp, slideDown, portamento int
	var hasSlideUp, hasSlideDown, hasPortamento bool
	for _, eff := range row.Effects {
		switch eff[0] {
		case 0x01:
			hasSlideUp, slideUp = true, eff[1]
		case 0x02:
			hasSlideDown, slideDown = true, eff[1]
		case 0x03:
			hasPortamento, portamento = true, eff[1]
		}
	}
	// Slide fields additionally require at least one of the new/old values
	// to be nonzero, so a slide-to-zero-from-zero never fires a spurious
	// event.
	if hasSlideUp && slideUp != last.SlideUp && (slideUp != 0 || last.SlideUp != 0) {
		ev.HasSlideUp, ev.SlideUp = true, slideUp
		last.SlideUp = slideUp
		ok = true
	}
	if hasSlideDown && slideDown != last.SlideDown && (slideDown != 0 || last.SlideDown != 0) {
		ev.HasSlideDown, ev.SlideDown = true, slideDown
		last.SlideDown = slideDown
		ok = true
	}
	if hasPortamento && portamento != last.Portamento && (portamento != 0 || last.Portamento != 0) {
		ev.HasPortamento, ev.Portamento = true, portamento
		last.Portamento = portamento
		ok = true
	}

	if speed1 != last.Speed1 || speed2 != last.Speed2 {
		ev.HasSpeed = true
		ev.Speed1, ev.Speed2 = speed1, speed2
		last.Speed1, last.Speed2 = speed1, speed2
		ok = true
	}

	return ev, ok
}
