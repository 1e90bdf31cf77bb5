// Package event implements the event extractor: translating raw
// register writes and pattern cells into per-channel change events,
// filtered against each channel's running last-state fingerprint.
package event

import clone "github.com/huandu/go-clone/generic"

// LastState is the running fingerprint used to suppress redundant
// events for one channel. Force flags, once set, require the next emitted
// event to be absolute for that field; they are set after loop-point
// materialization and cleared once consumed.
type LastState struct {
	Pitch int
	Ins   int
	Vol   int

	SlideUp      int
	SlideDown    int
	Portamento   int

	VolL, VolR int
	Sample     int
	Echo       int

	Speed1, Speed2 int

	ForcePitch  bool
	ForceVolume bool
	ForceSample bool
	ForceEcho   bool
}

// Clone returns a deep copy of s, so a channel's history can be snapshotted
// before further mutation without aliasing the live value. Only the tests
// call it; the extractors and exporters mutate LastState in place.
func (s *LastState) Clone() *LastState {
	return clone.Clone(s)
}

// ForceAll sets every force flag, used when the playback driver reaches the
// loop anchor and every channel's next event must be fully absolute.
func (s *LastState) ForceAll() {
	s.ForcePitch = true
	s.ForceVolume = true
	s.ForceSample = true
	s.ForceEcho = true
}
