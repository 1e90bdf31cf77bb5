// Package engine declares the narrow collaborator contract the exporters
// consume: a playback driver and a chip dispatch, both external to this
// module's own concerns. Nothing in this package walks a song or emits
// bytes; it is the seam between the exporters (walk, event, dsx, mnm) and
// whatever concrete engine drives them (see refengine for the one shipped
// with this repository).
package engine

import "github.com/QEStudios/dsxmnm/song"

// RegWrite is a single (address, value) pair produced by a chip dispatch
// during register-dump capture.
type RegWrite struct {
	Address uint32
	Value   uint16
}

// Dispatch is a chip emulator capable of recording its would-be hardware
// writes into a drainable queue instead of (or in addition to) applying
// them.
type Dispatch interface {
	// ToggleRegisterDump enables or disables write capture for this
	// dispatch.
	ToggleRegisterDump(enabled bool)

	// TakeRegisterWrites drains and returns all writes captured since the
	// last call.
	TakeRegisterWrites() []RegWrite
}

// Engine is the playback collaborator the playback driver steps
// tick-by-tick. All methods operate on engine-internal state; callers must
// not invoke Engine methods concurrently with each other.
type Engine interface {
	// Song returns the read-only song being played.
	Song() *song.Song

	// CurSubSong returns the index of the currently selected subsong.
	CurSubSong() int

	// WalkSong performs a dry run over the current subsong to find its loop
	// anchor, returning (loopOrder, loopRow, loopEnd) without producing any
	// register writes.
	WalkSong() (loopOrder, loopRow, loopEnd int)

	// SetOrder seeks playback to the given order, row 0.
	SetOrder(order int)

	// Stop halts playback and resets the repeat flag.
	Stop()

	// PlaySub starts playback of the current subsong. reset indicates
	// whether channel state should be reinitialized.
	PlaySub(reset bool)

	// NextTick advances playback by one tick, driving each active
	// Dispatch's register-write queue. done is true once playback has
	// stopped (song end, or a caller-issued Stop).
	NextTick() (done bool)

	// CurOrder and CurRow report the playback position as of the most
	// recent NextTick call.
	CurOrder() int
	CurRow() int

	// Ticks is the total tick counter as of the most recent NextTick call.
	Ticks() int64

	// Speeds returns the effective (speed1, speed2) pair for the current
	// row; speed2 is 0 if the speed vector has length 1.
	Speeds() (speed1, speed2 int)

	// TempoAccum, VirtualTempoN and VirtualTempoD feed the loop-anchor
	// detection formula in the Playback Driver.
	TempoAccum() int
	VirtualTempoN() int
	VirtualTempoD() int

	// DispatchOfChan returns the Dispatch driving the given global channel
	// index.
	DispatchOfChan(ch int) Dispatch

	// GetIns and GetSample expose read-only lookups into the song's
	// instrument/sample tables by index.
	GetIns(i int) *song.Instrument
	GetSample(i int) *song.Sample
}
