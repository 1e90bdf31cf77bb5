// Package refengine implements a minimal deterministic
// engine.Engine/engine.Dispatch pair driven directly by a
// *song.Song, synthesizing just enough register traffic to exercise the
// exporters end to end. It makes no attempt at real audio synthesis or
// hardware-accurate timing — an explicit non-goal — so GB PSG channels
// never need synthetic writes at all (the PSG event path reads pattern
// cells directly, see event.ExtractPSG), and PCM DAC / GBA MinMod channels
// get the smallest write sequence that reproduces their documented
// register namespace.
package refengine

import (
	"github.com/QEStudios/dsxmnm/engine"
	"github.com/QEStudios/dsxmnm/event"
	"github.com/QEStudios/dsxmnm/song"
)

// dispatch is a channel's register-write queue, gated by ToggleRegisterDump
// exactly like a real chip dispatch's debug capture hook.
type dispatch struct {
	enabled bool
	queue   []engine.RegWrite
}

func (d *dispatch) ToggleRegisterDump(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.queue = nil
	}
}

func (d *dispatch) TakeRegisterWrites() []engine.RegWrite {
	w := d.queue
	d.queue = nil
	return w
}

func (d *dispatch) push(addr uint32, val uint16) {
	if !d.enabled {
		return
	}
	d.queue = append(d.queue, engine.RegWrite{Address: addr, Value: val})
}

func mnmAddr(localCh, field int) uint32 {
	return 0xFFFE0000 | uint32(localCh)<<8 | uint32(field)
}

// Machine is the concrete engine.Engine. Every channel shares one row
// cursor because the only Song source this repository ships
// (furnacetext) collapses each subsong to a single order per channel; a
// hand-built *song.Song with genuine multi-order arrangements would need a
// richer cursor, which is out of scope for a reference implementation.
type Machine struct {
	s        *song.Song
	subIndex int
	sub      *song.Subsong
	loop     bool

	dispatches  []*dispatch
	minmodLocal map[int]int // global channel -> local MinMod sub-channel index

	playing   bool
	row       int
	tickInRow int
	speedIdx  int
	ticks     int64
}

// New returns a Machine playing s's subIndex'th subsong. loop selects
// whether WalkSong reports a loop anchor at the subsong's first row (the
// common chiptune case of "the whole song repeats") or reports none,
// matching the non-looping export scenarios.
func New(s *song.Song, subIndex int, loop bool) *Machine {
	sub := s.Subsongs[subIndex]
	channelCount := sub.ChannelCount()

	m := &Machine{
		s:           s,
		subIndex:    subIndex,
		sub:         sub,
		loop:        loop,
		dispatches:  make([]*dispatch, channelCount),
		minmodLocal: make(map[int]int),
	}

	local := 0
	for ch := 0; ch < channelCount; ch++ {
		m.dispatches[ch] = &dispatch{}
		if sys := s.DispatchOfChannel(sub, ch); sys != nil && sys.ID == song.SystemGBAMinMod {
			m.minmodLocal[ch] = local
			local++
		}
	}

	return m
}

func (m *Machine) Song() *song.Song { return m.s }
func (m *Machine) CurSubSong() int  { return m.subIndex }

// WalkSong reports the subsong's sole order/row as the loop anchor when
// loop is set, or no anchor at all otherwise.
func (m *Machine) WalkSong() (loopOrder, loopRow, loopEnd int) {
	if !m.loop {
		return -1, -1, m.sub.PatternLen - 1
	}
	return 0, 0, m.sub.PatternLen - 1
}

func (m *Machine) SetOrder(order int) {
	m.row = 0
	m.tickInRow = 0
}

func (m *Machine) Stop() {
	m.playing = false
}

func (m *Machine) PlaySub(reset bool) {
	m.playing = true
	m.row = 0
	m.tickInRow = 0
	m.speedIdx = 0
	m.ticks = 0
	m.pushRowWrites()
}

// NextTick advances one chip tick, crossing into the next row once the
// current row's speed value has elapsed and pushing that row's writes
// immediately so they are queued by the time the caller next drains the
// dispatch (see walk.History's read-then-advance ordering).
func (m *Machine) NextTick() (done bool) {
	if !m.playing {
		return true
	}

	m.ticks++
	m.tickInRow++

	if m.tickInRow >= m.curSpeed() {
		m.tickInRow = 0
		m.speedIdx++
		m.row++
		if m.row >= m.sub.PatternLen {
			// The pass ends at the pattern's end whether or not the song
			// loops; the loop anchor itself is reported by WalkSong.
			m.playing = false
			return true
		}
		m.pushRowWrites()
	}

	return false
}

func (m *Machine) CurOrder() int { return 0 }
func (m *Machine) CurRow() int   { return m.row }
func (m *Machine) Ticks() int64  { return m.ticks }

func (m *Machine) Speeds() (speed1, speed2 int) {
	speeds := m.sub.Speeds
	if len(speeds) == 0 {
		return 1, 0
	}
	speed1 = speeds[m.speedIdx%len(speeds)]
	if len(speeds) > 1 {
		speed2 = speeds[(m.speedIdx+1)%len(speeds)]
	}
	return speed1, speed2
}

// TempoAccum/VirtualTempoN/VirtualTempoD are fixed at the trivial 1:1
// ratio: virtual tempo scaling (Furnace's fractional-tick groove feature)
// is out of scope for a reference engine whose job is exercising the
// exporters, not reproducing tempo-accumulator drift.
func (m *Machine) TempoAccum() int    { return 0 }
func (m *Machine) VirtualTempoN() int { return 1 }
func (m *Machine) VirtualTempoD() int { return 1 }

func (m *Machine) DispatchOfChan(ch int) engine.Dispatch {
	if ch < 0 || ch >= len(m.dispatches) {
		return nil
	}
	return m.dispatches[ch]
}

func (m *Machine) GetIns(i int) *song.Instrument {
	if i < 0 || i >= len(m.s.Instruments) {
		return nil
	}
	return m.s.Instruments[i]
}

func (m *Machine) GetSample(i int) *song.Sample {
	if i < 0 || i >= len(m.s.Samples) {
		return nil
	}
	return m.s.Samples[i]
}

func (m *Machine) curSpeed() int {
	speeds := m.sub.Speeds
	if len(speeds) == 0 {
		return 1
	}
	return speeds[m.speedIdx%len(speeds)]
}

// pushRowWrites synthesizes the current row's register traffic for every
// PCM DAC / GBA MinMod channel. GB PSG channels are untouched: the event
// extractor's ExtractPSG reads pattern cells directly and never consults a
// dispatch queue for them.
func (m *Machine) pushRowWrites() {
	for ch, d := range m.dispatches {
		sys := m.s.DispatchOfChannel(m.sub, ch)
		if sys == nil {
			continue
		}
		row := m.sub.RowAt(ch, 0, m.row)

		switch sys.ID {
		case song.SystemPCMDAC:
			pushPCMRow(d, row)
		case song.SystemGBAMinMod:
			pushMinModRow(d, m.minmodLocal[ch], row)
		}
	}
}

func pushPCMRow(d *dispatch, row song.Row) {
	switch row.Note {
	case 100, 101, 102:
		d.push(event.PCMAddrInstrument, 0)
	case 0:
	default:
		ins := row.Instrument + 1
		if ins <= 0 {
			ins = 1
		}
		d.push(event.PCMAddrInstrument, uint16(ins))
	}
	if row.Volume >= 0 {
		d.push(event.PCMAddrVolume, uint16(row.Volume))
	}
}

func pushMinModRow(d *dispatch, local int, row song.Row) {
	switch row.Note {
	case 0, 100, 101, 102:
	default:
		d.push(mnmAddr(local, event.MNMFieldPitch), uint16(row.Note))
	}
	if row.Volume >= 0 {
		v := uint16(row.Volume)
		d.push(mnmAddr(local, event.MNMFieldVolL), v)
		d.push(mnmAddr(local, event.MNMFieldVolR), v)
	}
}
