// Package mnm implements the MNM channel-stream emitter and the MNS
// sample bank: binary formats with fixed-offset, back-patched headers.
package mnm

import (
	"errors"
	"sort"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/song"
)

// ErrNoMinModSystem is returned when a song has no GBA MinMod system to
// export a pattern for.
var ErrNoMinModSystem = errors.New("mnm: song has no GBA MinMod system")

var magicPattern = []byte{0xD1, 0x4D, 0x69, 0x6E, 0x4D, 0x6F, 0x64, 0x4D}

// ChannelTick is one tick-keyed event for a channel's command stream.
type ChannelTick struct {
	Tick     int64
	Commands [][]byte
}

// ChannelStream is one channel's ordered tick events.
type ChannelStream struct {
	Ticks []ChannelTick
}

// PatternHint is an order-change marker prepended to channel 0's command
// list at the tick the order changed, when pattern hints are requested.
type PatternHint struct {
	Tick      int64
	PrevRow   int
	PrevOrder int
}

func (h PatternHint) bytes() []byte {
	return []byte{0x03, byte(h.PrevRow), byte(h.PrevOrder), 0x00, 0xFE}
}

// WritePattern writes the MNM header plus every channel's command body into
// w, back-patching the header once the body layout is known. loopTick < 0
// means the song does not loop. tickRate is the driver tick rate in Hz (0
// selects vblank-synced playback).
func WritePattern(w *bufwriter.Writer, s *song.Song, streams []ChannelStream, loopTick, totalTicks int64, tickRate uint32, hints []PatternHint) error {
	minmod := s.FirstMinModSystem()
	if minmod == nil {
		return ErrNoMinModSystem
	}
	channelCount := minmod.FlagInt("channels", 16)

	w.WriteBytes(magicPattern)
	w.WriteU16(0x0001)
	w.WriteU8(byte(channelCount))
	w.WriteU8(0)
	w.WriteU32(0) // total file size, back-patched
	w.WriteU32(0) // begin length, back-patched
	w.WriteU32(0) // loop length, back-patched
	w.WriteU32(tickRate)
	w.WriteU32(0)

	ptrTableOffset := w.Tell()
	for i := 0; i < channelCount; i++ {
		w.WriteU32(0)
		w.WriteU32(0)
	}

	startPointers := make([]uint32, channelCount)
	loopPointers := make([]uint32, channelCount)

	for ch := 0; ch < channelCount; ch++ {
		var ticks []ChannelTick
		if ch < len(streams) {
			ticks = streams[ch].Ticks
		}
		var chHints []PatternHint
		if ch == 0 {
			chHints = hints
		}
		start, loopPtr := writeChannelBody(w, ticks, loopTick, totalTicks, chHints)
		startPointers[ch] = start
		loopPointers[ch] = loopPtr
	}

	fileEnd := w.Tell()
	loopTickSong := int64(0)
	if loopTick >= 0 {
		loopTickSong = loopTick
	}

	w.Seek(0x0C)
	w.WriteU32(uint32(fileEnd))
	w.WriteU32(uint32(loopTickSong))
	w.WriteU32(uint32(totalTicks - loopTickSong))

	w.Seek(ptrTableOffset)
	for ch := 0; ch < channelCount; ch++ {
		w.WriteU32(startPointers[ch])
		w.WriteU32(loopPointers[ch])
	}
	w.Seek(fileEnd)

	return nil
}

// writeChannelBody writes one channel's command stream and returns its
// (startPointer, loopPointer).
func writeChannelBody(w *bufwriter.Writer, ticks []ChannelTick, loopTick, totalTicks int64, hints []PatternHint) (startPointer, loopPointer uint32) {
	startPointer = uint32(w.Tell())
	loopPointer = startPointer

	var lastTick int64
	var lastRange byte = 0xFF
	looped := false
	hintIdx := 0

	for _, ev := range ticks {
		cmds := ev.Commands
		for hintIdx < len(hints) && hints[hintIdx].Tick == ev.Tick {
			cmds = append([][]byte{hints[hintIdx].bytes()}, cmds...)
			hintIdx++
		}
		if len(cmds) == 0 {
			continue
		}

		if !looped && loopTick >= 0 && ev.Tick >= loopTick {
			// When the loop anchor lands exactly on the previous event's
			// tick (loopTick == lastTick), writeWait(0) writes nothing and
			// lastRange keeps its pre-loop value instead of being forced
			// back to 0xFF. lastRange is never read anywhere in this
			// function, so no absolute-range re-emission is actually
			// skipped by this; the reset here is retained only in case a
			// future forced-range check starts consuming lastRange.
			if writeWait(w, loopTick-lastTick) {
				lastRange = 0xFF
			}
			loopPointer = uint32(w.Tell())
			looped = true
			lastTick = loopTick
		}

		if writeWait(w, ev.Tick-lastTick) {
			lastRange = 0xFF
		}

		sort.SliceStable(cmds, func(i, j int) bool { return cmds[i][0] < cmds[j][0] })
		for _, c := range cmds {
			w.WriteBytes(c)
		}
		lastRange = getCmdRange(cmds[len(cmds)-1][0])
		lastTick = ev.Tick
	}

	writeWait(w, totalTicks-lastTick)
	w.WriteU8(0xFF)
	_ = lastRange

	return startPointer, loopPointer
}

// writeWait encodes ticks as a run of <=64-tick chunks, each byte
// 0xBF+chunk. It reports whether any bytes were written.
func writeWait(w *bufwriter.Writer, ticks int64) bool {
	wrote := false
	for ticks > 0 {
		chunk := ticks
		if chunk > 64 {
			chunk = 64
		}
		w.WriteU8(byte(0xBF + chunk))
		ticks -= chunk
		wrote = true
	}
	return wrote
}
