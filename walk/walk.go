// Package walk implements the playback driver: a single deterministic
// forward pass over a song that harvests register writes and pattern-cell
// boundaries tick by tick, locating the loop anchor along the way.
package walk

import (
	"context"

	"github.com/QEStudios/dsxmnm/engine"
	"github.com/QEStudios/dsxmnm/song"
)

// Tick is one observed step of the forward pass.
type Tick struct {
	Index        int64
	Order        int
	Row          int
	RowBoundary  bool
	IsLoopAnchor bool

	// Writes holds the register writes captured this tick, keyed by global
	// channel index.
	Writes map[int][]engine.RegWrite
}

// LoopAnchor is the (tick, row) pair the driver records when it detects the
// song's loop point during the forward pass.
type LoopAnchor struct {
	Found bool
	Tick  int64
	Row   int
}

// Result is the complete linear history produced by one History run.
type Result struct {
	Ticks      []Tick
	Loop       LoopAnchor
	TotalTicks int64
}

// History runs the single forward pass: stop any running playback, call
// WalkSong for the loop anchor, enable register-dump capture on every
// dispatch belonging to an exported system, then step tick by tick until
// the engine reports done. Register-dump capture is disabled and drained on
// every exit path, including ctx cancellation.
func History(ctx context.Context, eng engine.Engine, sysToExport []bool) (*Result, error) {
	eng.Stop()
	eng.SetOrder(0)

	loopOrder, loopRow, _ := eng.WalkSong()

	dispatches := activeDispatches(eng, sysToExport)
	for _, d := range dispatches {
		d.ToggleRegisterDump(true)
	}
	defer func() {
		for _, d := range dispatches {
			d.ToggleRegisterDump(false)
			d.TakeRegisterWrites()
		}
	}()

	eng.PlaySub(false)

	res := &Result{Loop: LoopAnchor{Tick: -1}}
	lastOrder, lastRow := -1, -1
	haveLast := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		curOrder, curRow := eng.CurOrder(), eng.CurRow()
		ticks := eng.Ticks()

		isAnchor := res.Loop.Tick < 0 &&
			loopOrder == curOrder && loopRow == curRow &&
			ticks-int64((eng.TempoAccum()+eng.VirtualTempoN())/nonZero(eng.VirtualTempoD())) <= 0

		if isAnchor {
			res.Loop = LoopAnchor{Found: true, Tick: ticks, Row: curRow}
		}

		// A row boundary is any tick whose (order, row) differs from the
		// previous observed tick, plus the very first tick of the walk.
		rowBoundary := !haveLast || curOrder != lastOrder || curRow != lastRow
		lastOrder, lastRow, haveLast = curOrder, curRow, true

		writes := make(map[int][]engine.RegWrite, len(dispatches))
		for ch, d := range dispatches {
			writes[ch] = d.TakeRegisterWrites()
		}

		res.Ticks = append(res.Ticks, Tick{
			Index:        ticks,
			Order:        curOrder,
			Row:          curRow,
			RowBoundary:  rowBoundary,
			IsLoopAnchor: isAnchor,
			Writes:       writes,
		})

		done := eng.NextTick()
		res.TotalTicks = ticks + 1
		if done {
			break
		}
	}

	return res, nil
}

// activeDispatches enumerates every channel's dispatch, skipping channels
// whose owning system is excluded by sysToExport (nil means "export all").
func activeDispatches(eng engine.Engine, sysToExport []bool) map[int]engine.Dispatch {
	s := eng.Song()
	sub := s.Subsongs[eng.CurSubSong()]
	total := sub.ChannelCount()

	out := make(map[int]engine.Dispatch)
	for ch := 0; ch < total; ch++ {
		sys := s.DispatchOfChannel(sub, ch)
		if sys == nil {
			continue
		}
		if idx := systemIndex(s, sys); sysToExport != nil && idx >= 0 && idx < len(sysToExport) && !sysToExport[idx] {
			continue
		}
		if d := eng.DispatchOfChan(ch); d != nil {
			out[ch] = d
		}
	}
	return out
}

func systemIndex(s *song.Song, sys *song.System) int {
	for i, x := range s.Systems {
		if x == sys {
			return i
		}
	}
	return -1
}

func nonZero(v int) int {
	if v == 0 {
		return 1
	}
	return v
}
