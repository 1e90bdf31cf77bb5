// Package export is the top-level orchestration layer: it wires the
// playback driver, event extractor, and the two format emitters together
// into the two entry points a caller actually invokes, SaveDevSound and
// SaveMNM.
package export

import (
	"context"
	"fmt"

	"github.com/QEStudios/dsxmnm/bufwriter"
	"github.com/QEStudios/dsxmnm/dsx"
	"github.com/QEStudios/dsxmnm/engine"
	"github.com/QEStudios/dsxmnm/event"
	"github.com/QEStudios/dsxmnm/mnm"
	"github.com/QEStudios/dsxmnm/song"
	"github.com/QEStudios/dsxmnm/walk"
)

// SaveDevSound exports the engine's current subsong as DSX assembler
// source, one channel stream per GB PSG / PCM DAC channel the song's
// dispatch map assigns, plus deduplicated instrument macros, wavetables,
// and 4-bit packed samples.
func SaveDevSound(ctx context.Context, eng engine.Engine, sysToExport []bool, baseLabel string) (*bufwriter.Writer, error) {
	hist, err := walk.History(ctx, eng, sysToExport)
	if err != nil {
		return nil, fmt.Errorf("export: walk song: %w", err)
	}

	s := eng.Song()
	sub := s.Subsongs[eng.CurSubSong()]
	channelCount := sub.ChannelCount()

	channels := make([]dsx.Channel, channelCount)
	lastStates := make([]*event.LastState, channelCount)
	s4 := make([]*event.S4Map, channelCount)
	for ch := range channels {
		lastStates[ch] = &event.LastState{}
		s4[ch] = event.NewS4Map()
	}

	row := -1
	loopRow := -1

	for _, tk := range hist.Ticks {
		if tk.RowBoundary {
			row++
		}
		if tk.IsLoopAnchor && loopRow < 0 {
			loopRow = row
		}

		for ch := 0; ch < channelCount; ch++ {
			sys := s.DispatchOfChannel(sub, ch)
			if sys == nil {
				continue
			}

			switch sys.ID {
			case song.SystemGB:
				if !tk.RowBoundary {
					continue
				}
				if tk.IsLoopAnchor {
					lastStates[ch].ForceAll()
				}
				speed1, speed2 := eng.Speeds()
				cell := sub.RowAt(ch, tk.Order, tk.Row)
				if ev, ok := event.ExtractPSG(cell, speed1, speed2, lastStates[ch]); ok {
					channels[ch].PSG = append(channels[ch].PSG, dsx.PSGRowEvent{Row: row, Event: ev})
				}
			case song.SystemPCMDAC:
				if tk.IsLoopAnchor {
					lastStates[ch].ForceAll()
				}
				if ev, ok := event.ExtractPCM(tk.Writes[ch], s4[ch], lastStates[ch]); ok {
					channels[ch].PCM = append(channels[ch].PCM, dsx.PCMTickEvent{Tick: int(tk.Index), Event: ev})
				}
			}
		}
	}

	speed1, speed2 := eng.Speeds()
	out := &dsx.Song{
		BaseLabel:   baseLabel,
		Speed1:      speed1,
		Speed2:      speed2,
		LoopRow:     loopRow,
		Channels:    channels,
		Instruments: s.Instruments,
		Wavetables:  s.Wavetables,
		Samples:     s.Samples,
	}

	w := bufwriter.New(4096)
	dsx.Write(w, out)
	return w, nil
}

// SaveMNM exports the engine's current subsong as an MNM pattern and/or its
// companion MNS sample bank, selected by typ's bitmask: bit 0 suppresses
// samples, bit 1 suppresses the pattern, bit 2 selects the samples-only
// variant. loop controls whether the pattern's loop pointer is computed
// from the detected anchor or left equal to each channel's start pointer;
// patternHints requests
// the channel-0 order-change markers consumed by engines that want to know
// which pattern is currently playing without re-deriving it from the
// command stream.
func SaveMNM(ctx context.Context, eng engine.Engine, typ int, sysToExport []bool, loop bool, patternHints bool) (*bufwriter.Writer, error) {
	s := eng.Song()
	if s.FirstMinModSystem() == nil {
		return nil, mnm.ErrNoMinModSystem
	}

	writePattern := typ != 2
	writeSamples := typ != 1 && typ != 5

	w := bufwriter.New(4096)

	if writePattern {
		patternW, err := buildMNMPattern(ctx, eng, sysToExport, loop, patternHints)
		if err != nil {
			return nil, fmt.Errorf("export: build mnm pattern: %w", err)
		}
		w.WriteBytes(patternW.Bytes())
	}

	if writeSamples {
		samplesW := bufwriter.New(1024)
		if err := mnm.WriteSampleBank(samplesW, s); err != nil {
			return nil, fmt.Errorf("export: write mns sample bank: %w", err)
		}
		w.WriteBytes(samplesW.Bytes())
	}

	return w, nil
}

func buildMNMPattern(ctx context.Context, eng engine.Engine, sysToExport []bool, loop, patternHints bool) (*bufwriter.Writer, error) {
	hist, err := walk.History(ctx, eng, sysToExport)
	if err != nil {
		return nil, fmt.Errorf("walk song: %w", err)
	}

	s := eng.Song()
	sub := s.Subsongs[eng.CurSubSong()]
	minmod := s.FirstMinModSystem()
	channelCount := minmod.FlagInt("channels", 16)
	minmodChannels := minmodGlobalChannels(s, sub)

	streams := make([]mnm.ChannelStream, channelCount)
	lastStates := make([]*event.LastState, channelCount)
	for ch := range lastStates {
		lastStates[ch] = &event.LastState{}
	}

	var hints []mnm.PatternHint
	haveLast := false
	var lastOrder, lastRow int
	loopTick := int64(-1)

	for _, tk := range hist.Ticks {
		if loop && tk.IsLoopAnchor {
			loopTick = tk.Index
		}
		if patternHints && haveLast && tk.Order != lastOrder {
			hints = append(hints, mnm.PatternHint{Tick: tk.Index, PrevRow: lastRow, PrevOrder: lastOrder})
		}
		lastOrder, lastRow, haveLast = tk.Order, tk.Row, true

		var writes []engine.RegWrite
		for _, gch := range minmodChannels {
			writes = append(writes, tk.Writes[gch]...)
		}
		inputs := event.CollectMNMTick(writes)

		for ch := 0; ch < channelCount; ch++ {
			in, ok := inputs[ch]
			if !ok {
				continue
			}
			cmds := event.EncodeMNMTick(in, lastStates[ch], tk.IsLoopAnchor)
			if len(cmds) == 0 {
				continue
			}
			streams[ch].Ticks = append(streams[ch].Ticks, mnm.ChannelTick{Tick: tk.Index, Commands: cmds})
		}
	}

	w := bufwriter.New(4096)
	if err := mnm.WritePattern(w, s, streams, loopTick, hist.TotalTicks, 0, hints); err != nil {
		return nil, fmt.Errorf("write pattern: %w", err)
	}
	return w, nil
}

func minmodGlobalChannels(s *song.Song, sub *song.Subsong) []int {
	var out []int
	for ch := 0; ch < sub.ChannelCount(); ch++ {
		if sys := s.DispatchOfChannel(sub, ch); sys != nil && sys.ID == song.SystemGBAMinMod {
			out = append(out, ch)
		}
	}
	return out
}
