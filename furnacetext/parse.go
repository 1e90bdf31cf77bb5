package furnacetext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/QEStudios/dsxmnm/song"
)

// isEntryMarker reports whether a line starts a new dash-list entry (a
// chip, instrument, wavetable, or sample) rather than naming one of that
// entry's own key:value attributes — the text format uses "- " for every
// dash-list line, but only an entry-start line omits a colon entirely.
func isEntryMarker(line string) bool {
	return strings.HasPrefix(line, "- ") && !strings.Contains(line, ":")
}

func entryName(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, "- "))
}

func (p *Parser) parseInternal() (*ParseResult, error) {
	if p.used {
		return nil, fmt.Errorf("parser already used")
	}
	p.used = true

	for p.scanner.Scan() {
		p.lineNumber++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}

		switch p.state {
		case "signature":
			if line == "# Furnace Text Export" {
				p.state = "version"
				continue
			}
			p.addWarning("unexpected text found looking for signature: %s", line)

		case "version":
			if strings.HasPrefix(line, "generated by Furnace ") {
				parts := strings.Fields(line)
				numStr := strings.Trim(parts[len(parts)-1], "()")
				version, err := strconv.Atoi(numStr)
				if err != nil {
					return nil, p.fatalf("invalid integer in version number: %s", numStr)
				}
				if !isVersionSupported(version) {
					p.addWarning("version %d isn't officially supported, some things might not work correctly", version)
				}
				p.logger.Printf("text export version %d detected", version)
				p.state = "song information"
				continue
			}
			return nil, p.fatalf("unexpected text found looking for version: %s", line)

		case "song information":
			if line == "# Song Information" {
				continue
			}
			if line == "# Sound Chips" {
				var missing []string
				if !p.seenName {
					missing = append(missing, "name")
				}
				if !p.seenAuthor {
					missing = append(missing, "author")
				}
				if !p.seenTuning {
					missing = append(missing, "tuning")
				}
				if len(missing) > 0 {
					return nil, p.fatalf("missing fields in Song Information section: %s", strings.Join(missing, ", "))
				}
				p.state = "sound chips"
				continue
			}
			le, err := parseListElement(line)
			if err != nil {
				return nil, p.fatalf("error parsing song information: %s", line)
			}
			switch le.key {
			case "name":
				p.name, p.seenName = le.value, true
			case "author":
				p.author, p.seenAuthor = le.value, true
			case "album":
				p.album = le.value
			case "tuning":
				tuning, err := strconv.ParseFloat(le.value, 64)
				if err != nil {
					return nil, p.fatalf("invalid tuning value: %s", le.value)
				}
				p.tuning, p.seenTuning = tuning, true
			case "system", "instruments", "wavetables", "samples":
			default:
				p.addWarning("unknown option in Song Information: %s", le.key)
			}

		case "sound chips":
			if line == "# Sound Chips" {
				continue
			}
			if line == "# Instruments" {
				if len(p.chips) == 0 {
					return nil, p.fatalf("no sound chips were found")
				}
				p.state = "instruments"
				continue
			}
			if isEntryMarker(line) {
				p.curChip = &song.System{Flags: make(map[string]int)}
				continue
			}
			if line == "```" {
				if p.curChip == nil {
					return nil, p.fatalf("attribute block found with no current chip")
				}
				attrs, err := p.parseAttrBlock()
				if err != nil {
					return nil, err
				}
				for k, v := range attrs {
					switch k {
					case "channels":
						n, err := strconv.Atoi(v)
						if err != nil {
							return nil, p.fatalf("invalid channels flag: %s", v)
						}
						p.curChip.Flags["channels"] = n
					case "clockSel", "noEasyNoise", "noPhaseReset":
					default:
						p.addWarning("unknown chip flag: %s", k)
					}
				}
				continue
			}
			le, err := parseListElement(line)
			if err != nil {
				return nil, p.fatalf("error parsing sound chips: %s", line)
			}
			if p.curChip == nil {
				return nil, p.fatalf("chip attribute found with no current chip")
			}
			switch le.key {
			case "id":
				sysID, ok := chipSystemID(le.value)
				if !ok {
					return nil, p.fatalf("unrecognised chip id %q", le.value)
				}
				p.curChip.ID = sysID
				p.chips = append(p.chips, p.curChip)
			case "flags", "volume", "panning", "front/rear":
			default:
				p.addWarning("unknown option in Sound Chips section: %s", le.key)
			}

		case "instruments":
			if line == "# Instruments" {
				continue
			}
			if line == "# Wavetables" {
				p.finishInstrument()
				p.state = "wavetables"
				continue
			}
			if isEntryMarker(line) {
				p.finishInstrument()
				p.curIns = &song.Instrument{Name: entryName(line), Type: song.InstrumentPulse}
				continue
			}
			if p.curIns == nil {
				return nil, p.fatalf("instrument attribute found with no current instrument: %s", line)
			}
			switch line {
			case "vol:":
				m, err := p.readMacro(false, false)
				if err != nil {
					return nil, err
				}
				p.curIns.Vol = m
			case "arp:":
				m, err := p.readMacro(false, false)
				if err != nil {
					return nil, err
				}
				p.curIns.Arp = m
			case "wave:":
				m, err := p.readMacro(true, false)
				if err != nil {
					return nil, err
				}
				p.curIns.Wave = m
			case "pitch:":
				m, err := p.readMacro(false, true)
				if err != nil {
					return nil, err
				}
				p.curIns.Pitch = m
			case "duty:":
				m, err := p.readMacro(false, false)
				if err != nil {
					return nil, err
				}
				p.curIns.Duty = m
			default:
				le, err := parseListElement(line)
				if err != nil {
					return nil, p.fatalf("error parsing instrument attribute: %s", line)
				}
				if le.key == "type" {
					switch le.value {
					case "pulse":
						p.curIns.Type = song.InstrumentPulse
					case "wave":
						p.curIns.Type = song.InstrumentWave
					case "sample":
						p.curIns.Type = song.InstrumentSample
					default:
						return nil, p.fatalf("unrecognised instrument type %q", le.value)
					}
				} else {
					p.addWarning("unknown option in instrument %q: %s", p.curIns.Name, le.key)
				}
			}

		case "wavetables":
			if line == "# Wavetables" {
				continue
			}
			if line == "# Samples" {
				p.state = "samples"
				continue
			}
			if isEntryMarker(line) {
				if err := p.expectFence(); err != nil {
					return nil, err
				}
				attrs, err := p.parseAttrBlock()
				if err != nil {
					return nil, err
				}
				data, err := parseIntList(attrs["data"])
				if err != nil {
					return nil, p.fatalf("invalid wavetable data: %v", err)
				}
				p.wavetables = append(p.wavetables, &song.Wavetable{Data: data})
				continue
			}
			p.addWarning("unexpected text in Wavetables section: %s", line)

		case "samples":
			if line == "# Samples" {
				continue
			}
			if line == "# Subsongs" {
				p.state = "subsongs"
				continue
			}
			if isEntryMarker(line) {
				if err := p.expectFence(); err != nil {
					return nil, err
				}
				attrs, err := p.parseAttrBlock()
				if err != nil {
					return nil, err
				}
				smp, err := buildSample(attrs)
				if err != nil {
					return nil, p.fatalf("%v", err)
				}
				p.samples = append(p.samples, smp)
				continue
			}
			p.addWarning("unexpected text in Samples section: %s", line)

		case "subsongs":
			if line == "# Subsongs" {
				continue
			}
			if strings.HasPrefix(line, "## ") {
				if line == "## Patterns" {
					p.parsingRows = true
					continue
				}
				idx := strings.Index(line, ":")
				if idx == -1 {
					p.addWarning("unexpected text looking for subsong start: %s", line)
					continue
				}
				name := strings.TrimSpace(line[idx+1:])
				p.curSub = &furnaceSubsong{Name: name, TickRate: 50, Speeds: []int{3}, PatternLength: 64}
				p.subsongs = append(p.subsongs, p.curSub)
				p.parsingRows = false
				continue
			}
			if p.curSub != nil && p.parsingRows {
				if strings.HasPrefix(line, "----- ORDER") {
					continue
				}
				fields := strings.FieldsFunc(line, func(r rune) bool { return r == '|' })
				row := furnaceRow{}
				for i, field := range fields {
					if i == 0 {
						continue
					}
					cell, err := p.parseCell(field)
					if err != nil {
						p.addWarning("error parsing cell in channel %d: %v", i-1, err)
						cell = furnaceCell{}
					}
					row.Cells = append(row.Cells, cell)
				}
				p.curSub.Rows = append(p.curSub.Rows, row)
				continue
			}
			if p.curSub != nil && !p.parsingRows {
				if line == "orders:" {
					continue
				}
				le, err := parseListElement(line)
				if err != nil {
					return nil, p.fatalf("error parsing subsong metadata: %s", line)
				}
				switch le.key {
				case "tick rate":
					tr, err := strconv.ParseFloat(le.value, 64)
					if err != nil {
						return nil, p.fatalf("invalid tick rate: %s", le.value)
					}
					p.curSub.TickRate = tr
				case "speeds":
					speeds, err := p.parseSpeedsList(le.value)
					if err != nil {
						return nil, p.fatalf("invalid speeds: %v", err)
					}
					p.curSub.Speeds = speeds
				case "pattern length":
					pl, err := strconv.Atoi(le.value)
					if err != nil {
						return nil, p.fatalf("invalid pattern length: %s", le.value)
					}
					p.curSub.PatternLength = pl
				case "time base", "virtual tempo":
				default:
					p.addWarning("unknown option in subsong metadata: %s", le.key)
				}
			}

		default:
			return nil, p.fatalf("unknown parser state: %s", p.state)
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, p.fatalf("error while reading file: %v", err)
	}

	p.finishInstrument()

	if len(p.subsongs) == 0 {
		return nil, p.fatalf("no subsongs were found")
	}

	return &ParseResult{Song: p.toSong(), Warnings: p.warnings}, nil
}

func (p *Parser) finishInstrument() {
	if p.curIns != nil {
		p.instruments = append(p.instruments, p.curIns)
		p.curIns = nil
	}
}

// readMacro expects the fence opening a macro's attribute block on a
// following line, then parses it into an InstrumentMacro.
func (p *Parser) readMacro(isWave, isPitch bool) (*song.InstrumentMacro, error) {
	if err := p.expectFence(); err != nil {
		return nil, err
	}
	attrs, err := p.parseAttrBlock()
	if err != nil {
		return nil, err
	}
	return parseMacroBlock(attrs, isWave, isPitch)
}

func buildSample(attrs map[string]string) (*song.Sample, error) {
	data, err := parseHexBytes(attrs["data"])
	if err != nil {
		return nil, fmt.Errorf("invalid sample data: %w", err)
	}
	smp := &song.Sample{Data8: data, Length8: len(data)}
	smp.Loop = attrs["loop"] == "true"
	if v, ok := attrs["loopStart"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid loopStart: %s", v)
		}
		smp.LoopStart = n
	}
	if v, ok := attrs["loopEnd"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid loopEnd: %s", v)
		}
		smp.LoopEnd = n
	} else {
		smp.LoopEnd = smp.Length8
	}
	if v, ok := attrs["centerRate"]; ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid centerRate: %s", v)
		}
		smp.CenterRate = f
	}
	return smp, nil
}

// toSong folds the row-major furnace subsong representation into the
// channel-major song.Subsong shape the rest of this repository consumes.
// Orders/patterns are collapsed to a single pattern per channel spanning
// the whole subsong, since the text export's "orders:" list is otherwise
// unused here (the exporters only need a deterministic row sequence to
// walk, not a reusable pattern library).
func (p *Parser) toSong() *song.Song {
	s := &song.Song{
		Name:        p.name,
		Author:      p.author,
		Systems:     p.chips,
		Instruments: p.instruments,
		Wavetables:  p.wavetables,
		Samples:     p.samples,
	}

	for _, fs := range p.subsongs {
		channelCount := 0
		for _, row := range fs.Rows {
			if len(row.Cells) > channelCount {
				channelCount = len(row.Cells)
			}
		}

		patterns := make([][][]song.Row, channelCount)
		orders := make([][]int, channelCount)
		for ch := 0; ch < channelCount; ch++ {
			rows := make([]song.Row, len(fs.Rows))
			for i, fr := range fs.Rows {
				var cell furnaceCell
				if ch < len(fr.Cells) {
					cell = fr.Cells[ch]
				}
				r := song.Row{Instrument: -1, Volume: -1}
				if cell.HasNote {
					r.Note = cell.Note
				}
				if cell.HasIns {
					r.Instrument = cell.Ins
				}
				if cell.HasVolume {
					r.Volume = cell.Volume
				}
				r.Effects = cell.Effects
				rows[i] = r
			}
			patterns[ch] = [][]song.Row{rows}
			orders[ch] = []int{0}
		}

		speed2 := 0
		if len(fs.Speeds) > 1 {
			speed2 = fs.Speeds[1]
		}

		sub := &song.Subsong{
			Name:          fs.Name,
			Speeds:        []int{fs.Speeds[0], speed2},
			Orders:        orders,
			Patterns:      patterns,
			PatternLen:    len(fs.Rows),
			VirtualTempoN: 1,
			VirtualTempoD: 1,
		}
		if speed2 == 0 {
			sub.Speeds = []int{fs.Speeds[0]}
		}
		s.Subsongs = append(s.Subsongs, sub)
	}

	return s
}

// Parse runs the parser to completion and returns the resulting song plus
// any non-fatal warnings collected along the way.
func (p *Parser) Parse() (*ParseResult, error) {
	result, err := p.parseInternal()
	if err != nil {
		return nil, err
	}
	if len(result.Warnings) > 0 {
		p.logger.Println("warnings produced while parsing file:")
		for _, w := range result.Warnings {
			p.logger.Printf("line %d: %v", w.Line, w.Message)
		}
	}
	return result, nil
}
