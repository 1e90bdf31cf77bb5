// Package furnacetext implements the song model and text loader: it
// turns a tracker's line-based text export into a *song.Song. This is the
// only concrete Song source this repository ships, used by the
// demonstration CLI and by test fixtures.
package furnacetext

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"unicode"

	"github.com/QEStudios/dsxmnm/song"
)

// versionRange is a closed range of supported text-export version numbers.
type versionRange struct {
	min, max int
}

var supportedRanges = []versionRange{
	{232, 232},
}

func isVersionSupported(version int) bool {
	for _, r := range supportedRanges {
		if version >= r.min && version <= r.max {
			return true
		}
	}
	return false
}

// ParseWarning is a non-fatal issue encountered while parsing.
type ParseWarning struct {
	Line    int
	Message string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// ParseResult is the output of a successful parse.
type ParseResult struct {
	Song     *song.Song
	Warnings []ParseWarning
}

// noteBias shifts a raw MIDI-style pitch number clear of the reserved
// note-off/release sentinels (100, 101, 102) while keeping octave/note-name
// arithmetic (val%12, val/12) whole-octave-aligned: octaves 0..7 (the
// highest the pitch grammar accepts) land at 132..228, nowhere near the
// sentinel band. Only E, F and F# of octave -3 still collide; the parser
// emits a ParseWarning and moves them to 103 rather than failing outright.
const noteBias = 120

// furnaceSubsong accumulates one subsong's worth of rows before it is
// folded into a song.Subsong (which wants channel-major pattern storage,
// not the row-major storage the text export itself uses).
type furnaceSubsong struct {
	Name          string
	TickRate      float64
	Speeds        []int
	PatternLength int
	Rows          []furnaceRow
}

type furnaceRow struct {
	Cells []furnaceCell // one per channel, in column order
}

type furnaceCell struct {
	HasNote   bool
	Note      int
	HasIns    bool
	Ins       int
	HasVolume bool
	Volume    int
	Effects   [][2]int
}

// Parser drives a single-pass, stateful line scan over a text export,
// moving section by section through the file and populating the full song
// model (systems, instruments, wavetables, samples, subsongs).
type Parser struct {
	scanner    *bufio.Scanner
	logger     *log.Logger
	lineNumber int
	state      string

	name, author, album string
	tuning              float64

	chips    []*song.System
	curChip  *song.System

	instruments []*song.Instrument
	curIns      *song.Instrument

	wavetables []*song.Wavetable
	samples    []*song.Sample

	subsongs    []*furnaceSubsong
	curSub      *furnaceSubsong
	parsingRows bool
	// channelCount is fixed once the first subsong's first row is seen.
	channelCount int

	warnings []ParseWarning
	used     bool

	seenName, seenAuthor, seenTuning bool
}

// NewParser returns a Parser reading from r. A nil logger defaults to
// log.Default().
func NewParser(r io.Reader, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{
		scanner: bufio.NewScanner(r),
		logger:  logger,
		state:   "signature",
		tuning:  440,
	}
}

func (p *Parser) addWarning(format string, args ...any) {
	p.warnings = append(p.warnings, ParseWarning{Line: p.lineNumber, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) fatalf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.lineNumber, fmt.Sprintf(format, args...))
}

type listElement struct {
	key, value string
}

func parseListElement(s string) (*listElement, error) {
	idx := strings.Index(s, ":")
	if idx == -1 {
		return nil, fmt.Errorf("invalid list element: %s", s)
	}
	key := strings.TrimSpace(s[:idx])
	value := strings.TrimSpace(s[idx+1:])
	key, found := strings.CutPrefix(key, "- ")
	if !found {
		return nil, fmt.Errorf("invalid list element: %s", s)
	}
	return &listElement{key: key, value: value}, nil
}

// parseAttrBlock consumes lines up to and including a closing "```" fence,
// parsing each as a key=value pair. It is the generalized form of the
// key=value/fence convention the sound-chip flags block uses, reused here
// for instrument macros, wavetable data, and sample metadata.
func (p *Parser) parseAttrBlock() (map[string]string, error) {
	attrs := make(map[string]string)
	for p.scanner.Scan() {
		p.lineNumber++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "```" {
			return attrs, nil
		}
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return nil, p.fatalf("invalid attribute line: %s", line)
		}
		attrs[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return nil, p.fatalf("unexpected EOF inside attribute block")
}

// expectFence consumes blank lines until it finds a "```" opening fence,
// erroring on anything else.
func (p *Parser) expectFence() error {
	for p.scanner.Scan() {
		p.lineNumber++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}
		if line == "```" {
			return nil
		}
		return p.fatalf("expected attribute block fence, found: %s", line)
	}
	return p.fatalf("unexpected EOF looking for attribute block fence")
}

func atoiAttr(attrs map[string]string, key string, def int) (int, error) {
	v, ok := attrs[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %q: %s", key, v)
	}
	return n, nil
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid integer in list: %s", f)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseHexBytes(s string) ([]byte, error) {
	fields := strings.Fields(s)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte: %s", f)
		}
		out = append(out, byte(n))
	}
	return out, nil
}

func parseMacroBlock(attrs map[string]string, isWave, isPitch bool) (*song.InstrumentMacro, error) {
	m := &song.InstrumentMacro{IsWaveTableMacro: isWave, IsPitchMacro: isPitch}

	var err error
	if m.Loop, err = atoiAttr(attrs, "loop", -1); err != nil {
		return nil, err
	}
	if m.Release, err = atoiAttr(attrs, "release", -1); err != nil {
		return nil, err
	}
	if m.Speed, err = atoiAttr(attrs, "speed", 1); err != nil {
		return nil, err
	}
	if m.Delay, err = atoiAttr(attrs, "delay", 0); err != nil {
		return nil, err
	}
	if vals, ok := attrs["values"]; ok {
		m.Val, err = parseIntList(vals)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// --- note/volume/effect cell grammar -------------------------------------

var noteBase = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

func isValidPitchString(s string) bool {
	if len(s) != 3 {
		return false
	}
	u := strings.ToUpper(s)
	first, second, third := u[0], u[1], u[2]
	if !(first >= 'A' && first <= 'G') {
		return false
	}
	if third < '0' || third > '7' {
		return false
	}
	switch second {
	case '#', '+', '-', '_':
	default:
		return false
	}
	if (second == '+' || second == '_') && int(third-'0') > 5 {
		return false
	}
	return true
}

func parsePitchString(s string) (int, error) {
	if !isValidPitchString(s) {
		return 0, fmt.Errorf("invalid pitch string %q", s)
	}
	u := strings.ToUpper(s)
	first, second, third := u[0], u[1], u[2]
	octave := int(third - '0')
	if second == '+' || second == '_' {
		octave = -octave
	}
	accidental := 0
	if second == '#' || second == '+' {
		accidental = 1
	}
	midi := (octave+1)*12 + noteBase[first] + accidental
	return midi, nil
}

func isValidVolumeString(s string) bool {
	if len(s) != 2 {
		return false
	}
	if s[0] != '0' {
		return false
	}
	if s[1] >= '0' && s[1] <= '9' {
		return true
	}
	u := strings.ToUpper(s)
	return u[1] >= 'A' && u[1] <= 'F'
}

func parseVolumeString(s string) (int, error) {
	if !isValidVolumeString(s) {
		return 0, fmt.Errorf("invalid volume string %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("error parsing volume string: %w", err)
	}
	return int(v), nil
}

func parseEffectString(s string) (id, val int, ok bool, err error) {
	if len(s) != 4 {
		return 0, 0, false, fmt.Errorf("invalid effect string %q", s)
	}
	idVal, err := strconv.ParseUint(s[0:2], 16, 8)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid effect id in %q", s)
	}
	if s[2:4] == ".." {
		return int(idVal), 0, true, nil
	}
	paramVal, err := strconv.ParseUint(s[2:4], 16, 8)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid effect param in %q", s)
	}
	return int(idVal), int(paramVal), true, nil
}

// parseCell parses one channel's note/instrument/volume/effect cell text.
func (p *Parser) parseCell(cellString string) (furnaceCell, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cellString)

	if (len(cleaned)-11)%4 != 0 {
		return furnaceCell{}, fmt.Errorf("invalid cell string: %s", cellString)
	}

	var cell furnaceCell

	pitchString := cleaned[0:3]
	insString := cleaned[3:5]
	volumeString := cleaned[5:7]

	switch pitchString {
	case "...":
	case "OFF":
		cell.HasNote, cell.Note = true, 100
	default:
		midi, err := parsePitchString(pitchString)
		if err != nil {
			return furnaceCell{}, err
		}
		biased := midi + noteBias
		if biased == 100 || biased == 101 || biased == 102 {
			p.addWarning("note value collides with a reserved sentinel after bias, clamping: %s", pitchString)
			biased = 103
		}
		cell.HasNote, cell.Note = true, biased
	}

	if insString != ".." {
		n, err := strconv.ParseUint(insString, 16, 8)
		if err != nil {
			return furnaceCell{}, fmt.Errorf("invalid instrument string %q", insString)
		}
		cell.HasIns, cell.Ins = true, int(n)
	}

	if !cell.HasNote || cell.Note != 100 {
		if volumeString != ".." {
			v, err := parseVolumeString(volumeString)
			if err != nil {
				return furnaceCell{}, err
			}
			cell.HasVolume, cell.Volume = true, v
		}
	}

	for i := 0; i < len(cleaned)-7; i += 4 {
		effectString := cleaned[i+7 : i+11]
		if effectString == "...." {
			continue
		}
		id, val, ok, err := parseEffectString(effectString)
		if err != nil {
			return furnaceCell{}, err
		}
		if ok {
			cell.Effects = append(cell.Effects, [2]int{id, val})
		}
	}

	return cell, nil
}

// parseSpeedsList parses 1..2 positive integers (the model's alternating
// per-row tick-count vector); more than 2 is rejected as an unsupported
// groove pattern.
func (p *Parser) parseSpeedsList(s string) ([]int, error) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("expected 1..2 numbers, got none")
	}
	if len(tokens) > 2 {
		return nil, fmt.Errorf("groove patterns longer than 2 entries are not supported")
	}
	out := make([]int, 0, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("token %d (%q) is not a valid integer: %w", i+1, tok, err)
		}
		if v <= 0 || v >= 256 {
			return nil, fmt.Errorf("token %d (%q) must be in range 1..255", i+1, tok)
		}
		out = append(out, v)
	}
	return out, nil
}

func chipSystemID(chipID string) (song.SystemID, bool) {
	switch chipID {
	case "04":
		return song.SystemGB, true
	case "47":
		return song.SystemPCMDAC, true
	case "49":
		return song.SystemGBAMinMod, true
	default:
		return 0, false
	}
}
