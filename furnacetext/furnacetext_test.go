package furnacetext

import (
	"strings"
	"testing"

	"github.com/QEStudios/dsxmnm/song"
)

func TestIsValidPitchString(t *testing.T) {
	cases := map[string]bool{
		"C-4": true,
		"A#5": true,
		"G+3": true,
		"B_2": true,
		"H-4": false,
		"C-8": false,
		"C#4": true,
		"C+6": false, // second=='+' with third>5 is rejected
	}
	for in, want := range cases {
		if got := isValidPitchString(in); got != want {
			t.Errorf("isValidPitchString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParsePitchString(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"C-4", 60},
		{"C-5", 72},
		{"A-4", 69},
	}
	for _, c := range cases {
		got, err := parsePitchString(c.in)
		if err != nil {
			t.Fatalf("parsePitchString(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("parsePitchString(%q) = %d, want %d", c.in, got, c.want)
		}
	}
	if _, err := parsePitchString("ZZZ"); err == nil {
		t.Error("expected error for invalid pitch string")
	}
}

func TestIsValidVolumeString(t *testing.T) {
	if !isValidVolumeString("0F") {
		t.Error("0F should be a valid volume string")
	}
	if !isValidVolumeString("05") {
		t.Error("05 should be a valid volume string")
	}
	if isValidVolumeString("1F") {
		t.Error("1F should be invalid (must start with 0)")
	}
	if isValidVolumeString("0") {
		t.Error("single-char string should be invalid")
	}
}

func TestParseVolumeString(t *testing.T) {
	got, err := parseVolumeString("0A")
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("parseVolumeString(0A) = %d, want 10", got)
	}
}

func TestParseEffectString(t *testing.T) {
	id, val, ok, err := parseEffectString("0A0F")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || id != 0x0A || val != 0x0F {
		t.Errorf("parseEffectString(0A0F) = (%d, %d, %v), want (10, 15, true)", id, val, ok)
	}

	id, _, ok, err = parseEffectString("0A..")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || id != 0x0A {
		t.Errorf("parseEffectString(0A..) = (%d, _, %v), want (10, true)", id, ok)
	}

	if _, _, ok, _ := parseEffectString("...."); ok {
		t.Error("'....' should not itself be parsed here (caller filters it), but if passed through ok should still reflect validity of id/param")
	}
}

func TestParseCellBasic(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)
	cell, err := p.parseCell("C-401..")
	if err != nil {
		t.Fatal(err)
	}
	if !cell.HasNote || cell.Note != 180 {
		t.Errorf("cell.Note = %d (HasNote=%v), want 180", cell.Note, cell.HasNote)
	}
	if !cell.HasIns || cell.Ins != 1 {
		t.Errorf("cell.Ins = %d (HasIns=%v), want 1", cell.Ins, cell.HasIns)
	}
	if cell.HasVolume {
		t.Error("volume should not be set for '..'")
	}
}

func TestParseCellEmpty(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)
	cell, err := p.parseCell(".......")
	if err != nil {
		t.Fatal(err)
	}
	if cell.HasNote || cell.HasIns || cell.HasVolume {
		t.Errorf("expected a fully empty cell, got %+v", cell)
	}
}

func TestParseCellNoteOffSkipsVolume(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)
	cell, err := p.parseCell("OFF..0A")
	if err != nil {
		t.Fatal(err)
	}
	if !cell.HasNote || cell.Note != 100 {
		t.Errorf("expected note-off (100), got %+v", cell)
	}
	if cell.HasVolume {
		t.Error("volume on a note-off row should be ignored")
	}
}

func TestParseCellWithEffect(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)
	cell, err := p.parseCell("C-401..0A0F")
	if err != nil {
		t.Fatal(err)
	}
	if len(cell.Effects) != 1 || cell.Effects[0] != [2]int{0x0A, 0x0F} {
		t.Errorf("cell.Effects = %+v, want [[10 15]]", cell.Effects)
	}
}

func TestParseCellInvalidLength(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)
	if _, err := p.parseCell("abcd"); err == nil {
		t.Error("expected an error for a malformed cell string")
	}
}

func TestParseSpeedsList(t *testing.T) {
	p := NewParser(strings.NewReader(""), nil)

	got, err := p.parseSpeedsList("6")
	if err != nil || len(got) != 1 || got[0] != 6 {
		t.Errorf("parseSpeedsList(\"6\") = %v, %v", got, err)
	}

	got, err = p.parseSpeedsList("6 5")
	if err != nil || len(got) != 2 || got[0] != 6 || got[1] != 5 {
		t.Errorf("parseSpeedsList(\"6 5\") = %v, %v", got, err)
	}

	if _, err := p.parseSpeedsList("1 2 3"); err == nil {
		t.Error("expected an error for more than 2 speed tokens")
	}
	if _, err := p.parseSpeedsList(""); err == nil {
		t.Error("expected an error for an empty speeds list")
	}
	if _, err := p.parseSpeedsList("0"); err == nil {
		t.Error("expected an error for a zero speed")
	}
	if _, err := p.parseSpeedsList("300"); err == nil {
		t.Error("expected an error for a speed out of range")
	}
}

func TestChipSystemID(t *testing.T) {
	cases := map[string]song.SystemID{
		"04": song.SystemGB,
		"47": song.SystemPCMDAC,
		"49": song.SystemGBAMinMod,
	}
	for id, want := range cases {
		got, ok := chipSystemID(id)
		if !ok || got != want {
			t.Errorf("chipSystemID(%q) = (%v, %v), want (%v, true)", id, got, ok, want)
		}
	}
	if _, ok := chipSystemID("99"); ok {
		t.Error("unrecognised chip id should not be ok")
	}
}

func TestAtoiAttrDefault(t *testing.T) {
	attrs := map[string]string{"loop": "3"}
	got, err := atoiAttr(attrs, "loop", -1)
	if err != nil || got != 3 {
		t.Errorf("atoiAttr present = (%d, %v), want (3, nil)", got, err)
	}
	got, err = atoiAttr(attrs, "release", -1)
	if err != nil || got != -1 {
		t.Errorf("atoiAttr missing = (%d, %v), want (-1, nil)", got, err)
	}
	if _, err := atoiAttr(map[string]string{"x": "not-a-number"}, "x", 0); err == nil {
		t.Error("expected an error for a non-numeric attribute")
	}
}

func TestParseIntList(t *testing.T) {
	got, err := parseIntList("1, 2, 3")
	if err != nil || len(got) != 3 || got[2] != 3 {
		t.Errorf("parseIntList = %v, %v", got, err)
	}
	got, err = parseIntList("")
	if err != nil || got != nil {
		t.Errorf("parseIntList(\"\") = %v, %v, want nil, nil", got, err)
	}
}

func TestParseHexBytes(t *testing.T) {
	got, err := parseHexBytes("00 ff 1a")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0xff, 0x1a}
	if len(got) != len(want) {
		t.Fatalf("parseHexBytes length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestParseMacroBlock(t *testing.T) {
	attrs := map[string]string{
		"loop":    "2",
		"release": "4",
		"speed":   "3",
		"delay":   "1",
		"values":  "10, 20, 30",
	}
	m, err := parseMacroBlock(attrs, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if m.Loop != 2 || m.Release != 4 || m.Speed != 3 || m.Delay != 1 {
		t.Errorf("macro fields = %+v", m)
	}
	if len(m.Val) != 3 || m.Val[1] != 20 {
		t.Errorf("macro values = %v", m.Val)
	}
	if !m.IsPitchMacro || m.IsWaveTableMacro {
		t.Errorf("macro kind flags = pitch=%v wave=%v", m.IsPitchMacro, m.IsWaveTableMacro)
	}
}

const minimalExport = `# Furnace Text Export
generated by Furnace (232)
# Song Information
- name: Test Song
- author: Test Author
- tuning: 440
# Sound Chips
- Game Boy
- id: 04
# Instruments
# Wavetables
# Samples
# Subsongs
## Subsong 0: Main
- tick rate: 60
- speeds: 6
- pattern length: 2
orders:
## Patterns
----- ORDER 0
|000|C-401..|.......|
|001|.......|.......|
`

func TestParseMinimalExport(t *testing.T) {
	p := NewParser(strings.NewReader(minimalExport), nil)
	res, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	s := res.Song
	if s.Name != "Test Song" || s.Author != "Test Author" {
		t.Errorf("song metadata = %+v", s)
	}
	if len(s.Systems) != 1 || s.Systems[0].ID != song.SystemGB {
		t.Fatalf("systems = %+v", s.Systems)
	}
	if len(s.Subsongs) != 1 {
		t.Fatalf("expected 1 subsong, got %d", len(s.Subsongs))
	}

	sub := s.Subsongs[0]
	if len(sub.Speeds) != 1 || sub.Speeds[0] != 6 {
		t.Errorf("sub.Speeds = %v, want [6]", sub.Speeds)
	}
	if sub.PatternLen != 2 {
		t.Errorf("sub.PatternLen = %d, want 2", sub.PatternLen)
	}
	if sub.ChannelCount() != 2 {
		t.Fatalf("sub.ChannelCount() = %d, want 2", sub.ChannelCount())
	}

	row0 := sub.RowAt(0, 0, 0)
	if row0.Note != 180 || row0.Instrument != 1 {
		t.Errorf("channel 0 row 0 = %+v, want Note=180 Instrument=1", row0)
	}
	row1 := sub.RowAt(0, 0, 1)
	if row1.Note != 0 || row1.Instrument != -1 {
		t.Errorf("channel 0 row 1 = %+v, want empty", row1)
	}
}

func TestParseRejectsSecondUse(t *testing.T) {
	p := NewParser(strings.NewReader(minimalExport), nil)
	if _, err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(); err == nil {
		t.Error("expected an error reusing an already-used parser")
	}
}

func TestParseMissingSignatureWarns(t *testing.T) {
	bad := "not the right first line\n" + minimalExport
	p := NewParser(strings.NewReader(bad), nil)
	res, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning about the unexpected signature line")
	}
}

func TestParseNoSubsongsFails(t *testing.T) {
	noSub := `# Furnace Text Export
generated by Furnace (232)
# Song Information
- name: Test Song
- author: Test Author
- tuning: 440
# Sound Chips
- Game Boy
- id: 04
# Instruments
# Wavetables
# Samples
# Subsongs
`
	p := NewParser(strings.NewReader(noSub), nil)
	if _, err := p.Parse(); err == nil {
		t.Error("expected an error when no subsongs are present")
	}
}

func TestParseNoChipsFails(t *testing.T) {
	noChips := `# Furnace Text Export
generated by Furnace (232)
# Song Information
- name: Test Song
- author: Test Author
- tuning: 440
# Sound Chips
# Instruments
`
	p := NewParser(strings.NewReader(noChips), nil)
	if _, err := p.Parse(); err == nil {
		t.Error("expected an error when no sound chips are present")
	}
}
