package mnm

// getCmdRange classifies a command's leading opcode byte into one of the
// six bands used to enforce the wait-before-upshift ordering invariant.
// Because every opcode family assigned by the event package lives inside a
// contiguous byte band, sorting a tick's commands by leading byte already
// yields a non-decreasing range sequence within that tick; range tracking
// only needs to carry across ticks.
func getCmdRange(op byte) byte {
	switch {
	case op <= 0x1f:
		return 0x1f
	case op <= 0x2f:
		return 0x2f
	case op <= 0x3f:
		return 0x3f
	case op <= 0x7f:
		return 0x7f
	case op <= 0xbf:
		return 0xbf
	default:
		return 0xff
	}
}
