package ax25

import "bytes"

// KISS special bytes (spec.md 4.7.1).
const (
	fend  = 0xC0 // frame delimiter
	fesc  = 0xDB // escape
	tfend = 0xDC // escaped literal FEND
	tfesc = 0xDD // escaped literal FESC

	cmdDataFrame = 0x00
)

// EncodeFrame wraps one AX.25 frame's bytes in a single KISS frame on the
// given port (0-15): FEND, (port<<4)|cmdDataFrame, escaped payload, FEND.
func EncodeFrame(payload []byte, port int) []byte {
	var buf bytes.Buffer
	buf.WriteByte(fend)
	buf.WriteByte(byte(port&0x0F)<<4 | cmdDataFrame)
	for _, b := range payload {
		switch b {
		case fend:
			buf.WriteByte(fesc)
			buf.WriteByte(tfend)
		case fesc:
			buf.WriteByte(fesc)
			buf.WriteByte(tfesc)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(fend)
	return buf.Bytes()
}

// Encode KISS-frames each of frames in order and concatenates the result,
// the single I/O write a sink performs per cycle (spec.md 4.7.9).
func Encode(frames [][]byte, port int) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(EncodeFrame(f, port))
	}
	return buf.Bytes()
}

// Decode splits a raw KISS byte stream back into AX.25 frame payloads,
// undoing the FEND/FESC escaping. Used only by tests to verify the
// escaping round-trip (spec.md 8.9).
func Decode(stream []byte) [][]byte {
	var frames [][]byte
	var cur []byte
	inFrame := false
	escaped := false
	sawCommand := false

	for _, b := range stream {
		switch {
		case b == fend:
			if inFrame && sawCommand {
				frames = append(frames, cur)
			}
			cur = nil
			inFrame = true
			sawCommand = false
			escaped = false
		case !inFrame:
			// stray byte outside any frame; ignore
		case !sawCommand:
			sawCommand = true // first byte after FEND is the port/command byte
		case escaped:
			switch b {
			case tfend:
				cur = append(cur, fend)
			case tfesc:
				cur = append(cur, fesc)
			default:
				cur = append(cur, b)
			}
			escaped = false
		case b == fesc:
			escaped = true
		default:
			cur = append(cur, b)
		}
	}
	return frames
}
