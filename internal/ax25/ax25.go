// Package ax25 builds AX.25 UI frames and KISS-frames them for delivery to
// a TNC over a serial or TCP link (spec.md 4.7.1, 6.4).
package ax25

import (
	"bytes"
	"fmt"
	"strings"
)

// Address is one AX.25 callsign/SSID pair, e.g. "DB0ABC-1".
type Address struct {
	Call string
	SSID int
}

// ParseAddress splits a "CALL" or "CALL-SSID" string into an Address.
func ParseAddress(s string) Address {
	call, ssidStr, found := strings.Cut(s, "-")
	if !found {
		return Address{Call: call}
	}
	var ssid int
	fmt.Sscanf(ssidStr, "%d", &ssid)
	return Address{Call: call, SSID: ssid}
}

// encode writes the 7-byte shifted-ASCII AX.25 address field. last marks the
// final address in the path (the address-extension bit).
func (a Address) encode(last bool) []byte {
	call := strings.ToUpper(a.Call)
	if len(call) > 6 {
		call = call[:6]
	}
	buf := make([]byte, 7)
	for i := 0; i < 6; i++ {
		c := byte(' ')
		if i < len(call) {
			c = call[i]
		}
		buf[i] = c << 1
	}
	ssidByte := byte(0x60) | byte((a.SSID&0x0F)<<1)
	if last {
		ssidByte |= 0x01
	}
	buf[6] = ssidByte
	return buf
}

// Frame is an AX.25 UI (unnumbered information) frame: the shape every
// APRS packet travels in.
type Frame struct {
	Dest   Address
	Source Address
	Digis  []Address
	Info   []byte // the APRS packet body
}

// control and pid are fixed for APRS UI frames: unnumbered information,
// no layer-3 protocol.
const (
	controlUI = 0x03
	pidNoL3   = 0xF0
)

// Encode serialises the frame to raw AX.25 bytes: destination, source,
// digipeater path (address-extension bit set on the last address),
// control, PID, info.
func (f Frame) Encode() []byte {
	var buf bytes.Buffer

	path := append([]Address{f.Dest, f.Source}, f.Digis...)
	for i, addr := range path {
		buf.Write(addr.encode(i == len(path)-1))
	}
	buf.WriteByte(controlUI)
	buf.WriteByte(pidNoL3)
	buf.Write(f.Info)
	return buf.Bytes()
}
