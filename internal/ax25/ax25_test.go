package ax25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameAddressExtensionBit(t *testing.T) {
	f := Frame{
		Dest:   ParseAddress("APMOWA"),
		Source: ParseAddress("DB0ABC-1"),
		Digis:  []Address{ParseAddress("WIDE1-1")},
		Info:   []byte(")MOWA1!1234.56N/01234.56Etest"),
	}
	raw := f.Encode()
	require.True(t, len(raw) > 21)
	// the last address byte (digi WIDE1-1) must have the extension bit set
	assert.Equal(t, byte(0x01), raw[20]&0x01)
	// the destination and source address bytes must NOT have it set
	assert.Equal(t, byte(0x00), raw[6]&0x01)
	assert.Equal(t, byte(0x00), raw[13]&0x01)
}

func TestKISSEscapingRoundTrip(t *testing.T) {
	// spec.md 8.9
	payload := []byte{0x01, 0xC0, 0x02, 0xDB, 0x03, 0xC0, 0xDB, 0x04}
	encoded := EncodeFrame(payload, 0)

	assert.Equal(t, byte(fend), encoded[0])
	assert.NotContains(t, encoded[2:len(encoded)-1], byte(fend))

	decoded := Decode(encoded)
	require.Len(t, decoded, 1)
	assert.Equal(t, payload, decoded[0])
}

func TestKISSPortNibble(t *testing.T) {
	encoded := EncodeFrame([]byte{0x42}, 3)
	assert.Equal(t, byte(0x30), encoded[1])
}

func TestEncodeMultipleFramesConcatenates(t *testing.T) {
	raw := Encode([][]byte{{0x01}, {0x02}}, 0)
	decoded := Decode(raw)
	require.Len(t, decoded, 2)
	assert.Equal(t, []byte{0x01}, decoded[0])
	assert.Equal(t, []byte{0x02}, decoded[1])
}
