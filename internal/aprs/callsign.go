package aprs

import (
	"fmt"
	"strings"
)

const maxCallsignLen = 9

// areaLetter returns the single-letter area suffix of spec.md 4.7.6:
// 'A'..'Z' for index 0..25, clamped at 'Z' for anything beyond.
func areaLetter(areaIdx int) byte {
	if areaIdx > 25 {
		areaIdx = 25
	}
	return 'A' + byte(areaIdx)
}

// infoIndexLetters encodes idx (0-based) as a bijective base-26 A..Z run,
// most significant letter first: 0->"A", 25->"Z", 26->"AA" (spec.md 4.7.6's
// open question, resolved this way so every index gets a distinct,
// unpadded suffix).
func infoIndexLetters(idx int) string {
	n := idx + 1
	var letters []byte
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}
	return string(letters)
}

// coinCallsign builds the object/item name of spec.md 4.7.6:
// PREFIX + PID + areaLetter? + infoIndexStr?, truncated (with a caller-
// visible warning flag) to 9 characters.
//
// areaLetter is included only when the emission has more than one
// position; infoIndexStr only when the alert has more than one info block.
func coinCallsign(prefix string, pid int, areaIdx, infoIdx int, multiArea, multiInfo bool) (name string, truncated bool) {
	name = prefix + fmt.Sprintf("%d", pid)
	if multiArea {
		name += string(areaLetter(areaIdx))
	}
	if multiInfo {
		name += infoIndexLetters(infoIdx)
	}
	if len(name) > maxCallsignLen {
		return name[:maxCallsignLen], true
	}
	return name, false
}

// padItem space-pads an item name to at least 3 characters (spec.md 4.7.7).
func padItem(name string) string {
	if len(name) >= 3 {
		return name
	}
	return name + strings.Repeat(" ", 3-len(name))
}

// padObject space-pads an object name to exactly 9 characters.
func padObject(name string) string {
	if len(name) >= 9 {
		return name[:9]
	}
	return name + strings.Repeat(" ", 9-len(name))
}
