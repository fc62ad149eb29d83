package vessel

import (
	"fmt"
	"strings"

	"github.com/Averyy/bridge-up/internal/model"
)

// decodeAIVDM decodes one or more newline-separated !AIVDM/!AIVDO sentences
// into Updates. Multi-fragment messages are not reassembled: every fragment
// of a multi-fragment message is dropped, even when all of its fragments
// arrive in the same payload. There is no AIS/NMEA library anywhere in the
// retrieval pack, so the 6-bit payload armor is decoded directly here.
func decodeAIVDM(raw string) []Update {
	var updates []Update
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		u, ok := decodeSentence(line)
		if !ok {
			continue
		}
		updates = append(updates, u)
	}
	return updates
}

func decodeSentence(line string) (Update, bool) {
	line = strings.TrimPrefix(line, "!")
	fields := strings.Split(line, ",")
	// !AIVDM,1,1,,A,<payload>,0*<checksum>
	if len(fields) < 6 {
		return Update{}, false
	}
	if !strings.HasSuffix(fields[0], "AIVDM") && !strings.HasSuffix(fields[0], "AIVDO") {
		return Update{}, false
	}
	if fields[1] != "1" {
		// Multi-fragment message: not reassembled, drop.
		return Update{}, false
	}
	payload := fields[5]
	bits := armorToBits(payload)
	if len(bits) < 38 {
		return Update{}, false
	}

	msgType := bitsToUint(bits, 0, 6)
	switch msgType {
	case 1, 2, 3:
		return decodePositionReport(bits)
	case 5:
		return decodeStaticReport(bits)
	default:
		// Base-station (4), channel-management (22/23), and other message
		// types are out of scope for position/static ingest.
		return Update{}, false
	}
}

// armorToBits expands AIS 6-bit ASCII armor into a bitstream.
func armorToBits(payload string) []byte {
	bits := make([]byte, 0, len(payload)*6)
	for _, r := range payload {
		v := int(r) - 48
		if v > 40 {
			v -= 8
		}
		if v < 0 || v > 63 {
			continue
		}
		for i := 5; i >= 0; i-- {
			bits = append(bits, byte((v>>uint(i))&1))
		}
	}
	return bits
}

func bitsToUint(bits []byte, start, length int) uint64 {
	if start+length > len(bits) {
		return 0
	}
	var v uint64
	for i := 0; i < length; i++ {
		v = (v << 1) | uint64(bits[start+i])
	}
	return v
}

func bitsToInt(bits []byte, start, length int) int64 {
	u := bitsToUint(bits, start, length)
	signBit := uint64(1) << uint(length-1)
	if u&signBit != 0 {
		return int64(u) - int64(signBit<<1)
	}
	return int64(u)
}

func decodePositionReport(bits []byte) (Update, bool) {
	mmsi := int(bitsToUint(bits, 8, 30))
	if mmsi == 0 {
		return Update{}, false
	}
	sogRaw := bitsToUint(bits, 50, 10)
	lonRaw := bitsToInt(bits, 61, 28)
	latRaw := bitsToInt(bits, 89, 27)
	cogRaw := bitsToUint(bits, 116, 12)
	headingRaw := bitsToUint(bits, 128, 9)

	const lonNotAvailable = 181 * 600000
	const latNotAvailable = 91 * 600000
	if lonRaw == lonNotAvailable || latRaw == latNotAvailable {
		// Longitude/latitude "not available" sentinel values.
		return Update{}, false
	}
	lon := float64(lonRaw) / 600000.0
	lat := float64(latRaw) / 600000.0

	u := Update{MMSI: mmsi, HasPosition: true, Position: model.Coordinates{Lat: lat, Lng: lon}}
	if sogRaw != 1023 {
		sog := float64(sogRaw) / 10.0
		u.SpeedKnots = &sog
	}
	if cogRaw != 3600 {
		cog := float64(cogRaw) / 10.0
		u.Course = &cog
	}
	if headingRaw != 511 {
		h := float64(headingRaw)
		u.Heading = &h
	}
	return u, true
}

func decodeStaticReport(bits []byte) (Update, bool) {
	mmsi := int(bitsToUint(bits, 8, 30))
	if mmsi == 0 {
		return Update{}, false
	}
	typeCode := int(bitsToUint(bits, 232, 8))
	name := sixBitString(bits, 112, 120)
	destination := sixBitString(bits, 302, 120)

	toBow := bitsToUint(bits, 240, 9)
	toStern := bitsToUint(bits, 249, 9)
	toPort := bitsToUint(bits, 258, 6)
	toStarboard := bitsToUint(bits, 264, 6)

	u := Update{MMSI: mmsi, TypeCode: &typeCode, TypeName: vesselTypeName(typeCode), TypeCategory: vesselTypeCategory(typeCode)}
	if name != "" {
		u.Name = &name
	}
	if destination != "" {
		u.Destination = &destination
	}
	if toBow+toStern > 0 {
		u.Dimensions = &model.Dimensions{Length: float64(toBow + toStern), Width: float64(toPort + toStarboard)}
	}
	return u, true
}

const sixBitAlphabet = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

func sixBitString(bits []byte, start, length int) string {
	var b strings.Builder
	for offset := 0; offset+6 <= length; offset += 6 {
		v := bitsToUint(bits, start+offset, 6)
		if int(v) >= len(sixBitAlphabet) {
			continue
		}
		b.WriteByte(sixBitAlphabet[v])
	}
	return strings.TrimRight(b.String(), "@ ")
}

func vesselTypeName(code int) string {
	name, ok := vesselTypeNames[code]
	if !ok {
		return fmt.Sprintf("Type %d", code)
	}
	return name
}

func vesselTypeCategory(code int) string {
	switch {
	case code >= 60 && code <= 69:
		return "Passenger"
	case code >= 70 && code <= 79:
		return "Cargo"
	case code >= 80 && code <= 89:
		return "Tanker"
	case code == 30 || code == 36 || code == 37:
		return "Pleasure Craft"
	case code >= 40 && code <= 49:
		return "High Speed Craft"
	default:
		return "Other"
	}
}

var vesselTypeNames = map[int]string{
	30: "Fishing",
	36: "Sailing",
	37: "Pleasure Craft",
	70: "Cargo",
	71: "Cargo - Hazard A",
	80: "Tanker",
	81: "Tanker - Hazard A",
	60: "Passenger",
}
