package dentalchart

import "strconv"

// ToothCount is the number of permanent teeth charted.
const ToothCount = 32

// fdiCodes maps internal (Universal) ids to FDI codes; index 0 is unused.
var fdiCodes [ToothCount + 1]string

// internalByFDI is the inverse of fdiCodes.
var internalByFDI = make(map[string]int, ToothCount)

func init() {
	for id := 1; id <= ToothCount; id++ {
		var quadrant, position int
		switch {
		case id <= 8:
			quadrant, position = 1, 9-id
		case id <= 16:
			quadrant, position = 2, id-8
		case id <= 24:
			quadrant, position = 3, 25-id
		default:
			quadrant, position = 4, id-24
		}
		code := strconv.Itoa(quadrant*10 + position)
		fdiCodes[id] = code
		internalByFDI[code] = id
	}
}

// ToDisplay converts an internal id (1..32) into its FDI code. Ids outside
// the domain come back stringified.
func ToDisplay(internal int) string {
	if code, ok := LookupDisplay(internal); ok {
		return code
	}
	return strconv.Itoa(internal)
}

// ToInternal converts an FDI code into an internal id. Unknown codes fall
// back to their numeric value, or 0 when not numeric.
func ToInternal(display string) int {
	if id, ok := LookupInternal(display); ok {
		return id
	}
	n, _ := strconv.Atoi(display)
	return n
}

// LookupDisplay is the strict form of ToDisplay.
func LookupDisplay(internal int) (string, bool) {
	if internal < 1 || internal > ToothCount {
		return "", false
	}
	return fdiCodes[internal], true
}

// LookupInternal is the strict form of ToInternal.
func LookupInternal(display string) (int, bool) {
	id, ok := internalByFDI[display]
	return id, ok
}
