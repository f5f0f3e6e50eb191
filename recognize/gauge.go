package recognize

import "strconv"

// Digit runs shorter than 3 are typically warning-light codes or clock digits;
// runs longer than 7 are usually VINs or phone numbers caught in the frame.
const (
	minRunLen = 3
	maxRunLen = 7
)

// ReadingFromText applies the gauge heuristic to recognized text: collect all
// digit runs, keep runs of 3 to 7 digits, parse them, discard non-positive
// values, and return the maximum. The odometer or charge reading is the
// largest plausible number in a dashboard photo.
//
// Segmented displays often come back from OCR with a dash or dot splitting
// the digits ("45-230"). A single such separator between digits joins the
// groups into one run.
func ReadingFromText(text string) (int64, bool) {
	var best int64
	found := false

	digits := make([]byte, 0, 16)
	flush := func() {
		n := len(digits)
		if n < minRunLen || n > maxRunLen {
			digits = digits[:0]
			return
		}
		v, err := strconv.ParseInt(string(digits), 10, 64)
		digits = digits[:0]
		if err != nil || v <= 0 {
			return
		}
		if !found || v > best {
			best = v
			found = true
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case (c == '-' || c == '.' || c == ',') && len(digits) > 0 &&
			i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9':
			// group separator inside a segmented reading, keep collecting
		default:
			flush()
		}
	}
	flush()

	return best, found
}
