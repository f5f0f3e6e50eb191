package recognize

import "testing"

func TestReadingFromText_RunLengthFilter(t *testing.T) {
	// Runs of lengths 2, 4, 6 and 8: only the 6-digit run is in range.
	v, ok := ReadingFromText("P12 warn 3456 odo 123456 vin 12345678")
	if !ok {
		t.Fatal("expected a reading")
	}
	if v != 123456 {
		t.Errorf("reading = %d, want 123456", v)
	}
}

func TestReadingFromText_MaxWins(t *testing.T) {
	v, ok := ReadingFromText("temp 104 odo 45230 trip 1052")
	if !ok {
		t.Fatal("expected a reading")
	}
	if v != 45230 {
		t.Errorf("reading = %d, want 45230", v)
	}
}

func TestReadingFromText_SegmentedDisplay(t *testing.T) {
	// A dash between digit groups is a display separator, not a run break.
	v, ok := ReadingFromText("ODO 45-230 km")
	if !ok {
		t.Fatal("expected a reading")
	}
	if v != 45230 {
		t.Errorf("reading = %d, want 45230", v)
	}
}

func TestReadingFromText_SeparatorNeedsDigitsBothSides(t *testing.T) {
	// Leading or trailing separators don't glue anything together.
	v, ok := ReadingFromText("-230 450- 780")
	if !ok {
		t.Fatal("expected a reading")
	}
	if v != 780 {
		t.Errorf("reading = %d, want 780", v)
	}
}

func TestReadingFromText_NoReading(t *testing.T) {
	cases := []string{
		"",
		"no digits here",
		"12",                 // too short
		"123456789",          // too long
		"000",                // parses to zero
		"ab 12 cd 123456789", // nothing in range
	}
	for _, text := range cases {
		if v, ok := ReadingFromText(text); ok {
			t.Errorf("ReadingFromText(%q) = %d, want no reading", text, v)
		}
	}
}

func TestReadingFromText_ZeroRunIgnored(t *testing.T) {
	v, ok := ReadingFromText("000 trip 250")
	if !ok {
		t.Fatal("expected a reading")
	}
	if v != 250 {
		t.Errorf("reading = %d, want 250", v)
	}
}
