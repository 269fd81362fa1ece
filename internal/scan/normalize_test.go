package scan

import "testing"

func TestNormalizeAzertyDigitRow(t *testing.T) {
	cases := map[string]string{
		"&é\"'(-è_çà":   "1234567890",
		"3017620422003": "3017620422003",
		"éé&":           "221",
		"abc":           "",
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", raw, got, want)
		}
	}
	// On the digit row '-' is the 6 key; raw input must not treat it as a
	// separator.
	if got := Normalize("30176-003"); got != "301766003" {
		t.Fatalf("Normalize(%q) = %q, want %q", "30176-003", got, "301766003")
	}
}

func TestNormalizeBarcodeStripsFormatting(t *testing.T) {
	cases := map[string]string{
		"3017620422003":   "3017620422003",
		"30176 20422-003": "3017620422003",
		"30176_20422":     "3017620422",
		"":                "",
	}
	for code, want := range cases {
		if got := NormalizeBarcode(code); got != want {
			t.Fatalf("NormalizeBarcode(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestIsBareNumeric(t *testing.T) {
	for _, token := range []string{"3", "12", "0.5", "2,5", " 4 "} {
		if !IsBareNumeric(token) {
			t.Fatalf("expected %q to be bare numeric", token)
		}
	}
	for _, token := range []string{"", "12a", "1.2.3", "é3", "-2"} {
		if IsBareNumeric(token) {
			t.Fatalf("expected %q not to be bare numeric", token)
		}
	}
}
