package scan

import "strings"

// French AZERTY layouts emit symbol characters for the digit row when the
// scanner types without shift. The remap restores the digits before
// extraction.
var azertyDigits = map[rune]rune{
	'&':  '1',
	'é':  '2',
	'"':  '3',
	'\'': '4',
	'(':  '5',
	'-':  '6',
	'è':  '7',
	'_':  '8',
	'ç':  '9',
	'à':  '0',
}

// Normalize remaps AZERTY symbol characters to digits and strips everything
// that is not a digit. Only raw scanner input goes through the remap: on the
// digit row, '-' is the 6 key and '_' the 8 key, so they must read as digits
// here even though the same characters are formatting in stored barcodes.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if mapped, ok := azertyDigits[r]; ok {
			r = mapped
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeBarcode strips formatting (spaces, dashes, anything non-digit)
// from a stored catalog barcode. No AZERTY remap: separators in the catalog
// are separators, not scancodes.
func NormalizeBarcode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsBareNumeric reports whether the token is a plain number with no letters,
// the shape a cashier types as a quantity prefix.
func IsBareNumeric(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	dot := false
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
		case (r == '.' || r == ',') && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
