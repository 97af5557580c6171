package ortho

import "golang.org/x/text/unicode/norm"

// Normalization is the Unicode normalization applied to input text before the
// palochka pass. Rule patterns only match input in the form they were written in,
// so bundles whose resources are NFC set NFC here.
type Normalization string

const (
	NormalizeNone Normalization = "none"
	NormalizeNFC  Normalization = "nfc"
	NormalizeNFD  Normalization = "nfd"
)

// ParseNormalization accepts "", "none", "nfc" and "nfd". Empty means none.
func ParseNormalization(mode string) (Normalization, error) {
	switch Normalization(mode) {
	case "", NormalizeNone:
		return NormalizeNone, nil
	case NormalizeNFC, NormalizeNFD:
		return Normalization(mode), nil
	default:
		return "", &ArgumentError{Param: "normalize", Value: mode,
			Recommended: []string{string(NormalizeNone), string(NormalizeNFC), string(NormalizeNFD)}}
	}
}

func (n Normalization) apply(s string) string {
	switch n {
	case NormalizeNFC:
		return norm.NFC.String(s)
	case NormalizeNFD:
		return norm.NFD.String(s)
	default:
		return s
	}
}

func (n Normalization) String() string {
	if n == "" {
		return string(NormalizeNone)
	}
	return string(n)
}
