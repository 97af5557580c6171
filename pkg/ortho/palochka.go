package ortho

import (
	"strings"
	"unicode/utf8"
)

func isPalochkaSubstitute(r rune) bool {
	for _, s := range palochkaSubstitutes {
		if r == s {
			return true
		}
	}
	return false
}

// span is one decoded rune and the bytes it came from.
type span struct {
	r     rune
	start int
	end   int
}

// FixPalochka repairs the common mis-encodings of the palochka:
//   - a run of '1' or '|' touching a letter on either side becomes small palochkas;
//   - a capital palochka directly after a letter becomes a small palochka.
//
// Substitute runs are rewritten whole and before the capital fix-up, so the
// result is a fixed point: FixPalochka(FixPalochka(s)) == FixPalochka(s).
// Bytes outside the rewritten runes, invalid UTF-8 included, are kept as is.
func (c *CharClasses) FixPalochka(text string) string {
	if !strings.ContainsAny(text, "1|"+string(PalochkaCapital)) {
		return text
	}
	spans := make([]span, 0, len(text))
	for i := 0; i < len(text); {
		r, n := utf8.DecodeRuneInString(text[i:])
		spans = append(spans, span{r: r, start: i, end: i + n})
		i += n
	}
	fixed := make([]bool, len(spans))
	changed := false
	letterAt := func(k int) bool {
		if fixed[k] {
			return c.IsLetter(PalochkaSmall)
		}
		return c.IsLetter(spans[k].r)
	}

	for i := 0; i < len(spans); {
		if !isPalochkaSubstitute(spans[i].r) {
			i++
			continue
		}
		j := i
		for j < len(spans) && isPalochkaSubstitute(spans[j].r) {
			j++
		}
		if (i > 0 && letterAt(i-1)) || (j < len(spans) && letterAt(j)) {
			for k := i; k < j; k++ {
				fixed[k] = true
			}
			changed = true
		}
		i = j
	}

	for i := 1; i < len(spans); i++ {
		if !fixed[i] && spans[i].r == PalochkaCapital && letterAt(i-1) {
			fixed[i] = true
			changed = true
		}
	}
	if !changed {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 2)
	for k, sp := range spans {
		if fixed[k] {
			b.WriteRune(PalochkaSmall)
		} else {
			b.WriteString(text[sp.start:sp.end])
		}
	}
	return b.String()
}
