package ortho

import (
	"fmt"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// Class is one of the four disjoint token classes.
type Class uint8

const (
	ClassLetter Class = iota
	ClassPunct
	ClassDigit
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassLetter:
		return "letter"
	case ClassPunct:
		return "punct"
	case ClassDigit:
		return "digit"
	default:
		return "other"
	}
}

// Palochka forms and the ASCII characters commonly typed in their place.
const (
	PalochkaCapital = 'Ӏ' // U+04C0
	PalochkaSmall   = 'ӏ' // U+04CF
)

var palochkaSubstitutes = [...]rune{'1', '|'}

// Latin, Latin-1 letters, Latin Extended, IPA, Cyrillic, Cyrillic Supplement
// and U+2DE9 (combining Cyrillic letter EN).
var defaultLetters = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0041, Hi: 0x005a, Stride: 1},
		{Lo: 0x0061, Hi: 0x007a, Stride: 1},
		{Lo: 0x00c0, Hi: 0x00d6, Stride: 1},
		{Lo: 0x00d8, Hi: 0x00f6, Stride: 1},
		{Lo: 0x00f8, Hi: 0x052f, Stride: 1},
		{Lo: 0x2de9, Hi: 0x2de9, Stride: 1},
	},
	LatinOffset: 4,
}

// ASCII punctuation, the Latin-1 block from NBSP to '¿' and General Punctuation
// up to U+205E.
var defaultPunct = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0021, Hi: 0x002f, Stride: 1},
		{Lo: 0x003a, Hi: 0x0040, Stride: 1},
		{Lo: 0x005b, Hi: 0x0060, Stride: 1},
		{Lo: 0x007b, Hi: 0x007e, Stride: 1},
		{Lo: 0x00a0, Hi: 0x00bf, Stride: 1},
		{Lo: 0x2010, Hi: 0x205e, Stride: 1},
	},
	LatinOffset: 5,
}

// CharClasses is the immutable character-class configuration shared by the
// normalization pass and the tokenizer. Letters, punctuation and ASCII digits
// must be pairwise disjoint; everything else is ClassOther.
type CharClasses struct {
	letters *unicode.RangeTable
	punct   *unicode.RangeTable
}

var defaultClasses = &CharClasses{letters: defaultLetters, punct: defaultPunct}

// DefaultCharClasses returns the language-independent Latin+Cyrillic classes.
func DefaultCharClasses() *CharClasses { return defaultClasses }

// NewCharClasses builds classes from explicit tables and checks they form a partition.
func NewCharClasses(letters, punct *unicode.RangeTable) (*CharClasses, error) {
	c := &CharClasses{letters: letters, punct: punct}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithExtraLetters returns a copy of c where the given runes are letters.
func (c *CharClasses) WithExtraLetters(extra ...rune) (*CharClasses, error) {
	if len(extra) == 0 {
		return c, nil
	}
	return NewCharClasses(rangetable.Merge(c.letters, rangetable.New(extra...)), c.punct)
}

// Class returns the class of r, checking letters, punctuation, then digits.
func (c *CharClasses) Class(r rune) Class {
	switch {
	case unicode.Is(c.letters, r):
		return ClassLetter
	case unicode.Is(c.punct, r):
		return ClassPunct
	case r >= '0' && r <= '9':
		return ClassDigit
	default:
		return ClassOther
	}
}

// IsLetter reports whether r belongs to the letter class.
func (c *CharClasses) IsLetter(r rune) bool {
	return unicode.Is(c.letters, r)
}

// Validate reports the first code point claimed by more than one class.
func (c *CharClasses) Validate() error {
	var err error
	rangetable.Visit(c.letters, func(r rune) {
		if err != nil {
			return
		}
		if unicode.Is(c.punct, r) {
			err = fmt.Errorf("%w: %U is both letter and punctuation", ErrInvalidArgument, r)
		} else if r >= '0' && r <= '9' {
			err = fmt.Errorf("%w: digit %q is in the letter class", ErrInvalidArgument, r)
		}
	})
	if err != nil {
		return err
	}
	for r := '0'; r <= '9'; r++ {
		if unicode.Is(c.punct, r) {
			return fmt.Errorf("%w: digit %q is in the punctuation class", ErrInvalidArgument, r)
		}
	}
	return nil
}
