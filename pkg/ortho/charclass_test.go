package ortho

import (
	"errors"
	"testing"
	"unicode"
)

func TestCharClasses_Class(t *testing.T) {
	c := DefaultCharClasses()
	tests := []struct {
		r    rune
		want Class
	}{
		{'a', ClassLetter},
		{'Z', ClassLetter},
		{'é', ClassLetter},
		{'×', ClassOther},
		{'÷', ClassOther},
		{'ж', ClassLetter},
		{'Ӏ', ClassLetter},
		{'ӏ', ClassLetter},
		{'ʕ', ClassLetter},
		{'ԯ', ClassLetter},
		{'ⷩ', ClassLetter},
		{'!', ClassPunct},
		{'@', ClassPunct},
		{'`', ClassPunct},
		{'~', ClassPunct},
		{'\u00a0', ClassPunct},
		{'«', ClassPunct},
		{'—', ClassPunct},
		{'⁞', ClassPunct},
		{'0', ClassDigit},
		{'9', ClassDigit},
		{' ', ClassOther},
		{'\n', ClassOther},
		{'٣', ClassOther},
		{'ا', ClassOther},
	}
	for _, tt := range tests {
		if got := c.Class(tt.r); got != tt.want {
			t.Errorf("Class(%U) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestCharClasses_ValidateDefault(t *testing.T) {
	if err := DefaultCharClasses().Validate(); err != nil {
		t.Errorf("default classes overlap: %v", err)
	}
}

func TestCharClasses_Overlap(t *testing.T) {
	letters := &unicode.RangeTable{R16: []unicode.Range16{{Lo: 'a', Hi: 'z', Stride: 1}}}
	punct := &unicode.RangeTable{R16: []unicode.Range16{{Lo: 'x', Hi: 'x', Stride: 1}}}
	if _, err := NewCharClasses(letters, punct); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewCharClasses overlapping error = %v, want ErrInvalidArgument", err)
	}

	digits := &unicode.RangeTable{R16: []unicode.Range16{{Lo: '0', Hi: '9', Stride: 1}}}
	if _, err := NewCharClasses(letters, digits); err == nil {
		t.Error("expected error for digits in punctuation")
	}
}

func TestCharClasses_WithExtraLetters(t *testing.T) {
	c, err := DefaultCharClasses().WithExtraLetters('ʼ', 'ᵸ')
	if err != nil {
		t.Fatalf("WithExtraLetters: %v", err)
	}
	for _, r := range []rune{'ʼ', 'ᵸ', 'a', 'ж'} {
		if !c.IsLetter(r) {
			t.Errorf("IsLetter(%U) = false", r)
		}
	}
	if DefaultCharClasses().IsLetter('ᵸ') {
		t.Error("WithExtraLetters modified the default classes")
	}
	if _, err := DefaultCharClasses().WithExtraLetters('!'); err == nil {
		t.Error("expected error when a punctuation rune becomes a letter")
	}
}
