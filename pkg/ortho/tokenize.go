package ortho

import "strings"

// Token is a maximal run of runes of a single class.
type Token struct {
	Class Class
	Text  string
}

// Tokenize splits text into maximal single-class runs in one pass.
// Concatenating the Text of the returned tokens yields text unchanged.
func (c *CharClasses) Tokenize(text string) []Token {
	var tokens []Token
	start := 0
	cur := ClassOther
	for i, r := range text {
		cl := c.Class(r)
		if i == 0 {
			cur = cl
			continue
		}
		if cl != cur {
			tokens = append(tokens, Token{Class: cur, Text: text[start:i]})
			start, cur = i, cl
		}
	}
	if start < len(text) {
		tokens = append(tokens, Token{Class: cur, Text: text[start:]})
	}
	return tokens
}

// Join concatenates token texts.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}
