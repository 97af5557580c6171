package ortho

import "strings"

// ToMeta rewrites the letter tokens with rules and reassembles all tokens.
// Rules never see punctuation, digits or other runs, and never match across
// token boundaries.
func ToMeta(tokens []Token, rules *RuleSet) (string, error) {
	var b strings.Builder
	for _, t := range tokens {
		if t.Class != ClassLetter {
			b.WriteString(t.Text)
			continue
		}
		meta, err := rules.Apply(t.Text)
		if err != nil {
			return "", err
		}
		b.WriteString(meta)
	}
	return b.String(), nil
}

// ToTarget replaces every meta-letter of subs in text, in the order of subs.
// It works on the whole text: meta-letters never collide with non-letter runs.
func ToTarget(text string, subs []Substitution) string {
	for _, s := range subs {
		if s.Meta == s.Spelling {
			continue
		}
		text = strings.ReplaceAll(text, s.Meta, s.Spelling)
	}
	return text
}
