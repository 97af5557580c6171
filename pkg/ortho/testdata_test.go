package ortho

import (
	"strings"
	"testing"
)

const testTable = "\ufeffmeta,kbd_cyr,kbd_ipa,kbd_cauc,ady_cyr,ady_ipa,ady_cauc,ady_lat\n" +
	"ʕ,гъ,ɦ,ğ,гъ,ʁ,ğ,gh\n" +
	"ʔ,ӏ,ʔ,',ӏ,ʔ,',q\n" +
	"ŝ,щ,ɕ,ş,щ,ʃʼ,ş,sh\n"

const testRules = "# kbd rules\n" +
	"гъ\tʕ\n" +
	"ӏ\tʔ\r\n" +
	"\n" +
	"щ\tŝ\n"

func mustTable(t *testing.T, src string) *Table {
	t.Helper()
	tbl, err := ParseTable(strings.NewReader(src), TableOptions{})
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	return tbl
}

func mustRules(t *testing.T, src string) *RuleSet {
	t.Helper()
	rs, err := ParseRules(strings.NewReader(src), RulesOptions{})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	return rs
}

func mustConverter(t *testing.T, lang string, opts ...Option) *Converter {
	t.Helper()
	c, err := New(lang, mustTable(t, testTable), mustRules(t, testRules), opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", lang, err)
	}
	return c
}
