package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hazyhaar/orthoconv/pkg/ortho"
	"golang.org/x/text/encoding/charmap"
)

const testTable = "\ufeffmeta,kbd_cyr,kbd_ipa,kbd_cauc,ady_cyr,ady_ipa,ady_cauc\n" +
	"ʕ,гъ,ɦ,ğ,гъ,ʁ,ğ\n" +
	"ʔ,ӏ,ʔ,',ӏ,ʔ,'\n"

// writeTestBundle writes a manifest, a table and rule files into dir/id and
// returns the bundle directory.
func writeTestBundle(t *testing.T, dir, id, manifest, table string, rules map[string]string) string {
	t.Helper()
	bdir := filepath.Join(dir, id)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"manifest.yaml": manifest, DefaultTableFile: table}
	for name, content := range rules {
		files[name] = content
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(bdir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return bdir
}

func basicManifest(id string) string {
	return "id: " + id + `
version: "2024.1"
source: unit test
license: CC-BY-4.0
`
}

func TestLoadBundle(t *testing.T) {
	dir := writeTestBundle(t, t.TempDir(), "caucasian", basicManifest("caucasian"), testTable,
		map[string]string{"ortho_kbd.txt": "\ufeff# kbd\nгъ\tʕ\nӏ\tʔ\n"})

	b, err := LoadBundle(dir, nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if b.Manifest.ID != "caucasian" || b.Manifest.TableFile != DefaultTableFile {
		t.Errorf("manifest = %+v", b.Manifest)
	}
	if got, want := b.Languages(), []ortho.Language{"kbd"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v (ady has no rule file)", got, want)
	}

	c, err := b.Converter("kbd", ortho.WithDefaultSource("cyr"))
	if err != nil {
		t.Fatalf("Converter: %v", err)
	}
	res, err := c.Convert("гъ1 letter", ortho.Target("ipa"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Text != "ɦʔ letter" {
		t.Errorf("Convert = %q, want %q", res.Text, "ɦʔ letter")
	}
}

func TestBundle_ConverterWithoutRules(t *testing.T) {
	dir := writeTestBundle(t, t.TempDir(), "c", basicManifest("c"), testTable,
		map[string]string{"ortho_kbd.txt": "гъ\tʕ\n"})
	b, err := LoadBundle(dir, nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if _, err := b.Converter("ady"); !errors.Is(err, ortho.ErrResourceLoad) {
		t.Errorf("Converter(ady) error = %v, want ErrResourceLoad", err)
	}
	if _, err := b.Converter("che"); !errors.Is(err, ortho.ErrInvalidArgument) {
		t.Errorf("Converter(che) error = %v, want ErrInvalidArgument", err)
	}
}

func TestLoadBundle_ExplicitRules(t *testing.T) {
	manifest := basicManifest("c") + `rules:
  - language: ady
    file: adyghe.tsv
`
	dir := writeTestBundle(t, t.TempDir(), "c", manifest, testTable,
		map[string]string{"adyghe.tsv": "гъ\tʕ\n", "ortho_kbd.txt": "гъ\tʕ\n"})
	b, err := LoadBundle(dir, nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if got, want := b.Languages(), []ortho.Language{"ady"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v", got, want)
	}
}

func TestLoadBundle_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		table    string
		rules    map[string]string
	}{
		{"missing id", "version: x\n", testTable, nil},
		{"missing table", basicManifest("c") + "table_file: none.csv\n", testTable, nil},
		{"bad table", basicManifest("c"), "meta,kbdipa\n", nil},
		{"bad rules", basicManifest("c"), testTable, map[string]string{"ortho_kbd.txt": "no tab here\n"}},
		{"rules for unknown language", basicManifest("c") + "rules:\n  - language: che\n", testTable,
			map[string]string{"ortho_che.txt": "a\tb\n"}},
		{"missing rule file", basicManifest("c") + "rules:\n  - language: kbd\n", testTable, nil},
		{"bad normalize", basicManifest("c") + "format:\n  normalize: nfkd\n", testTable, nil},
		{"bad encoding", basicManifest("c") + "format:\n  encoding: klingon-8\n", testTable, nil},
	}
	for _, tt := range tests {
		dir := writeTestBundle(t, t.TempDir(), "c", tt.manifest, tt.table, tt.rules)
		_, err := LoadBundle(dir, nil)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, ortho.ErrResourceLoad) {
			t.Errorf("%s: error %v does not wrap ErrResourceLoad", tt.name, err)
		}
	}
}

func TestLoadBundle_Windows1251(t *testing.T) {
	enc := charmap.Windows1251.NewEncoder()
	table, err := enc.String("meta;kbd_cyr;kbd_cauc\nQ;гъ;gh\n")
	if err != nil {
		t.Fatal(err)
	}
	rules, err := enc.String("гъ\tQ\n")
	if err != nil {
		t.Fatal(err)
	}
	manifest := basicManifest("cp") + `format:
  delimiter: ";"
  encoding: windows-1251
`
	dir := writeTestBundle(t, t.TempDir(), "cp", manifest, table, map[string]string{"ortho_kbd.txt": rules})
	b, err := LoadBundle(dir, nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	c, err := b.Converter("kbd", ortho.WithDefaultSource("cyr"), ortho.WithDefaultTarget("cauc"))
	if err != nil {
		t.Fatalf("Converter: %v", err)
	}
	if res, err := c.Convert("гъэ"); err != nil || res.Text != "ghэ" {
		t.Errorf("Convert = %q, %v, want ghэ", res.Text, err)
	}
}

func TestLoadBundle_ManifestOptions(t *testing.T) {
	manifest := basicManifest("x") + `extra_letters: "ᵸ"
format:
  normalize: nfc
orthographies:
  - id: cyr
    aliases: [cyrillic]
  - id: lat
    aliases: [latin]
`
	table := "meta,kbd_cyr,kbd_lat\nj,й,j\nN,ᵸ,nh\n"
	dir := writeTestBundle(t, t.TempDir(), "x", manifest, table,
		map[string]string{"ortho_kbd.txt": "й\tj\nᵸ\tN\n"})
	b, err := LoadBundle(dir, nil)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	c, err := b.Converter("kbd", ortho.WithDefaultSource("cyrillic"))
	if err != nil {
		t.Fatalf("Converter: %v", err)
	}
	res, err := c.Convert("йᵸ", ortho.Target("latin"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Text != "jnh" || res.Target != "lat" {
		t.Errorf("Convert = %+v, want jnh to lat", res)
	}
	if _, err := c.Convert("x", ortho.Target("ipa")); !errors.Is(err, ortho.ErrInvalidArgument) {
		t.Errorf("ipa is not declared by the manifest, error = %v", err)
	}
}

func TestWriteManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	m := &Manifest{ID: "c", Version: "1", TableFile: "t.csv",
		Rules: []RuleFile{{Language: "kbd", File: "k.txt"}}}
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded.TableFile != "t.csv" || len(loaded.Rules) != 1 || loaded.Rules[0].File != "k.txt" {
		t.Errorf("loaded = %+v", loaded)
	}
}
