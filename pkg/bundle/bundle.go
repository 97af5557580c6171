// Package bundle loads orthography tables and rule files from disk and keeps
// one ready converter per language.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hazyhaar/orthoconv/pkg/ortho"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Bundle is one loaded manifest with its parsed table and rule sets.
type Bundle struct {
	Manifest *Manifest
	Table    *ortho.Table
	Rules    map[ortho.Language]*ortho.RuleSet

	classes       *ortho.CharClasses
	orthographies *ortho.OrthographySet
	normalization ortho.Normalization
	logger        *slog.Logger
}

// LoadBundle reads dir/manifest.yaml, then the table and the rule files it names.
// When the manifest lists no rule files, ortho_<lang>.txt is looked up for every
// table language and languages without one are left out.
func LoadBundle(dir string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ortho.ErrResourceLoad, err)
	}

	b := &Bundle{
		Manifest: m,
		Rules:    make(map[ortho.Language]*ortho.RuleSet),
		classes:  ortho.DefaultCharClasses(),
		logger:   logger.With("bundle", m.ID),
	}
	fail := func(err error) (*Bundle, error) {
		if !errors.Is(err, ortho.ErrResourceLoad) {
			err = fmt.Errorf("%w: %w", ortho.ErrResourceLoad, err)
		}
		return nil, fmt.Errorf("bundle %s: %w", m.ID, err)
	}

	if b.orthographies, err = m.orthographySet(); err != nil {
		return fail(err)
	}
	if b.normalization, err = ortho.ParseNormalization(m.Format.Normalize); err != nil {
		return fail(err)
	}
	if m.ExtraLetters != "" {
		if b.classes, err = b.classes.WithExtraLetters([]rune(m.ExtraLetters)...); err != nil {
			return fail(err)
		}
	}

	delim := ','
	if d := m.Format.Delimiter; d != "" {
		if d == `\t` {
			d = "\t"
		}
		delim = []rune(d)[0]
	}
	err = b.withFile(filepath.Join(dir, m.TableFile), func(r io.Reader) error {
		t, err := ortho.ParseTable(r, ortho.TableOptions{
			Name:          m.TableFile,
			Delimiter:     delim,
			Orthographies: b.orthographies,
			Logger:        b.logger,
		})
		b.Table = t
		return err
	})
	if err != nil {
		return fail(err)
	}

	files := m.Rules
	if len(files) == 0 {
		for _, lang := range b.Table.Languages() {
			name := RuleFileName(string(lang))
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				files = append(files, RuleFile{Language: string(lang), File: name})
			} else {
				b.logger.Debug("no rule file for table language", "lang", lang, "file", name)
			}
		}
	}
	for _, rf := range files {
		lang := ortho.Language(rf.Language)
		if !b.Table.HasLanguage(lang) {
			return fail(fmt.Errorf("rule file %s: language %q is not in %s", rf.File, lang, m.TableFile))
		}
		if _, dup := b.Rules[lang]; dup {
			return fail(fmt.Errorf("language %q has more than one rule file", lang))
		}
		err := b.withFile(filepath.Join(dir, rf.File), func(r io.Reader) error {
			rs, err := ortho.ParseRules(r, ortho.RulesOptions{Name: rf.File, Logger: b.logger})
			b.Rules[lang] = rs
			return err
		})
		if err != nil {
			return fail(err)
		}
	}
	return b, nil
}

// withFile opens path, transcodes it to UTF-8 if the manifest declares another
// encoding, and hands it to fn.
func (b *Bundle) withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var r io.Reader = f
	if enc := b.Manifest.Format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		r = transform.NewReader(f, e.NewDecoder())
	}
	return fn(r)
}

// Languages returns the languages that have rules, sorted.
func (b *Bundle) Languages() []ortho.Language {
	out := make([]ortho.Language, 0, len(b.Rules))
	for l := range b.Rules {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Orthographies returns the orthography set of the bundle.
func (b *Bundle) Orthographies() *ortho.OrthographySet { return b.orthographies }

// Converter builds a converter for lang with the bundle's character classes,
// orthographies and normalization. opts are applied after those.
func (b *Bundle) Converter(lang string, opts ...ortho.Option) (*ortho.Converter, error) {
	base := []ortho.Option{
		ortho.WithCharClasses(b.classes),
		ortho.WithOrthographies(b.orthographies),
		ortho.WithNormalization(b.normalization),
		ortho.WithLogger(b.logger),
	}
	return ortho.New(lang, b.Table, b.Rules[ortho.Language(lang)], append(base, opts...)...)
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == "utf8bom" || e == ""
}
