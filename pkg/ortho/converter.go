// Package ortho converts text between orthographies of a language through a
// meta-orthography.
//
// A conversion runs four steps:
//
//  1. input normalization: optional Unicode normalization, then the palochka fix-up;
//  2. tokenization into letter, punctuation, digit and other runs;
//  3. source to meta: the language RuleSet rewrites each letter run;
//  4. meta to target: the Table column "language_target" rewrites the whole text.
//
// Tables and rule sets are parsed once and never mutated, so a Converter can be
// shared between goroutines.
package ortho

import (
	"fmt"
	"log/slog"
)

// Result is the outcome of a conversion.
type Result struct {
	Text     string      `json:"text"`
	Language Language    `json:"language"`
	Source   Orthography `json:"source"`
	Target   Orthography `json:"target"`
}

// String returns the converted text.
func (r Result) String() string { return r.Text }

// Full describes the text together with the settings it was converted with.
func (r Result) Full() string {
	return fmt.Sprintf("Result(\n\ttext=%q,\n\tlanguage=%s, source=%s, target=%s\n)",
		r.Text, r.Language, r.Source, r.Target)
}

// Converter converts text of one language.
type Converter struct {
	lang          Language
	table         *Table
	rules         *RuleSet
	classes       *CharClasses
	orthographies *OrthographySet
	normalization Normalization
	source        Orthography
	target        Orthography
	logger        *slog.Logger
}

type settings struct {
	source, target string
	classes        *CharClasses
	orthographies  *OrthographySet
	normalization  Normalization
	logger         *slog.Logger
}

// Option configures New.
type Option func(*settings)

// WithDefaultSource sets the source orthography used when Convert gets none.
func WithDefaultSource(id string) Option { return func(s *settings) { s.source = id } }

// WithDefaultTarget sets the target orthography used when Convert gets none.
func WithDefaultTarget(id string) Option { return func(s *settings) { s.target = id } }

// WithCharClasses replaces DefaultCharClasses.
func WithCharClasses(c *CharClasses) Option { return func(s *settings) { s.classes = c } }

// WithOrthographies replaces DefaultOrthographies.
func WithOrthographies(o *OrthographySet) Option {
	return func(s *settings) { s.orthographies = o }
}

// WithNormalization sets the Unicode normalization of input text.
func WithNormalization(n Normalization) Option { return func(s *settings) { s.normalization = n } }

// WithLogger sets the logger; default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *settings) { s.logger = l } }

// New validates lang against the table languages and the default orthographies
// against the orthography set, and returns a Converter owning table and rules.
func New(lang string, table *Table, rules *RuleSet, opts ...Option) (*Converter, error) {
	st := settings{
		classes:       DefaultCharClasses(),
		orthographies: DefaultOrthographies(),
		normalization: NormalizeNone,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(&st)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: converter needs an orthography table", ErrResourceLoad)
	}
	if !table.HasLanguage(Language(lang)) {
		valid := make([]string, 0, len(table.languages))
		for _, l := range table.languages {
			valid = append(valid, string(l))
		}
		return nil, &ArgumentError{Param: "lang", Value: lang, Recommended: valid}
	}
	if rules == nil {
		return nil, fmt.Errorf("%w: no rules for language %q", ErrResourceLoad, lang)
	}

	c := &Converter{
		lang:          Language(lang),
		table:         table,
		rules:         rules,
		classes:       st.classes,
		orthographies: st.orthographies,
		normalization: st.normalization,
		logger:        st.logger,
	}
	if st.source != "" {
		o, err := c.orthographies.Resolve("source", st.source)
		if err != nil {
			return nil, err
		}
		c.source = o
	}
	if st.target != "" {
		o, err := c.orthographies.Resolve("target", st.target)
		if err != nil {
			return nil, err
		}
		c.target = o
	}
	return c, nil
}

// Language returns the language the converter was built for.
func (c *Converter) Language() Language { return c.lang }

// Defaults returns the default source and target; empty when unset.
func (c *Converter) Defaults() (source, target Orthography) { return c.source, c.target }

func (c *Converter) String() string {
	return fmt.Sprintf("Converter(lang=%s, source=%s, target=%s)", c.lang, c.source, c.target)
}

type call struct {
	source, target string
}

// ConvertOption overrides a converter default for one call.
type ConvertOption func(*call)

// Source overrides the default source orthography.
func Source(id string) ConvertOption { return func(c *call) { c.source = id } }

// Target overrides the default target orthography.
func Target(id string) ConvertOption { return func(c *call) { c.target = id } }

// Convert converts text from the source to the target orthography.
// Explicit Source/Target options win over the converter defaults; with neither,
// Convert fails with ErrMissingParameter.
func (c *Converter) Convert(text string, opts ...ConvertOption) (Result, error) {
	src, tgt, err := c.resolve(opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{Language: c.lang, Source: src, Target: tgt}

	subs, err := c.table.Spellings(Column{Language: c.lang, Orthography: tgt})
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return res, nil
	}

	text = c.classes.FixPalochka(c.normalization.apply(text))
	meta, err := ToMeta(c.classes.Tokenize(text), c.rules)
	if err != nil {
		return Result{}, err
	}
	res.Text = ToTarget(meta, subs)
	c.logger.Debug("converted", "lang", c.lang, "source", src, "target", tgt, "bytes", len(text))
	return res, nil
}

// ConvertNullable is Convert for optional text: a nil text is passed through
// as a nil result without any validation.
func (c *Converter) ConvertNullable(text *string, opts ...ConvertOption) (*Result, error) {
	if text == nil {
		return nil, nil
	}
	res, err := c.Convert(*text, opts...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Converter) resolve(opts []ConvertOption) (Orthography, Orthography, error) {
	var cl call
	for _, o := range opts {
		o(&cl)
	}

	src := c.source
	if cl.source != "" {
		o, err := c.orthographies.Resolve("source", cl.source)
		if err != nil {
			return "", "", err
		}
		src = o
	}
	if src == "" {
		return "", "", missing("source")
	}

	tgt := c.target
	if cl.target != "" {
		o, err := c.orthographies.Resolve("target", cl.target)
		if err != nil {
			return "", "", err
		}
		tgt = o
	}
	if tgt == "" {
		return "", "", missing("target")
	}
	return src, tgt, nil
}
