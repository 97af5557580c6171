package ortho

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Substitution is one meta-letter and its spelling in some column.
type Substitution struct {
	Meta     string
	Spelling string
}

// Table maps meta-letters to per-column spellings. Rows keep the order of the
// source, and that order is the order substitutions are applied in.
type Table struct {
	columns   []Column
	languages []Language
	metas     []string
	byColumn  map[Column][]Substitution
	missing   map[Column]*LookupError
}

// TableOptions configures ParseTable. Zero values select the defaults.
type TableOptions struct {
	Name          string // resource name used in errors, default "orthography table"
	Delimiter     rune   // default ','
	Orthographies *OrthographySet
	Logger        *slog.Logger
}

// ParseTable reads an orthography table: a CSV whose header row names the
// "language_target" columns and whose first column holds the meta-letters.
// A leading byte-order mark is stripped.
func ParseTable(r io.Reader, opts TableOptions) (*Table, error) {
	if opts.Name == "" {
		opts.Name = "orthography table"
	}
	if opts.Orthographies == nil {
		opts.Orthographies = DefaultOrthographies()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fail := func(line int, err error) (*Table, error) {
		return nil, &LoadError{Resource: opts.Name, Line: line, Err: err}
	}

	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return fail(0, errors.New("empty table"))
	}
	if err != nil {
		return fail(0, fmt.Errorf("read header: %w", err))
	}
	if len(header) < 2 {
		return fail(1, errors.New("header has no language_target columns"))
	}

	t := &Table{
		byColumn: make(map[Column][]Substitution),
		missing:  make(map[Column]*LookupError),
	}

	// Column index in the record -> typed column, or skipped.
	cols := make([]*Column, len(header))
	langs := make(map[Language]struct{})
	seen := make(map[string]struct{})
	for i, h := range header[1:] {
		if h == "" {
			opts.Logger.Warn("skipping column with empty header",
				"table", opts.Name, "column", i+2)
			continue
		}
		if _, dup := seen[h]; dup {
			return fail(1, fmt.Errorf("duplicate column %q", h))
		}
		seen[h] = struct{}{}
		col, err := ParseColumn(h)
		if err != nil {
			return fail(1, err)
		}
		langs[col.Language] = struct{}{}
		if !opts.Orthographies.Known(col.Orthography) {
			opts.Logger.Warn("skipping column with unknown orthography",
				"table", opts.Name, "column", h)
			continue
		}
		cols[i+1] = &col
		t.columns = append(t.columns, col)
	}
	for l := range langs {
		t.languages = append(t.languages, l)
	}
	sort.Slice(t.languages, func(i, j int) bool { return t.languages[i] < t.languages[j] })

	rowSeen := make(map[string]int)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(0, fmt.Errorf("read row: %w", err))
		}
		line, _ := cr.FieldPos(0)
		if len(record) > len(header) {
			return fail(line, fmt.Errorf("row has %d cells, header has %d", len(record), len(header)))
		}
		meta := record[0]
		if meta == "" {
			return fail(line, errors.New("empty meta-letter"))
		}
		if prev, dup := rowSeen[meta]; dup {
			return fail(line, fmt.Errorf("meta-letter %q already defined on line %d", meta, prev))
		}
		rowSeen[meta] = line
		t.metas = append(t.metas, meta)

		for i, col := range cols {
			if col == nil {
				continue
			}
			if i >= len(record) {
				if _, already := t.missing[*col]; !already {
					t.missing[*col] = &LookupError{Meta: meta, Column: *col}
				}
				continue
			}
			t.byColumn[*col] = append(t.byColumn[*col], Substitution{Meta: meta, Spelling: record[i]})
		}
	}
	return t, nil
}

// Languages returns the distinct language prefixes of the header, sorted.
func (t *Table) Languages() []Language {
	return append([]Language(nil), t.languages...)
}

// HasLanguage reports whether lang is one of the header prefixes.
func (t *Table) HasLanguage(lang Language) bool {
	i := sort.Search(len(t.languages), func(i int) bool { return t.languages[i] >= lang })
	return i < len(t.languages) && t.languages[i] == lang
}

// Columns returns the recognized columns in header order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Metas returns the meta-letters in row order.
func (t *Table) Metas() []string {
	return append([]string(nil), t.metas...)
}

// Len returns the number of meta-letter rows.
func (t *Table) Len() int { return len(t.metas) }

// Spellings returns the row-ordered substitutions for col. It fails with a
// *LookupError if any meta-letter lacks a spelling for col.
func (t *Table) Spellings(col Column) ([]Substitution, error) {
	if err, ok := t.missing[col]; ok {
		return nil, err
	}
	subs, ok := t.byColumn[col]
	if !ok {
		if len(t.metas) == 0 {
			return nil, nil
		}
		return nil, &LookupError{Meta: t.metas[0], Column: col}
	}
	return subs, nil
}
