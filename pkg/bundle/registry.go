package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hazyhaar/orthoconv/pkg/ortho"
)

// ErrUnknownLanguage is returned for a language no loaded bundle has rules for.
var ErrUnknownLanguage = errors.New("unknown language")

// Registry holds all loaded bundles and one converter per language.
type Registry struct {
	mu         sync.RWMutex
	bundles    map[string]*Bundle
	converters map[ortho.Language]*ortho.Converter
	owner      map[ortho.Language]string
	dataDir    string
	logger     *slog.Logger
	defaults   []ortho.Option
}

// NewRegistry creates an empty registry for dataDir. defaults (typically the
// default source and target) are applied to every converter.
func NewRegistry(dataDir string, logger *slog.Logger, defaults ...ortho.Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		bundles:    make(map[string]*Bundle),
		converters: make(map[ortho.Language]*ortho.Converter),
		owner:      make(map[ortho.Language]string),
		dataDir:    dataDir,
		logger:     logger,
		defaults:   defaults,
	}
}

// Load scans the data directory and loads every subdirectory holding a
// manifest.yaml; hidden directories are skipped. Either everything loads or
// the registry is left unchanged.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return fmt.Errorf("read data dir %s: %w", r.dataDir, err)
	}

	bundles := make(map[string]*Bundle)
	converters := make(map[ortho.Language]*ortho.Converter)
	owner := make(map[ortho.Language]string)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(r.dataDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err != nil {
			continue
		}
		b, err := LoadBundle(dir, r.logger)
		if err != nil {
			return fmt.Errorf("load bundle %s: %w", entry.Name(), err)
		}
		if _, dup := bundles[b.Manifest.ID]; dup {
			return fmt.Errorf("load bundle %s: duplicate bundle id %q", entry.Name(), b.Manifest.ID)
		}
		for _, lang := range b.Languages() {
			if prev, dup := owner[lang]; dup {
				return fmt.Errorf("language %q provided by both %s and %s", lang, prev, b.Manifest.ID)
			}
			c, err := b.Converter(string(lang), r.defaults...)
			if err != nil {
				return fmt.Errorf("bundle %s language %s: %w", b.Manifest.ID, lang, err)
			}
			converters[lang] = c
			owner[lang] = b.Manifest.ID
		}
		bundles[b.Manifest.ID] = b
	}

	r.mu.Lock()
	r.bundles = bundles
	r.converters = converters
	r.owner = owner
	r.mu.Unlock()
	return nil
}

// Reload reloads all bundles from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Converter returns the converter of lang.
func (r *Registry) Converter(lang string) (*ortho.Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[ortho.Language(lang)]
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrUnknownLanguage, &ortho.ArgumentError{
			Param: "lang", Value: lang, Recommended: r.languageNames(),
		})
	}
	return c, nil
}

// Convert converts text with the converter of lang.
func (r *Registry) Convert(lang, text string, opts ...ortho.ConvertOption) (ortho.Result, error) {
	c, err := r.Converter(lang)
	if err != nil {
		return ortho.Result{}, err
	}
	return c.Convert(text, opts...)
}

// LanguageInfo is the public description of a convertible language.
type LanguageInfo struct {
	Language      ortho.Language      `json:"language"`
	Bundle        string              `json:"bundle"`
	Version       string              `json:"version"`
	License       string              `json:"license"`
	Targets       []ortho.Orthography `json:"targets"`
	Rules         int                 `json:"rules"`
	MetaLetters   int                 `json:"meta_letters"`
	DefaultSource ortho.Orthography   `json:"default_source,omitempty"`
	DefaultTarget ortho.Orthography   `json:"default_target,omitempty"`
}

// ListLanguages returns all convertible languages sorted by language.
func (r *Registry) ListLanguages() []LanguageInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]LanguageInfo, 0, len(r.converters))
	for lang, c := range r.converters {
		b := r.bundles[r.owner[lang]]
		info := LanguageInfo{
			Language:    lang,
			Bundle:      b.Manifest.ID,
			Version:     b.Manifest.Version,
			License:     b.Manifest.License,
			Rules:       b.Rules[lang].Len(),
			MetaLetters: b.Table.Len(),
		}
		info.DefaultSource, info.DefaultTarget = c.Defaults()
		for _, col := range b.Table.Columns() {
			if col.Language == lang {
				info.Targets = append(info.Targets, col.Orthography)
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Language < infos[j].Language })
	return infos
}

// OrthographyInfo describes a recognized orthography identifier.
type OrthographyInfo struct {
	ID      ortho.Orthography `json:"id"`
	Aliases []string          `json:"aliases,omitempty"`
}

// Orthographies returns the recognized orthographies of all bundles, in
// declaration order, bundles taken in sorted ID order.
func (r *Registry) Orthographies() []OrthographyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.bundles))
	for id := range r.bundles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []OrthographyInfo
	seen := make(map[ortho.Orthography]bool)
	for _, id := range ids {
		set := r.bundles[id].Orthographies()
		for _, name := range set.Recommended() {
			o := ortho.Orthography(name)
			if seen[o] {
				continue
			}
			seen[o] = true
			out = append(out, OrthographyInfo{ID: o, Aliases: set.Aliases(o)})
		}
	}
	return out
}

// LanguageCount returns the number of convertible languages.
func (r *Registry) LanguageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.converters)
}

// BundleCount returns the number of loaded bundles.
func (r *Registry) BundleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bundles)
}

func (r *Registry) languageNames() []string {
	names := make([]string, 0, len(r.converters))
	for l := range r.converters {
		names = append(names, string(l))
	}
	sort.Strings(names)
	return names
}
