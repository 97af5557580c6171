package bundle

import (
	"fmt"
	"os"

	"github.com/hazyhaar/orthoconv/pkg/ortho"
	"gopkg.in/yaml.v3"
)

// Manifest describes a bundle: one shared orthography table and the rule files
// of the languages it covers.
type Manifest struct {
	ID            string             `yaml:"id" json:"id"`
	Version       string             `yaml:"version" json:"version"`
	Source        string             `yaml:"source" json:"source"`
	SourceURL     string             `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	License       string             `yaml:"license" json:"license"`
	TableFile     string             `yaml:"table_file" json:"-"`
	Format        FormatSpec         `yaml:"format" json:"-"`
	Rules         []RuleFile         `yaml:"rules,omitempty" json:"-"`
	ExtraLetters  string             `yaml:"extra_letters,omitempty" json:"-"`
	Orthographies []OrthographyEntry `yaml:"orthographies,omitempty" json:"-"`
}

// FormatSpec describes how the table and rule files are encoded.
type FormatSpec struct {
	Delimiter string `yaml:"delimiter,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
	Normalize string `yaml:"normalize,omitempty"`
}

// RuleFile binds a language to its rule file.
type RuleFile struct {
	Language string `yaml:"language"`
	File     string `yaml:"file"`
}

// OrthographyEntry declares a recognized orthography and its aliases.
// When a manifest lists none, the built-in cyr/ipa/cauc set is used.
type OrthographyEntry struct {
	ID      string   `yaml:"id"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// DefaultTableFile is the table file name when the manifest sets none.
const DefaultTableFile = "ortho_table.csv"

// RuleFileName is the conventional rule file name of lang.
func RuleFileName(lang string) string {
	return "ortho_" + lang + ".txt"
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if m.TableFile == "" {
		m.TableFile = DefaultTableFile
	}
	for i, r := range m.Rules {
		if r.Language == "" {
			return nil, fmt.Errorf("manifest %s: rules[%d] has no language", path, i)
		}
		if r.File == "" {
			m.Rules[i].File = RuleFileName(r.Language)
		}
	}
	return &m, nil
}

// orthographySet builds the set declared by the manifest.
func (m *Manifest) orthographySet() (*ortho.OrthographySet, error) {
	if len(m.Orthographies) == 0 {
		return ortho.DefaultOrthographies(), nil
	}
	specs := make([]ortho.OrthographySpec, len(m.Orthographies))
	for i, o := range m.Orthographies {
		specs[i] = ortho.OrthographySpec{ID: ortho.Orthography(o.ID), Aliases: o.Aliases}
	}
	return ortho.NewOrthographySet(specs...)
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
