// Package importer fetches bundle resources from their remote sources into the
// data directory and keeps track of source availability.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
)

// Result describes a completed import.
type Result struct {
	BundleID  string
	Dir       string
	Files     []string
	Languages []string
}

// Importer downloads bundles listed in a SourceDB into a data directory.
type Importer struct {
	sources *SourceDB
	dataDir string
	logger  *slog.Logger
	client  *http.Client
}

// New creates an Importer writing bundles under dataDir.
func New(sources *SourceDB, dataDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		sources: sources,
		dataDir: dataDir,
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// Import downloads every resource of bundleID into a staging directory, checks
// that the result loads as a bundle, then swaps it into dataDir/bundleID.
// The installed bundle is left untouched when any step fails.
func (im *Importer) Import(ctx context.Context, bundleID string) (*Result, error) {
	sources, err := im.sources.ListBundle(bundleID)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("bundle %s has no registered sources", bundleID)
	}
	if err := ensureDir(im.dataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	// Dot-prefixed so a concurrent registry load skips it.
	staging, err := os.MkdirTemp(im.dataDir, "."+bundleID+"-staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	res := &Result{BundleID: bundleID}
	validators := make([]Validators, len(sources))
	for i, src := range sources {
		im.logger.Info("downloading", "bundle", bundleID, "file", src.FileName, "url", src.SourceURL)
		v, err := downloadFile(ctx, im.client, src.SourceURL, filepath.Join(staging, src.FileName))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %s: %w", bundleID, src.FileName, err)
		}
		validators[i] = v
		res.Files = append(res.Files, src.FileName)
	}

	final := filepath.Join(im.dataDir, bundleID)
	if err := im.ensureManifest(staging, final, bundleID, sources); err != nil {
		return nil, err
	}

	b, err := bundle.LoadBundle(staging, im.logger)
	if err != nil {
		return nil, fmt.Errorf("verify bundle %s: %w", bundleID, err)
	}
	if b.Manifest.ID != bundleID {
		return nil, fmt.Errorf("verify bundle %s: manifest id is %q", bundleID, b.Manifest.ID)
	}
	for _, l := range b.Languages() {
		res.Languages = append(res.Languages, string(l))
	}

	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, err
	}
	if err := swapDir(staging, final); err != nil {
		return nil, fmt.Errorf("install bundle %s: %w", bundleID, err)
	}
	res.Dir = final
	for i, src := range sources {
		if err := im.sources.MarkImported(bundleID, src.FileName, validators[i]); err != nil {
			im.logger.Warn("import installed but not recorded", "bundle", bundleID, "file", src.FileName, "error", err)
		}
	}
	im.logger.Info("bundle imported", "bundle", bundleID, "files", len(res.Files), "languages", res.Languages)
	return res, nil
}

// ImportAll imports every bundle present in the SourceDB. It keeps going after
// a failure and returns all errors joined.
func (im *Importer) ImportAll(ctx context.Context) ([]*Result, error) {
	sources, err := im.sources.ListSources()
	if err != nil {
		return nil, err
	}
	var (
		results []*Result
		errs    []error
		last    string
	)
	for _, src := range sources {
		if src.BundleID == last {
			continue
		}
		last = src.BundleID
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res, err := im.Import(ctx, src.BundleID)
		if err != nil {
			im.logger.Error("import failed", "bundle", src.BundleID, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// ensureManifest makes sure staging holds a manifest.yaml: a downloaded one
// wins, then the one of the installed bundle, then a generated one.
func (im *Importer) ensureManifest(staging, final, bundleID string, sources []Source) error {
	path := filepath.Join(staging, "manifest.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if m, err := bundle.LoadManifest(filepath.Join(final, "manifest.yaml")); err == nil {
		return bundle.WriteManifest(path, m)
	}

	m := &bundle.Manifest{
		ID:        bundleID,
		Version:   time.Now().UTC().Format("2006.01.02"),
		Source:    "import",
		SourceURL: sources[0].SourceURL,
		License:   sources[0].License,
		TableFile: bundle.DefaultTableFile,
	}
	for _, src := range sources {
		if strings.HasSuffix(src.FileName, ".csv") {
			m.TableFile = src.FileName
			m.SourceURL = src.SourceURL
			m.License = src.License
			break
		}
	}
	im.logger.Info("no manifest for bundle, generating one", "bundle", bundleID, "table", m.TableFile)
	return bundle.WriteManifest(path, m)
}

// swapDir replaces dst with src, restoring the previous dst on failure.
func swapDir(src, dst string) error {
	old := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old")
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	hadOld := false
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return err
		}
		hadOld = true
	}
	if err := os.Rename(src, dst); err != nil {
		if hadOld {
			os.Rename(old, dst)
		}
		return err
	}
	if hadOld {
		return os.RemoveAll(old)
	}
	return nil
}
