package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Checker watches the upstream resources of imported bundles. Each round sends
// a conditional HEAD per source and flags resources whose upstream version no
// longer matches the one that was imported.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker that runs every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Report summarizes one check round.
type Report struct {
	Checked     int
	Unreachable int
	// Changed lists the bundles with an upstream change, sorted.
	Changed []string
}

// Run checks immediately, then every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		if _, err := c.Check(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("source check failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check runs one round over every registered source and persists the results.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	sources, err := c.sources.ListSources()
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	changed := make(map[string]bool)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := c.checkSource(ctx, src)
		if err := c.sources.UpdateCheck(src.BundleID, src.FileName, res); err != nil {
			return rep, err
		}
		rep.Checked++

		switch {
		case res.Err != "" || res.Status >= 400:
			rep.Unreachable++
			c.logger.Warn("source unreachable", "bundle", src.BundleID, "file", src.FileName,
				"url", src.SourceURL, "status", res.Status, "error", res.Err)
		case res.Changed && !src.Changed:
			c.logger.Warn("upstream resource changed since import", "bundle", src.BundleID,
				"file", src.FileName, "etag", res.Validators.ETag, "last_modified", res.Validators.LastModified)
		}
		if res.Changed {
			changed[src.BundleID] = true
		}
	}
	for id := range changed {
		rep.Changed = append(rep.Changed, id)
	}
	sort.Strings(rep.Changed)

	c.logger.Info("source check complete", "checked", rep.Checked,
		"unreachable", rep.Unreachable, "changed_bundles", rep.Changed)
	return rep, nil
}

// checkSource asks whether the imported version of src is still current.
// A failed request keeps the previous changed flag.
func (c *Checker) checkSource(ctx context.Context, src Source) CheckResult {
	res := CheckResult{Changed: src.Changed, Validators: src.Validators}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, src.SourceURL, nil)
	if err != nil {
		res.Err = fmt.Sprintf("build request: %v", err)
		return res
	}
	if src.ImportedAt != nil {
		if src.Imported.ETag != "" {
			req.Header.Set("If-None-Match", src.Imported.ETag)
		}
		if src.Imported.LastModified != "" {
			req.Header.Set("If-Modified-Since", src.Imported.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = fmt.Sprintf("HEAD %s: %v", src.SourceURL, err)
		return res
	}
	resp.Body.Close()
	res.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusNotModified:
		res.Validators = src.Imported
		res.Changed = false
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.Validators = validatorsOf(resp.Header)
		res.Changed = src.ImportedAt != nil && res.Validators.differs(src.Imported)
	}
	return res
}
