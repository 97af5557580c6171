package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hazyhaar/orthoconv/pkg/importer"
)

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	bundleID := fs.String("bundle", "", "bundle ID to import")
	all := fs.Bool("all", false, "import every bundle with registered sources")
	add := fs.String("add", "", "register a resource of -bundle: file=url")
	setURL := fs.String("set-url", "", "change the URL of a resource of -bundle: file=url")
	license := fs.String("license", "", "license of the resource given with -add")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		return err
	}
	defer sdb.Close()

	switch {
	case *add != "" || *setURL != "":
		if *bundleID == "" {
			return fmt.Errorf("-bundle is required with -add and -set-url")
		}
		if *add != "" {
			file, url, err := parseFileURL(*add)
			if err != nil {
				return err
			}
			return sdb.Add(importer.Source{BundleID: *bundleID, FileName: file, SourceURL: url, License: *license})
		}
		file, url, err := parseFileURL(*setURL)
		if err != nil {
			return err
		}
		return sdb.SetURL(*bundleID, file, url)

	case !*all && *bundleID == "":
		return listSources(os.Stdout, sdb)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Hour)
	defer cancel()

	im := importer.New(sdb, cfg.DataDir, logger)
	if *all {
		results, err := im.ImportAll(ctx)
		for _, res := range results {
			fmt.Printf("[%s] OK -> %s (%s)\n", res.BundleID, res.Dir, strings.Join(res.Languages, ", "))
		}
		return err
	}
	res, err := im.Import(ctx, *bundleID)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] OK -> %s (%s)\n", res.BundleID, res.Dir, strings.Join(res.Languages, ", "))
	fmt.Println("Send SIGHUP to a running server to load it.")
	return nil
}

func parseFileURL(s string) (file, url string, err error) {
	file, url, ok := strings.Cut(s, "=")
	if !ok || file == "" || url == "" {
		return "", "", fmt.Errorf("expected file=url, got %q", s)
	}
	return file, url, nil
}

func listSources(w io.Writer, sdb *importer.SourceDB) error {
	sources, err := sdb.ListSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "No registered sources.")
	}
	for _, src := range sources {
		status := ""
		if src.LastStatus != nil {
			status = fmt.Sprintf("  [%d]", *src.LastStatus)
		}
		if src.Changed {
			status += "  changed upstream"
		}
		fmt.Fprintf(w, "  %-20s %-22s %s%s\n", src.BundleID, src.FileName, src.SourceURL, status)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  orthoconv import -bundle <id> -add <file>=<url> [-license <license>]")
	fmt.Fprintln(w, "  orthoconv import -bundle <id> -set-url <file>=<url>")
	fmt.Fprintln(w, "  orthoconv import -bundle <id> | -all")
	return nil
}
