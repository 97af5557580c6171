package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/ortho"
)

func cmdConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	lang := fs.String("lang", "", "language code (e.g. kbd)")
	source := fs.String("source", "", "source orthography (default from config)")
	target := fs.String("target", "", "target orthography (default from config)")
	text := fs.String("text", "", "text to convert; stdin is read line by line when empty")
	asJSON := fs.Bool("json", false, "print one JSON result per line")
	fs.Parse(args)

	if *lang == "" {
		return fmt.Errorf("-lang is required")
	}
	_, _, reg, err := setup(*cfgPath)
	if err != nil {
		return err
	}

	var opts []ortho.ConvertOption
	if *source != "" {
		opts = append(opts, ortho.Source(*source))
	}
	if *target != "" {
		opts = append(opts, ortho.Target(*target))
	}

	var in io.Reader = os.Stdin
	if *text != "" {
		in = strings.NewReader(*text)
	}
	return convertLines(reg, *lang, in, os.Stdout, *asJSON, opts...)
}

// convertLines converts every line of r and writes one result per line to w.
func convertLines(reg *bundle.Registry, lang string, r io.Reader, w io.Writer, asJSON bool, opts ...ortho.ConvertOption) error {
	c, err := reg.Converter(lang)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(w)
	defer out.Flush()
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		res, err := c.Convert(sc.Text(), opts...)
		if err != nil {
			return err
		}
		if asJSON {
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, res.Text)
	}
	return sc.Err()
}

func cmdLanguages(args []string) error {
	fs := flag.NewFlagSet("languages", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	_, _, reg, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	printLanguages(os.Stdout, reg.ListLanguages())
	return nil
}

func printLanguages(w io.Writer, infos []bundle.LanguageInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tBUNDLE\tVERSION\tTARGETS\tRULES\tMETA-LETTERS")
	for _, l := range infos {
		targets := make([]string, len(l.Targets))
		for i, t := range l.Targets {
			targets[i] = string(t)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			l.Language, l.Bundle, l.Version, strings.Join(targets, ","), l.Rules, l.MetaLetters)
	}
	tw.Flush()
}
