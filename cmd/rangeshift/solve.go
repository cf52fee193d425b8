package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/obsidianstack/rangeshift/internal/almanac"
	"github.com/obsidianstack/rangeshift/internal/compute"
)

// SolveCmd runs one input file and prints the minimum.
type SolveCmd struct {
	File   string `arg:"" help:"Almanac file; .xz is decompressed; - reads stdin"`
	Mode   string `help:"How to read the seeds line (ranges, values)" enum:"ranges,values" default:"ranges"`
	Strict bool   `help:"Reject maps whose source ranges overlap"`
	Stages bool   `help:"Print per-stage interval counts"`
}

func (c *SolveCmd) Run(w io.Writer) error {
	mode, err := almanac.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	data, err := readInput(c.File)
	if err != nil {
		return err
	}
	res, err := compute.Solve(data, mode, c.Strict)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	if c.Stages {
		writeStages(w, res)
	}
	fmt.Fprintf(w, "Result: %d\n", res.MinimumStart)
	return nil
}

// LookupCmd translates values one at a time.
type LookupCmd struct {
	File   string  `arg:"" help:"Almanac file; .xz is decompressed; - reads stdin"`
	Values []int64 `arg:"" help:"Values to translate"`
}

func (c *LookupCmd) Run(w io.Writer) error {
	data, err := readInput(c.File)
	if err != nil {
		return err
	}
	a, err := almanac.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	p, err := a.Pipeline()
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	for _, v := range c.Values {
		fmt.Fprintf(w, "%d -> %d\n", v, p.Lookup(v))
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(w io.Writer) error {
	fmt.Fprintf(w, "rangeshift %s\n", version)
	return nil
}

// --- helpers ----------------------------------------------------------------

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	return almanac.ReadFile(path)
}

func writeStages(w io.Writer, res *compute.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tIN\tOUT\tCONVERTED\tPASSED\tTOTAL LENGTH\t")
	for _, s := range res.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Name,
			humanize.Comma(int64(s.In)),
			humanize.Comma(int64(s.Out)),
			humanize.Comma(int64(s.Converted)),
			humanize.Comma(int64(s.PassedThrough)),
			humanize.Comma(s.TotalLength),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s seed intervals, %s final intervals, %s values, %s\n",
		humanize.Comma(int64(res.Seeds)),
		humanize.Comma(int64(res.Intervals)),
		humanize.Comma(res.TotalLength),
		res.Duration,
	)
}
