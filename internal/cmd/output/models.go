package output

import (
	"bytes"
	"io"
	"os"

	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/internal/cmd/table"
	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/differ"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/sync"
)

// tabular reports whether the flags select a table-shaped format.
func tabular(f Format) bool {
	switch f {
	case FormatTable, FormatWide, FormatCSV, "":
		return true
	}
	return false
}

// FormatResult writes a run summary, followed by dry-run decisions and
// failures when there are any. Structured formats get the result as is.
func FormatResult(w io.Writer, res *sync.Result, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	formatter := NewFormatter(format)
	if !tabular(format) {
		return formatter.Format(w, resultView(res))
	}

	if err := formatter.Format(w, table.ResultToTableData(res)); err != nil {
		return err
	}
	if len(res.Plans) > 0 && globalFlags.Verbose {
		if err := formatter.Format(w, table.PlansToTableData(res.Plans)); err != nil {
			return err
		}
	}
	if len(res.Provenance) > 0 && globalFlags.Verbose {
		if err := formatter.Format(w, table.ProvenanceToTableData(res.Provenance, nil)); err != nil {
			return err
		}
	}
	if len(res.Failures) > 0 {
		return formatter.Format(w, table.FailuresToTableData(res.Failures))
	}
	return nil
}

// FormatExtraction writes the per-kind counts of an extraction.
func FormatExtraction(w io.Writer, rows normalize.Batch, cs *differ.Changeset, globalFlags *globals.Flags) error {
	format := DetectFormat(globalFlags.Output)
	formatter := NewFormatter(format)
	if !tabular(format) {
		return formatter.Format(w, cs.Summary)
	}
	return formatter.Format(w, table.ChangesetToTableData(rows, cs, format == FormatWide || globalFlags.Verbose))
}

// FinishRun prints the run result and, when report names a file, writes
// the provenance records the run applied to it as YAML.
func FinishRun(w io.Writer, res *sync.Result, globalFlags *globals.Flags, report string) error {
	if err := FormatResult(w, res, globalFlags); err != nil {
		return err
	}
	if report == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := provenance.WriteReport(&buf, res.Provenance); err != nil {
		return err
	}
	return errors.WrapIO("write", report, os.WriteFile(report, buf.Bytes(), constants.FilePermissions))
}

type failureView struct {
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	Entity  string `json:"entity" yaml:"entity"`
	Fact    string `json:"fact" yaml:"fact"`
	Error   string `json:"error" yaml:"error"`
}

type runView struct {
	Candidates    int            `json:"candidates" yaml:"candidates"`
	Processed     int            `json:"processed" yaml:"processed"`
	Skipped       int            `json:"skipped" yaml:"skipped"`
	Mutations     int            `json:"mutations" yaml:"mutations"`
	DryRun        bool           `json:"dry_run" yaml:"dry_run"`
	Capped        bool           `json:"capped" yaml:"capped"`
	LastOrdinal   int            `json:"last_ordinal" yaml:"last_ordinal"`
	ResumeOrdinal int            `json:"resume_ordinal,omitempty" yaml:"resume_ordinal,omitempty"`
	Release       string         `json:"release" yaml:"release"`
	Decisions     map[string]int `json:"decisions" yaml:"decisions"`
	Plans         []string       `json:"plans,omitempty" yaml:"plans,omitempty"`
	Failures      []failureView  `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// resultView flattens errors and plans to strings for serialization.
func resultView(res *sync.Result) runView {
	v := runView{
		Candidates:    res.Candidates,
		Processed:     res.Processed,
		Skipped:       res.Skipped,
		Mutations:     res.Mutations,
		DryRun:        res.DryRun,
		Capped:        res.Capped,
		LastOrdinal:   res.LastOrdinal,
		ResumeOrdinal: res.ResumeOrdinal,
		Release:       string(res.Release),
		Decisions:     make(map[string]int, len(res.Decisions)),
	}
	for k, n := range res.Decisions {
		v.Decisions[string(k)] = n
	}
	for _, p := range res.Plans {
		v.Plans = append(v.Plans, p.String())
	}
	for _, f := range res.Failures {
		v.Failures = append(v.Failures, failureView{
			Ordinal: f.Ordinal, Entity: string(f.Entity), Fact: f.Fact, Error: f.Err.Error(),
		})
	}
	return v
}
