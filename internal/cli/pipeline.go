package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/apidiff/internal/config"
	"github.com/roach88/apidiff/internal/logs"
	"github.com/roach88/apidiff/internal/testcase"
)

// loadConfig loads and validates the configuration; validation failures
// are fatal before any extraction begins.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// extractGroups runs the extraction pipeline: load, resolve, aggregate.
func extractGroups(cfg *config.Config, logsPath string, out *OutputFormatter) ([]testcase.PathGroup, error) {
	records, err := logs.Load(logsPath, logs.Format(cfg.LogInput.Format))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load logs", err)
	}
	out.VerboseLog("loaded %d records from %s", len(records), logsPath)

	ignores, err := cfg.RequestIgnoreRules()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compile request ignores", err)
	}
	extractor := &logs.Extractor{Mapping: cfg.ExtractorMapping(), Ignores: ignores}
	cases, diags := extractor.Extract(records)
	for _, w := range diags.Warnings {
		out.VerboseLog("warning: %s", w)
	}
	if diags.Skipped > 0 {
		out.VerboseLog("skipped %d of %d records", diags.Skipped, len(records))
	}

	groups, err := testcase.Aggregate(cases, cfg.AggregateOptions())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "aggregate cases", err)
	}
	return groups, nil
}

// writeGroups writes extracted groups as a JSON artifact.
func writeGroups(path string, groups []testcase.PathGroup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "create artifacts dir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "write testcases", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(groups); err != nil {
		return WrapExitError(ExitCommandError, "write testcases", err)
	}
	return nil
}

// readGroups loads a previously extracted testcases artifact.
func readGroups(path string) ([]testcase.PathGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("testcases file not found: %s (run 'apidiff extract' first)", path), err)
	}
	var groups []testcase.PathGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, WrapExitError(ExitCommandError, "parse testcases", err)
	}
	return groups, nil
}

// limitGroups truncates to the first max subcases, keeping group
// structure intact.
func limitGroups(groups []testcase.PathGroup, max int) []testcase.PathGroup {
	if max <= 0 {
		return groups
	}
	var out []testcase.PathGroup
	remaining := max
	for _, g := range groups {
		if remaining <= 0 {
			break
		}
		if len(g.SubCases) > remaining {
			g.SubCases = g.SubCases[:remaining]
		}
		remaining -= len(g.SubCases)
		out = append(out, g)
	}
	return out
}
