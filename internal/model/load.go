// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file discovers and decodes job files.
//
// A configuration path may be a single .hcl file or a directory. Directories
// are searched recursively and every job found is aggregated into one list,
// so a deployment can keep one file per product.
package model

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// EnvValue exposes the given "KEY=value" pairs as a cty object, the value
// bound to `env` in configuration expressions.
func EnvValue(environ []string) cty.Value {
	vars := make(map[string]cty.Value, len(environ))
	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}

// LoadJobs finds and parses all job files under path, resolving `env` from
// the process environment.
func LoadJobs(ctx context.Context, path string) ([]*Job, error) {
	return LoadJobsWithEnv(ctx, path, EnvValue(os.Environ()))
}

// LoadJobsWithEnv is LoadJobs with an explicit `env` value.
func LoadJobsWithEnv(ctx context.Context, path string, env cty.Value) ([]*Job, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading jobs from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find job files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl job files found in %s", path)
	}

	parser := hclparse.NewParser()
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"env": env}}

	var jobs []*Job
	seen := make(map[string]string)
	for _, file := range files {
		fileJobs, err := newJobsFromHCL(file, parser, evalCtx, env)
		if err != nil {
			return nil, err
		}
		for _, j := range fileJobs {
			if prev, ok := seen[j.Name]; ok {
				return nil, fmt.Errorf("job '%s' in %s is already defined in %s", j.Name, file, prev)
			}
			seen[j.Name] = file
		}
		jobs = append(jobs, fileJobs...)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no job blocks found in %s", path)
	}
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	logger.Debug("Jobs loaded.", "count", len(jobs), "files", len(files))
	return jobs, nil
}

// newJobsFromHCL parses a single HCL file and returns the jobs found within it.
func newJobsFromHCL(filePath string, parser *hclparse.Parser, evalCtx *hcl.EvalContext, env cty.Value) ([]*Job, error) {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}

	var parsed hclConfigFile
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}

	jobs := make([]*Job, 0, len(parsed.Jobs))
	for _, j := range parsed.Jobs {
		job, err := newJobFromHCL(j, env, filePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Select returns the jobs with the given names, in the order given. An empty
// list selects every job.
func Select(jobs []*Job, names []string) ([]*Job, error) {
	if len(names) == 0 {
		return jobs, nil
	}
	byName := make(map[string]*Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	selected := make([]*Job, 0, len(names))
	for _, n := range names {
		j, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown job '%s'", n)
		}
		selected = append(selected, j)
	}
	return selected, nil
}
