// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Source, the per-entry URI template of a tile catalog.
//
// Why keep an hcl.Expression?
//
// The source URI depends on the catalog entry being resolved, which is only
// known while a tile is being assembled. The expression is decoded once at
// load time and evaluated later, once per entry, with `id` bound.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Source resolves a catalog entry id to the URI of its source raster. It is
// safe for concurrent use.
type Source struct {
	expr hcl.Expression
	env  cty.Value
}

// newSource checks that expr only refers to `id` and `env`.
func newSource(expr hcl.Expression, env cty.Value) (*Source, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	for _, traversal := range expr.Variables() {
		switch traversal.RootName() {
		case "id", "env":
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown variable in source",
				Detail:   fmt.Sprintf("The source template may only use 'id' and 'env', not '%s'.", traversal.RootName()),
				Subject:  traversal.SourceRange().Ptr(),
			})
		}
	}
	return &Source{expr: expr, env: env}, diags
}

// Resolve evaluates the template for one catalog entry.
func (s *Source) Resolve(id string) (string, error) {
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": s.env,
			"id":  cty.StringVal(id),
		},
	}
	val, diags := s.expr.Value(ctx)
	if diags.HasErrors() {
		return "", fmt.Errorf("failed to resolve source for '%s': %w", id, diags)
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("source for '%s' is not a string: %w", id, err)
	}
	if val.IsNull() || !val.IsKnown() || val.AsString() == "" {
		return "", fmt.Errorf("source for '%s' resolved to an empty value", id)
	}
	return val.AsString(), nil
}
