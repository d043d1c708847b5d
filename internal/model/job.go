// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Job structure, the unit of configuration: one
// derivative product built over the whole grid and published under one
// prefix.
//
// Why two sets of structs?
//
// The hcl* structs mirror the file layout so gohcl can decode them directly,
// with optional blocks as pointers. Job is what the rest of the program
// consumes: defaults applied, colors parsed, the ramp validated and the
// product naming checked. Converting between the two is where every semantic
// check lives, so a loaded Job is always usable as is.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/reliefgrid/internal/derivative"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/notify"
	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/store"
	"github.com/zclconf/go-cty/cty"
)

// DefaultBinary is the engine program used when a job names none.
const DefaultBinary = "gdal"

// Job is a fully validated `job` block.
type Job struct {
	Name    string
	Product product.Product
	Store   store.Options

	// Index is the spatial index of source tiles (a vector dataset).
	Index  string
	Source *Source

	Binary string
	Output engine.Output

	// Hillshade is set for hillshade jobs, Ramp for color-relief jobs.
	Hillshade engine.HillshadeParams
	Ramp      *derivative.ColorRamp

	// Notify is nil when progress events are disabled.
	Notify *notify.SocketIOOptions

	// Workers overrides the command line pool size when positive.
	Workers int

	FSInformation *FSInfo
}

type hclConfigFile struct {
	Jobs []*hclJob `hcl:"job,block"`
}

type hclJob struct {
	Name      string        `hcl:"name,label"`
	Product   string        `hcl:"product"`
	Dataset   string        `hcl:"dataset"`
	Label     string        `hcl:"label"`
	Workers   *int          `hcl:"workers,optional"`
	Store     hclStore      `hcl:"store,block"`
	Catalog   hclCatalog    `hcl:"catalog,block"`
	Engine    *hclEngine    `hcl:"engine,block"`
	Hillshade *hclHillshade `hcl:"hillshade,block"`
	ColorRamp *hclColorRamp `hcl:"color_ramp,block"`
	Notify    *hclNotify    `hcl:"notify,block"`
}

type hclStore struct {
	Backend  string `hcl:"backend,optional"`
	Bucket   string `hcl:"bucket,optional"`
	Root     string `hcl:"root,optional"`
	Endpoint string `hcl:"endpoint,optional"`
	Prefix   string `hcl:"prefix"`
}

type hclCatalog struct {
	Index  string         `hcl:"index"`
	Source hcl.Expression `hcl:"source"`
}

type hclEngine struct {
	Binary      string `hcl:"binary,optional"`
	Format      string `hcl:"format,optional"`
	Compression string `hcl:"compression,optional"`
	CRS         string `hcl:"crs,optional"`
}

type hclHillshade struct {
	ZFactor          *float64 `hcl:"z_factor,optional"`
	Scale            *float64 `hcl:"scale,optional"`
	Multidirectional *bool    `hcl:"multidirectional,optional"`
}

type hclColorRamp struct {
	Stops  []hclStop `hcl:"stop,block"`
	NoData string    `hcl:"nodata,optional"`
}

type hclStop struct {
	Value float64 `hcl:"value"`
	Color string  `hcl:"color"`
}

type hclNotify struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// newJobFromHCL applies defaults and validates a decoded block.
func newJobFromHCL(j *hclJob, env cty.Value, filePath string) (*Job, error) {
	info := NewFSInfo(filePath)

	kind, err := product.ParseKind(j.Product)
	if err != nil {
		return nil, info.errorf(j.Name, "%w", err)
	}

	job := &Job{
		Name: j.Name,
		Product: product.Product{
			Kind:    kind,
			Prefix:  j.Store.Prefix,
			Dataset: j.Dataset,
			Label:   j.Label,
		},
		Store: store.Options{
			Backend:  j.Store.Backend,
			Bucket:   j.Store.Bucket,
			Root:     j.Store.Root,
			Endpoint: j.Store.Endpoint,
		},
		Index:         j.Catalog.Index,
		Binary:        DefaultBinary,
		Output:        engine.DefaultOutput,
		FSInformation: info,
	}
	if err := job.Product.Validate(); err != nil {
		return nil, info.errorf(j.Name, "%w", err)
	}
	if job.Index == "" {
		return nil, info.errorf(j.Name, "catalog index is required")
	}

	source, diags := newSource(j.Catalog.Source, env)
	if diags.HasErrors() {
		return nil, info.errorf(j.Name, "%w", diags)
	}
	job.Source = source

	if j.Workers != nil {
		if *j.Workers < 1 {
			return nil, info.errorf(j.Name, "workers must be at least 1, got %d", *j.Workers)
		}
		job.Workers = *j.Workers
	}

	if e := j.Engine; e != nil {
		if e.Binary != "" {
			job.Binary = e.Binary
		}
		if e.Format != "" {
			job.Output.Format = e.Format
		}
		if e.Compression != "" {
			job.Output.Compression = e.Compression
		}
		if e.CRS != "" {
			job.Output.CRS = e.CRS
		}
	}

	switch kind {
	case product.Hillshade:
		if j.ColorRamp != nil {
			return nil, info.errorf(j.Name, "color_ramp is only valid for %s jobs", product.ColorRelief)
		}
		job.Hillshade = hillshadeParams(j.Hillshade)
	case product.ColorRelief:
		if j.Hillshade != nil {
			return nil, info.errorf(j.Name, "hillshade is only valid for %s jobs", product.Hillshade)
		}
		ramp, err := colorRamp(j.ColorRamp)
		if err != nil {
			return nil, info.errorf(j.Name, "%w", err)
		}
		job.Ramp = ramp
	}

	if n := j.Notify; n != nil {
		job.Notify = &notify.SocketIOOptions{
			URL:                n.URL,
			Namespace:          n.Namespace,
			Event:              n.Event,
			InsecureSkipVerify: n.InsecureSkipVerify,
		}
	}

	return job, nil
}

func hillshadeParams(h *hclHillshade) engine.HillshadeParams {
	p := derivative.DefaultHillshade
	if h == nil {
		return p
	}
	if h.ZFactor != nil {
		p.ZFactor = *h.ZFactor
	}
	if h.Scale != nil {
		p.Scale = *h.Scale
	}
	if h.Multidirectional != nil {
		p.Multidirectional = *h.Multidirectional
	}
	return p
}

func colorRamp(r *hclColorRamp) (*derivative.ColorRamp, error) {
	if r == nil || (len(r.Stops) == 0 && r.NoData == "") {
		return derivative.DefaultRamp(), nil
	}

	stops := make([]derivative.Stop, 0, len(r.Stops))
	for _, s := range r.Stops {
		c, err := derivative.ParseColor(s.Color)
		if err != nil {
			return nil, fmt.Errorf("color_ramp stop %g: %w", s.Value, err)
		}
		stops = append(stops, derivative.Stop{Value: s.Value, Color: c})
	}
	if len(stops) == 0 {
		stops = derivative.DefaultRamp().Stops
	}

	noData := derivative.Transparent
	if r.NoData != "" {
		c, err := derivative.ParseColor(r.NoData)
		if err != nil {
			return nil, fmt.Errorf("color_ramp nodata: %w", err)
		}
		noData = c
	}
	return derivative.NewColorRamp(stops, noData)
}
