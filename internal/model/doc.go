// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go representation of reliefgrid's HCL job
// configuration. It parses the user's .hcl files into a strongly-typed list of
// Jobs, each describing one derivative product to build over the whole grid.
//
// # Core Concepts
//
//   - Job: one `job "name" { ... }` block. It names the product, the remote
//     store it is published to, the tile catalog it reads, the engine binary
//     and its output encoding, and the product parameters (hillshade settings
//     or a color ramp).
//
//   - Source: the catalog's `source` attribute, kept as an unevaluated HCL
//     expression. It is evaluated once per catalog entry with `id` bound to
//     the entry's identifier, e.g. "/vsicurl/https://host/nasadem/${id}.tif".
//
//   - FSInfo: the file a Job was read from, used in error messages.
//
// # Variables
//
// Every expression may read the process environment through `env`, e.g.
// `bucket = env.RELIEF_BUCKET`. Referencing an unset variable is a load error,
// so a misconfigured deployment fails before any tile is dispatched.
package model
