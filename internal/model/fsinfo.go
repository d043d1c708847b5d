// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FSInfo struct, which links a parsed Job back to the
// file it was declared in, so errors can name the file.
package model

import "fmt"

type FSInfo struct {
	FilePath string
}

func NewFSInfo(filePath string) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
	}
}

// errorf reports a problem with the named job, prefixed with the job and the
// file declaring it.
func (i *FSInfo) errorf(job, format string, args ...any) error {
	return fmt.Errorf("job '%s' in %s: %w", job, i.FilePath, fmt.Errorf(format, args...))
}
