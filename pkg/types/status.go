// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FileStatus is the outcome of one pipeline step for a single file.
type FileStatus string

const (
	StatusConverted FileStatus = "converted"
	StatusFailed    FileStatus = "failed"
	StatusInfected  FileStatus = "infected"
)
