package types

import "time"

// Settings holds the run configuration read from config.yaml. Field tags
// name the YAML keys; validate tags mark the keys a run cannot start without.
type Settings struct {
	// SourceDir is the root of the tree searched for presentation files.
	SourceDir string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir" validate:"required"`

	// DistDir is the root of the mirrored output tree.
	DistDir string `json:"dist_dir" yaml:"dist_dir" mapstructure:"dist_dir" validate:"required"`

	// OwnerPassword restricts editing, printing and extraction of every
	// output PDF. No user password is set, so documents open without one.
	OwnerPassword string `json:"owner_password" yaml:"owner_password" mapstructure:"owner_password" validate:"required"`

	// ConverterPath is the office converter binary (default "soffice").
	// A bare name is resolved on PATH.
	ConverterPath string `json:"converter_path" yaml:"converter_path" mapstructure:"converter_path" validate:"required"`

	// Extensions lists the file suffixes to convert (default [".pptx"]).
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions" validate:"required,min=1,dive,required"`

	// ConverterTimeout bounds a single converter invocation. Zero waits forever.
	ConverterTimeout time.Duration `json:"converter_timeout,omitempty" yaml:"converter_timeout,omitempty" mapstructure:"converter_timeout" validate:"gte=0"`

	// ClamdAddress enables ClamAV scanning of inputs when set
	// (e.g. "tcp://localhost:3310" or "/run/clamav/clamd.ctl").
	ClamdAddress string `json:"clamd_address,omitempty" yaml:"clamd_address,omitempty" mapstructure:"clamd_address"`

	// Strict makes the run exit non-zero when any file failed.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty" mapstructure:"strict"`
}
