// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package protect encrypts PDFs in place with an owner password and a fixed
// permission policy that denies every restricted capability.
package protect

import (
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// keyLength selects AES-256.
const keyLength = 256

// accessibilityExtract is bit 10 of the P entry: extraction for
// accessibility tools such as screen readers.
const accessibilityExtract = 1 << 9

// Permissions is applied to every protected document: content extraction,
// annotation, assembly, form filling, other modification, and printing at
// any resolution are all denied. Extraction for accessibility stays allowed.
// It is not configurable.
var Permissions = model.PermissionsNone | accessibilityExtract

func init() {
	// Use pdfcpu's built-in defaults instead of a config dir under $HOME.
	model.ConfigPath = "disable"
}

// Protector rewrites PDFs with owner-password encryption.
type Protector struct {
	ownerPassword string
}

// New returns a Protector for the given owner password. No user password is
// set, so protected documents still open without one.
func New(ownerPassword string) (*Protector, error) {
	if ownerPassword == "" {
		return nil, errors.New("owner password is required")
	}
	return &Protector{ownerPassword: ownerPassword}, nil
}

// Protect encrypts the PDF at path and replaces the original file.
func (p *Protector) Protect(path string) error {
	conf := model.NewAESConfiguration("", p.ownerPassword, keyLength)
	conf.Permissions = Permissions

	if err := api.EncryptFile(path, "", conf); err != nil {
		return fmt.Errorf("encrypting %s: %w", path, err)
	}
	return nil
}
