// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan checks input files with a ClamAV daemon before they are
// handed to the office converter.
package scan

import (
	"fmt"
	"os"
	"strings"

	clamd "github.com/dutchcoders/go-clamd"
)

// Scanner inspects a file for malware.
type Scanner interface {
	ScanFile(path string) (Result, error)
}

// Result is the verdict for one file.
type Result struct {
	Infected bool
	Threats  []string
}

// Clamd scans files by streaming them to clamd with INSTREAM.
type Clamd struct {
	address string
	client  *clamd.Clamd
}

// NewClamd connects to the daemon at address and verifies it answers PING.
// Addresses without a scheme are treated as TCP when they contain a port
// and as a unix socket path otherwise.
func NewClamd(address string) (*Clamd, error) {
	addr := normalizeAddress(address)
	client := clamd.NewClamd(addr)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to clamd at %s: %w", addr, err)
	}
	return &Clamd{address: addr, client: client}, nil
}

// Address returns the normalized daemon address.
func (c *Clamd) Address() string { return c.address }

// ScanFile streams the file at path to clamd.
func (c *Clamd) ScanFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s for scanning: %w", path, err)
	}
	defer f.Close()

	abort := make(chan bool)
	defer close(abort)

	responses, err := c.client.ScanStream(f, abort)
	if err != nil {
		return Result{}, fmt.Errorf("scanning %s: %w", path, err)
	}

	var res Result
	for r := range responses {
		switch r.Status {
		case clamd.RES_FOUND:
			res.Infected = true
			res.Threats = append(res.Threats, r.Description)
		case clamd.RES_ERROR, clamd.RES_PARSE_ERROR:
			return Result{}, fmt.Errorf("scanning %s: clamd replied %q", path, r.Raw)
		}
	}
	return res, nil
}

func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	switch {
	case strings.Contains(address, "://"):
		return address
	case strings.HasPrefix(address, "/"):
		return "unix://" + address
	default:
		return "tcp://" + address
	}
}
