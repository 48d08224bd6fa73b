//go:build mage

// Package main provides build targets for the statcraft project using Mage.
//
// Usage:
//
//	mage build            Compile the statcraft binary to bin/
//	mage install          Install statcraft to GOPATH/bin
//	mage clean            Remove build artifacts
//	mage lint             Run golangci-lint
//	mage test:all         Run all tests
//	mage test:race        Run all tests with the race detector
//	mage test:cover       Write a coverage profile to bin/coverage.out
//	mage content [dir]    Validate content definitions with a fresh build
//	mage stats            Print Go LOC per package, content library and doc word counts as JSON
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "statcraft"
	binaryDir  = "bin"
	cmdDir     = "./cmd/statcraft"
	versionVar = "github.com/mesh-intelligence/statcraft/internal/cli.Version"
)

// Build compiles the statcraft binary to bin/. STATCRAFT_VERSION, when set,
// is stamped into the binary.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := os.Getenv("STATCRAFT_VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Content builds statcraft and validates the content definitions in dir.
func Content(dir string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "validate", dir)
}
