//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts everything under input/ into output/.
func Convert() error {
	mg.Deps(Build)
	fmt.Println("[convert] input/ -> output/")
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--recursive", "--output", "output", "input")
}

// Formats prints the supported file types and strategy chains.
func Formats() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "formats")
}
