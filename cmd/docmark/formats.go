// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmark/pkg/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported file types and their conversion strategies",
	Run: func(cmd *cobra.Command, args []string) {
		printFormats(cmd.OutOrStdout(), cfg.Conversion)
	},
}

func printFormats(w io.Writer, cc types.ConversionConfig) {
	exts := types.SupportedExtensions()
	docTypes := make([]string, 0, len(exts))
	for dt := range exts {
		docTypes = append(docTypes, string(dt))
	}
	sort.Strings(docTypes)

	fmt.Fprintf(w, "%-14s  %-40s  %s\n", "Type", "Extensions", "Strategies")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, dt := range docTypes {
		list := exts[types.DocType(dt)]
		sort.Strings(list)
		strategies := "-"
		if s := cc.Strategies[dt]; len(s) > 0 {
			strategies = strings.Join(s, " > ")
		}
		fmt.Fprintf(w, "%-14s  %-40s  %s\n", dt, strings.Join(list, " "), strategies)
	}
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
