// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Command gen-schema generates the game data JSON Schema file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/voidops/voidops/internal/gamedata"
)

func main() {
	outPath := pflag.StringP("out", "o", filepath.Join("schemas", "gamedata.schema.json"), "output path")
	pflag.Parse()

	schema, err := gamedata.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, schema, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", *outPath)
}
