// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/config"
	"github.com/voidops/voidops/pkg/errutil"
)

// isolateXDG keeps a developer's own config and game data out of the test.
func isolateXDG(t *testing.T) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("DATABASE_URL", "")
}

// execute runs the CLI with args and returns stdout and the logs.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), logs.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed", "tick"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "store", "database-url", "tick-interval-ms", "log-level", "rate-limit-burst"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestMigrateSubcommands(t *testing.T) {
	cmd := NewMigrateCmd()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"up", "down", "status", "version", "force"} {
		assert.True(t, names[want], "missing migrate subcommand %s", want)
	}
}

func TestTickCmd_MemoryStore(t *testing.T) {
	isolateXDG(t)

	out, logs, err := execute(t, "tick", "--store", "memory", "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "due=0 resolved=0 failed=0")
	assert.Contains(t, logs, "in-memory store")
}

func TestTickCmd_BadTime(t *testing.T) {
	isolateXDG(t)

	_, _, err := execute(t, "tick", "--store", "memory", "--at", "yesterday")
	errutil.AssertErrorCode(t, err, "INVALID_TIME")
}

func TestPostgresStoreNeedsURL(t *testing.T) {
	isolateXDG(t)

	_, _, err := execute(t, "tick")
	errutil.AssertErrorCode(t, err, config.CodeInvalidConfig)
}
