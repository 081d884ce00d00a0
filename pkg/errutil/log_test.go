// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("DRONE_NOT_FOUND").
		With("drone_id", "d-1").
		Errorf("drone not found")

	errutil.LogError(logger, "dispatch failed", err, "owner_id", "o-1")

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "dispatch failed", logEntry["msg"])
	assert.Equal(t, "DRONE_NOT_FOUND", logEntry["code"])
	assert.Equal(t, "o-1", logEntry["owner_id"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "TANK_FULL", errutil.CodeOf(oops.Code("TANK_FULL").Errorf("full")))
	assert.Equal(t, "TANK_FULL", errutil.CodeOf(oops.With("k", "v").Wrap(oops.Code("TANK_FULL").Errorf("full"))))
	assert.Empty(t, errutil.CodeOf(errors.New("plain")))
	assert.Empty(t, errutil.CodeOf(nil))
}
