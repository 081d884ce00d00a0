// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/pkg/errutil"
)

func TestDecode(t *testing.T) {
	litres := 12.5
	tests := []struct {
		name string
		raw  string
		want command.Request
	}{
		{
			name: "travel",
			raw:  `{"type":"cmd:travel","id":"7","data":{"drone_id":"abc","destination":"belt"}}`,
			want: command.Request{ID: "7", Args: command.TravelArgs{DroneID: "abc", Destination: "belt"}},
		},
		{
			name: "refuel with amount",
			raw:  `{"type":"cmd:refuel","data":{"drone_id":"abc","litres":12.5}}`,
			want: command.Request{Args: command.RefuelArgs{DroneID: "abc", Litres: &litres}},
		},
		{
			name: "refuel without amount",
			raw:  `{"type":"cmd:refuel","data":{"drone_id":"abc"}}`,
			want: command.Request{Args: command.RefuelArgs{DroneID: "abc"}},
		},
		{
			name: "fleet list without data",
			raw:  `{"type":"fleet:list"}`,
			want: command.Request{Args: command.FleetListArgs{}},
		},
		{
			name: "events with limit",
			raw:  `{"type":"events:list","data":{"limit":5}}`,
			want: command.Request{Args: command.EventsListArgs{Limit: 5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := command.Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Args.Kind(), got.Args.Kind())
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", `cmd:travel`, command.CodeInvalidArgs},
		{"unknown type", `{"type":"cmd:warp"}`, command.CodeUnknownCommand},
		{"missing type", `{}`, command.CodeUnknownCommand},
		{"bad args", `{"type":"cmd:refuel","data":{"litres":"lots"}}`, command.CodeInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := command.Decode([]byte(tt.raw))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestDecode_KeepsCorrelationIDOnError(t *testing.T) {
	req, err := command.Decode([]byte(`{"type":"cmd:nope","id":"42"}`))
	require.Error(t, err)
	assert.Equal(t, "42", req.ID)
}

func TestKind_Mutating(t *testing.T) {
	for _, k := range command.Kinds {
		want := k == command.KindTravel || k == command.KindMine || k == command.KindStop ||
			k == command.KindSell || k == command.KindRefuel
		assert.Equal(t, want, k.Mutating(), k)
	}
}

func TestKind_Cost(t *testing.T) {
	for _, k := range command.Kinds {
		if k.Mutating() {
			assert.InDelta(t, 1, k.Cost(), 1e-9, k)
		} else {
			assert.Zero(t, k.Cost(), k)
		}
	}
}
