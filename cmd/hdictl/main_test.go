package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint32
		err  bool
	}{
		{"0xff202060", 0xff202060, false},
		{"4278190080", 0xff000000, false},
		{"0x1ffffffff", 0, true},
		{"red", 0, true},
	} {
		got, err := parseColor(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseDisplayID(t *testing.T) {
	id, err := parseDisplayID("3")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	_, err = parseDisplayID("-1")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"info", "displays", "modes", "fill", "vsync", "power", "backlight"} {
		assert.True(t, names[want], want)
	}
}
