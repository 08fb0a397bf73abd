package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWalltime(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		"twenty minutes":    {input: "00:20:00", expected: 20 * time.Minute},
		"mixed":             {input: "01:02:03", expected: time.Hour + 2*time.Minute + 3*time.Second},
		"long":              {input: "48:00:00", expected: 48 * time.Hour},
		"missing seconds":   {input: "00:20", wantErr: true},
		"minutes too large": {input: "00:60:00", wantErr: true},
		"garbage":           {input: "soon", wantErr: true},
		"extra field":       {input: "00:20:00:99", wantErr: true},
		"trailing text":     {input: "00:20:00junk", wantErr: true},
		"leading space":     {input: " 00:20:00", wantErr: true},
		"negative hours":    {input: "-1:20:00", wantErr: true},
		"empty field":       {input: "00::00", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := ParseWalltime(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, w.Duration())
			assert.Equal(t, tc.input, w.String())
		})
	}
}

func TestWalltimeDecodeHook(t *testing.T) {
	hook := WalltimeDecodeHook()

	out, err := hook(reflect.TypeOf(""), reflect.TypeOf(Walltime(0)), "00:20:00")
	require.NoError(t, err)
	assert.Equal(t, Walltime(20*time.Minute), out)

	// Other target types pass through untouched
	out, err = hook(reflect.TypeOf(""), reflect.TypeOf(""), "00:20:00")
	require.NoError(t, err)
	assert.Equal(t, "00:20:00", out)

	_, err = hook(reflect.TypeOf(""), reflect.TypeOf(Walltime(0)), "20 minutes")
	assert.Error(t, err)
}
