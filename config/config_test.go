package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "mddump/internal/errors"
	"mddump/minidump"
)

func TestSetPositional(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"one path", []string{"crash.dmp"}, false},
		{"none", nil, true},
		{"two paths", []string{"a.dmp", "b.dmp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := cfg.SetPositional(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, mderrors.IsUsage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "crash.dmp", cfg.Path)
		})
	}
}

func TestMinidumpOptions(t *testing.T) {
	cfg := &Config{Hexdump: true}
	opts := cfg.MinidumpOptions()
	assert.True(t, opts.Hexdump)
	assert.Zero(t, opts.MaxModules, "default cap applies outside -M mode")

	cfg = &Config{ModulesDebugInfo: true}
	opts = cfg.MinidumpOptions()
	assert.Equal(t, uint32(math.MaxUint32), opts.MaxModules)
	assert.NotEqual(t, uint32(minidump.DefaultMaxModules), opts.MaxModules)
}
