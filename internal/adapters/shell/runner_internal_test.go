package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		sysEnv    []string
		overrides map[string]string
		expected  []string
	}{
		{
			name:     "AllowedOnly",
			sysEnv:   []string{"USER=test", "PATH=/bin", "HOME=/home/test"},
			expected: []string{"HOME=/home/test", "PATH=/bin", "USER=test"},
		},
		{
			name:     "Filtered",
			sysEnv:   []string{"USER=test", "SSH_AUTH_SOCK=/tmp/ssh", "SECRET=key"},
			expected: []string{"USER=test"},
		},
		{
			name:      "Override",
			sysEnv:    []string{"USER=test", "PATH=/bin"},
			overrides: map[string]string{"USER": "blog", "FOO": "bar"},
			expected:  []string{"FOO=bar", "PATH=/bin", "USER=blog"},
		},
		{
			name:     "Malformed",
			sysEnv:   []string{"NOEQUALS", "PATH=/bin"},
			expected: []string{"PATH=/bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveEnvironment(tt.sysEnv, tt.overrides))
		})
	}
}

func TestLookPath(t *testing.T) {
	_, err := lookPath("sh", []string{"FOO=bar"})
	assert.Error(t, err)

	p, err := lookPath("sh", []string{"PATH=/nonexistent:/bin"})
	assert.NoError(t, err)
	assert.Equal(t, "/bin/sh", p)
}
