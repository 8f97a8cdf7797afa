package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRewriteArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", nil, false},
		{"subcommand", []string{"run"}, false},
		{"subcommand after flags", []string{"--verbose", "env"}, false},
		{"explicit separator", []string{"--", "server"}, false},
		{"bare command", []string{"server", "--port", "80"}, true},
		{"command after bool flag", []string{"-v", "server"}, true},
		{"flag value is not the command", []string{"--config", "c.yaml"}, false},
		{"command after valued flag", []string{"--config", "c.yaml", "server"}, true},
		{"inline flag value", []string{"--config=run", "server"}, true},
		{"subcommand after valued flag", []string{"-e", "A=1", "run"}, false},
		{"only flags", []string{"--verbose", "--otel"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRewriteArgs(tt.args))
		})
	}
}

func TestInsertArgSeparator(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{
			args: []string{"server", "--port", "80"},
			want: []string{"--", "server", "--port", "80"},
		},
		{
			args: []string{"--config", "c.yaml", "-e", "A=1", "server", "-v"},
			want: []string{"--config", "c.yaml", "-e", "A=1", "--", "server", "-v"},
		},
		{
			args: []string{"--verbose"},
			want: []string{"--verbose"},
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, insertArgSeparator(tt.args))
	}
}
