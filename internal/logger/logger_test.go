package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"password hidden", "postgres://jobs:s3cret@db:5432/jobsdb?sslmode=disable", "postgres://jobs:xxxxx@db:5432/jobsdb?sslmode=disable"},
		{"no password", "postgres://jobs@db:5432/jobsdb", "postgres://jobs@db:5432/jobsdb"},
		{"no user", "postgres://db:5432/jobsdb", "postgres://db:5432/jobsdb"},
		{"not a url", "host=db user=jobs", "host=db user=jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactURL(tt.in))
		})
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		log.With("mode", mode).Debug("logger built")
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("discarded", "k", "v")
	log.Sync()
}
