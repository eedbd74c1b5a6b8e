package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		fallback string
		want     string
	}{
		{name: "primary wins", primary: "postgres://a", fallback: "postgres://b", want: "postgres://a"},
		{name: "fallback used", fallback: "postgres://b", want: "postgres://b"},
		{name: "none set", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(URLEnvVar, tt.primary)
			t.Setenv(fallbackURLEnvVar, tt.fallback)

			assert.Equal(t, tt.want, URL())
		})
	}
}

func TestOpen_SkipsWithoutURL(t *testing.T) {
	t.Setenv(URLEnvVar, "")
	t.Setenv(fallbackURLEnvVar, "")

	var skipped bool
	t.Run("open", func(t *testing.T) {
		defer func() { skipped = t.Skipped() }()
		Open(t)
	})

	assert.True(t, skipped)
}
