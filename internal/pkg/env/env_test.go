package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"PV_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("PV_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("PV_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("PV_TEST_MISSING", "def"))
}

func TestGetEnvSeconds(t *testing.T) {
	Env = map[string]string{
		"ORDER_TTL_SECONDS": "120",
		"BROKEN":            "abc",
		"NEGATIVE":          "-5",
	}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 120*time.Second, GetEnvSeconds("ORDER_TTL_SECONDS", 300*time.Second))
	assert.Equal(t, 300*time.Second, GetEnvSeconds("BROKEN", 300*time.Second))
	assert.Equal(t, 300*time.Second, GetEnvSeconds("NEGATIVE", 300*time.Second))
	assert.Equal(t, 300*time.Second, GetEnvSeconds("UNSET", 300*time.Second))
}
