package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DEMETER_TEST_STR", "value")
	t.Setenv("DEMETER_TEST_DUR", "90s")
	t.Setenv("DEMETER_TEST_BAD_DUR", "soon")
	t.Setenv("DEMETER_TEST_INT", "7")
	t.Setenv("DEMETER_TEST_BOOL", "true")

	assert.Equal(t, "value", EnvOrDefault("DEMETER_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", EnvOrDefault("DEMETER_TEST_UNSET", "fallback"))
	assert.Equal(t, 90*time.Second, EnvDuration("DEMETER_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("DEMETER_TEST_BAD_DUR", time.Minute))
	assert.Equal(t, int64(7), EnvInt64("DEMETER_TEST_INT", 1))
	assert.True(t, EnvBool("DEMETER_TEST_BOOL", false))
}
