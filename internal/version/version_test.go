package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetInfoAndString(t *testing.T) {
	defer SetInfo("0.1.0-dev", "unknown", "unknown", "unknown")

	SetInfo("1.2.3", "2026-09-01", "abc1234", "go1.26")
	assert.Equal(t, "vk7days 1.2.3 (built 2026-09-01, commit abc1234)", String())

	// Empty values keep the previous ones.
	SetInfo("", "", "", "")
	assert.Equal(t, "1.2.3", Version)
	assert.Equal(t, "go1.26", GoVersion)
}
