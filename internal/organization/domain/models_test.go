package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFromName(t *testing.T) {
	assert.Equal(t, "east-district", CodeFromName("East District"))
	assert.Equal(t, "north-branch-2", CodeFromName("  North Branch #2 "))
}
