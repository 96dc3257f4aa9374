package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.2.3"
	assert.Contains(t, String(), "gesturelife v1.2.3")
	assert.Contains(t, String(), GitSHA)
}
