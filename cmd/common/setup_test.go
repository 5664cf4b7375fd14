package common

import (
	"os"
	"testing"
)

// TestMain runs before any test in this package.
func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
