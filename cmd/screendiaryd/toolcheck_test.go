package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckToolsFlagsOnlyMissingBinaries(t *testing.T) {
	missing := checkTools()
	for _, name := range missing {
		assert.Contains(t, requiredTools, name, "checkTools must only ever report names from requiredTools")
	}
}
