package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAlg(t *testing.T) {
	assert.NoError(t, checkAlg("HS256"))
	assert.NoError(t, checkAlg("hs256"))
	assert.Error(t, checkAlg("RS256"))
	assert.Error(t, checkAlg(""))
}
