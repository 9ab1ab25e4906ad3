package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Content string `validate:"required,max=5"`
	Kind    string `validate:"oneof=A B"`
}

func TestFormatValidationErrors(t *testing.T) {
	err := ValidateStruct(sample{Content: "", Kind: "C"})
	require.Error(t, err)

	fe := FormatValidationErrors(err)
	require.Len(t, fe, 2)
	assert.Equal(t, "content", fe[0].Field)
	assert.Equal(t, "content is required", fe[0].Message)
	assert.Equal(t, "kind must be one of [A B]", fe[1].Message)
}

func TestMaxCountsRunes(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Content: "héllo", Kind: "A"}))

	err := ValidateStruct(sample{Content: "toolong", Kind: "A"})
	assert.Equal(t, "content must be at most 5 characters", ValidationMessage(err))
}

func TestValidationMessagePassthrough(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(nil))
	assert.Equal(t, "plain", ValidationMessage(errors.New("plain")))
}
