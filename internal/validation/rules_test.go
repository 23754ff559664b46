package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/medledger/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("Success_NilStaysNil", func(t *testing.T) {
		assert.Nil(t, WrapValidationError(nil))
	})

	t.Run("Success_WrapsAsInvalidInput", func(t *testing.T) {
		err := WrapValidationError(validation.NewError("code", "bad value"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "bad value")
	})
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "regular value", value: "HOSP1", wantErr: false},
		{name: "whitespace only", value: "   ", wantErr: true},
		{name: "tabs and newlines", value: "\t\n", wantErr: true},
		{name: "empty is left to Required", value: "", wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, NotBlank)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoControlChars(t *testing.T) {
	assert.NoError(t, validation.Validate("NFT-DEMO-001", NoControlChars))
	assert.Error(t, validation.Validate("A1\nforged", NoControlChars))
	assert.Error(t, validation.Validate("A1\x7f", NoControlChars))
}
