package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("creating entry: %w", Validation("debits (%s) != credits (%s)", "10.00", "9.00"))
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "validation failed")

	err = fmt.Errorf("incoming payment: %w", NotFound("account with role", "accounts_receivable"))
	assert.ErrorIs(t, err, ErrDataNotFound)

	err = fmt.Errorf("creating partner: %w", MissingField("name"))
	assert.ErrorIs(t, err, ErrRequiredFieldMissing)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "name", fe.Field)
}

type partnerInput struct {
	Name string `validate:"required"`
	Type string `validate:"required,oneof=customer vendor both"`
	Code string `field:"account_code" validate:"required"`
}

func TestStruct(t *testing.T) {
	err := Struct(partnerInput{Name: "Acme", Type: "customer", Code: "1100"})
	require.NoError(t, err)

	err = Struct(partnerInput{Type: "customer", Code: "1100"})
	require.ErrorIs(t, err, ErrRequiredFieldMissing)
	assert.Contains(t, err.Error(), "name")

	err = Struct(partnerInput{Name: "Acme", Type: "customer"})
	require.ErrorIs(t, err, ErrRequiredFieldMissing)
	assert.Contains(t, err.Error(), "account_code")

	err = Struct(partnerInput{Name: "Acme", Type: "supplier", Code: "1100"})
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "oneof")
}
