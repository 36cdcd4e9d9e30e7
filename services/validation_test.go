package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Quote(t *testing.T) {
	q := &Quote{
		Customer: CustomerSnapshot{Name: "Rossi", Email: "not-an-email"},
		Items: []LineItem{
			{Description: "ok", Quantity: 1, UnitPrice: 10, VATRate: 22},
			{Description: "", Quantity: -1, UnitPrice: 10, VATRate: 150},
		},
		AttachmentsPosition: "middle",
	}

	err := Validate(q)
	require.Error(t, err)

	ve, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, "is required", ve["items[1].description"])
	assert.Equal(t, "must be at least 0", ve["items[1].quantity"])
	assert.Equal(t, "must be at most 100", ve["items[1].vatRate"])
	assert.Equal(t, "must be a valid email", ve["customer.email"])
	assert.Contains(t, ve, "attachmentsPosition")
	assert.NotContains(t, ve, "items[0].description")
}

func TestValidate_Valid(t *testing.T) {
	q := &Quote{
		Customer: CustomerSnapshot{Name: "Rossi"},
		Items:    []LineItem{{Description: "Tablet", Quantity: 2, UnitPrice: 100, VATRate: 22}},
	}
	assert.NoError(t, Validate(q))
}

func TestValidationErrors_Wrapped(t *testing.T) {
	err := Validate(&Settings{NextQuoteNumber: 0})
	wrapped := errors.Join(errors.New("save"), err)

	ve, ok := AsValidationErrors(wrapped)
	require.True(t, ok)
	assert.Contains(t, ve, "companyName")
	assert.Contains(t, ve, "nextQuoteNumber")
	assert.Contains(t, err.Error(), "validation failed: ")
}
