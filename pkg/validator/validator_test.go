package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priced struct {
	Name  string          `validate:"required"`
	Price decimal.Decimal `validate:"gte=0"`
}

func TestValidateStructDecimal(t *testing.T) {
	ok := priced{Name: "Burger", Price: decimal.NewFromInt(10)}
	assert.Empty(t, ValidateStruct(&ok))

	zero := priced{Name: "Water", Price: decimal.Zero}
	assert.Empty(t, ValidateStruct(&zero))

	neg := priced{Name: "Refund", Price: decimal.NewFromFloat(-0.5)}
	errs := ValidateStruct(&neg)
	require.Len(t, errs, 1)
	assert.Equal(t, "priced.Price", errs[0].FailedField)
	assert.Equal(t, "gte", errs[0].Tag)
}

func TestCheck(t *testing.T) {
	err := Check(&priced{Price: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priced.Name")

	assert.NoError(t, Check(&priced{Name: "Fries", Price: decimal.NewFromInt(4)}))
}
