package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceToSubUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12.50", 1250},
		{"12.5", 1250},
		{"12", 1200},
		{"0", 0},
		{"0.05", 5},
		{".99", 99},
		{"10.00", 1000},
		{"10.990000", 1099},
		{"-3.25", -325},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := PriceToSubUnits(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	t.Run("SubCentPrecision", func(t *testing.T) {
		_, err := PriceToSubUnits("1.005")
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := PriceToSubUnits("")
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := PriceToSubUnits("abc")
		assert.Error(t, err)
	})
}
