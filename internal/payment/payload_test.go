package payment

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_MarshalJSON(t *testing.T) {
	p := &Payload{}
	p.Add("ApiVersion", "3.0.0")
	p.Add("Id", "ORD-1001")
	p.Add("Mode", 3)
	p.Add("Products", []ProductItem{
		{Code: "SKU-1", Amount: 2, Price: 1250, Description: "Sauna hour", Taxcode: "24"},
	})

	out, err := json.Marshal(p)
	require.NoError(t, err)

	s := string(out)
	assert.Equal(t, `{"ApiVersion":"3.0.0","Id":"ORD-1001","Mode":3,"Products":[{"Code":"SKU-1","Amount":2,"Price":1250,"Description":"Sauna hour","Taxcode":"24"}]}`, s)

	// Field order is the checksum contract, not cosmetics.
	assert.True(t, strings.Index(s, "ApiVersion") < strings.Index(s, "Id"))
	assert.True(t, strings.Index(s, "Mode") < strings.Index(s, "Products"))
}

func TestPayload_ChecksumValues(t *testing.T) {
	p := &Payload{}
	p.Add("ApiVersion", "3.0.0")
	p.Add("Id", "ORD-1001")
	p.Add("Mode", 3)
	p.Add("Products", []ProductItem{
		{Code: "SKU-1", Amount: 2, Price: 1250, Description: "Sauna hour", Taxcode: "24"},
		{Code: "SKU-2", Amount: 1, Price: 300, Description: "Towel", Taxcode: "10"},
	})
	p.Add("Email", "erkki@example.com")

	assert.Equal(t, []string{
		"3.0.0",
		"ORD-1001",
		"3",
		"SKU-1", "2", "1250", "Sauna hour", "24",
		"SKU-2", "1", "300", "Towel", "10",
		"erkki@example.com",
	}, p.ChecksumValues())
}

func TestPayload_Get(t *testing.T) {
	p := &Payload{}
	p.Add("Id", "ORD-1001")

	v, ok := p.Get("Id")
	assert.True(t, ok)
	assert.Equal(t, "ORD-1001", v)

	_, ok = p.Get("Missing")
	assert.False(t, ok)
}

func TestTaxcodeForRate(t *testing.T) {
	cases := map[int64]string{
		24_000_000: "24",
		14_000_000: "14",
		10_000_000: "10",
		0:          "0",
	}
	for ppm, want := range cases {
		code, err := taxcodeForRate(ppm)
		require.NoError(t, err)
		assert.Equal(t, want, code)
	}

	t.Run("UnsupportedRate", func(t *testing.T) {
		_, err := taxcodeForRate(7_000_000)
		assert.ErrorIs(t, err, ErrPayloadValidation)
	})

	t.Run("AlmostSupportedRate", func(t *testing.T) {
		_, err := taxcodeForRate(24_000_001)
		assert.ErrorIs(t, err, ErrPayloadValidation)
	})
}
