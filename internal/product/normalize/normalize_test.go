package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certsync/internal/product/models"
)

const fullItem = `{
	"cid": "WFA12345",
	"companyName": " Acme Networks ",
	"name": "Acme Router X",
	"modelNumber": "AX-1",
	"certified": "2024-03-14",
	"productCategory": {"product_consumer_category_class": {"name": "Access Point"}},
	"frequencyBand": "2.4 GHz, 5 GHz",
	"certifications": [
		{"name": "Wi-Fi CERTIFIED 7™", "should_be_displayed_on_details": true},
		{"name": "Wi-Fi CERTIFIED™ n", "should_be_displayed_on_details": 1},
		{"name": "Wi-Fi CERTIFIED™ ac", "should_be_displayed_on_details": false},
		{"name": "WPA3™", "should_be_displayed_on_details": true}
	]
}`

func TestParseFullItem(t *testing.T) {
	p, err := Parse(json.RawMessage(fullItem))
	require.NoError(t, err)

	assert.Equal(t, "WFA12345", p.ID)
	assert.Equal(t, "Acme Networks", p.Brand)
	assert.Equal(t, "Acme Router X", p.Name)
	assert.Equal(t, "AX-1", p.ModelNumber)
	assert.Equal(t, "2024-03-14", p.CertifiedOn.String())
	assert.Equal(t, "Access Point", p.Category)
	assert.Equal(t, "2.4 GHz, 5 GHz", p.FrequencyBand)
	assert.Equal(t, []models.Capability{models.CapabilityN, models.Capability7}, p.Tags())
	assert.False(t, p.Has(models.CapabilityAC), "non-displayable certification must not surface")
	assert.False(t, p.Has(models.Capability6), "absent certification counts as false")
}

func TestParseNumericIdentifier(t *testing.T) {
	p, err := Parse(json.RawMessage(`{"cid": 98765, "certifications": []}`))
	require.NoError(t, err)
	assert.Equal(t, "98765", p.ID)
	assert.Empty(t, p.Tags())
}

func TestParseMissingIdentifier(t *testing.T) {
	for name, raw := range map[string]string{
		"absent": `{"name": "No Key"}`,
		"null":   `{"cid": null}`,
		"blank":  `{"cid": "   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(json.RawMessage(raw))
			assert.ErrorIs(t, err, ErrMissingID)
		})
	}
}

func TestParseMalformedItem(t *testing.T) {
	_, err := Parse(json.RawMessage(`["not", "an", "object"]`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseRejectsNonScalarIdentifier(t *testing.T) {
	for name, raw := range map[string]string{
		"object": `{"cid": {}}`,
		"array":  `{"cid": []}`,
		"false":  `{"cid": false}`,
		"true":   `{"cid": true}`,
		"nested": `{"cid": {"value": "A1"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := Parse(json.RawMessage(raw))
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Empty(t, p.ID)
		})
	}
}

func TestFlagDecoding(t *testing.T) {
	var flags struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
		D Flag `json:"d"`
		E Flag `json:"e"`
		F Flag `json:"f"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": true, "b": 1, "c": "true", "d": false, "e": {}, "f": "yes"}`), &flags))

	assert.True(t, bool(flags.A))
	assert.True(t, bool(flags.B))
	assert.True(t, bool(flags.C))
	assert.False(t, bool(flags.D))
	assert.False(t, bool(flags.E), "non-scalar reads as false")
	assert.False(t, bool(flags.F))
}

func TestParseUnreadableDateIsNotFatal(t *testing.T) {
	p, err := Parse(json.RawMessage(`{"cid": "A1", "certified": "someday"}`))
	require.NoError(t, err)
	assert.False(t, p.CertifiedOn.Valid)
}

func TestParseNullCategory(t *testing.T) {
	p, err := Parse(json.RawMessage(`{"cid": "A1", "productCategory": null}`))
	require.NoError(t, err)
	assert.Empty(t, p.Category)
}

func TestTagDerivationIsDeterministic(t *testing.T) {
	first, err := Parse(json.RawMessage(fullItem))
	require.NoError(t, err)
	second, err := Parse(json.RawMessage(fullItem))
	require.NoError(t, err)

	assert.Equal(t, first.Tags(), second.Tags())
	assert.Equal(t, first.SupportList(), second.SupportList())
}

func TestCountDecoding(t *testing.T) {
	var page struct {
		A Count `json:"a"`
		B Count `json:"b"`
		C Count `json:"c"`
		D Count `json:"d"`
		E Count `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "17", "c": null, "d": "many", "e": [3]}`), &page))

	assert.Equal(t, Count{Value: 42, Known: true}, page.A)
	assert.Equal(t, Count{Value: 17, Known: true}, page.B)
	assert.False(t, page.C.Known)
	assert.False(t, page.D.Known)
	assert.False(t, page.E.Known)
}
