package minting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMetadata_EncodeDecode tests the data URI round trip.
func TestMetadata_EncodeDecode(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		Industry:        "finance",
		ExperienceYears: 12,
		ResultHash:      "0xabcdef",
		AllowValidation: true,
		IssuedAt:        time.UnixMilli(1700000000000).UTC(),
	}

	uri, err := meta.EncodeTokenURI()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, dataURIPrefix))

	doc, ok, err := DecodeTokenURI(uri)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, "zkResume Credential #1700000000000", doc.Name)
	require.Equal(t, "https://zkresume.io/verify/0xabcdef",
		doc.ExternalURL)
	require.Len(t, doc.Attributes, 5)

	byTrait := make(map[string]string)
	for _, attr := range doc.Attributes {
		byTrait[attr.TraitType] = attr.Value
	}
	require.Equal(t, "finance", byTrait["Industry"])
	require.Equal(t, "12 years", byTrait["Experience Level"])
	require.Equal(t, "0xabcdef", byTrait["Result Hash"])
	require.Equal(t, "Yes", byTrait["Validation Allowed"])
	require.Equal(t, "2023-11-14T22:13:20Z", byTrait["Generated"])
}

// TestMetadata_ValidationDisallowed tests the negative validation flag.
func TestMetadata_ValidationDisallowed(t *testing.T) {
	t.Parallel()

	meta := Metadata{Industry: "retail"}
	uri, err := meta.EncodeTokenURI()
	require.NoError(t, err)

	doc, ok, err := DecodeTokenURI(uri)
	require.NoError(t, err)
	require.True(t, ok)

	for _, attr := range doc.Attributes {
		if attr.TraitType == "Validation Allowed" {
			require.Equal(t, "No", attr.Value)
		}
	}
}

// TestDecodeTokenURI_Remote tests that non-data URIs are passed over, not
// fetched.
func TestDecodeTokenURI_Remote(t *testing.T) {
	t.Parallel()

	doc, ok, err := DecodeTokenURI("https://example.com/meta/1.json")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, doc)

	doc, ok, err = DecodeTokenURI("ipfs://QmHash")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, doc)
}

// TestDecodeTokenURI_Corrupt tests malformed data URIs.
func TestDecodeTokenURI_Corrupt(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeTokenURI(dataURIPrefix + "!!!not-base64!!!")
	require.Error(t, err)

	_, _, err = DecodeTokenURI(dataURIPrefix + "bm90IGpzb24=")
	require.Error(t, err)
}
