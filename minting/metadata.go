package minting

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dataURIPrefix marks a self-contained base64 metadata document. Encoding
// the document into the token URI avoids a dependency on external storage
// availability at mint time.
const dataURIPrefix = "data:application/json;base64,"

// Attribute is one trait of the credential's metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Document is the token metadata document, ERC-721 metadata shaped.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes"`
}

// Metadata carries the credential attributes recorded at mint time.
type Metadata struct {
	// Industry is the claimed industry.
	Industry string

	// ExperienceYears is the claimed years of experience.
	ExperienceYears int

	// ResultHash is the confidential-computation result hash.
	ResultHash string

	// AllowValidation indicates whether third-party validation is allowed.
	AllowValidation bool

	// IssuedAt is the credential issuance time.
	IssuedAt time.Time
}

// document builds the full metadata document for the credential.
func (m *Metadata) document() Document {
	validation := "No"
	if m.AllowValidation {
		validation = "Yes"
	}

	return Document{
		Name: fmt.Sprintf("zkResume Credential #%d",
			m.IssuedAt.UnixMilli()),
		Description: "Anonymous professional experience credential " +
			"generated with confidential computing",
		ExternalURL: fmt.Sprintf(
			"https://zkresume.io/verify/%s", m.ResultHash,
		),
		Attributes: []Attribute{
			{TraitType: "Industry", Value: m.Industry},
			{
				TraitType: "Experience Level",
				Value: fmt.Sprintf("%d years",
					m.ExperienceYears),
			},
			{TraitType: "Result Hash", Value: m.ResultHash},
			{
				TraitType: "Generated",
				Value:     m.IssuedAt.UTC().Format(time.RFC3339),
			},
			{TraitType: "Validation Allowed", Value: validation},
		},
	}
}

// EncodeTokenURI encodes the metadata as a self-contained data URI.
func (m *Metadata) EncodeTokenURI() (string, error) {
	doc := m.document()

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTokenURI decodes a self-contained data URI back into its metadata
// document. Remote URIs are not fetched; the raw URI is returned with ok
// false.
func DecodeTokenURI(uri string) (*Document, bool, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(uri, dataURIPrefix),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode token "+
			"URI: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal token "+
			"metadata: %w", err)
	}

	return &doc, true, nil
}
