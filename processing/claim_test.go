package processing

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validClaim() Claim {
	return Claim{
		Role:              "Senior Backend Engineer",
		YearsOfExperience: 7,
		Industry:          "technology",
		Description:       "Distributed systems and storage.",
		AllowValidation:   true,
	}
}

// TestClaim_Validate tests the claim field constraints.
func TestClaim_Validate(t *testing.T) {
	t.Parallel()

	claim := validClaim()
	require.NoError(t, claim.Validate())

	// Zero years is a legal value.
	claim = validClaim()
	claim.YearsOfExperience = 0
	require.NoError(t, claim.Validate())

	claim = validClaim()
	claim.YearsOfExperience = MaxExperienceYears
	require.NoError(t, claim.Validate())

	// Empty description is fine.
	claim = validClaim()
	claim.Description = ""
	require.NoError(t, claim.Validate())

	claim = validClaim()
	claim.Role = ""
	require.Error(t, claim.Validate())

	claim = validClaim()
	claim.YearsOfExperience = -1
	require.Error(t, claim.Validate())

	claim = validClaim()
	claim.YearsOfExperience = MaxExperienceYears + 1
	require.Error(t, claim.Validate())

	claim = validClaim()
	claim.Industry = "astronomy"
	require.Error(t, claim.Validate())

	claim = validClaim()
	claim.Industry = ""
	require.Error(t, claim.Validate())

	claim = validClaim()
	claim.Description = strings.Repeat("x", MaxDescriptionLen+1)
	require.Error(t, claim.Validate())
}

// TestSealClaim tests the sealed payload shape and salt freshness.
func TestSealClaim(t *testing.T) {
	t.Parallel()

	claim := validClaim()
	now := time.UnixMilli(1700000000000)

	payload, err := sealClaim(claim, now)
	require.NoError(t, err)

	var sealed sealedClaim
	require.NoError(t, json.Unmarshal(payload, &sealed))
	require.Equal(t, claim, sealed.Claim)
	require.Equal(t, now.UnixMilli(), sealed.Timestamp)
	require.Len(t, sealed.Salt, 64)

	// Identical input never seals to the same bytes.
	payload2, err := sealClaim(claim, now)
	require.NoError(t, err)
	require.NotEqual(t, payload, payload2)
}
