package processing

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MaxDescriptionLen is the longest description a claim may carry.
const MaxDescriptionLen = 280

// MaxExperienceYears is the highest accepted years-of-experience value.
const MaxExperienceYears = 50

// Industries is the fixed set of accepted industry values.
var Industries = []string{
	"technology", "finance", "healthcare", "education", "marketing",
	"sales", "human-resources", "manufacturing", "consulting", "retail",
	"other",
}

// Claim is the user-supplied professional-experience input. It is immutable
// once submitted and never persisted; it exists only for the duration of one
// processing request.
type Claim struct {
	// Role is the professional role being claimed.
	Role string `json:"role"`

	// YearsOfExperience is the number of years claimed, 0 to 50.
	YearsOfExperience int `json:"experience"`

	// Industry is one of the Industries values.
	Industry string `json:"industry"`

	// Description is free text, at most MaxDescriptionLen characters.
	Description string `json:"description"`

	// AllowValidation indicates whether third parties may validate the
	// claim.
	AllowValidation bool `json:"allowValidation"`
}

// Validate checks the claim against its field constraints.
func (c *Claim) Validate() error {
	if c.Role == "" {
		return fmt.Errorf("claim role is required")
	}
	if c.YearsOfExperience < 0 ||
		c.YearsOfExperience > MaxExperienceYears {

		return fmt.Errorf("years of experience must be between 0 "+
			"and %d, got %d", MaxExperienceYears,
			c.YearsOfExperience)
	}
	if !validIndustry(c.Industry) {
		return fmt.Errorf("unknown industry %q", c.Industry)
	}
	if len(c.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters",
			MaxDescriptionLen)
	}

	return nil
}

func validIndustry(industry string) bool {
	for _, known := range Industries {
		if industry == known {
			return true
		}
	}
	return false
}

// sealedClaim is the claim plus a fresh random salt and a timestamp, so two
// submissions of identical claim content never serialize (or hash) equal.
type sealedClaim struct {
	Claim
	Timestamp int64  `json:"timestamp"`
	Salt      string `json:"salt"`
}

// sealClaim serializes the claim with a fresh 32-byte salt and the given
// timestamp.
func sealClaim(claim Claim, now time.Time) ([]byte, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	sealed := sealedClaim{
		Claim:     claim,
		Timestamp: now.UnixMilli(),
		Salt:      hex.EncodeToString(salt),
	}

	payload, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize claim: %w", err)
	}

	return payload, nil
}
