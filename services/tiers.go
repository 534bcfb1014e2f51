package services

import (
	"errors"
	"strings"

	"membercrm/models"
)

var ErrInvalidTier = errors.New("invalid tier. Must be BASIC, SILVER or GOLD")

// TierAll is the bulk-send filter that matches every member.
const TierAll = "ALL"

var Tiers = []string{models.TierBasic, models.TierSilver, models.TierGold}

func IsValidTier(tier string) bool {
	switch strings.ToUpper(strings.TrimSpace(tier)) {
	case models.TierBasic, models.TierSilver, models.TierGold:
		return true
	default:
		return false
	}
}

// ParseTier upper-cases and validates a tier name.
func ParseTier(tier string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(tier))
	if !IsValidTier(t) {
		return "", ErrInvalidTier
	}
	return t, nil
}

// TierOrDefault falls back to BASIC for missing or unknown tiers.
func TierOrDefault(tier string) string {
	if t, err := ParseTier(tier); err == nil {
		return t
	}
	return models.TierBasic
}

// ParseTierFilter accepts "all" or a tier; empty means all.
func ParseTierFilter(filter string) (string, error) {
	f := strings.ToUpper(strings.TrimSpace(filter))
	if f == "" || f == TierAll {
		return TierAll, nil
	}
	return ParseTier(f)
}
