package auth

import (
	"math"
	"time"
)

const (
	DefaultClaimGrant    = 5
	DefaultClaimCooldown = 24 * time.Hour
)

// ClaimHoursRemaining reports whether a daily claim is allowed at now. A user
// who never claimed is always eligible. Otherwise the whole hours left in the
// cooldown are returned, rounded up.
func ClaimHoursRemaining(lastClaim *time.Time, now time.Time, cooldown time.Duration) (hours int, eligible bool) {
	if lastClaim == nil {
		return 0, true
	}
	elapsed := now.Sub(*lastClaim)
	if elapsed >= cooldown {
		return 0, true
	}
	return int(math.Ceil((cooldown - elapsed).Hours())), false
}
