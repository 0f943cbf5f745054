package targeting

import "unicode/utf16"

// Bucket maps a (userID, flagName) pair to a stable integer in [0, 100).
//
// The fold is the classic 31-multiplier string hash over the UTF-16 code
// units of "userID:flagName", reduced through signed 32-bit arithmetic.
// This must stay bit-compatible with the hash used when rollouts were first
// shipped: changing the algorithm family would silently re-bucket every user
// already inside a rollout. The flag name acts as a salt so that a user's
// bucket for one flag is statistically independent of their bucket for any
// other flag.
func Bucket(userID, flagName string) int {
	var h int32
	for _, cu := range utf16.Encode([]rune(userID + ":" + flagName)) {
		h = h*31 + int32(cu)
	}

	// abs through int64: negating math.MinInt32 overflows in 32 bits.
	b := int64(h)
	if b < 0 {
		b = -b
	}
	return int(b % 100)
}
