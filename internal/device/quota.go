package device

// DefaultMaxDeviceLimit applies when a company has no explicit limit.
const DefaultMaxDeviceLimit = 3

// EffectiveLimit resolves a company's configured device limit. Unset or
// non-positive values behave as the default.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultMaxDeviceLimit
	}
	return limit
}

// OverLimit reports whether registering one more device would exceed the
// quota. Records of every status count against the limit.
func OverLimit(existingCount, maxDeviceLimit int) bool {
	return existingCount >= maxDeviceLimit
}
