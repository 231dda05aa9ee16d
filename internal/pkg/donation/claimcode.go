package donation

import "regexp"

// Claim codes are what donors type into a provider's free-text name field:
// "<ROOMCODE>-<displayName>", e.g. "ST001-太郎". The room code part is
// uppercase alphanumeric, the display name is arbitrary user-chosen text.
//
// The format is deliberately not collision resistant: two donors choosing the
// same display name on the same room produce the same code, and
// reconciliation takes the first match. Room operators mitigate by keeping
// display names unique.
var claimCodePattern = regexp.MustCompile(`^([A-Z0-9]+)-(.+)$`)

// BuildClaimCode concatenates room code and display name into a claim code.
func BuildClaimCode(roomCode, displayName string) string {
	return roomCode + "-" + displayName
}

// SplitClaimCode extracts the room code and display name from a donor-typed
// string. Names containing further hyphens keep everything after the first
// code-terminating hyphen. ok is false when the string does not carry a code.
func SplitClaimCode(raw string) (roomCode, displayName string, ok bool) {
	m := claimCodePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
