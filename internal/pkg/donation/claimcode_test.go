package donation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildClaimCode(t *testing.T) {
	assert.Equal(t, "ABC123-Taro", BuildClaimCode("ABC123", "Taro"))
	assert.Equal(t, "ST001-太郎", BuildClaimCode("ST001", "太郎"))
}

func TestSplitClaimCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		room     string
		display  string
		expectOK bool
	}{
		{name: "basic", input: "ABC123-Taro", room: "ABC123", display: "Taro", expectOK: true},
		{name: "unicode display name", input: "ST001-太郎", room: "ST001", display: "太郎", expectOK: true},
		{name: "hyphen in display name keeps remainder", input: "ROOM1-jean-luc", room: "ROOM1", display: "jean-luc", expectOK: true},
		{name: "digits only code", input: "42-bob", room: "42", display: "bob", expectOK: true},
		{name: "no hyphen", input: "randomtext", expectOK: false},
		{name: "lowercase code rejected", input: "abc123-Taro", expectOK: false},
		{name: "empty display name", input: "ABC123-", expectOK: false},
		{name: "leading hyphen", input: "-Taro", expectOK: false},
		{name: "empty string", input: "", expectOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, display, ok := SplitClaimCode(tt.input)
			assert.Equal(t, tt.expectOK, ok)
			assert.Equal(t, tt.room, room)
			assert.Equal(t, tt.display, display)
		})
	}
}

func TestSplitClaimCodeRoundTrip(t *testing.T) {
	room, display, ok := SplitClaimCode(BuildClaimCode("XYZ99", "viewer one"))
	assert.True(t, ok)
	assert.Equal(t, "XYZ99", room)
	assert.Equal(t, "viewer one", display)
}
