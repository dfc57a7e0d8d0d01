package mint

import (
	"strings"
	"testing"
)

const wsolMint = "So11111111111111111111111111111111111111112"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "valid mint passes through",
			in:   wsolMint,
			want: wsolMint,
		},
		{
			name: "empty passes through",
			in:   "",
			want: "",
		},
		{
			name: "trailing garbage truncated",
			in:   wsolMint + "pump!!",
			want: (wsolMint + "pump!!")[:MaxAddressLen],
		},
		{
			name: "50 chars truncated to 44",
			in:   strings.Repeat("A", 50),
			want: strings.Repeat("A", 44),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if len(got) > MaxAddressLen {
				t.Errorf("Normalize(%q) length = %d, want <= %d", tt.in, len(got), MaxAddressLen)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		wsolMint,
		strings.Repeat("B", 100),
		"short",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"wsol mint", wsolMint, true},
		{"empty", "", false},
		{"not base58", "0OIl+/=", false},
		{"too short", "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.in); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	// A real ed25519 public key.
	if !IsOnCurve("6x5SYnLroiN7WYq8NQYU9KHcH4YjpBbwpUfVu3EB7ieH") {
		t.Error("expected a wallet public key to be on curve")
	}
	if IsOnCurve("bogus") {
		t.Error("IsOnCurve(bogus) = true, want false")
	}
	if IsOnCurve("") {
		t.Error("IsOnCurve(\"\") = true, want false")
	}
}
