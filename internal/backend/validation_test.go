package backend

import (
	"strings"
	"testing"
)

func TestValidateSSID(t *testing.T) {
	tests := []struct {
		name    string
		ssid    string
		wantErr bool
	}{
		{"Valid: simple", "HomeWiFi", false},
		{"Valid: 32 bytes", strings.Repeat("a", 32), false},
		{"Valid: spaces", "My Home Network", false},
		{"Invalid: empty", "", true},
		{"Invalid: 33 bytes", strings.Repeat("a", 33), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSSID(tt.ssid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSSID(%q) error = %v, wantErr %v", tt.ssid, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		security string
		wantErr  bool
	}{
		{"Open: empty", "", SecurityOpen, false},
		{"Open: with password", "secret123", SecurityOpen, true},
		{"Blank security: empty", "", "", false},
		{"WPA2: valid", "secret123", SecurityWPA2, false},
		{"WPA2: 63 chars", strings.Repeat("p", 63), SecurityWPA2, false},
		{"WPA2: empty", "", SecurityWPA2, true},
		{"WPA2: too short", "short", SecurityWPA2, true},
		{"WPA2: too long", strings.Repeat("p", 64), SecurityWPA2, true},
		{"WPA3: valid", "correct horse", SecurityWPA3, false},
		{"WEP: 5 chars", "abcde", SecurityWEP, false},
		{"WEP: 26 chars", strings.Repeat("a", 26), SecurityWEP, false},
		{"WEP: 7 chars", "abcdefg", SecurityWEP, true},
		{"Unknown: empty", "", SecurityUnknown, false},
		{"Unknown: valid", "secret123", SecurityUnknown, false},
		{"Unknown: too short", "abc", SecurityUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.security)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}
