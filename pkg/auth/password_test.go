package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret1!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("Secret1!", hash) {
		t.Error("CheckPasswordHash rejected the right password")
	}
	if CheckPasswordHash("secret1!", hash) {
		t.Error("CheckPasswordHash accepted a wrong password")
	}
	if CheckPasswordHash("Secret1!", "") {
		t.Error("CheckPasswordHash accepted an empty hash")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Secret1!", true},
		{"Abcdef1@", true},
		{"Sh0rt!", false},
		{"alllower1!", false},
		{"ALLUPPER1!", false},
		{"NoDigits!!", false},
		{"NoSpecial12", false},
		{"Bad1+plus", false},
	}
	for _, tt := range tests {
		err := ValidatePasswordStrength(tt.password)
		if (err == nil) != tt.ok {
			t.Errorf("ValidatePasswordStrength(%q) = %v, want ok=%v", tt.password, err, tt.ok)
		}
	}
}

func TestValidatePasswords(t *testing.T) {
	if err := ValidatePasswords("Secret1!", "Secret1!"); err != nil {
		t.Errorf("matching passwords: %v", err)
	}
	if err := ValidatePasswords("Secret1!", "Secret2!"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("mismatch = %v, want ErrPasswordMismatch", err)
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	b, _ := GenerateToken()
	if len(a) != 32 || a == b {
		t.Errorf("unexpected tokens %q %q", a, b)
	}
}
