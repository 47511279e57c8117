package cli

import (
	"strings"
	"testing"
)

func TestCheckRequirement(t *testing.T) {
	tests := []struct {
		constraint string
		wantErr    bool
	}{
		{"", false},
		{">= 0.1.0", false},
		{">= 0.3.0, < 1.0.0", false},
		{"~0.3", false},
		{">= 1.0.0", true},
		{"< 0.3.0", true},
		{"not a constraint", true},
	}
	for _, tt := range tests {
		err := CheckRequirement(tt.constraint)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckRequirement(%q) = %v, wantErr %t", tt.constraint, err, tt.wantErr)
		}
	}
}

func TestCheckRequirementMessage(t *testing.T) {
	err := CheckRequirement(">= 9.0.0")
	if err == nil || !strings.Contains(err.Error(), Version) {
		t.Fatalf("error %v should name the runtime version", err)
	}
}
