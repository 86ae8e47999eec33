package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version int
		wantErr string
	}{
		{version: 0},
		{version: CurrentVersion},
		{version: -1, wantErr: "invalid"},
		{version: CurrentVersion + 1, wantErr: "upgrade nqbench"},
	}
	for _, tt := range tests {
		err := ValidateVersion(tt.version)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("ValidateVersion(%d) error = %v", tt.version, err)
			}
			continue
		}
		var ve *VersionError
		if !errors.As(err, &ve) || ve.Version != tt.version {
			t.Fatalf("ValidateVersion(%d) = %v, want *VersionError", tt.version, err)
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("ValidateVersion(%d) message = %q, want %q", tt.version, err, tt.wantErr)
		}
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := writeConfig(t, "nqbench.yaml", "version: 2\n")
	var ve *VersionError
	if _, err := Load(path); !errors.As(err, &ve) {
		t.Fatalf("Load() error = %v, want *VersionError", err)
	}
}
