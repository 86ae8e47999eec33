package config

import "fmt"

// CurrentVersion is the configuration format this build reads. A file
// without a version is read as the current format.
const CurrentVersion = 1

// VersionError reports a configuration file this build cannot read.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Version < 0 {
		return fmt.Sprintf("config version %d is invalid", e.Version)
	}
	return fmt.Sprintf("config version %d was written for a newer nqbench (this build reads up to %d); upgrade nqbench", e.Version, CurrentVersion)
}

// ValidateVersion accepts 0 (unset) through CurrentVersion.
func ValidateVersion(version int) error {
	if version < 0 || version > CurrentVersion {
		return &VersionError{Version: version}
	}
	return nil
}
