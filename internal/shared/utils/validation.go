package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Manifest size limits (in bytes)
const (
	MaxManifestSize = 1 * 1024 * 1024 // 1MB - maximum module manifest size
)

// String length limits
const (
	MaxIDLength       = 128
	MaxNameLength     = 256
	MaxMetadataValue  = 2048
	MaxMetadataFields = 64
)

// Regular expressions for validation
var (
	// ModuleNamePattern allows alphanumeric, dots, hyphens, underscores
	ModuleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// PartIDPattern additionally allows slashes for module-qualified part IDs
	PartIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateModuleName validates a module name
func ValidateModuleName(name string) error {
	if err := ValidateString(name, "module name", 1, MaxNameLength, true); err != nil {
		return err
	}
	if !ModuleNamePattern.MatchString(name) {
		return fmt.Errorf("module name %q contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", name)
	}
	return nil
}

// ValidatePartID validates a part ID
func ValidatePartID(id string) error {
	if err := ValidateString(id, "part id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if !PartIDPattern.MatchString(id) {
		return fmt.Errorf("part id %q contains invalid characters", id)
	}
	return nil
}

// ValidateMetadata validates free-form part metadata
func ValidateMetadata(metadata map[string]string) error {
	if len(metadata) > MaxMetadataFields {
		return fmt.Errorf("metadata has %d fields, maximum is %d", len(metadata), MaxMetadataFields)
	}
	for k, v := range metadata {
		if err := ValidateString(k, "metadata key", 1, MaxIDLength, true); err != nil {
			return err
		}
		if err := ValidateString(v, "metadata value "+k, 0, MaxMetadataValue, false); err != nil {
			return err
		}
	}
	return nil
}
