package descriptor

import "errors"

var (
	// ErrInvalidDescriptor indicates a missing or malformed descriptor field
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrUnsupportedFormat indicates a descriptor file extension that cannot be decoded
	ErrUnsupportedFormat = errors.New("unsupported descriptor format")
	// ErrRuleOverlap indicates a file extension matched by more than one rule
	ErrRuleOverlap = errors.New("extension matched by multiple rules")
	// ErrUncoveredExtension indicates a file extension no rule or native loader handles
	ErrUncoveredExtension = errors.New("extension not matched by any rule")
	// ErrAliasUnresolved indicates an alias whose target module does not exist
	ErrAliasUnresolved = errors.New("alias target not found")
)
