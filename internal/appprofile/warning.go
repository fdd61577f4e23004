package appprofile

// WarningCode categorizes non-fatal problems.
type WarningCode uint8

const (
	// WarnDanglingProfile indicates a rule that names a missing profile.
	WarnDanglingProfile WarningCode = iota
	// WarnProfileOverwrite indicates a create or rename that replaces an
	// existing profile.
	WarnProfileOverwrite
	// WarnEmptyProfileName indicates a profile with an empty name.
	WarnEmptyProfileName
	// WarnUnrecognizedKey indicates a setting key the driver does not know.
	WarnUnrecognizedKey
	// WarnShadowedProfile indicates a profile defined in more than one file.
	WarnShadowedProfile
	// WarnUnknownFeature indicates a loaded rule with an unknown feature.
	WarnUnknownFeature
	// WarnUnreadableEntry indicates a search path entry that was skipped.
	WarnUnreadableEntry
	// WarnUnsavedChanges indicates edits that have not been saved.
	WarnUnsavedChanges
	// WarnExternallyModified indicates files changed on disk since load.
	WarnExternallyModified
	// WarnDuplicateFile indicates a file reached by more than one search
	// path entry.
	WarnDuplicateFile
)

// String returns a short name for the warning code.
func (c WarningCode) String() string {
	switch c {
	case WarnDanglingProfile:
		return "dangling_profile"
	case WarnProfileOverwrite:
		return "profile_overwrite"
	case WarnEmptyProfileName:
		return "empty_profile_name"
	case WarnUnrecognizedKey:
		return "unrecognized_key"
	case WarnShadowedProfile:
		return "shadowed_profile"
	case WarnUnknownFeature:
		return "unknown_feature"
	case WarnUnreadableEntry:
		return "unreadable_entry"
	case WarnUnsavedChanges:
		return "unsaved_changes"
	case WarnExternallyModified:
		return "externally_modified"
	case WarnDuplicateFile:
		return "duplicate_file"
	default:
		return "unknown"
	}
}

// Warning is a non-fatal problem. Callers may proceed after showing it.
type Warning struct {
	Code WarningCode
	// Path is the file involved, if any.
	Path string
	// RuleID is set for rule warnings.
	RuleID int
	// Profile is set for profile warnings.
	Profile string
	// Key is set for setting warnings.
	Key string
	// Message is a sentence suitable for display.
	Message string
}

// String returns the warning message.
func (w Warning) String() string {
	return w.Message
}
