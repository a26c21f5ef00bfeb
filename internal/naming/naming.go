// Package naming maps (workspace, logical name) pairs to the physical
// names stored in the vector database, and back.
//
// Physical Name Format:
//
// Every collection a workspace owns is stored under a prefixed name:
//
//	{FormatTenant(workspace)}{Delimiter}{logical}
//
// The delimiter is a multi-character sentinel that cannot occur in
// ordinary logical names, so the mapping is unambiguous and reversible.
// Artifact names for applications and sessions nest below the physical
// collection name with a second, distinct delimiter:
//
//	{physical}:{application_id}
//	{physical}:{application_id}:{session_id}
//
// All functions here are pure; the package holds no state.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// Delimiter separates the workspace prefix from the logical
	// collection name. Multi-character so it cannot collide with
	// user-supplied names by accident.
	Delimiter = "__DELIM__"

	// ArtifactDelimiter separates hierarchy levels in artifact names.
	// Must differ from Delimiter and never appear in application or
	// session identifiers.
	ArtifactDelimiter = ":"

	// SharedWorkspace is the reserved namespace that owns collection
	// artifacts. It is not a real caller workspace.
	SharedWorkspace = "SHARED"
)

// ErrInvalidName indicates a user-supplied name contains a reserved
// delimiter sequence.
var ErrInvalidName = errors.New("invalid name")

// FormatTenant formats a workspace identifier for use as a name prefix.
// Hyphens become underscores and the first rune is capitalized.
// Deterministic and total; there is no failure mode.
func FormatTenant(tenant string) string {
	formatted := strings.ReplaceAll(tenant, "-", "_")
	if formatted == "" {
		return formatted
	}
	runes := []rune(formatted)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// PartitionName formats a workspace identifier for use as a tenant
// partition key in the vector store. Lowercased, with "|" (common in
// OAuth subject identifiers) replaced by "_".
func PartitionName(tenant string) string {
	return strings.ReplaceAll(strings.ToLower(tenant), "|", "_")
}

// FullName returns the physical collection name for a logical name
// owned by the given workspace.
//
// Returns ErrInvalidName if logical contains the workspace delimiter;
// names are never silently truncated.
func FullName(tenant, logical string) (string, error) {
	if strings.Contains(logical, Delimiter) {
		return "", fmt.Errorf("%w: collection name %q must not contain %q", ErrInvalidName, logical, Delimiter)
	}
	return FormatTenant(tenant) + Delimiter + logical, nil
}

// FullNames is the vectorized form of FullName. It fails on the first
// invalid logical name.
func FullNames(tenant string, logicals []string) ([]string, error) {
	names := make([]string, 0, len(logicals))
	for _, logical := range logicals {
		name, err := FullName(tenant, logical)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// ShortName strips the workspace prefix from a physical name. Names
// that were never prefixed are returned unchanged.
func ShortName(physical string) string {
	if idx := strings.Index(physical, Delimiter); idx >= 0 {
		return physical[idx+len(Delimiter):]
	}
	return physical
}

// IsInTenant reports whether a physical name belongs to the given
// workspace's namespace.
func IsInTenant(physical, tenant string) bool {
	return strings.HasPrefix(physical, FormatTenant(tenant)+Delimiter)
}

// CollectionArtifactName returns the tracker artifact name that mirrors
// a collection. It is the physical collection name itself.
func CollectionArtifactName(tenant, logical string) (string, error) {
	return FullName(tenant, logical)
}

// ApplicationArtifactName returns the tracker artifact name for an
// application within a collection. physical must already carry the
// workspace prefix.
//
// Returns ErrInvalidName if applicationID contains the artifact
// delimiter.
func ApplicationArtifactName(physical, applicationID string) (string, error) {
	if strings.Contains(applicationID, ArtifactDelimiter) {
		return "", fmt.Errorf("%w: application id %q must not contain %q", ErrInvalidName, applicationID, ArtifactDelimiter)
	}
	return physical + ArtifactDelimiter + applicationID, nil
}

// SessionRecordName returns the tracker record name for a session
// nested under an application.
//
// Returns ErrInvalidName if sessionID contains the artifact delimiter.
func SessionRecordName(physical, applicationID, sessionID string) (string, error) {
	appName, err := ApplicationArtifactName(physical, applicationID)
	if err != nil {
		return "", err
	}
	if strings.Contains(sessionID, ArtifactDelimiter) {
		return "", fmt.Errorf("%w: session id %q must not contain %q", ErrInvalidName, sessionID, ArtifactDelimiter)
	}
	return appName + ArtifactDelimiter + sessionID, nil
}
