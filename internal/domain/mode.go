package domain

import "fmt"

// AccessMode controls which operations the server accepts.
type AccessMode string

// Access modes.
const (
	ModeRead      AccessMode = "read"
	ModeWrite     AccessMode = "write"
	ModeReadWrite AccessMode = "wr"
)

// ParseAccessMode parses a mode name. Empty means read-write.
func ParseAccessMode(s string) (AccessMode, error) {
	switch AccessMode(s) {
	case "":
		return ModeReadWrite, nil
	case ModeRead, ModeWrite, ModeReadWrite:
		return AccessMode(s), nil
	default:
		return "", fmt.Errorf("unknown access mode %q (want read, write or wr): %w", s, ErrInvalidRequest)
	}
}

// CanWrite reports whether mutating operations are allowed.
func (m AccessMode) CanWrite() bool { return m != ModeRead }

// RequireWrite returns ErrReadOnly when writes are disabled.
func (m AccessMode) RequireWrite() error {
	if !m.CanWrite() {
		return ErrReadOnly
	}
	return nil
}

func (m AccessMode) String() string { return string(m) }
