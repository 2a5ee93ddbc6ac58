package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTagLength is the longest a trimmed tag string may be.
const MaxTagLength = 255

// ReservationKey identifies a reservation by the pair (path, tag). Path is
// always absolute. Tag, when present, is non-empty after trimming, at most
// MaxTagLength characters, and contains no NUL byte. (path, nil) and
// (path, "some-tag") are distinct keys — this is modeled with a pointer
// rather than an empty string so the zero value is unambiguous.
type ReservationKey struct {
	Path string
	Tag  *string
}

// NewReservationKey validates and builds a key. tag == nil means "no tag".
func NewReservationKey(path string, tag *string) (ReservationKey, error) {
	if !strings.HasPrefix(path, "/") && !isWindowsAbs(path) {
		return ReservationKey{}, NewTropError(KindInvalidPath, fmt.Sprintf("reservation path %q is not absolute", path))
	}
	if tag != nil {
		trimmed := strings.TrimSpace(*tag)
		if trimmed == "" {
			return ReservationKey{}, NewTropError(KindValidation, "tag must not be empty after trimming whitespace")
		}
		if len(trimmed) > MaxTagLength {
			return ReservationKey{}, NewTropError(KindValidation, fmt.Sprintf("tag exceeds %d characters", MaxTagLength))
		}
		if strings.ContainsRune(trimmed, 0) {
			return ReservationKey{}, NewTropError(KindValidation, "tag must not contain a NUL byte")
		}
		tag = &trimmed
	}
	return ReservationKey{Path: path, Tag: tag}, nil
}

func isWindowsAbs(path string) bool {
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}

// TagOrEmpty returns the tag string, or "" when untagged. Useful for SQL
// binds where NULL vs "" needs an explicit decision made by the caller.
func (k ReservationKey) TagOrEmpty() string {
	if k.Tag == nil {
		return ""
	}
	return *k.Tag
}

// HasTag reports whether this key carries a tag.
func (k ReservationKey) HasTag() bool {
	return k.Tag != nil
}

// Equal compares two keys by exact string equality of path and tag.
func (k ReservationKey) Equal(other ReservationKey) bool {
	if k.Path != other.Path {
		return false
	}
	if k.HasTag() != other.HasTag() {
		return false
	}
	if k.HasTag() && *k.Tag != *other.Tag {
		return false
	}
	return true
}

// String renders the key for logs and error messages, e.g. "/a/b" or
// "/a/b#api".
func (k ReservationKey) String() string {
	if k.Tag == nil {
		return k.Path
	}
	return fmt.Sprintf("%s#%s", k.Path, *k.Tag)
}

// Reservation is a persistent record binding a ReservationKey to a Port,
// with sticky metadata. See spec.md §3.1 for the full invariant list.
type Reservation struct {
	Key         ReservationKey
	Port        Port
	Project     *string
	Task        *string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	GroupID     *uuid.UUID
}

// NewGroupID allocates a fresh opaque group identifier for reserve-group.
func NewGroupID() uuid.UUID {
	return uuid.New()
}

// Validate checks the invariants that apply to a single Reservation in
// isolation (port range, absolute path, timestamp ordering). Cross-record
// invariants (key/port uniqueness) are enforced by the Store.
func (r *Reservation) Validate() error {
	if r.Port < MinPort || r.Port > MaxPort {
		return NewTropError(KindInvalidPort, fmt.Sprintf("reservation port %d out of range", r.Port))
	}
	if !strings.HasPrefix(r.Key.Path, "/") && !isWindowsAbs(r.Key.Path) {
		return NewTropError(KindInvalidPath, fmt.Sprintf("reservation path %q is not absolute", r.Key.Path))
	}
	if r.CreatedAt.After(r.LastUsedAt) {
		return NewTropError(KindInternal, "created_at must not be after last_used_at")
	}
	return nil
}

// Touch updates LastUsedAt to now, preserving the sticky project/task
// fields and CreatedAt. Used for the idempotent re-reserve path.
func (r *Reservation) Touch(now time.Time) {
	if now.After(r.LastUsedAt) {
		r.LastUsedAt = now
	}
}

// StringPtr is a small convenience constructor used throughout the config
// and planner packages to build *string fields from literals.
func StringPtr(s string) *string {
	return &s
}
