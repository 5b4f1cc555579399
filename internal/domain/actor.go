package domain

import (
	"encoding/json"
	"fmt"
)

// ActorKind tags the kind of identity performing an action.
type ActorKind int

const (
	ActorKindUnknown ActorKind = iota
	ActorKindInternal
	ActorKindPMCollaborator
	ActorKindGuest
)

// ParseActorKind converts the stored author_type string into an ActorKind.
func ParseActorKind(s string) (ActorKind, error) {
	switch s {
	case "internal":
		return ActorKindInternal, nil
	case "pm_collaborator":
		return ActorKindPMCollaborator, nil
	case "guest":
		return ActorKindGuest, nil
	}
	return ActorKindUnknown, fmt.Errorf("unknown actor kind %q", s)
}

// String returns the wire/storage form of the kind.
func (k ActorKind) String() string {
	switch k {
	case ActorKindInternal:
		return "internal"
	case ActorKindPMCollaborator:
		return "pm_collaborator"
	case ActorKindGuest:
		return "guest"
	case ActorKindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Label returns the human readable label shown next to an author name.
func (k ActorKind) Label() string {
	switch k {
	case ActorKindInternal:
		return "Team"
	case ActorKindPMCollaborator:
		return "Project Manager"
	case ActorKindGuest:
		return "Guest"
	case ActorKindUnknown:
		return ""
	}
	return ""
}

// Valid reports whether k is one of the concrete actor kinds.
func (k ActorKind) Valid() bool {
	switch k {
	case ActorKindInternal, ActorKindPMCollaborator, ActorKindGuest:
		return true
	case ActorKindUnknown:
		return false
	}
	return false
}

// MarshalJSON encodes the kind as its string form.
func (k ActorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes the kind from its string form.
func (k *ActorKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseActorKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Actor is the resolved identity performing an action, regardless of how it
// authenticated.
type Actor struct {
	Kind  ActorKind `json:"type"`
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// Internal reports whether the actor is a staff member.
func (a Actor) Internal() bool {
	return a.Kind == ActorKindInternal
}

// Portal identifies a token-scoped entry point.
type Portal string

const (
	PortalReview    Portal = "review"
	PortalPM        Portal = "pm"
	PortalDeveloper Portal = "developer"
)

// PortalContext is the result of resolving a portal token.
type PortalContext struct {
	Portal   Portal   `json:"portal"`
	Actor    Actor    `json:"actor"`
	Session  *Session `json:"session"`
	ReadOnly bool     `json:"read_only"`
}
