package cache

import (
	"fmt"
	"strings"
)

// Tag types used by the resource client.
const (
	TypeUser      = "User"
	TypeDeal      = "Deal"
	TypeDeals     = "Deals"
	TypeDocument  = "Document"
	TypeAnalysis  = "Analysis"
	TypeExport    = "Export"
	TypeFilter    = "Filter"
	TypeDashboard = "Dashboard"
)

// Tag labels a cached response. A Tag with an empty ID is coarse.
type Tag struct {
	Type string
	ID   string
}

// T returns a coarse tag.
func T(typ string) Tag {
	return Tag{Type: typ}
}

// ID returns a tag scoped to one entity.
func ID(typ string, id interface{}) Tag {
	return Tag{Type: typ, ID: fmt.Sprint(id)}
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// Matches reports whether invalidating t affects an entry that provided p. A coarse
// tag matches every tag of its type; a scoped tag matches only the same id.
func (t Tag) Matches(p Tag) bool {
	if t.Type != p.Type {
		return false
	}
	return t.ID == "" || t.ID == p.ID
}

// ParseTag is the inverse of String.
func ParseTag(s string) Tag {
	typ, id, _ := strings.Cut(s, ":")
	return Tag{Type: typ, ID: id}
}

func matchesAny(invalidated []Tag, provided []Tag) bool {
	for _, inv := range invalidated {
		for _, p := range provided {
			if inv.Matches(p) {
				return true
			}
		}
	}
	return false
}
