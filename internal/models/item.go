package models

import (
	"time"

	"github.com/google/uuid"
)

// Tradable item categories. ItemTypeResource marks fungible listings
// (an amount of a resource rather than a discrete row).
const (
	ItemTypeArtifact = "artifact"
	ItemTypeGalaxy   = "galaxy"
	ItemTypeResource = "resource"
	ItemTypePackage  = "package"
	ItemTypeTask     = "task"
	ItemTypeEvent    = "event"
	ItemTypeUpgrade  = "upgrade"
)

func KnownItemType(t string) bool {
	switch t {
	case ItemTypeArtifact, ItemTypeGalaxy, ItemTypeResource, ItemTypePackage,
		ItemTypeTask, ItemTypeEvent, ItemTypeUpgrade:
		return true
	}
	return false
}

// GameItem is a discrete ownable item. IsReserved excludes it from the
// owner's transferable set while an active offer references it.
type GameItem struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ItemType   string    `json:"item_type"`
	Name       string    `json:"name"`
	IsReserved bool      `json:"is_reserved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
