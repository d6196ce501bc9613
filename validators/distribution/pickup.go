package distributionValidator

import (
	"amap/validators"

	"github.com/gofiber/fiber/v2"
)

type MarkPickupRequest struct {
	WasPickedUp *bool  `json:"wasPickedUp" validate:"required"`
	Notes       string `json:"notes" validate:"max=1000"`
}

// MarkPickup validates a full pickup record
func MarkPickup() fiber.Handler {
	return validators.Body[MarkPickupRequest]("validatedMarkPickup", nil)
}

type PickupStateRequest struct {
	WasPickedUp *bool `json:"wasPickedUp" validate:"required"`
}

// SetPickupState validates a pickup state change
func SetPickupState() fiber.Handler {
	return validators.Body[PickupStateRequest]("validatedPickupState", nil)
}

type PickupNoteRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// SetPickupNote validates a pickup note
func SetPickupNote() fiber.Handler {
	return validators.Body[PickupNoteRequest]("validatedPickupNote", nil)
}
