package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nomad-pass/nomad_pass/internal/registry"
)

// RegisterRegistryReadRoutes wires the side-effect-free registry endpoints.
// Reads are public: anyone may inspect token state and the change log.
func RegisterRegistryReadRoutes(r fiber.Router, h *registry.Handler) {
	r.Get("/tokens", h.Supply)
	r.Get("/tokens/:tokenId", h.Get)
	r.Get("/owners/:address/token", h.TokenByOwner)
	r.Get("/owners/:address/tokens/:index", h.TokenByOwnerIndex)
	r.Get("/events", h.Events)
}

// RegisterRegistryWriteRoutes wires the role-gated mutation endpoints plus
// the unconditional transfer/approval rejections.
func RegisterRegistryWriteRoutes(r fiber.Router, h *registry.Handler) {
	r.Post("/tokens", h.Mint)
	r.Patch("/tokens/:tokenId/reputation", h.UpdateReputation)
	r.Patch("/tokens/:tokenId/profile-hash", h.UpdateProfileHash)
	r.Post("/tokens/:tokenId/revoke", h.Revoke)

	// Soulbound: these endpoints never succeed for any caller or role.
	r.Post("/tokens/:tokenId/transfer", h.Transfer)
	r.Post("/tokens/:tokenId/approve", h.Approve)

	r.Post("/roles/grant", h.GrantRole)
	r.Post("/roles/revoke", h.RevokeRole)
}
