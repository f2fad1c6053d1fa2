package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nomad-pass/nomad_pass/internal/registry"
)

// Handler exposes login and operator provisioning endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds the auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type credentialsRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`
}

// Login validates operator credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.svc.Login(c.UserContext(), Credentials{Address: req.Address, Secret: req.Secret})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}
	return c.Status(http.StatusOK).JSON(token)
}

// Provision registers a new operator. Admin only.
func (h *Handler) Provision(c *fiber.Ctx) error {
	actor, _ := c.Locals(registry.ActorLocal).(registry.Actor)
	if !actor.HasRole(registry.RoleAdmin) {
		return fiber.NewError(http.StatusForbidden, "admin role required")
	}

	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	operator, err := h.svc.Provision(c.UserContext(), Credentials{Address: req.Address, Secret: req.Secret})
	if err != nil {
		if errors.Is(err, ErrOperatorExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"operator_id": operator.ID,
		"address":     operator.Address,
		"created_at":  operator.CreatedAt,
	})
}
