package registry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes registry HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a registry HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ActorLocal is the fiber locals key under which the auth middleware stores
// the verified caller capability.
const ActorLocal = "registry_actor"

func actorFrom(c *fiber.Ctx) Actor {
	actor, _ := c.Locals(ActorLocal).(Actor)
	return actor
}

type tokenResponse struct {
	TokenID         int64      `json:"token_id"`
	Owner           string     `json:"owner"`
	ProfileHash     string     `json:"profile_hash"`
	ReputationScore int32      `json:"reputation_score"`
	Active          bool       `json:"active"`
	TokenURI        string     `json:"token_uri"`
	MintedAt        time.Time  `json:"minted_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

func toTokenResponse(t Token) tokenResponse {
	return tokenResponse{
		TokenID:         t.ID,
		Owner:           t.Owner,
		ProfileHash:     t.ProfileHash,
		ReputationScore: t.ReputationScore,
		Active:          t.Active,
		TokenURI:        t.TokenURI,
		MintedAt:        t.MintedAt,
		RevokedAt:       t.RevokedAt,
	}
}

type mintRequest struct {
	Owner           string `json:"owner"`
	ProfileHash     string `json:"profile_hash"`
	ReputationScore int32  `json:"reputation_score"`
	TokenURI        string `json:"token_uri"`
}

// Mint issues a new passport token.
func (h *Handler) Mint(c *fiber.Ctx) error {
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.Mint(c.UserContext(), actorFrom(c), MintInput{
		Owner:           req.Owner,
		ProfileHash:     req.ProfileHash,
		ReputationScore: req.ReputationScore,
		TokenURI:        req.TokenURI,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(toTokenResponse(token))
}

type reputationRequest struct {
	ReputationScore int32 `json:"reputation_score"`
}

// UpdateReputation overwrites a token's reputation score.
func (h *Handler) UpdateReputation(c *fiber.Ctx) error {
	tokenID, err := tokenIDParam(c)
	if err != nil {
		return err
	}
	var req reputationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.UpdateReputationScore(c.UserContext(), actorFrom(c), tokenID, req.ReputationScore)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toTokenResponse(token))
}

type profileHashRequest struct {
	ProfileHash string `json:"profile_hash"`
}

// UpdateProfileHash overwrites a token's profile fingerprint.
func (h *Handler) UpdateProfileHash(c *fiber.Ctx) error {
	tokenID, err := tokenIDParam(c)
	if err != nil {
		return err
	}
	var req profileHashRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, err := h.service.UpdateProfileHash(c.UserContext(), actorFrom(c), tokenID, req.ProfileHash)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toTokenResponse(token))
}

// Revoke permanently deactivates a token.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	tokenID, err := tokenIDParam(c)
	if err != nil {
		return err
	}
	token, err := h.service.Revoke(c.UserContext(), actorFrom(c), tokenID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toTokenResponse(token))
}

// Get returns one token record.
func (h *Handler) Get(c *fiber.Ctx) error {
	tokenID, err := tokenIDParam(c)
	if err != nil {
		return err
	}
	token, err := h.service.Get(c.UserContext(), tokenID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toTokenResponse(token))
}

// Supply returns the total number of tokens ever minted.
func (h *Handler) Supply(c *fiber.Ctx) error {
	count, err := h.service.TotalSupply(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"total_supply": count})
}

// TokenByOwner resolves a wallet to its token, if any.
func (h *Handler) TokenByOwner(c *fiber.Ctx) error {
	owner := c.Params("address")
	token, exists, err := h.service.GetTokenByOwner(c.UserContext(), owner)
	if err != nil {
		return respondError(c, err)
	}
	if !exists {
		return c.Status(http.StatusOK).JSON(fiber.Map{"exists": false})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"exists": true, "token": toTokenResponse(token)})
}

// TokenByOwnerIndex resolves a wallet's token at an enumeration index.
func (h *Handler) TokenByOwnerIndex(c *fiber.Ctx) error {
	owner := c.Params("address")
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid index")
	}
	tokenID, err := h.service.TokenByOwnerIndex(c.UserContext(), owner, index)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"token_id": tokenID})
}

// Transfer unconditionally rejects ownership changes. The endpoint exists so
// callers receive the dedicated error kind instead of a routing miss.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	return respondError(c, ErrNonTransferable)
}

// Approve unconditionally rejects transfer-right grants.
func (h *Handler) Approve(c *fiber.Ctx) error {
	return respondError(c, ErrNonApprovable)
}

type roleRequest struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

// GrantRole adds a role to an address.
func (h *Handler) GrantRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.GrantRole(c.UserContext(), actorFrom(c), req.Address, Role(req.Role)); err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"address": req.Address, "role": req.Role, "granted": true})
}

// RevokeRole removes a role from an address.
func (h *Handler) RevokeRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.RevokeRole(c.UserContext(), actorFrom(c), req.Address, Role(req.Role)); err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"address": req.Address, "role": req.Role, "granted": false})
}

// Events serves the change log to off-process indexers.
func (h *Handler) Events(c *fiber.Ctx) error {
	afterSeq, _ := strconv.ParseInt(c.Query("after", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	log, err := h.service.Events(c.UserContext(), afterSeq, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"events": log})
}

func tokenIDParam(c *fiber.Ctx) (int64, error) {
	tokenID, err := strconv.ParseInt(c.Params("tokenId"), 10, 64)
	if err != nil || tokenID < 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid token id")
	}
	return tokenID, nil
}

// respondError maps registry sentinels to HTTP statuses with stable error
// codes for off-chain callers.
func respondError(c *fiber.Ctx, err error) error {
	code := "INTERNAL"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrUnauthorized):
		code, status = "UNAUTHORIZED", http.StatusForbidden
	case errors.Is(err, ErrDuplicateIdentity):
		code, status = "DUPLICATE_IDENTITY", http.StatusConflict
	case errors.Is(err, ErrInvalidReputation):
		code, status = "INVALID_REPUTATION", http.StatusBadRequest
	case errors.Is(err, ErrEmptyProfileHash):
		code, status = "EMPTY_PROFILE_HASH", http.StatusBadRequest
	case errors.Is(err, ErrTokenNotFound):
		code, status = "TOKEN_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, ErrTokenRevoked):
		code, status = "TOKEN_REVOKED", http.StatusConflict
	case errors.Is(err, ErrAlreadyRevoked):
		code, status = "ALREADY_REVOKED", http.StatusConflict
	case errors.Is(err, ErrNonTransferable):
		code, status = "NON_TRANSFERABLE", http.StatusConflict
	case errors.Is(err, ErrNonApprovable):
		code, status = "NON_APPROVABLE", http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		code, status = "INVALID_INPUT", http.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{"code": code, "error": err.Error()})
}
