package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"dayflow/internal/engine"
	"dayflow/internal/services"
)

// SchedulerHandler handles conversational scheduling HTTP requests
type SchedulerHandler struct {
	scheduler *services.SchedulerService
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler *services.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

type messageRequest struct {
	Text string `json:"text"`
}

type confirmRequest struct {
	ProposalID string `json:"proposalId"`
}

type replaceRequest struct {
	ProposalID   string `json:"proposalId"`
	CommitmentID string `json:"commitmentId"`
}

// Message processes one conversation turn
// POST /api/scheduler/message
func (h *SchedulerHandler) Message(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message text is required",
		})
	}

	reply, err := h.scheduler.ProcessMessage(c.Context(), userID, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrTurnInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Still working on your previous message",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(reply)
}

// Confirm commits a pending proposal
// POST /api/scheduler/proposals/confirm
func (h *SchedulerHandler) Confirm(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil || req.ProposalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "proposalId is required",
		})
	}

	committed, err := h.scheduler.Confirm(c.Context(), userID, req.ProposalID)
	if err != nil {
		return schedulerError(c, err, "Failed to confirm proposal")
	}

	return c.JSON(fiber.Map{
		"committed": committed,
		"canUndo":   true,
	})
}

// Reslot moves a pending proposal to an energy-biased free slot
// POST /api/scheduler/proposals/reslot
func (h *SchedulerHandler) Reslot(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil || req.ProposalID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "proposalId is required",
		})
	}

	proposal, err := h.scheduler.Reslot(c.Context(), userID, req.ProposalID)
	if err != nil {
		return schedulerError(c, err, "Failed to reslot proposal")
	}

	return c.JSON(fiber.Map{"proposal": proposal})
}

// Slots lists candidate slots for a pending proposal
// GET /api/scheduler/proposals/:id/slots
func (h *SchedulerHandler) Slots(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	slots, err := h.scheduler.CandidateSlots(c.Context(), userID, c.Params("id"))
	if err != nil {
		return schedulerError(c, err, "Failed to list slots")
	}

	return c.JSON(fiber.Map{"slots": slots})
}

// Replace resolves a conflict by replacing the conflicting event
// POST /api/scheduler/conflicts/replace
func (h *SchedulerHandler) Replace(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req replaceRequest
	if err := c.BodyParser(&req); err != nil || req.ProposalID == "" || req.CommitmentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "proposalId and commitmentId are required",
		})
	}

	committed, err := h.scheduler.ResolveReplace(c.Context(), userID, req.ProposalID, req.CommitmentID)
	if err != nil {
		return schedulerError(c, err, "Failed to replace event")
	}

	return c.JSON(fiber.Map{
		"committed": committed,
		"canUndo":   true,
	})
}

// Undo reverses the last commit if its window is still open
// POST /api/scheduler/undo
func (h *SchedulerHandler) Undo(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	entry, undone, err := h.scheduler.Undo(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to undo",
		})
	}
	if !undone {
		return c.JSON(fiber.Map{
			"undone":  false,
			"message": "Nothing to undo. The undo window may have expired.",
		})
	}

	return c.JSON(fiber.Map{
		"undone": true,
		"action": entry.ActionKind,
	})
}

// Reset discards the user's conversation
// POST /api/scheduler/reset
func (h *SchedulerHandler) Reset(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	if err := h.scheduler.Reset(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reset session",
		})
	}

	return c.JSON(fiber.Map{"reset": true})
}

// Session returns the current conversation and clarification state
// GET /api/scheduler/session
func (h *SchedulerHandler) Session(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	return c.JSON(h.scheduler.Session(c.Context(), userID))
}

// schedulerError maps classified engine errors onto HTTP statuses
func schedulerError(c *fiber.Ctx, err error, fallback string) error {
	switch engine.KindOf(err) {
	case engine.ErrorKindProposalInvalid:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	case engine.ErrorKindPolicyViolation:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}
