package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"dayflow/internal/models"
	"dayflow/internal/services"
)

// PreferencesHandler handles scheduling preference requests
type PreferencesHandler struct {
	preferences *services.PreferenceService
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(preferences *services.PreferenceService) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences}
}

// Get returns the user's preferences, defaults if never saved
// GET /api/preferences
func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	prefs, err := h.preferences.Get(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get preferences",
		})
	}

	return c.JSON(prefs)
}

// Update applies a partial preferences update
// PUT /api/preferences
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.UpdatePreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := validatePreferences(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	prefs, err := h.preferences.Update(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update preferences",
		})
	}

	return c.JSON(prefs)
}

// validatePreferences rejects values the scheduler cannot work with
func validatePreferences(req *models.UpdatePreferencesRequest) error {
	for name, v := range map[string]*int{
		"defaultTaskMinutes":         req.DefaultTaskMinutes,
		"defaultEventMinutes":        req.DefaultEventMinutes,
		"reminderLeadMinutes":        req.ReminderLeadMinutes,
		"bufferBetweenEventsMinutes": req.BufferBetweenEventsMinutes,
	} {
		if v != nil && (*v < 0 || *v > 24*60) {
			return fiber.NewError(fiber.StatusBadRequest, name+" must be between 0 and 1440")
		}
	}
	for name, v := range map[string]*string{
		"peakStart":  req.PeakStart,
		"peakEnd":    req.PeakEnd,
		"slumpStart": req.SlumpStart,
		"slumpEnd":   req.SlumpEnd,
	} {
		if v != nil && !validClock(*v) {
			return fiber.NewError(fiber.StatusBadRequest, name+" must be HH:MM")
		}
	}
	return nil
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
