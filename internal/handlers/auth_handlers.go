package handlers

import (
	"errors"

	"github.com/fathima-sithara/user-service/internal/middleware"
	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	accounts *services.AccountService
	social   *services.SocialGraph
	log      *zap.Logger
}

func NewHandler(accounts *services.AccountService, social *services.SocialGraph, log *zap.Logger) *Handler {
	return &Handler{accounts: accounts, social: social, log: log}
}

// statusFor maps service failures to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrAccountLocked), errors.Is(err, services.ErrAccountDisabled):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateKey):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	user, err := h.accounts.Register(c.Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Identifier == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "identifier and password required")
	}
	token, user, err := h.accounts.Authenticate(c.Context(), req.Identifier, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"access_token": token, "user": user})
}

var challengeKinds = map[string]models.ChallengeKind{
	"email_otp":   models.ChallengeEmailOTP,
	"phone_otp":   models.ChallengePhoneOTP,
	"email_token": models.ChallengeEmailToken,
}

type otpRequestReq struct {
	Kind string `json:"kind"`
}

func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequestReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	kind, ok := challengeKinds[req.Kind]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown otp kind")
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	if _, err := h.accounts.IssueOTP(c.Context(), userID, kind); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "otp_sent"})
}

type otpVerifyReq struct {
	Kind string `json:"kind"`
	Code string `json:"code"`
}

func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req otpVerifyReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	kind, ok := challengeKinds[req.Kind]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown otp kind")
	}
	if req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code required")
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.VerifyOTP(c.Context(), userID, kind, req.Code); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "verified"})
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email required")
	}
	_, err := h.accounts.RequestPasswordReset(c.Context(), req.Email)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		return fail(c, err)
	}
	// same response whether or not the account exists
	return c.JSON(fiber.Map{"message": "reset_email_sent"})
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token required")
	}
	if err := h.accounts.CompletePasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "password_updated"})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "password_updated"})
}

// callerID resolves the authenticated user's id from the JWT middleware.
func callerID(c *fiber.Ctx) (primitive.ObjectID, error) {
	raw, _ := c.Locals(middleware.UserIDKey).(string)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "invalid caller identity")
	}
	return id, nil
}
