package routes

import (
	"github.com/fathima-sithara/user-service/internal/handlers"
	"github.com/gofiber/fiber/v2"
)

// Setup wires the API routes. OTP and reset issuance sit behind the Redis
// rate limiter; everything touching the caller's own account requires a
// valid identity token.
func Setup(app *fiber.App, h *handlers.Handler, auth fiber.Handler, otpLimit fiber.Handler) {
	api := app.Group("/api/v1")

	authGrp := api.Group("/auth")
	authGrp.Post("/register", h.Register)
	authGrp.Post("/login", h.Login)
	authGrp.Post("/otp/request", auth, otpLimit, h.RequestOTP)
	authGrp.Post("/otp/verify", auth, h.VerifyOTP)
	authGrp.Post("/password/forgot", otpLimit, h.ForgotPassword)
	authGrp.Post("/password/reset", h.ResetPassword)
	authGrp.Post("/password/change", auth, h.ChangePassword)

	users := api.Group("/users")
	users.Post("/:id/follow", auth, h.Follow)
	users.Delete("/:id/follow", auth, h.Unfollow)
	users.Get("/:id/followers", h.ListFollowers)
	users.Get("/:id/following", h.ListFollowing)
}
