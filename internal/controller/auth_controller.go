package controller

import (
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Signup(ctx *fiber.Ctx) error
	SendOtp(ctx *fiber.Ctx) error
	VerifyOtp(ctx *fiber.Ctx) error
	ForgotPassword(ctx *fiber.Ctx) error
	ChangePassword(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
	auth    fiber.Handler
}

func NewAuthController(service service.IAuthService, auth fiber.Handler) IAuthController {
	return &authController{service: service, auth: auth}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/signup", c.Signup)
	h.Post("/send-otp", c.SendOtp)
	h.Post("/verify-otp", c.VerifyOtp)
	h.Post("/forgot-password", c.ForgotPassword)
	h.Post("/change-password", c.auth, c.ChangePassword)
}

// parseBody decodes and validates a JSON request body into req.
func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func (c *authController) Signup(ctx *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Signup(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	body := serverutils.SuccessResponse("User registered successfully", res)
	body.Code = fiber.StatusCreated
	return ctx.Status(fiber.StatusCreated).JSON(body)
}

func (c *authController) SendOtp(ctx *fiber.Ctx) error {
	var req dto.SendOtpRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SendOtp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("OTP sent successfully", res))
}

func (c *authController) VerifyOtp(ctx *fiber.Ctx) error {
	var req dto.VerifyOtpRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.VerifyOtp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("OTP verified successfully", res))
}

func (c *authController) ForgotPassword(ctx *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.ForgotPassword(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Password reset OTP sent", res))
}

func (c *authController) ChangePassword(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ChangePasswordRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	if err := c.service.ChangePassword(ctx.UserContext(), userId, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Password changed successfully", nil))
}
