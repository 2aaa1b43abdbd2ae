package controller

import (
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	SubscribePro(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
	HandleMidtransWebhook(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.ISubscriptionService
	auth    fiber.Handler
}

func NewSubscriptionController(service service.ISubscriptionService, auth fiber.Handler) ISubscriptionController {
	return &subscriptionController{service: service, auth: auth}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	r.Post("/subscribe/pro", c.auth, c.SubscribePro)
	r.Get("/subscription/status", c.auth, c.GetStatus)

	// Called by Midtrans, authenticated by signature instead of JWT.
	r.Post("/webhook/midtrans", c.HandleMidtransWebhook)
}

func (c *subscriptionController) SubscribePro(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SubscribePro(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout session created", res))
}

func (c *subscriptionController) GetStatus(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetStatus(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription status", res))
}

func (c *subscriptionController) HandleMidtransWebhook(ctx *fiber.Ctx) error {
	var n dto.MidtransNotification
	if err := ctx.BodyParser(&n); err != nil {
		return apperror.BadRequest("Invalid notification body")
	}

	if err := c.service.HandleNotification(ctx.UserContext(), &n); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"received": true})
}
