package controller

import (
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

type IChatroomController interface {
	RegisterRoutes(r fiber.Router)
	CreateChatroom(ctx *fiber.Ctx) error
	GetChatrooms(ctx *fiber.Ctx) error
	GetChatroom(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
}

type chatroomController struct {
	service   service.IChatroomService
	admission service.IAdmissionService
	auth      fiber.Handler
}

func NewChatroomController(service service.IChatroomService, admission service.IAdmissionService, auth fiber.Handler) IChatroomController {
	return &chatroomController{service: service, admission: admission, auth: auth}
}

func (c *chatroomController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatroom")
	h.Use(c.auth)
	h.Post("/", c.CreateChatroom)
	h.Get("/", c.GetChatrooms)
	h.Get("/:id", c.GetChatroom)
	h.Post("/:id/message", c.checkDailyLimit, c.SendMessage)
}

// checkDailyLimit rejects capped BASIC users before the body is read and
// leaves the loaded user for the handler.
func (c *chatroomController) checkDailyLimit(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	user, err := c.admission.LoadUser(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	if err := c.admission.CheckDailyLimit(ctx.UserContext(), user); err != nil {
		return err
	}

	ctx.Locals(userLocal, user)
	return ctx.Next()
}

func chatroomID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		// Not a valid id means it cannot be one of the caller's chatrooms.
		return uuid.Nil, apperror.NotFound("Chatroom not found")
	}
	return id, nil
}

func (c *chatroomController) CreateChatroom(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateChatroomRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.CreateChatroom(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	body := serverutils.SuccessResponse("Chatroom created successfully", res)
	body.Code = fiber.StatusCreated
	return ctx.Status(fiber.StatusCreated).JSON(body)
}

func (c *chatroomController) GetChatrooms(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetChatrooms(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chatrooms", res))
}

func (c *chatroomController) GetChatroom(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	id, err := chatroomID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetChatroom(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chatroom", res))
}

func (c *chatroomController) SendMessage(ctx *fiber.Ctx) error {
	user, ok := ctx.Locals(userLocal).(*entity.User)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	id, err := chatroomID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), user, id, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.AcceptedResponse("Message queued for processing", res))
}
