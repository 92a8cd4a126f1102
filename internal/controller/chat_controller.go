package controller

import (
	"strings"

	"book-agent-be/internal/dto"
	"book-agent-be/internal/pkg/serverutils"
	"book-agent-be/pkg/agent"
	"book-agent-be/pkg/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error
	ClearAll(ctx *fiber.Ctx) error
}

type chatController struct {
	agent         *agent.Agent
	memory        *memory.ContextStore
	clearAllToken string
}

func NewChatController(a *agent.Agent, mem *memory.ContextStore, clearAllToken string) IChatController {
	return &chatController{
		agent:         a,
		memory:        mem,
		clearAllToken: clearAllToken,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("", c.Chat)
	h.Delete("sessions", c.ClearAll)
	h.Delete("session/:id", c.ClearSession)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Lang == "" {
		req.Lang = "en"
	}

	result := c.agent.ProcessMessage(ctx.Context(), req.SessionID, req.Message, req.Lang)

	return ctx.JSON(serverutils.SuccessResponse("Success process message", dto.ChatResponse{
		SessionID: req.SessionID,
		Result:    result,
	}))
}

func (c *chatController) ClearSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.memory.Clear(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success clear session", nil))
}

// ClearAll wipes every session. Destructive, so it demands the operator
// confirmation token in the X-Confirm-Clear header.
func (c *chatController) ClearAll(ctx *fiber.Ctx) error {
	token := ctx.Get("X-Confirm-Clear")
	if c.clearAllToken == "" || token != c.clearAllToken {
		return fiber.NewError(fiber.StatusForbidden, "clear-all confirmation token required")
	}

	cleared, err := c.memory.ClearAll(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success clear all sessions", dto.ClearAllResponse{
		SessionsCleared: cleared,
	}))
}
