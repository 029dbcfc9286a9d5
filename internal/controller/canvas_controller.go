package controller

import (
	"errors"

	"canvas-rag-be/internal/dto"
	"canvas-rag-be/internal/pkg/serverutils"
	"canvas-rag-be/internal/service"
	"canvas-rag-be/internal/vault"
	"canvas-rag-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

// StatusClientClosedRequest reports an ask cancelled before it finished.
const StatusClientClosedRequest = 499

type ICanvasController interface {
	RegisterRoutes(r fiber.Router)
	AssembleContext(ctx *fiber.Ctx) error
	FindRelated(ctx *fiber.Ctx) error
	PlaceChild(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	CancelAsk(ctx *fiber.Ctx) error
	ExportContext(ctx *fiber.Ctx) error
}

type canvasController struct {
	service   service.ICanvasService
	jwtSecret string
}

func NewCanvasController(service service.ICanvasService, jwtSecret string) ICanvasController {
	return &canvasController{service: service, jwtSecret: jwtSecret}
}

func (c *canvasController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/canvas/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("context", c.AssembleContext)
	h.Post("related", c.FindRelated)
	h.Post("place", c.PlaceChild)
	h.Post("ask", c.Ask)
	h.Delete("ask", c.CancelAsk)
	h.Post("export", c.ExportContext)
}

func (c *canvasController) AssembleContext(ctx *fiber.Ctx) error {
	var req dto.ContextRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.AssembleContext(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success assemble context", res))
}

func (c *canvasController) FindRelated(ctx *fiber.Ctx) error {
	var req dto.RelatedRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.FindRelated(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success find related documents", res))
}

func (c *canvasController) PlaceChild(ctx *fiber.Ctx) error {
	var req dto.PlaceRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.PlaceChild(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success place node", res))
}

func (c *canvasController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ask", res))
}

func (c *canvasController) CancelAsk(ctx *fiber.Ctx) error {
	cancelled := c.service.CancelAsk()
	return ctx.JSON(serverutils.SuccessResponse("Success cancel ask", fiber.Map{"cancelled": cancelled}))
}

func (c *canvasController) ExportContext(ctx *fiber.Ctx) error {
	var req dto.ExportRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.ExportContext(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success export context", res))
}

func parse(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

// mapError converts service failures into HTTP statuses. Anything not
// listed is left for the error middleware as a 500.
func mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, dto.AskStatusDisabled)
	case llm.IsCancelled(err):
		return fiber.NewError(StatusClientClosedRequest, dto.AskStatusCancelled)
	case errors.Is(err, service.ErrAskFailed):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrNodeNotFound),
		errors.Is(err, service.ErrCanvasNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, vault.ErrInvalidPath):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
