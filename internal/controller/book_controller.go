package controller

import (
	"strconv"

	"book-agent-be/internal/dto"
	"book-agent-be/internal/pkg/serverutils"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/vectorindex"

	"github.com/gofiber/fiber/v2"
)

type IBookController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	ByGenre(ctx *fiber.Ctx) error
	ByAuthor(ctx *fiber.Ctx) error
	Popular(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type bookController struct {
	engine  *search.Engine
	catalog *search.Catalog
	index   vectorindex.Index
}

func NewBookController(engine *search.Engine, catalog *search.Catalog, index vectorindex.Index) IBookController {
	return &bookController{
		engine:  engine,
		catalog: catalog,
		index:   index,
	}
}

func (c *bookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/book/v1")
	h.Get("popular", c.Popular)
	h.Get("stats", c.Stats)
	h.Get("genre/:genre", c.ByGenre)
	h.Get("author/:author", c.ByAuthor)
	h.Get(":id", c.Show)
}

func (c *bookController) Show(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid book id")
	}

	book, ok := c.engine.BookByID(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "book not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show book", dto.BookResponse{Book: book}))
}

func (c *bookController) ByGenre(ctx *fiber.Ctx) error {
	books := c.engine.SearchByGenre(ctx.Params("genre"), limitQuery(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Success search by genre", dto.BookListResponse{
		Books: books,
		Total: len(books),
	}))
}

func (c *bookController) ByAuthor(ctx *fiber.Ctx) error {
	books := c.engine.SearchByAuthor(ctx.Params("author"), limitQuery(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Success search by author", dto.BookListResponse{
		Books: books,
		Total: len(books),
	}))
}

func (c *bookController) Popular(ctx *fiber.Ctx) error {
	books := c.engine.SearchByPopularity(limitQuery(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Success list popular books", dto.BookListResponse{
		Books: books,
		Total: len(books),
	}))
}

func (c *bookController) Stats(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success fetch stats", dto.StatsResponse{
		CatalogSize: c.catalog.Len(),
		IndexSize:   c.index.Len(),
		Cache:       c.engine.CacheStats(),
	}))
}

func limitQuery(ctx *fiber.Ctx) int {
	limit, err := strconv.Atoi(ctx.Query("limit", "8"))
	if err != nil || limit <= 0 || limit > 50 {
		return 8
	}
	return limit
}
