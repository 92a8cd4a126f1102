package dto

import (
	"book-agent-be/pkg/agent"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/store"
)

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Lang      string `json:"lang"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	agent.Result
}

type BookResponse struct {
	Book store.BookRef `json:"book"`
}

type BookListResponse struct {
	Books []store.BookRef `json:"books"`
	Total int             `json:"total"`
}

type StatsResponse struct {
	CatalogSize int          `json:"catalog_size"`
	IndexSize   int          `json:"index_size"`
	Cache       search.Stats `json:"cache"`
}

type ClearAllResponse struct {
	SessionsCleared int `json:"sessions_cleared"`
}
