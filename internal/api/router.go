package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagefs/internal/command"
	"github.com/starford/pagefs/internal/fileservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *fileservice.Service, cmd *command.Interpreter, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, cmd)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Files.
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Route("/files/{name}", func(r chi.Router) {
		r.Get("/", h.GetFile)
		r.Delete("/", h.DeleteFile)
		r.Get("/pages", h.ListPages)
		r.Get("/pages/{page}", h.ReadPage)
		r.Put("/pages/{page}", h.UpdatePage)
		r.Post("/append", h.AppendFile)
		r.Post("/rename", h.RenameFile)
		r.Post("/reorganize", h.ReorganizeFile)
		r.Post("/save", h.SaveFile)
		r.Get("/export", h.LastExport)
	})

	// Persistence.
	r.Post("/dump", h.DumpAll)
	r.Get("/exports", h.ListExports)

	// Text commands.
	r.Post("/commands", h.ExecuteCommand)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
