package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pagefs/internal/command"
	"github.com/starford/pagefs/internal/fileservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *fileservice.Service
	cmd *command.Interpreter
}

// NewHandler creates a new Handler.
func NewHandler(svc *fileservice.Service, cmd *command.Interpreter) *Handler {
	return &Handler{svc: svc, cmd: cmd}
}

// fileName extracts the file name from the URL. Names may arrive
// percent-encoded (e.g. notes%2Fa.txt).
func fileName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func pageParam(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	return n, err == nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched
// when optional is true.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
	return false
}

func (h *Handler) writeInfo(w http.ResponseWriter, r *http.Request, status int, name string) {
	info, err := h.svc.FileInfo(r.Context(), name)
	if err != nil {
		writeError(w, "file info", err, slog.String("name", name))
		return
	}
	writeJSON(w, status, info)
}

// ListFiles handles GET /api/files.
//
//	@Summary		List virtual file names
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FileListResponse{Files: h.svc.ListFiles(r.Context())})
}

// CreateFile handles POST /api/files.
//
//	@Summary		Create a new virtual file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFileRequest	true	"File to create"
//	@Success		201		{object}	FileInfo
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.CreateFile(r.Context(), req.Name, req.Content); err != nil {
		writeError(w, "create file", err, slog.String("name", req.Name))
		return
	}
	h.writeInfo(w, r, http.StatusCreated, req.Name)
}

// GetFile handles GET /api/files/{name}.
//
//	@Summary		Get page count and size of a file
//	@Tags			files
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	FileInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	h.writeInfo(w, r, http.StatusOK, fileName(r))
}

// DeleteFile handles DELETE /api/files/{name}.
//
//	@Summary		Delete a file
//	@Tags			files
//	@Param			name	path	string	true	"File name"
//	@Success		204		"File deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	if err := h.svc.DeleteFile(r.Context(), name); err != nil {
		writeError(w, "delete file", err, slog.String("name", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPages handles GET /api/files/{name}/pages.
//
//	@Summary		Get the page layout of a file
//	@Tags			pages
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	PagesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	pages, err := h.svc.Pages(r.Context(), name)
	if err != nil {
		writeError(w, "list pages", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, PagesResponse{Name: name, Pages: pages})
}

// ReadPage handles GET /api/files/{name}/pages/{page}.
//
//	@Summary		Read one page, optionally with surrounding context
//	@Tags			pages
//	@Produce		json
//	@Param			name		path		string	true	"File name"
//	@Param			page		path		int		true	"Page index"
//	@Param			surrounding	query		bool	false	"Include context from adjacent pages"
//	@Param			chars		query		int		false	"Context width in characters"
//	@Success		200			{object}	PageResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/pages/{page} [get]
func (h *Handler) ReadPage(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	page, ok := pageParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}

	q := r.URL.Query()
	surrounding, _ := strconv.ParseBool(q.Get("surrounding"))
	chars := h.cmd.SurroundingChars()
	if raw := q.Get("chars"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("chars must be a non-negative integer"))
			return
		}
		chars = n
	}

	text, err := h.svc.ReadFile(r.Context(), name, page, surrounding, chars)
	if err != nil {
		writeError(w, "read page", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Name: name, Page: page, Content: text})
}

// UpdatePage handles PUT /api/files/{name}/pages/{page}.
//
//	@Summary		Replace one page and reorganize the file
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"File name"
//	@Param			page	path		int				true	"Page index"
//	@Param			body	body		ContentRequest	true	"New page content"
//	@Success		200		{object}	FileInfo
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/pages/{page} [put]
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	page, ok := pageParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
		return
	}
	var req ContentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := h.svc.UpdateFile(r.Context(), name, page, req.Content); err != nil {
		writeError(w, "update page", err, slog.String("name", name))
		return
	}
	h.writeInfo(w, r, http.StatusOK, name)
}

// AppendFile handles POST /api/files/{name}/append.
//
//	@Summary		Append content as new pages
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"File name"
//	@Param			body	body		ContentRequest	true	"Content to append"
//	@Success		200		{object}	FileInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/append [post]
func (h *Handler) AppendFile(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	var req ContentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := h.svc.AppendToFile(r.Context(), name, req.Content); err != nil {
		writeError(w, "append file", err, slog.String("name", name))
		return
	}
	h.writeInfo(w, r, http.StatusOK, name)
}

// RenameFile handles POST /api/files/{name}/rename.
//
//	@Summary		Rename a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Current file name"
//	@Param			body	body		RenameRequest	true	"New name"
//	@Success		200		{object}	FileInfo
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/rename [post]
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	var req RenameRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.RenameFile(r.Context(), name, req.NewName); err != nil {
		writeError(w, "rename file", err, slog.String("name", name), slog.String("new_name", req.NewName))
		return
	}
	h.writeInfo(w, r, http.StatusOK, req.NewName)
}

// ReorganizeFile handles POST /api/files/{name}/reorganize.
//
//	@Summary		Re-paginate a file at page-size boundaries
//	@Tags			files
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	FileInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/reorganize [post]
func (h *Handler) ReorganizeFile(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	if err := h.svc.ReorganizePages(r.Context(), name); err != nil {
		writeError(w, "reorganize file", err, slog.String("name", name))
		return
	}
	h.writeInfo(w, r, http.StatusOK, name)
}

// SaveFile handles POST /api/files/{name}/save.
//
//	@Summary		Write one file to disk
//	@Tags			persistence
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string		true	"File name"
//	@Param			body	body		SaveRequest	false	"Target path (defaults to the file name)"
//	@Success		200		{object}	SaveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/save [post]
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	var req SaveRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	written, err := h.svc.SaveToDisk(r.Context(), name, req.Path)
	if err != nil {
		writeError(w, "save file", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Name: name, Path: written})
}

// LastExport handles GET /api/files/{name}/export.
//
//	@Summary		Newest disk export of a file
//	@Tags			persistence
//	@Produce		json
//	@Param			name	path		string	true	"File name"
//	@Success		200		{object}	ExportResponse
//	@Failure		404		{object}	errResponse
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{name}/export [get]
func (h *Handler) LastExport(w http.ResponseWriter, r *http.Request) {
	name := fileName(r)
	last, err := h.svc.LastExport(r.Context(), name)
	if err != nil {
		writeError(w, "last export", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// DumpAll handles POST /api/dump.
//
//	@Summary		Write every file into a directory
//	@Tags			persistence
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DumpRequest	false	"Target directory (defaults to dump)"
//	@Success		200		{object}	DumpResponse
//	@Security		BearerAuth
//	@Router			/dump [post]
func (h *Handler) DumpAll(w http.ResponseWriter, r *http.Request) {
	var req DumpRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	dir, err := h.svc.DumpAll(r.Context(), req.Dir)
	if err != nil {
		writeError(w, "dump", err, slog.String("dir", req.Dir))
		return
	}
	writeJSON(w, http.StatusOK, DumpResponse{Dir: dir})
}

// ExecuteCommand handles POST /api/commands.
//
//	@Summary		Run one text command through the interpreter
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CommandRequest	true	"Command line"
//	@Success		200		{object}	CommandResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands [post]
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Output: h.cmd.Execute(r.Context(), req.Command)})
}

// ListExports handles GET /api/exports.
//
//	@Summary		List recorded disk exports, newest first
//	@Tags			persistence
//	@Produce		json
//	@Param			name	query		string	false	"Filter by file name"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ExportListResponse
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/exports [get]
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	exports, err := h.svc.Exports(r.Context(), q.Get("name"), limit)
	if err != nil {
		writeError(w, "list exports", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportListResponse{Exports: exports})
}
