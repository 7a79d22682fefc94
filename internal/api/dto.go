package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/pagefs/internal/models"
)

// CreateFileRequest is the request body for creating a file.
type CreateFileRequest struct {
	Name    string `json:"name" example:"report.txt" validate:"required"`
	Content string `json:"content" example:"Quarterly numbers"`
}

// Validate checks the request fields.
func (r CreateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// ContentRequest is the request body for page updates and appends.
type ContentRequest struct {
	Content string `json:"content" example:"more text"`
}

// RenameRequest is the request body for renaming a file.
type RenameRequest struct {
	NewName string `json:"new_name" example:"final.txt" validate:"required"`
}

// Validate checks the request fields.
func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewName, validation.Required),
	)
}

// SaveRequest is the optional request body for saving one file to disk.
type SaveRequest struct {
	Path string `json:"path,omitempty" example:"out/report.txt"`
}

// DumpRequest is the optional request body for dumping every file.
type DumpRequest struct {
	Dir string `json:"dir,omitempty" example:"dump"`
}

// CommandRequest carries one text command line.
type CommandRequest struct {
	Command string `json:"command" example:"GET_FILE_INFO report.txt" validate:"required"`
}

// Validate checks the request fields.
func (r CommandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Command, validation.Required),
	)
}

// CommandResponse is the interpreter's result text.
type CommandResponse struct {
	Output string `json:"output" example:"File 'report.txt' has 1 pages and a total size of 17 characters." validate:"required"`
}

// FileInfo is the per-file summary (aliased from the domain layer).
type FileInfo = models.FileInfo

// FileListResponse lists file names in ascending order.
type FileListResponse struct {
	Files []string `json:"files" validate:"required"`
}

// PageResponse is the text of one page, with surrounding context when requested.
type PageResponse struct {
	Name    string `json:"name" example:"report.txt" validate:"required"`
	Page    int    `json:"page" example:"0"`
	Content string `json:"content" validate:"required"`
}

// PagesResponse is the full page layout of a file.
type PagesResponse struct {
	Name  string   `json:"name" example:"report.txt" validate:"required"`
	Pages []string `json:"pages" validate:"required"`
}

// SaveResponse reports where a file was written.
type SaveResponse struct {
	Name string `json:"name" example:"report.txt" validate:"required"`
	Path string `json:"path" example:"report.txt" validate:"required"`
}

// DumpResponse reports the directory a dump was written to.
type DumpResponse struct {
	Dir string `json:"dir" example:"dump" validate:"required"`
}

// ExportResponse is one ledger entry.
type ExportResponse = models.Export

// ExportListResponse wraps ledger entries, newest first.
type ExportListResponse struct {
	Exports []models.Export `json:"exports" validate:"required"`
}
