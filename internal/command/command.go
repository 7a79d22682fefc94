// Package command interprets line-based text commands against the file
// service and renders every outcome, success or failure, as a single
// human-readable string.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/models"
)

// DefaultSurroundingChars is used by READ_FILE when SURROUNDING_CHARS is absent.
const DefaultSurroundingChars = 100

// Service is the file-service surface the interpreter drives.
type Service interface {
	CreateFile(ctx context.Context, name, content string) error
	ReadFile(ctx context.Context, name string, page int, includeSurrounding bool, surroundingChars int) (string, error)
	UpdateFile(ctx context.Context, name string, page int, content string) error
	SaveToDisk(ctx context.Context, name, target string) (string, error)
	ListFiles(ctx context.Context) []string
	DeleteFile(ctx context.Context, name string) error
	AppendToFile(ctx context.Context, name, content string) error
	RenameFile(ctx context.Context, oldName, newName string) error
	FileInfo(ctx context.Context, name string) (models.FileInfo, error)
	ReorganizePages(ctx context.Context, name string) error
	DumpAll(ctx context.Context, dir string) (string, error)
	Snapshot(ctx context.Context) (int, error)
	Restore(ctx context.Context) (int, error)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithSurroundingChars overrides DefaultSurroundingChars.
func WithSurroundingChars(n int) Option {
	return func(ix *Interpreter) {
		if n >= 0 {
			ix.surroundingChars = n
		}
	}
}

// Interpreter executes commands. It holds no state of its own beyond
// configuration; concurrency safety comes from the Service.
type Interpreter struct {
	svc              Service
	surroundingChars int
}

// New creates an Interpreter over svc.
func New(svc Service, opts ...Option) *Interpreter {
	ix := &Interpreter{svc: svc, surroundingChars: DefaultSurroundingChars}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Execute runs one command line and returns its result text.
// Failures are rendered with an "Error: " prefix; Execute never returns
// an error value.
func (ix *Interpreter) Execute(ctx context.Context, line string) string {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "Error: Empty command."
	}

	name := strings.ToUpper(tokens[0])
	kind, ok := ParseKind(name)
	if !ok {
		return renderError(fmt.Errorf("command %q: %w", name, apperr.ErrUnknownCommand), name, 0)
	}
	def := commands[kind]
	args := tokens[1:]

	opts := options{surroundingChars: ix.surroundingChars}
	if def.options {
		var err error
		args, opts, err = scanOptions(args, ix.surroundingChars)
		if err != nil {
			return renderArgError(err)
		}
	}

	if len(args) < def.minArgs {
		return renderArgError(arityError(def.name, def.minArgs))
	}
	return def.run(ix, ctx, args, opts)
}

// argError is a malformed command; its message is shown verbatim.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }
func (e *argError) Unwrap() error { return apperr.ErrInvalidArgument }

func arityError(name string, min int) error {
	noun := "arguments"
	if min == 1 {
		noun = "argument"
	}
	return &argError{msg: fmt.Sprintf("%s requires at least %d %s.", name, min, noun)}
}

func parsePage(name, tok string) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &argError{msg: fmt.Sprintf("%s page must be an integer, got '%s'.", name, tok)}
	}
	return n, nil
}

func renderArgError(err error) string {
	var ae *argError
	if errors.As(err, &ae) {
		return "Error: " + ae.msg
	}
	return "Error: " + err.Error()
}

// renderError maps service errors for a named file or command (and page,
// where one applies) to result text.
func renderError(err error, name string, page int) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("Error: No such file: '%s'", name)
	case errors.Is(err, apperr.ErrInvalidPage):
		return fmt.Sprintf("Error: Invalid page: %d", page)
	case errors.Is(err, apperr.ErrNotConfigured):
		return "Error: snapshots are not configured."
	case errors.Is(err, apperr.ErrNoSnapshot):
		return "Error: No snapshot saved."
	case errors.Is(err, apperr.ErrUnknownCommand):
		return fmt.Sprintf("Error: Unknown command '%s'.", name)
	default:
		return "Error: " + err.Error()
	}
}

// SurroundingChars returns the default READ_FILE context width.
func (ix *Interpreter) SurroundingChars() int {
	return ix.surroundingChars
}
