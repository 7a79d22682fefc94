package internal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/pagefs/internal/mcpserver"
)

const shellPrompt = "pagefs> "

// RunShell reads commands line by line and writes each result. It stops at
// EOF, on "exit" or "quit", or when ctx is cancelled.
func RunShell(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	rt, err := build(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	return repl(ctx, rt, app.in, app.out)
}

func repl(ctx context.Context, rt *runtime, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)

	for {
		if _, err := fmt.Fprint(out, shellPrompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}
		if _, err := fmt.Fprintln(out, rt.cmd.Execute(ctx, line)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("shell: read: %w", err)
	}
	_, _ = fmt.Fprintln(out)
	return nil
}

// Exec runs a single command line and writes its result.
func Exec(ctx context.Context, line string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	rt, err := build(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, err = fmt.Fprintln(app.out, rt.cmd.Execute(ctx, line))
	return err
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so stdout stays
// reserved for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	rt, err := build(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.importer != nil && app.config.Import.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := rt.importer.Watch(watchCtx, app.config.Import.Path); err != nil {
				logger.Error("import watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("mcp: serving on stdio")
	return mcpserver.New(rt.svc, rt.cmd).ServeStdio()
}
