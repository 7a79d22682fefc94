package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/pagefs/internal/apperr"
)

// Kind identifies a command.
type Kind int

const (
	CreateFile Kind = iota
	ReadFile
	UpdateFile
	SaveToDisk
	ListFiles
	DeleteFile
	AppendToFile
	RenameFile
	GetFileInfo
	ReorganizePages
	DumpAll
	Help
	Snapshot
	Restore
	numKinds
)

type handler func(ix *Interpreter, ctx context.Context, args []string, opts options) string

type definition struct {
	name    string
	minArgs int
	usage   string
	doc     string
	options bool // scans INCLUDE_SURROUNDING / SURROUNDING_CHARS
	run     handler
}

// commands is filled in init because HELP refers back to the table.
var commands [numKinds]definition

var byName = make(map[string]Kind, numKinds)

func init() {
	commands = [numKinds]definition{
		CreateFile: {
			name: "CREATE_FILE", minArgs: 2,
			usage: "CREATE_FILE <file_name> <content>",
			doc:   "Creates a new file with the given name and content.",
			run:   (*Interpreter).createFile,
		},
		ReadFile: {
			name: "READ_FILE", minArgs: 2, options: true,
			usage: "READ_FILE <file_name> <page> [INCLUDE_SURROUNDING] [SURROUNDING_CHARS <num_chars>]",
			doc: "Reads the specified page of the file. Optionally, include surrounding content " +
				"from adjacent pages with the specified number of characters.",
			run: (*Interpreter).readFile,
		},
		UpdateFile: {
			name: "UPDATE_FILE", minArgs: 3,
			usage: "UPDATE_FILE <file_name> <page> <new_content>",
			doc:   "Updates the specified page of the file with the new content, then reorganizes the file.",
			run:   (*Interpreter).updateFile,
		},
		SaveToDisk: {
			name: "SAVE_TO_DISK", minArgs: 1,
			usage: "SAVE_TO_DISK <file_name> [file_path]",
			doc: "Saves the file to disk at the specified file path. If no file path is provided, " +
				"it will use the file name as the file path. The path is relative to the storage root; " +
				"absolute paths and paths leaving the root are rejected.",
			run: (*Interpreter).saveToDisk,
		},
		ListFiles: {
			name:  "LIST_FILES",
			usage: "LIST_FILES",
			doc:   "Lists all the files in the VFS.",
			run:   (*Interpreter).listFiles,
		},
		DeleteFile: {
			name: "DELETE_FILE", minArgs: 1,
			usage: "DELETE_FILE <file_name>",
			doc:   "Deletes the specified file from the VFS.",
			run:   (*Interpreter).deleteFile,
		},
		AppendToFile: {
			name: "APPEND_TO_FILE", minArgs: 2,
			usage: "APPEND_TO_FILE <file_name> <content>",
			doc:   "Appends the given content to the specified file.",
			run:   (*Interpreter).appendToFile,
		},
		RenameFile: {
			name: "RENAME_FILE", minArgs: 2,
			usage: "RENAME_FILE <old_name> <new_name>",
			doc:   "Renames the specified file to the new name.",
			run:   (*Interpreter).renameFile,
		},
		GetFileInfo: {
			name: "GET_FILE_INFO", minArgs: 1,
			usage: "GET_FILE_INFO <file_name>",
			doc:   "Retrieves information about the specified file, such as the number of pages and total size.",
			run:   (*Interpreter).getFileInfo,
		},
		ReorganizePages: {
			name: "REORGANIZE_PAGES", minArgs: 1,
			usage: "REORGANIZE_PAGES <file_name>",
			doc:   "Reorganizes the pages of the specified file.",
			run:   (*Interpreter).reorganizePages,
		},
		DumpAll: {
			name:  "DUMP_ALL",
			usage: "DUMP_ALL [dump_directory]",
			doc: "Dumps all virtual files to the specified directory. If no directory is provided, " +
				"it will use the default \"dump\" directory. The directory must lie inside the storage root.",
			run: (*Interpreter).dumpAll,
		},
		Help: {
			name:  "HELP",
			usage: "HELP",
			doc:   "Shows this command reference.",
			run:   (*Interpreter).help,
		},
		Snapshot: {
			name:  "SNAPSHOT",
			usage: "SNAPSHOT",
			doc:   "Saves every virtual file, page layout included, to the snapshot store.",
			run:   (*Interpreter).snapshot,
		},
		Restore: {
			name:  "RESTORE",
			usage: "RESTORE",
			doc:   "Replaces all virtual files with the last saved snapshot.",
			run:   (*Interpreter).restore,
		},
	}
	for k, def := range commands {
		byName[def.name] = Kind(k)
	}
}

// ParseKind looks up a command by its upper-case name.
func ParseKind(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// String returns the command name.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return commands[k].name
}

// MinArgs returns the minimum positional argument count.
func (k Kind) MinArgs() int {
	if k < 0 || k >= numKinds {
		return 0
	}
	return commands[k].minArgs
}

// Documentation returns the command reference.
func Documentation() string {
	var b strings.Builder
	b.WriteString("\nVirtual File System (VFS) Commands:\n\n")
	for i, def := range commands {
		prefix := fmt.Sprintf("%d. ", i+1)
		fmt.Fprintf(&b, "%s%s\n%s- %s\n\n", prefix, def.usage, strings.Repeat(" ", len(prefix)), def.doc)
	}
	b.WriteString("To execute a command, type the command followed by its arguments. For example:\n")
	b.WriteString("CREATE_FILE example.txt This is an example file.\n")
	return b.String()
}

func (ix *Interpreter) createFile(ctx context.Context, args []string, _ options) string {
	name := args[0]
	if err := ix.svc.CreateFile(ctx, name, strings.Join(args[1:], " ")); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Sprintf("Error: File '%s' already exists.", name)
		}
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("File '%s' created.", name)
}

func (ix *Interpreter) readFile(ctx context.Context, args []string, opts options) string {
	name := args[0]
	page, err := parsePage(commands[ReadFile].name, args[1])
	if err != nil {
		return renderArgError(err)
	}
	text, err := ix.svc.ReadFile(ctx, name, page, opts.includeSurrounding, opts.surroundingChars)
	if err != nil {
		return renderError(err, name, page)
	}
	return text
}

func (ix *Interpreter) updateFile(ctx context.Context, args []string, _ options) string {
	name := args[0]
	page, err := parsePage(commands[UpdateFile].name, args[1])
	if err != nil {
		return renderArgError(err)
	}
	if err := ix.svc.UpdateFile(ctx, name, page, strings.Join(args[2:], " ")); err != nil {
		return renderError(err, name, page)
	}
	return fmt.Sprintf("File '%s' updated at page %d.", name, page)
}

func (ix *Interpreter) saveToDisk(ctx context.Context, args []string, _ options) string {
	name := args[0]
	var target string
	if len(args) > 1 {
		target = args[1]
	}
	written, err := ix.svc.SaveToDisk(ctx, name, target)
	if err != nil {
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("File '%s' saved to disk at '%s'.", name, written)
}

func (ix *Interpreter) listFiles(ctx context.Context, _ []string, _ options) string {
	return "Files: " + strings.Join(ix.svc.ListFiles(ctx), ", ")
}

func (ix *Interpreter) deleteFile(ctx context.Context, args []string, _ options) string {
	name := args[0]
	if err := ix.svc.DeleteFile(ctx, name); err != nil {
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("File '%s' deleted.", name)
}

func (ix *Interpreter) appendToFile(ctx context.Context, args []string, _ options) string {
	name := args[0]
	if err := ix.svc.AppendToFile(ctx, name, strings.Join(args[1:], " ")); err != nil {
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("Content appended to file '%s'.", name)
}

func (ix *Interpreter) renameFile(ctx context.Context, args []string, _ options) string {
	oldName, newName := args[0], args[1]
	if err := ix.svc.RenameFile(ctx, oldName, newName); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Sprintf("Error: File already exists: '%s'", newName)
		}
		return renderError(err, oldName, 0)
	}
	return fmt.Sprintf("File '%s' renamed to '%s'.", oldName, newName)
}

func (ix *Interpreter) getFileInfo(ctx context.Context, args []string, _ options) string {
	name := args[0]
	info, err := ix.svc.FileInfo(ctx, name)
	if err != nil {
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("File '%s' has %d pages and a total size of %d characters.", name, info.Pages, info.Size)
}

func (ix *Interpreter) reorganizePages(ctx context.Context, args []string, _ options) string {
	name := args[0]
	if err := ix.svc.ReorganizePages(ctx, name); err != nil {
		return renderError(err, name, 0)
	}
	return fmt.Sprintf("Pages reorganized for file '%s'.", name)
}

func (ix *Interpreter) dumpAll(ctx context.Context, args []string, _ options) string {
	var dir string
	if len(args) > 0 {
		dir = args[0]
	}
	used, err := ix.svc.DumpAll(ctx, dir)
	if err != nil {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("All virtual files saved to '%s' directory.", used)
}

func (ix *Interpreter) help(_ context.Context, _ []string, _ options) string {
	return Documentation()
}

func (ix *Interpreter) snapshot(ctx context.Context, _ []string, _ options) string {
	n, err := ix.svc.Snapshot(ctx)
	if err != nil {
		return renderError(err, "", 0)
	}
	return fmt.Sprintf("Snapshot saved (%d files).", n)
}

func (ix *Interpreter) restore(ctx context.Context, _ []string, _ options) string {
	n, err := ix.svc.Restore(ctx)
	if err != nil {
		return renderError(err, "", 0)
	}
	return fmt.Sprintf("Snapshot restored (%d files).", n)
}
