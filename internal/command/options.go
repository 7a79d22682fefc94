package command

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	flagIncludeSurrounding = "INCLUDE_SURROUNDING"
	flagSurroundingChars   = "SURROUNDING_CHARS"
)

type options struct {
	includeSurrounding bool
	surroundingChars   int
}

// scanOptions removes INCLUDE_SURROUNDING and SURROUNDING_CHARS <n> from
// anywhere in args and returns the remaining positional arguments. When a
// flag repeats, the last SURROUNDING_CHARS value wins.
func scanOptions(args []string, defaultChars int) ([]string, options, error) {
	opts := options{surroundingChars: defaultChars}
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case flagIncludeSurrounding:
			opts.includeSurrounding = true
		case flagSurroundingChars:
			if i+1 >= len(args) {
				return nil, opts, &argError{msg: flagSurroundingChars + " requires a value."}
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 0 {
				return nil, opts, &argError{
					msg: fmt.Sprintf("%s must be a non-negative integer, got '%s'.", flagSurroundingChars, args[i]),
				}
			}
			opts.surroundingChars = n
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, opts, nil
}
