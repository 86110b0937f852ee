package main

import (
	"fmt"
	"io"
	"iter"

	"brickcat/internal/dispatch"
	"brickcat/internal/logger"
	"brickcat/internal/protocol"
)

// Run executes the find command.
func (c *FindCmd) Run(deps *Dependencies) error {
	kind, err := protocol.ParseFindKind(c.Kind)
	if err != nil {
		return err
	}
	if deps.Remote == nil && deps.Local == nil {
		return errNoSource
	}

	if deps.Remote != nil {
		keys, err := deps.Remote.Find(kind)
		if err == nil {
			n := printKeys(deps.Stdout, keys.All())
			if keys.Err() == nil {
				return nil
			}
			if n > 0 || deps.Local == nil {
				return fmt.Errorf("find %s: interrupted after %d keys: %w", kind, n, keys.Err())
			}
			err = keys.Err()
		}
		if deps.Local == nil {
			return fmt.Errorf("find %s: %w", kind, err)
		}
		logger.Warn("find %s: %v; using the local catalog", kind, err)
	}

	local, err := deps.Local()
	if err != nil {
		return fmt.Errorf("load fallback catalog: %w", err)
	}
	keys, err := dispatch.NewDispatcher(local).Keys(kind)
	if err != nil {
		return err
	}
	printKeys(deps.Stdout, keys)
	return nil
}

func printKeys(w io.Writer, keys iter.Seq[protocol.Key]) int {
	var n int
	for k := range keys {
		fmt.Fprintln(w, keyString(k))
		n++
	}
	return n
}

func keyString(k protocol.Key) string {
	switch k := k.(type) {
	case protocol.PartIDKey:
		return k.ID.String()
	case protocol.PartNameKey:
		return k.Name.String()
	case protocol.ColorIDKey:
		return k.ID.String()
	case protocol.ColorNameKey:
		return k.Name.String()
	case protocol.ElementIDKey:
		return k.ID.String()
	default:
		return fmt.Sprint(k)
	}
}
