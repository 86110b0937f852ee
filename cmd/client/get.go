package main

import (
	"errors"
	"fmt"

	"brickcat/internal/catalog"
	"brickcat/internal/logger"
	"brickcat/internal/types"
)

var errNoSource = errors.New("catalog server unavailable and no fallback data dir configured")

type record interface {
	String() string
	Short() string
}

// Run executes the get command.
func (c *GetCmd) Run(deps *Dependencies) error {
	var (
		rec record
		err error
	)
	switch c.Kind {
	case "part-id":
		rec, err = firstHit(deps, func(r catalog.Reader) (types.Part, bool) { return r.PartFromID(types.PartID(c.Key)) })
	case "part-name":
		rec, err = firstHit(deps, func(r catalog.Reader) (types.Part, bool) { return r.PartFromName(types.PartName(c.Key)) })
	case "color-id":
		id, perr := types.ParseColorID(c.Key)
		if perr != nil {
			return perr
		}
		rec, err = firstHit(deps, func(r catalog.Reader) (types.Color, bool) { return r.ColorFromID(id) })
	case "color-name":
		rec, err = firstHit(deps, func(r catalog.Reader) (types.Color, bool) { return r.ColorFromName(types.ColorName(c.Key)) })
	case "element":
		id, perr := types.ParseElementID(c.Key)
		if perr != nil {
			return perr
		}
		rec, err = firstHit(deps, func(r catalog.Reader) (types.Element, bool) { return r.ElementFromID(id) })
	default:
		return fmt.Errorf("unknown lookup %q", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s %q: %w", c.Kind, c.Key, err)
	}

	if c.Short {
		fmt.Fprintln(deps.Stdout, rec.Short())
	} else {
		fmt.Fprintln(deps.Stdout, rec.String())
	}
	return nil
}

// firstHit asks the server, then the local catalog.
func firstHit[T record](deps *Dependencies, find func(catalog.Reader) (T, bool)) (record, error) {
	if deps.Remote == nil && deps.Local == nil {
		return nil, errNoSource
	}
	if deps.Remote != nil {
		if v, ok := find(deps.Remote); ok {
			return v, nil
		}
	}
	if deps.Local == nil {
		return nil, errNotFound
	}
	local, err := deps.Local()
	if err != nil {
		return nil, fmt.Errorf("load fallback catalog: %w", err)
	}
	logger.Debug("falling back to the local catalog")
	if v, ok := find(local); ok {
		return v, nil
	}
	return nil, errNotFound
}
