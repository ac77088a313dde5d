// Package recovery decides what happens when a single page of a file fails.
package recovery

import (
	"context"
	"fmt"
)

type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

// Location pins a failure to a file, a zero based page and, when known, a
// byte offset in the container.
type Location struct {
	File       string
	Page       int
	ByteOffset int64
	Component  string
}

func (l Location) String() string {
	s := fmt.Sprintf("%s page %d", l.File, l.Page+1)
	if l.Component != "" {
		s += " [" + l.Component + "]"
	}
	if l.ByteOffset > 0 {
		s += fmt.Sprintf(" offset %d", l.ByteOffset)
	}
	return s
}

type Action int

const (
	// ActionFail aborts the whole file.
	ActionFail Action = iota
	// ActionSkip drops the page and keeps converting the rest.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}
