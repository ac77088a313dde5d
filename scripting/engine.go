// Package scripting evaluates JavaScript page filter expressions.
package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute executes a script and exports its completion value.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterPage binds the facts of one page into the global scope, both
	// as the object "page" and as top level names.
	RegisterPage(page Page) error
}

// Page is what a filter expression can see about a page. Field names are
// the JSON tags.
type Page struct {
	File   string   `json:"file"`
	Index  int      `json:"index"`
	Number int      `json:"number"`
	Count  int      `json:"count"`
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Titles []string `json:"titles"`
	Layers []string `json:"layers"`
	Links  int      `json:"links"`
}
