package scripting

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.run(ctx, func() (goja.Value, error) { return e.vm.RunString(script) })
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

// run executes fn and interrupts the VM when ctx ends first.
func (e *GojaEngine) run(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := fn()
	if err != nil {
		var interruptedErr *goja.InterruptedError
		if errors.As(err, &interruptedErr) {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}

func (e *GojaEngine) RegisterPage(page Page) error {
	obj := e.vm.ToValue(page)
	if err := e.vm.Set("page", obj); err != nil {
		return err
	}
	globals := map[string]interface{}{
		"file":   page.File,
		"index":  page.Index,
		"number": page.Number,
		"count":  page.Count,
		"id":     page.ID,
		"title":  page.Title,
		"titles": page.Titles,
		"layers": page.Layers,
		"links":  page.Links,
	}
	for name, v := range globals {
		if err := e.vm.Set(name, v); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

// Predicate is a compiled boolean expression over Page. A compiled program
// can be shared; every evaluation gets its own runtime.
type Predicate struct {
	source string
	prog   *goja.Program
}

// Compile parses expr once so it can be evaluated for many pages.
func Compile(expr string) (*Predicate, error) {
	prog, err := goja.Compile("filter", expr, true)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, err)
	}
	return &Predicate{source: expr, prog: prog}, nil
}

func (p *Predicate) String() string { return p.source }

// Eval reports whether the expression is truthy for page.
func (p *Predicate) Eval(ctx context.Context, page Page) (bool, error) {
	e := NewEngine()
	if err := e.RegisterPage(page); err != nil {
		return false, err
	}
	val, err := e.run(ctx, func() (goja.Value, error) { return e.vm.RunProgram(p.prog) })
	if err != nil {
		return false, fmt.Errorf("filter %q on page %d: %w", p.source, page.Number, err)
	}
	return val.ToBoolean(), nil
}
