package contentstream

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Operand is a parsed content stream operand.
type Operand interface{ Type() string }

type NumberOperand struct{ Value float64 }
type NameOperand struct{ Value string }
type StringOperand struct{ Value []byte }

func (NumberOperand) Type() string { return "number" }
func (NameOperand) Type() string   { return "name" }
func (StringOperand) Type() string { return "string" }

// Processor walks a content stream and dispatches operators to handlers.
type Processor interface {
	Process(ctx context.Context, stream []byte) error
	RegisterHandler(op string, h OperatorHandler)
}

type OperatorHandler interface {
	Handle(op string, operands []Operand) error
}

// HandlerFunc adapts a function to OperatorHandler.
type HandlerFunc func(op string, operands []Operand) error

func (f HandlerFunc) Handle(op string, operands []Operand) error { return f(op, operands) }

type simpleProcessor struct{ handlers map[string]OperatorHandler }

func NewProcessor() Processor {
	return &simpleProcessor{handlers: make(map[string]OperatorHandler)}
}

func (p *simpleProcessor) RegisterHandler(op string, h OperatorHandler) { p.handlers[op] = h }

// Process handles the subset of the syntax the builder emits: numbers,
// names, literal strings without whitespace and hex strings. Operators
// without a handler discard their operands.
func (p *simpleProcessor) Process(ctx context.Context, stream []byte) error {
	var operands []Operand
	for i, tok := range strings.Fields(string(stream)) {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		switch {
		case strings.HasPrefix(tok, "/"):
			operands = append(operands, NameOperand{Value: tok[1:]})
			continue
		case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
			b, err := hex.DecodeString(tok[1 : len(tok)-1])
			if err != nil {
				return fmt.Errorf("hex string %q: %w", tok, err)
			}
			operands = append(operands, StringOperand{Value: b})
			continue
		case strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")"):
			operands = append(operands, StringOperand{Value: []byte(tok[1 : len(tok)-1])})
			continue
		}
		if num, err := strconv.ParseFloat(tok, 64); err == nil {
			operands = append(operands, NumberOperand{Value: num})
			continue
		}
		if h, ok := p.handlers[tok]; ok {
			if err := h.Handle(tok, operands); err != nil {
				return err
			}
		}
		operands = operands[:0]
	}
	if len(operands) > 0 {
		return fmt.Errorf("dangling operands: %d", len(operands))
	}
	return nil
}

// Count returns how often each operator occurs in stream.
func Count(ctx context.Context, stream []byte, ops ...string) (map[string]int, error) {
	counts := make(map[string]int, len(ops))
	p := NewProcessor()
	h := HandlerFunc(func(op string, _ []Operand) error {
		counts[op]++
		return nil
	})
	for _, op := range ops {
		p.RegisterHandler(op, h)
	}
	if err := p.Process(ctx, stream); err != nil {
		return nil, err
	}
	return counts, nil
}
