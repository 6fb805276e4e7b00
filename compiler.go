package agentkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"
)

// ErrShutdown is returned by Execute after Shutdown has been called.
var ErrShutdown = errors.New("compiler is shut down")

// CompiledTool is the derived (name, schema, tool reference) triple submitted to a provider.
// It is read-only after compilation and safe to share between concurrent completions.
type CompiledTool struct {
	Name        string
	Description string
	Parameters  *Schema
	Tool        Tool

	entry     Entry
	validator *argumentValidator
}

// ParametersMap returns the parameter schema as a JSON Schema map for provider SDKs.
func (ct *CompiledTool) ParametersMap() map[string]any {
	return ct.Parameters.Map()
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID        string
	Tool      *CompiledTool
	Arguments json.RawMessage
	Injection Injection
}

// Handler executes a Call and returns the tool-result text.
type Handler func(ctx context.Context, call Call) (string, error)

// shape is the cached per-argument-type compilation result.
type shape struct {
	params    *Schema
	validator *argumentValidator
	err       error
}

// Compiler turns tools into CompiledTools and executes calls against them.
// Derived schemas are cached per entry argument type.
type Compiler struct {
	opts        compilerOptions
	walker      walker
	shapes      sync.Map // reflect.Type -> *shape
	sem         chan struct{}
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.Mutex
	middlewares []Middleware
	handler     Handler
}

// NewCompiler creates a Compiler with the given options.
func NewCompiler(opts ...CompilerOption) *Compiler {
	o := compilerOptions{
		recoverPanics: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	c := &Compiler{
		opts:   o,
		walker: walker{maxDepth: o.maxDepth},
		sem:    sem,
		done:   make(chan struct{}),
	}
	c.Use(o.middlewares...)
	return c
}

// toolSuffixes are stripped from type names, longest first.
var toolSuffixes = []string{"InferenceTool", "Tool"}

// ToolName derives the exposed name of t: the Go type name with a trailing
// "InferenceTool" or "Tool" suffix stripped, unless t implements Named.
func ToolName(t Tool) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	typ := reflect.TypeOf(t)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Name() == "" {
		return "tool"
	}
	for _, suffix := range toolSuffixes {
		if name, ok := strings.CutSuffix(typ.Name(), suffix); ok && name != "" {
			return name
		}
	}
	return typ.Name()
}

// Compile resolves the entry operation of t and derives its parameter schema.
// Failures are *ToolCompileError and concern only t.
func (c *Compiler) Compile(t Tool) (*CompiledTool, error) {
	if t == nil {
		return nil, &ToolCompileError{Tool: "<nil>", Reason: ErrNoEntry.Error(), Err: ErrNoEntry}
	}
	name := ToolName(t)
	entry, err := findEntry(t)
	if err != nil {
		return nil, &ToolCompileError{Tool: name, Reason: err.Error(), Err: err}
	}
	sh := c.shapeOf(entry.args)
	if sh.err != nil {
		return nil, &ToolCompileError{Tool: name, Reason: "unresolvable parameter type", Err: sh.err}
	}
	return &CompiledTool{
		Name:        name,
		Description: t.Description(),
		Parameters:  sh.params,
		Tool:        t,
		entry:       entry,
		validator:   sh.validator,
	}, nil
}

// CompileAll compiles every tool independently. It returns the tools that compiled
// and the joined errors of those that did not, logging each failure.
func (c *Compiler) CompileAll(tools []Tool) ([]*CompiledTool, error) {
	out := make([]*CompiledTool, 0, len(tools))
	var errs []error
	for _, t := range tools {
		ct, err := c.Compile(t)
		if err != nil {
			c.opts.logger.Warn("tool dropped", "error", err)
			errs = append(errs, err)
			continue
		}
		out = append(out, ct)
	}
	return out, errors.Join(errs...)
}

func (c *Compiler) shapeOf(args reflect.Type) *shape {
	if cached, ok := c.shapes.Load(args); ok {
		return cached.(*shape)
	}
	sh := &shape{}
	sh.params, sh.err = c.walker.parameters(args)
	if sh.err == nil && c.opts.validateArguments {
		sh.validator, sh.err = newArgumentValidator(sh.params)
	}
	actual, _ := c.shapes.LoadOrStore(args, sh)
	return actual.(*shape)
}

// Lookup returns the compiled tool with exactly the given name, or nil.
func Lookup(tools []*CompiledTool, name string) *CompiledTool {
	for _, ct := range tools {
		if ct.Name == name {
			return ct
		}
	}
	return nil
}

// Use stores the given middlewares and rebuilds the handler chain (onion order:
// first middleware is outermost). Calling Use again replaces the chain.
func (c *Compiler) Use(middlewares ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = middlewares
	h := Handler(c.execute)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	c.handler = h
}

// Execute binds and invokes one call through the middleware chain.
// The after-execution hook (WithOnAfterExecute) is always invoked.
func (c *Compiler) Execute(ctx context.Context, call Call) (result string, err error) {
	if call.Tool == nil {
		return "", &ClientError{Reason: "unknown tool", Err: ErrNoEntry}
	}
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return "", ErrShutdown
	default:
	}
	handler := c.handler
	c.running.Add(1)
	c.mu.Unlock()

	if err = c.acquireSemaphore(ctx); err != nil {
		c.running.Done()
		return "", err
	}
	defer c.releaseSemaphore()
	defer c.running.Done()

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if c.opts.onAfter != nil {
			c.opts.onAfter(ctx, call, result, err, time.Since(start))
		}
	}()
	if c.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				result = ""
				err = &SystemError{Err: &panicError{p: p}}
			}
		}()
	}
	if c.opts.onBefore != nil {
		c.opts.onBefore(ctx, call)
	}
	return handler(ctx, call)
}

// execute is the innermost handler: validate, bind, check and invoke.
func (c *Compiler) execute(ctx context.Context, call Call) (string, error) {
	ct := call.Tool
	if ct.validator != nil {
		if err := ct.validator.check(call.Arguments); err != nil {
			return "", err
		}
	}
	args, err := bind(ct.entry.args, call.Arguments, call.Injection)
	if err != nil {
		return "", err
	}
	var addr any
	if args.CanAddr() {
		addr = args.Addr().Interface()
	}
	if err := runLayer2Validation(args.Interface(), addr); err != nil {
		if IsClientError(err) {
			return "", err
		}
		return "", &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	out, err := invoke(ctx, ct.entry, args)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsClientError(err) {
		return "", &SystemError{Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return out, err
}

func (c *Compiler) acquireSemaphore(ctx context.Context) error {
	if c.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Compiler) releaseSemaphore() {
	if c.sem != nil {
		<-c.sem
	}
}

// Shutdown closes the compiler for new calls and waits for in-flight executions or ctx to cancel.
func (c *Compiler) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil
	default:
		close(c.done)
	}
	c.mu.Unlock()
	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
