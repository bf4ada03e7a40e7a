package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/llm"
)

// Result is the uniform envelope returned for every tool invocation
type Result struct {
	IsError bool   `json:"error"`
	Content string `json:"content"`
}

func errorResult(format string, args ...any) Result {
	return Result{IsError: true, Content: fmt.Sprintf(format, args...)}
}

// Tool is a named operation with a reflected argument schema
type Tool struct {
	spec   llm.ToolSpec
	decode func(raw json.RawMessage) (any, error)
	invoke func(ctx context.Context, args any) (any, error)
}

// Name returns the wire name of the tool
func (t Tool) Name() string {
	return t.spec.Name
}

// Spec returns the model-facing definition of the tool
func (t Tool) Spec() llm.ToolSpec {
	return t.spec
}

var (
	reflector = &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// newTool declares a tool whose arguments decode into A. The schema handed
// to the model and the checks applied at dispatch both come from A's tags.
func newTool[A any](name, description string, handler func(ctx context.Context, args *A) (any, error)) Tool {
	schema := reflector.Reflect(new(A))

	spec := llm.ToolSpec{Name: name, Description: description}
	// Round-trip through JSON to get plain maps for the model client
	var shape struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if raw, err := json.Marshal(schema); err == nil {
		_ = json.Unmarshal(raw, &shape)
	}
	spec.Properties = shape.Properties
	spec.Required = shape.Required

	return Tool{
		spec: spec,
		decode: func(raw json.RawMessage) (any, error) {
			return decodeArgs[A](raw, spec.Required)
		},
		invoke: func(ctx context.Context, args any) (any, error) {
			return handler(ctx, args.(*A))
		},
	}
}

// decodeArgs applies defaults, then the raw arguments, then validation
func decodeArgs[A any](raw json.RawMessage, required []string) (*A, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	for _, name := range required {
		v, ok := fields[name]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("missing required argument %q", name)
		}
	}

	args := new(A)
	if err := defaults.Set(args); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := json.Unmarshal(raw, args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("argument %q must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if err := validate.Struct(args); err != nil {
		return nil, describeValidation(err)
	}
	return args, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("argument %q is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("argument %q must be one of [%s]", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("argument %q must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("argument %q must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("argument %q failed %s check", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Registry is a closed set of tools available to one task
type Registry struct {
	tools  []Tool
	byName map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates a registry over tools, in the order given
func NewRegistry(logger *zap.Logger, tools ...Tool) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:  tools,
		byName: make(map[string]Tool, len(tools)),
		logger: logger,
	}
	for _, t := range tools {
		r.byName[t.Name()] = t
	}
	return r
}

// Specs returns the definitions offered to the model
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, len(r.tools))
	for i, t := range r.tools {
		specs[i] = t.Spec()
	}
	return specs
}

// Names returns the registered tool names in order
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Dispatch runs the named tool. Every failure is reported in the Result.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", zap.String("tool", name), zap.Any("panic", p))
			res = errorResult("tool %s failed: %v", name, p)
		}
	}()

	tool, ok := r.byName[name]
	if !ok {
		return errorResult("unknown tool: %s", name)
	}

	args, err := tool.decode(raw)
	if err != nil {
		r.logger.Debug("rejected tool arguments", zap.String("tool", name), zap.Error(err))
		return errorResult("invalid arguments for %s: %v", name, err)
	}

	out, err := tool.invoke(ctx, args)
	if err != nil {
		r.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
		return errorResult("%v", err)
	}

	content, err := formatContent(out)
	if err != nil {
		return errorResult("encode %s result: %v", name, err)
	}
	return Result{Content: content}
}

// formatContent returns strings as-is and everything else as indented JSON
func formatContent(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
