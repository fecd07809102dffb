package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/catwalk/internal/ctxlog"
)

// ValidateRegistry performs a parity check between manifests and Go code:
// every manifest's on_run handler must be registered, every registered
// handler must have a well-formed signature, and manifest inputs must line up
// with the handler's input struct fields.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for runnerType, def := range r.DefinitionRegistry {
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': handler '%s' is not registered", runnerType, def.Lifecycle.OnRun))
			continue
		}

		if err := validateHandlerSignature(handler); err != nil {
			errs = append(errs, fmt.Sprintf("runner '%s': %v", runnerType, err))
			continue
		}

		if handler.NewInput == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares inputs, but Go handler has no input struct", runnerType))
			}
			continue
		}

		hclInputs := make(map[string]struct{})
		for _, in := range def.Inputs {
			hclInputs[in.Name] = struct{}{}
		}

		goInputs := make(map[string]struct{})
		inputType := reflect.TypeOf(handler.NewInput()).Elem()
		for i := 0; i < inputType.NumField(); i++ {
			field := inputType.Field(i)
			if !field.IsExported() {
				continue
			}
			tagName := strings.Split(field.Tag.Get("hcl"), ",")[0]
			if tagName != "" && tagName != "-" {
				goInputs[tagName] = struct{}{}
			}
		}

		for name := range goInputs {
			if _, ok := hclInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': Go struct has field for input '%s' which is not declared in manifest", runnerType, name))
			}
		}
		for name := range hclInputs {
			if _, ok := goInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares input '%s' which is not found in Go struct", runnerType, name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "runners", len(r.DefinitionRegistry))
	return nil
}

// validateHandlerSignature checks that Fn is
// func(context.Context, *paths.PathFinder, *Input) error.
func validateHandlerSignature(handler *RegisteredRunner) error {
	if handler.Fn == nil {
		return fmt.Errorf("handler function is nil")
	}
	fnType := reflect.TypeOf(handler.Fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler is not a function")
	}
	if fnType.NumIn() != 3 || fnType.NumOut() != 1 {
		return fmt.Errorf("handler must be func(ctx, *paths.PathFinder, *Input) error")
	}
	if !fnType.Out(0).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return fmt.Errorf("handler must return an error")
	}
	return nil
}
