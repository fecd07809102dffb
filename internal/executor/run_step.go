package executor

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/catwalk/internal/ctxlog"
	"github.com/vk/catwalk/internal/dag"
	"github.com/vk/catwalk/internal/paths"
	"github.com/vk/catwalk/internal/schema"
)

// executeStepNode handles one attempt at a stale step: decode arguments,
// build the step's PathFinder, call the registered handler, and verify the
// handler actually committed its dataset with the planned checksum.
func (e *Executor) executeStepNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("step", node.ID)
	logger.Info("▶️ Starting step")

	step := node.Step
	runnerDef, ok := e.registry.DefinitionRegistry[step.Runner]
	if !ok {
		return fmt.Errorf("unknown runner type '%s'", step.Runner)
	}
	handlerName := runnerDef.Lifecycle.OnRun
	registeredHandler, ok := e.registry.HandlerRegistry[handlerName]
	if !ok {
		return fmt.Errorf("handler '%s' not registered", handlerName)
	}

	logger.Debug("Decoding step arguments.")
	var inputStruct any
	if registeredHandler.NewInput != nil {
		inputStruct = registeredHandler.NewInput()
	}
	evalCtx := evalContextFor(step)
	if inputStruct != nil && step.Arguments != nil {
		if diags := gohcl.DecodeBody(step.Arguments, evalCtx, inputStruct); diags.HasErrors() {
			return diags
		}
	}
	if inputStruct != nil {
		if err := applyInputDefaults(ctx, inputStruct, runnerDef, step.Arguments); err != nil {
			return fmt.Errorf("applying defaults for step %s: %w", node.ID, err)
		}
	}

	pf := paths.New(step.ID, step.DependsOn, e.catalog, e.snapshots, node.Checksum)

	logger.Debug("Calling step run handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(registeredHandler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(pf)}
	if inputStruct == nil {
		inputType := handlerFunc.Type().In(2)
		callArgs = append(callArgs, reflect.Zero(inputType))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	if errResult := results[0].Interface(); errResult != nil {
		return errResult.(error)
	}

	// The contract is save-exactly-once: a handler that returns success
	// without committing its dataset would poison every downstream step.
	if e.catalog.SourceChecksum(step.ID) != node.Checksum {
		return fmt.Errorf("step %s completed without saving its dataset", node.ID)
	}

	logger.Info("✅ Finished step")
	return nil
}

// applyInputDefaults applies default values from a runner's manifest for
// attributes the step did not provide.
func applyInputDefaults(ctx context.Context, inputStruct any, runnerDef *schema.RunnerDefinition, userBody hcl.Body) error {
	logger := ctxlog.FromContext(ctx)
	if inputStruct == nil || runnerDef == nil {
		return nil
	}

	userProvidedNames := make(map[string]struct{})
	if userBody != nil {
		userAttrs, _ := userBody.JustAttributes()
		for name := range userAttrs {
			userProvidedNames[name] = struct{}{}
		}
	}

	structVal := reflect.ValueOf(inputStruct).Elem()
	structType := structVal.Type()

	for _, inputDef := range runnerDef.Inputs {
		if _, ok := userProvidedNames[inputDef.Name]; ok || inputDef.Default == nil {
			continue
		}
		for i := 0; i < structType.NumField(); i++ {
			field := structType.Field(i)
			tagName := strings.Split(field.Tag.Get("hcl"), ",")[0]
			if tagName == inputDef.Name {
				fieldVal := structVal.Field(i)
				if fieldVal.CanSet() {
					logger.Debug("Applying default value.", "field", tagName)
					if err := gocty.FromCtyValue(*inputDef.Default, fieldVal.Addr().Interface()); err != nil {
						return fmt.Errorf("failed to apply default for '%s': %w", inputDef.Name, err)
					}
				}
				break
			}
		}
	}
	return nil
}
