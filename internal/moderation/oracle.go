// Package moderation answers whether a revision is under an editorial
// workflow, and which state a new revision in that workflow starts in.
//
// Workflows are matched by CEL conditions over the revision:
//
//	entity.type == "node" && entity.bundle in ["article", "page"]
//
// Available attributes: entity.type, entity.bundle, entity.langcode,
// entity.published, entity.id. The first workflow whose condition holds wins.
package moderation

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/roach88/argosync/internal/content"
)

// Workflow is one editorial workflow definition.
type Workflow struct {
	Name string `json:"name"`

	// When is a CEL boolean expression. Empty matches every revision.
	When string `json:"when,omitempty"`

	// Initial is the state new revisions start in. Defaults to States[0].
	Initial string `json:"initial,omitempty"`

	States []string `json:"states"`
}

// InitialState returns the configured initial state, or the first state.
func (w Workflow) InitialState() string {
	if w.Initial != "" {
		return w.Initial
	}
	if len(w.States) > 0 {
		return w.States[0]
	}
	return ""
}

type rule struct {
	workflow Workflow
	program  cel.Program // nil matches everything
}

// Oracle evaluates compiled workflow conditions.
// Safe for concurrent use after construction.
type Oracle struct {
	rules []rule
}

// NewEnv returns the CEL environment workflow conditions are compiled in.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("entity", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// New compiles the workflows in order.
func New(workflows []Workflow) (*Oracle, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	o := &Oracle{rules: make([]rule, 0, len(workflows))}
	for _, w := range workflows {
		r := rule{workflow: w}
		if w.When != "" {
			program, err := Compile(env, w.When)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", w.Name, err)
			}
			r.program = program
		}
		o.rules = append(o.rules, r)
	}
	return o, nil
}

// Compile type-checks a condition and returns its program.
// The expression must evaluate to a bool.
func Compile(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must return bool, got %s", out)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

// Moderation implements argo.ModerationOracle.
func (o *Oracle) Moderation(rev *content.Revision) (content.Moderation, error) {
	vars := map[string]any{
		"entity": map[string]any{
			"type":      rev.TypeID,
			"bundle":    rev.Bundle,
			"langcode":  rev.Langcode,
			"published": rev.Published,
			"id":        rev.ID,
		},
	}

	for _, r := range o.rules {
		if r.program != nil {
			out, _, err := r.program.Eval(vars)
			if err != nil {
				return content.Moderation{}, fmt.Errorf("workflow %q: CEL evaluation error: %w", r.workflow.Name, err)
			}
			matched, ok := out.Value().(bool)
			if !ok {
				return content.Moderation{}, fmt.Errorf("workflow %q: CEL expression did not return boolean value", r.workflow.Name)
			}
			if !matched {
				continue
			}
		}

		return content.Moderation{
			Moderated:    true,
			Workflow:     r.workflow.Name,
			InitialState: r.workflow.InitialState(),
		}, nil
	}

	return content.Moderation{}, nil
}

// Workflows returns the workflows in evaluation order.
func (o *Oracle) Workflows() []Workflow {
	out := make([]Workflow, len(o.rules))
	for i, r := range o.rules {
		out[i] = r.workflow
	}
	return out
}

// Static reports the same moderation answer for every revision.
type Static content.Moderation

// Moderation implements argo.ModerationOracle.
func (s Static) Moderation(*content.Revision) (content.Moderation, error) {
	return content.Moderation(s), nil
}
