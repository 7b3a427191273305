// Package registry compiles entity type descriptors and moderation workflows
// from CUE.
//
// A registry file declares types and workflows as top-level structs:
//
//	type: node: {
//		label: "Content"
//		keys: {id: "nid", revision: "vid", published: "status", langcode: "langcode"}
//		revisionable:   true
//		publishable:    true
//		tracks_changed: true
//		has_owner:      true
//	}
//
//	workflow: editorial: {
//		when:    #"entity.type == "node""#
//		initial: "draft"
//		states:  ["draft", "published"]
//	}
//
// Workflows keep declaration order; the first one whose condition matches a
// revision moderates it.
package registry

import (
	"cmp"
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/moderation"
)

//go:embed default.cue
var defaultSource string

// Registry holds compiled type descriptors and workflows.
// Read-only after construction, safe for concurrent use.
type Registry struct {
	types     map[string]content.EntityType
	workflows []moderation.Workflow
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := CompileString(defaultSource, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("registry: built-in types do not compile: %v", err))
	}
	return r
}

// LoadFile compiles the registry at path.
func LoadFile(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read types file: %w", err)
	}
	return CompileString(string(src), path)
}

// CompileString compiles registry source. filename is used in error positions.
func CompileString(src, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile builds a registry from a CUE value with optional `type` and
// `workflow` structs.
func Compile(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Registry{
		types:     make(map[string]content.EntityType),
		workflows: []moderation.Workflow{},
	}

	typesVal := v.LookupPath(cue.ParsePath("type"))
	if typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			et, err := compileType(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			r.types[et.ID] = et
		}
	}

	workflowsVal := v.LookupPath(cue.ParsePath("workflow"))
	if workflowsVal.Exists() {
		iter, err := workflowsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			w, err := compileWorkflow(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			r.workflows = append(r.workflows, w)
		}
	}

	// Conditions are type-checked here so a bad registry fails at load time.
	if _, err := moderation.New(r.workflows); err != nil {
		return nil, &CompileError{Field: "workflow", Message: err.Error(), Pos: workflowsVal.Pos()}
	}

	return r, nil
}

// Lookup implements argo.TypeRegistry.
func (r *Registry) Lookup(typeID string) (content.EntityType, bool) {
	et, ok := r.types[typeID]
	return et, ok
}

// Types returns every descriptor ordered by id.
func (r *Registry) Types() []content.EntityType {
	out := make([]content.EntityType, 0, len(r.types))
	for _, et := range r.types {
		out = append(out, et)
	}
	slices.SortFunc(out, func(a, b content.EntityType) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Workflows returns the workflows in declaration order.
func (r *Registry) Workflows() []moderation.Workflow {
	return append([]moderation.Workflow(nil), r.workflows...)
}

// Oracle compiles the workflows into a moderation oracle.
func (r *Registry) Oracle() (*moderation.Oracle, error) {
	return moderation.New(r.workflows)
}

func compileType(id string, v cue.Value) (content.EntityType, error) {
	et := content.EntityType{ID: id}
	field := "type." + id

	var err error
	if et.Label, err = optionalString(v, "label"); err != nil {
		return et, err
	}

	keysVal := v.LookupPath(cue.ParsePath("keys"))
	if !keysVal.Exists() {
		return et, &CompileError{Field: field + ".keys", Message: "keys are required", Pos: v.Pos()}
	}
	if et.Keys.ID, err = optionalString(keysVal, "id"); err != nil {
		return et, err
	}
	if et.Keys.Revision, err = optionalString(keysVal, "revision"); err != nil {
		return et, err
	}
	if et.Keys.Published, err = optionalString(keysVal, "published"); err != nil {
		return et, err
	}
	if et.Keys.Langcode, err = optionalString(keysVal, "langcode"); err != nil {
		return et, err
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"revisionable", &et.Revisionable},
		{"publishable", &et.Publishable},
		{"tracks_changed", &et.TracksChanged},
		{"has_owner", &et.HasOwner},
		{"fragment", &et.Fragment},
	}
	for _, f := range flags {
		if *f.dst, err = optionalBool(v, f.name); err != nil {
			return et, err
		}
	}

	switch {
	case et.Keys.ID == "":
		return et, &CompileError{Field: field + ".keys.id", Message: "id key is required", Pos: keysVal.Pos()}
	case et.Revisionable && et.Keys.Revision == "":
		return et, &CompileError{Field: field + ".keys.revision", Message: "revisionable types need a revision key", Pos: keysVal.Pos()}
	case et.Publishable && et.Keys.Published == "":
		return et, &CompileError{Field: field + ".keys.published", Message: "publishable types need a published key", Pos: keysVal.Pos()}
	}

	return et, nil
}

func compileWorkflow(name string, v cue.Value) (moderation.Workflow, error) {
	w := moderation.Workflow{Name: name}

	var err error
	if w.When, err = optionalString(v, "when"); err != nil {
		return w, err
	}
	if w.Initial, err = optionalString(v, "initial"); err != nil {
		return w, err
	}

	statesVal := v.LookupPath(cue.ParsePath("states"))
	if !statesVal.Exists() {
		return w, &CompileError{Field: "workflow." + name + ".states", Message: "states are required", Pos: v.Pos()}
	}
	iter, err := statesVal.List()
	if err != nil {
		return w, formatCUEError(err)
	}
	for iter.Next() {
		state, err := iter.Value().String()
		if err != nil {
			return w, formatCUEError(err)
		}
		w.States = append(w.States, state)
	}
	if len(w.States) == 0 {
		return w, &CompileError{Field: "workflow." + name + ".states", Message: "at least one state is required", Pos: statesVal.Pos()}
	}

	if w.Initial != "" && !slices.Contains(w.States, w.Initial) {
		return w, &CompileError{
			Field:   "workflow." + name + ".initial",
			Message: fmt.Sprintf("initial state %q is not one of the states", w.Initial),
			Pos:     v.LookupPath(cue.ParsePath("initial")).Pos(),
		}
	}

	return w, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError is a registry definition error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
