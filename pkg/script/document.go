// Package script replays YAML mutation scripts against a shape engine.
//
// A script declares objects and then a list of steps, each applying one
// object-level operation. It is the driver behind shapectl and a compact way
// to express layout scenarios in tests.
package script

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"shapegraph/pkg/errors"
	"shapegraph/pkg/shape"
)

// Op names a step operation.
type Op string

const (
	OpAdd               Op = "add"
	OpDefine            Op = "define"
	OpAccessor          Op = "accessor"
	OpChange            Op = "change"
	OpRemove            Op = "remove"
	OpProto             Op = "proto"
	OpDispatch          Op = "dispatch"
	OpPreventExtensions Op = "preventExtensions"
	OpSeal              Op = "seal"
	OpFreeze            Op = "freeze"
)

var knownOps = map[Op]bool{
	OpAdd: true, OpDefine: true, OpAccessor: true, OpChange: true, OpRemove: true,
	OpProto: true, OpDispatch: true, OpPreventExtensions: true, OpSeal: true, OpFreeze: true,
}

// Document is a parsed script.
type Document struct {
	Name    string       `yaml:"name"`
	Objects []ObjectDecl `yaml:"objects"`
	Steps   []Step       `yaml:"steps"`
}

// ObjectDecl allocates one object before the steps run. Proto names an
// object declared earlier.
type ObjectDecl struct {
	Name          string `yaml:"name"`
	Proto         string `yaml:"proto"`
	DispatchTable uint32 `yaml:"dispatchTable"`
}

// Step applies Op to Object. Which of the remaining fields matter depends
// on the operation.
type Step struct {
	Object        string  `yaml:"object"`
	Op            Op      `yaml:"op"`
	Name          string  `yaml:"name"`
	Attrs         string  `yaml:"attrs"`
	Value         any     `yaml:"value"`
	Proto         string  `yaml:"proto"`
	DispatchTable uint32  `yaml:"dispatchTable"`
	Expect        *Expect `yaml:"expect"`
}

// Expect is checked against the stepped object once the step has run.
type Expect struct {
	Members    []string `yaml:"members"`
	Size       *int     `yaml:"size"`
	Extensible *bool    `yaml:"extensible"`
	Frozen     *bool    `yaml:"frozen"`
	Error      string   `yaml:"error"` // substring of the error the step must fail with
}

// Parse decodes and validates a script. name is used in error locations.
func Parse(data []byte, name string) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, (&errors.ScriptError{Location: errors.Location{Script: name}, Msg: "invalid YAML"}).CausedBy(err)
	}
	if doc.Name == "" {
		doc.Name = name
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads and parses the script at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return Parse(data, path)
}

// Validate checks object references and step operations.
func (d *Document) Validate() error {
	declared := make(map[string]bool, len(d.Objects))
	for i, o := range d.Objects {
		loc := errors.Location{Script: d.Name}
		switch {
		case o.Name == "":
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("object %d has no name", i+1)}
		case declared[o.Name]:
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("object %q declared twice", o.Name)}
		case o.Proto != "" && !declared[o.Proto]:
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("object %q: prototype %q is not declared before it", o.Name, o.Proto)}
		}
		declared[o.Name] = true
	}
	for i, s := range d.Steps {
		loc := errors.Location{Script: d.Name, Step: i + 1}
		if !declared[s.Object] {
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("unknown object %q", s.Object)}
		}
		if !knownOps[s.Op] {
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("unknown op %q", s.Op)}
		}
		if s.Proto != "" && !declared[s.Proto] {
			return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("unknown prototype %q", s.Proto)}
		}
		switch s.Op {
		case OpAdd, OpDefine, OpAccessor, OpChange, OpRemove:
			if s.Name == "" {
				return &errors.ScriptError{Location: loc, Msg: fmt.Sprintf("op %s needs a member name", s.Op)}
			}
		}
		if _, err := ParseAttributes(s.Attrs); err != nil {
			return (&errors.ScriptError{Location: loc, Msg: "invalid attrs"}).CausedBy(err)
		}
	}
	return nil
}

// ParseAttributes reads an attribute string in the format Attributes.String
// prints: any of w, e and c, with '-' as filler; a leading or embedded 'a'
// makes it an accessor.
func ParseAttributes(s string) (shape.Attributes, error) {
	var accessor, w, e, c bool
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case 'a':
			accessor = true
		case 'w':
			w = true
		case 'e':
			e = true
		case 'c':
			c = true
		case '-':
		default:
			return 0, fmt.Errorf("unknown attribute flag %q in %q", r, s)
		}
	}
	if accessor {
		if w {
			return 0, fmt.Errorf("accessor attributes cannot be writable: %q", s)
		}
		return shape.NewAccessor(e, c), nil
	}
	return shape.NewData(w, e, c), nil
}
