// Package rhizome wires the pipeline spec.md §2 describes — validate,
// stratify-and-lower, execute — behind a single entry point, the way the
// teacher's top-level sqle package wires analyzer/planbuilder/rowexec
// behind sqle.Engine.
package rhizome

import (
	"gopkg.in/yaml.v2"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/lower"
	"github.com/rhizomedb/rhizome/ram"
	"github.com/rhizomedb/rhizome/validate"
	"github.com/rhizomedb/rhizome/vm"
)

// Config configures Engine construction. The zero Config is the engine's
// default behavior: epoch numbering starts at 0.
type Config struct {
	// InitialEpoch seeds the VM's logical clock, letting a caller resume
	// numbering after restoring state from a prior run.
	InitialEpoch int `yaml:"initial_epoch"`
}

// LoadConfig parses a Config from YAML, the teacher's own config-file
// format (its server config loads the same way). Unknown fields are
// rejected so a typo in a deployed config file surfaces immediately rather
// than silently keeping the zero value.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Engine holds a fully validated and lowered Program, ready to drive any
// number of independent VM instances against it. Construction is total —
// New either returns a usable Engine or rejects the whole program
// (spec.md §7: "rejection is total — no partial programs run").
type Engine struct {
	program *ram.Program
	decls   map[id.RelationId]*ast.Declaration
	cfg     Config
}

// New validates prog (package validate), stratifies and lowers it to a RA
// plan (package lower), and returns an Engine bound to the result. Any
// validation, stratification failure surfaces here, synchronously, as the
// single typed error described in spec.md §7.
func New(prog *ast.Program, cfg Config) (*Engine, error) {
	if err := validate.Validate(prog); err != nil {
		return nil, err
	}
	program, err := lower.Lower(prog)
	if err != nil {
		return nil, err
	}
	return &Engine{program: program, decls: prog.Decls, cfg: cfg}, nil
}

// Program returns the lowered RA plan, for introspection and tests.
func (e *Engine) Program() *ram.Program { return e.program }

// Inputs returns the EDB relation ids the lowered program expects to be
// fed via Sources statements.
func (e *Engine) Inputs() []id.RelationId { return e.program.Inputs }

// Outputs returns the IDB relation ids the lowered program can Sink.
func (e *Engine) Outputs() []id.RelationId { return e.program.Outputs }

// NewVM returns a fresh executor bound to this Engine's lowered program,
// with empty relation storage and the clock at cfg.InitialEpoch.
func (e *Engine) NewVM() *vm.VM {
	v := vm.New(e.program, e.decls)
	if e.cfg.InitialEpoch != 0 {
		v.SetInitialEpoch(e.cfg.InitialEpoch)
	}
	return v
}
