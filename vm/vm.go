package vm

import (
	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/errs"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/ram"
	"github.com/rhizomedb/rhizome/relation"
	"github.com/rhizomedb/rhizome/value"
)

// InputFact is one EDB tuple waiting to be dispatched by a Sources
// statement.
type InputFact struct {
	Rel   id.RelationId
	Tuple relation.Tuple
}

// OutputFact is one derived tuple a Sinks statement pushed to the output
// queue, tagged by the relation it came from.
type OutputFact struct {
	Rel   id.RelationId
	Tuple relation.Tuple
}

// Clock is the executor's logical clock (spec.md §4.5): iteration
// advances on every trip around an inner Loop's body, epoch advances
// every time the program counter returns to statement 0.
type Clock struct {
	Epoch     int
	Iteration int
}

type frame struct {
	stmts []ram.Statement
	idx   int
	done  bool
}

// VM interprets one lowered ram.Program, holding relation storage for
// every (RelationId, Version) slot, the pending input/output queues, and
// the statement-list program counter (spec.md §4.5).
type VM struct {
	prog      *ram.Program
	decls     map[id.RelationId]*ast.Declaration
	relations map[ram.RelationKey]relation.Relation
	input     []InputFact
	output    []OutputFact
	clock     Clock
	stack     []frame
}

// New returns a VM ready to execute prog against decls (used to decide
// each relation's storage implementation and EDB/IDB placement).
func New(prog *ram.Program, decls map[id.RelationId]*ast.Declaration) *VM {
	return &VM{
		prog:      prog,
		decls:     decls,
		relations: map[ram.RelationKey]relation.Relation{},
		stack:     []frame{{stmts: prog.Statements}},
	}
}

// Enqueue adds a fact to the input queue for the next Sources statement
// to dispatch.
func (vm *VM) Enqueue(fact InputFact) {
	vm.input = append(vm.input, fact)
}

// DrainOutput returns and clears every fact accumulated by Sinks
// statements since the last call.
func (vm *VM) DrainOutput() []OutputFact {
	out := vm.output
	vm.output = nil
	return out
}

// Clock returns the executor's current logical clock.
func (vm *VM) Clock() Clock { return vm.clock }

// SetInitialEpoch seeds the clock's epoch counter before the VM's first
// Step, letting a caller resume epoch numbering after restoring relation
// state from a prior run (rhizome.Config.InitialEpoch). Calling it after
// the first Step has no defined effect and is not supported.
func (vm *VM) SetInitialEpoch(epoch int) { vm.clock.Epoch = epoch }

// relationOf returns the storage for key, creating an empty one of the
// appropriate implementation on first access (spec.md §4.1): a
// lattice-merging ordered set for a declaration with a Lattice, a
// hexastore for any other EAV-shaped relation, an ordered set otherwise.
func (vm *VM) relationOf(key ram.RelationKey) relation.Relation {
	if r, ok := vm.relations[key]; ok {
		return r
	}
	r := newEmptyRelation(vm.decls[key.Rel])
	vm.relations[key] = r
	return r
}

func newEmptyRelation(decl *ast.Declaration) relation.Relation {
	if decl != nil && decl.Lattice != nil {
		return relation.NewOrderedSetWithLattice(decl.LatticeKeyCols, decl.Lattice)
	}
	if decl != nil && isEAVShaped(decl) {
		return relation.NewHexastore()
	}
	return relation.NewOrderedSet()
}

func isEAVShaped(decl *ast.Declaration) bool {
	want := map[string]bool{"entity": false, "attribute": false, "value": false}
	for _, c := range decl.Cols {
		if _, ok := want[c.String()]; ok {
			want[c.String()] = true
		}
	}
	for _, seen := range want {
		if !seen {
			return false
		}
	}
	return true
}

// Step executes exactly one statement (spec.md §4.5), advancing the
// program counter. Returns an error only on an internal invariant
// violation — the static validator should have prevented anything else.
func (vm *VM) Step() error {
	cur := len(vm.stack) - 1
	top := vm.stack[cur]

	if top.idx >= len(top.stmts) {
		if cur == 0 {
			vm.clock.Epoch++
			vm.clock.Iteration = 0
			vm.stack[cur].idx = 0
			return nil
		}
		if top.done {
			vm.stack = vm.stack[:cur]
			return nil
		}
		vm.clock.Iteration++
		vm.stack[cur].idx = 0
		return nil
	}

	stmt := top.stmts[top.idx]
	vm.stack[cur].idx++
	return vm.exec(stmt)
}

// StepEpoch runs Step until the epoch counter advances, i.e. until the
// whole statement list has executed once from the top.
func (vm *VM) StepEpoch() error {
	start := vm.clock.Epoch
	for vm.clock.Epoch == start {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) exec(stmt ram.Statement) error {
	switch s := stmt.(type) {
	case ram.Sources:
		return vm.execSources(s)
	case ram.Insert:
		if s.Ground && vm.clock.Epoch > 0 {
			return nil
		}
		return vm.execOperation(s.Op, NewBindings())
	case ram.Merge:
		from := vm.relationOf(s.From)
		into := vm.relationOf(s.Into)
		vm.relations[s.Into] = into.Merge(from)
		return nil
	case ram.Swap:
		left, right := vm.relationOf(s.Left), vm.relationOf(s.Right)
		vm.relations[s.Left], vm.relations[s.Right] = right, left
		return nil
	case ram.Purge:
		vm.relations[s.Key] = newEmptyRelation(vm.decls[s.Key.Rel])
		return nil
	case ram.Loop:
		vm.stack = append(vm.stack, frame{stmts: s.Body})
		return nil
	case ram.Exit:
		if vm.allEmpty(s.Keys) {
			vm.stack[len(vm.stack)-1].done = true
		}
		return nil
	case ram.Sinks:
		for _, key := range s.Relations {
			for _, t := range vm.relationOf(key).All() {
				vm.output = append(vm.output, OutputFact{Rel: key.Rel, Tuple: t})
			}
		}
		return nil
	}
	return errs.Internal.New("unknown statement type")
}

func (vm *VM) allEmpty(keys []ram.RelationKey) bool {
	for _, k := range keys {
		if !vm.relationOf(k).IsEmpty() {
			return false
		}
	}
	return true
}

func (vm *VM) execSources(s ram.Sources) error {
	byRel := map[id.RelationId]ram.RelationKey{}
	for _, k := range s.Relations {
		byRel[k.Rel] = k
	}
	pending := vm.input
	vm.input = nil
	for _, fact := range pending {
		key, ok := byRel[fact.Rel]
		if !ok {
			continue
		}
		rel := vm.relationOf(key)
		rel.Insert(fact.Tuple)
		vm.relations[key] = rel
	}
	return nil
}

func (vm *VM) execOperation(op ram.Operation, b Bindings) error {
	switch o := op.(type) {
	case ram.Search:
		return vm.execSearch(o, b)
	case ram.Project:
		return vm.execProject(o, b)
	case ram.Aggregation:
		return vm.execAggregation(o, b)
	}
	return errs.Internal.New("unknown operation type")
}

func (vm *VM) resolveBindings(terms map[id.ColId]ram.Term, b Bindings) ([]relation.Binding, bool) {
	out := make([]relation.Binding, 0, len(terms))
	for col, term := range terms {
		v, ok := b.Resolve(term)
		if !ok {
			return nil, false
		}
		out = append(out, relation.Binding{Col: col, Val: v})
	}
	return out, true
}

func (vm *VM) execSearch(o ram.Search, b Bindings) error {
	constraints, ok := vm.resolveBindings(o.Bindings, b)
	if !ok {
		return errs.Internal.New("unresolved search constraint")
	}
	rel := vm.relationOf(o.Key)
	for _, tuple := range rel.Search(constraints) {
		nb := b
		for col, v := range tuple {
			nb = nb.WithCol(o.Key.Rel, o.Alias, col, v)
		}
		if o.Key.Src == ast.EDB {
			nb = nb.WithCid(o.Key.Rel, o.Alias, value.Cid(relation.CidOf(tuple)))
		}
		pass, err := vm.evalWhen(o.When, nb)
		if err != nil {
			return err
		}
		if !pass {
			continue
		}
		if o.Then != nil {
			if err := vm.execOperation(o.Then, nb); err != nil {
				return err
			}
		}
	}
	return nil
}

func (vm *VM) execProject(o ram.Project, b Bindings) error {
	pass, err := vm.evalWhen(o.When, b)
	if err != nil {
		return err
	}
	if !pass {
		return nil
	}
	tuple := make(relation.Tuple, len(o.Mapping))
	for col, term := range o.Mapping {
		v, ok := b.Resolve(term)
		if !ok {
			return errs.Internal.New("unresolved projection term")
		}
		tuple[col] = v
	}
	rel := vm.relationOf(o.Into)
	rel.Insert(tuple)
	vm.relations[o.Into] = rel
	return nil
}

func (vm *VM) execAggregation(o ram.Aggregation, b Bindings) error {
	groupBindings, ok := vm.resolveBindings(o.GroupBy, b)
	if !ok {
		return errs.Internal.New("unresolved aggregation group-by")
	}
	src := vm.relationOf(o.Src)

	acc := o.Agg.Init()
	for _, tuple := range src.Search(groupBindings) {
		args := make([]interface{}, len(o.Args))
		for i, term := range o.Args {
			col, ok := term.(ram.Col)
			if !ok {
				return errs.Internal.New("aggregation argument must resolve against the source tuple")
			}
			args[i] = tuple[col.Col]
		}
		acc = o.Agg.Step(acc, args)
	}

	result, emit := o.Agg.Finalize(acc)
	if !emit {
		return nil
	}
	val, ok := result.(value.Val)
	if !ok {
		return errs.Internal.New("aggregate finalize returned a non-Val result")
	}

	nb := b.WithAgg(o.Rel, o.Alias, o.Target, val)
	pass, err := vm.evalWhen(o.When, nb)
	if err != nil {
		return err
	}
	if !pass {
		return nil
	}
	if o.Then != nil {
		return vm.execOperation(o.Then, nb)
	}
	return nil
}

func (vm *VM) evalWhen(formulas []ram.Formula, b Bindings) (bool, error) {
	for _, f := range formulas {
		switch ff := f.(type) {
		case ram.Equality:
			l, lok := b.Resolve(ff.Left)
			r, rok := b.Resolve(ff.Right)
			if !lok || !rok {
				return false, errs.Internal.New("unresolved equality operand")
			}
			if value.Compare(l, r) != 0 {
				return false, nil
			}
		case ram.NotIn:
			bindings, ok := vm.resolveBindings(ff.Bindings, b)
			if !ok {
				return false, errs.Internal.New("unresolved not-in binding")
			}
			if vm.relationOf(ff.Key).Contains(bindings) {
				return false, nil
			}
		case ram.Predicate:
			args := make([]value.Val, len(ff.Args))
			for i, t := range ff.Args {
				v, ok := b.Resolve(t)
				if !ok {
					return false, errs.Internal.New("unresolved predicate argument")
				}
				args[i] = v
			}
			ok, err := ff.Fn(args)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}
