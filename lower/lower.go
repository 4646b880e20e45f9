// Package lower compiles a validated, stratified Program into a ram.Program
// (spec.md §4.4): per-stratum statement sequences driving semi-naive
// evaluation, with each rule expanded into its 2^k-1 delta/total rewrites
// and each rewrite's body terms greedily ordered to maximize already-bound
// variables at every step.
//
// Grounded on the original's logic/lower_to_ram.rs for the overall
// algorithm shape (non-recursive vs. recursive stratum lowering, the
// static/dynamic rule partition, the rewrite-count formula) and
// cross-checked against google/mangle's seminaivebottomup.go, which
// implements the same "iterate until the delta round is empty" loop over
// a different storage model — useful for confirming the merge/purge/swap
// bookkeeping is the standard semi-naive shape and not specific to the
// original's Rust ownership quirks.
package lower

import (
	"sort"

	"github.com/rhizomedb/rhizome/ast"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/ram"
	"github.com/rhizomedb/rhizome/stratify"
)

// Lower compiles prog into a ram.Program. prog must already have passed
// package validate; Lower itself only returns an error if stratification
// fails.
func Lower(prog *ast.Program) (*ram.Program, error) {
	strata, err := stratify.Stratify(prog)
	if err != nil {
		return nil, err
	}

	var inputs, outputs []id.RelationId
	for relID, decl := range prog.Decls {
		if decl.Src == ast.EDB {
			inputs = append(inputs, relID)
		} else {
			outputs = append(outputs, relID)
		}
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i] < inputs[j] })
	sort.Slice(outputs, func(i, j int) bool { return outputs[i] < outputs[j] })

	var stmts []ram.Statement

	var edbDeltaKeys []ram.RelationKey
	for _, relID := range inputs {
		edbDeltaKeys = append(edbDeltaKeys, ram.RelationKey{Rel: relID, Src: ast.EDB, Version: ram.Delta})
	}
	stmts = append(stmts, ram.Sources{Relations: edbDeltaKeys})

	// Admit this tick's sourced facts into Total before any stratum reads
	// them: every RelPredicate over an EDB relation searches Total only
	// (lowerRule never treats an EDB relation as a stratum "self" relation
	// eligible for a Delta rewrite), so a rule must see a tick's freshly
	// sourced facts in Total by the time its stratum runs, not one tick
	// later. See DESIGN.md's "EDB admission ordering" entry.
	for _, relID := range inputs {
		total := ram.RelationKey{Rel: relID, Src: ast.EDB, Version: ram.Total}
		delta := ram.RelationKey{Rel: relID, Src: ast.EDB, Version: ram.Delta}
		stmts = append(stmts, ram.Merge{From: delta, Into: total}, ram.Purge{Key: delta})
	}

	ag := &id.AliasGen{}
	for _, stratum := range strata {
		relSet := relationSet(stratum.Relations)
		if stratum.Recursive {
			stmts = append(stmts, lowerRecursiveStratum(prog, stratum, relSet, ag)...)
		} else {
			stmts = append(stmts, lowerNonRecursiveStratum(prog, stratum, relSet, ag)...)
		}
	}

	for relID, decl := range prog.Decls {
		if decl.Src == ast.IDB {
			stmts = append(stmts, ram.Purge{Key: ram.RelationKey{Rel: relID, Src: ast.IDB, Version: ram.Delta}})
		}
	}

	return &ram.Program{Inputs: inputs, Outputs: outputs, Statements: stmts}, nil
}

func relationSet(rels []id.RelationId) map[id.RelationId]bool {
	m := make(map[id.RelationId]bool, len(rels))
	for _, r := range rels {
		m[r] = true
	}
	return m
}

func factsFor(prog *ast.Program, relSet map[id.RelationId]bool) []ast.Fact {
	var facts []ast.Fact
	for _, f := range prog.Facts() {
		if relSet[f.Rel] {
			facts = append(facts, f)
		}
	}
	return facts
}

// lowerFact compiles a ground fact into an Insert that writes it directly
// into the relation's Delta, marked Ground so the VM only executes it on
// the very first tick (spec.md §4.5).
func lowerFact(f ast.Fact) ram.Statement {
	mapping := make(map[id.ColId]ram.Term, len(f.Cols))
	for col, v := range f.Cols {
		mapping[col] = ram.Lit{Val: v}
	}
	op := ram.Project{
		Mapping: mapping,
		Into:    ram.RelationKey{Rel: f.Rel, Src: f.Decl.Src, Version: ram.Delta},
	}
	return ram.Insert{Op: op, Ground: true}
}

func lowerNonRecursiveStratum(prog *ast.Program, stratum stratify.Stratum, relSet map[id.RelationId]bool, ag *id.AliasGen) []ram.Statement {
	var stmts []ram.Statement
	for _, f := range factsFor(prog, relSet) {
		stmts = append(stmts, lowerFact(f))
	}
	for _, r := range stratum.Rules {
		stmts = append(stmts, lowerRule(r, relSet, ram.Delta, ag)...)
	}

	var deltaKeys []ram.RelationKey
	for _, rel := range stratum.Relations {
		deltaKeys = append(deltaKeys, ram.RelationKey{Rel: rel, Src: ast.IDB, Version: ram.Delta})
	}
	stmts = append(stmts, ram.Sinks{Relations: deltaKeys})
	for _, rel := range stratum.Relations {
		key := func(v ram.Version) ram.RelationKey { return ram.RelationKey{Rel: rel, Src: ast.IDB, Version: v} }
		stmts = append(stmts, ram.Merge{From: key(ram.Delta), Into: key(ram.Total)})
	}
	return stmts
}

func lowerRecursiveStratum(prog *ast.Program, stratum stratify.Stratum, relSet map[id.RelationId]bool, ag *id.AliasGen) []ram.Statement {
	var stmts []ram.Statement
	for _, f := range factsFor(prog, relSet) {
		stmts = append(stmts, lowerFact(f))
	}

	static, dynamic := partitionRules(stratum.Rules, relSet)
	for _, r := range static {
		stmts = append(stmts, lowerRule(r, relSet, ram.Delta, ag)...)
	}

	// The static rules' output sits in Delta and would otherwise never
	// reach a sink: the loop below only Sinks the New version each
	// iteration, and its first Swap moves this Delta content into New,
	// where the following iteration's Purge discards it unseen. Sink it
	// here, before the loop, the same way the base case would be emitted
	// in a non-recursive stratum.
	var staticDeltaKeys []ram.RelationKey
	for _, rel := range stratum.Relations {
		staticDeltaKeys = append(staticDeltaKeys, ram.RelationKey{Rel: rel, Src: ast.IDB, Version: ram.Delta})
	}
	stmts = append(stmts, ram.Sinks{Relations: staticDeltaKeys})

	for _, rel := range stratum.Relations {
		key := func(v ram.Version) ram.RelationKey { return ram.RelationKey{Rel: rel, Src: ast.IDB, Version: v} }
		stmts = append(stmts, ram.Merge{From: key(ram.Delta), Into: key(ram.Total)})
	}

	var loopBody []ram.Statement
	for _, rel := range stratum.Relations {
		loopBody = append(loopBody, ram.Purge{Key: ram.RelationKey{Rel: rel, Src: ast.IDB, Version: ram.New}})
	}
	for _, r := range dynamic {
		loopBody = append(loopBody, lowerRule(r, relSet, ram.New, ag)...)
	}

	var newKeys, deltaKeys []ram.RelationKey
	for _, rel := range stratum.Relations {
		newKeys = append(newKeys, ram.RelationKey{Rel: rel, Src: ast.IDB, Version: ram.New})
		deltaKeys = append(deltaKeys, ram.RelationKey{Rel: rel, Src: ast.IDB, Version: ram.Delta})
	}
	loopBody = append(loopBody, ram.Sinks{Relations: newKeys})
	for _, rel := range stratum.Relations {
		key := func(v ram.Version) ram.RelationKey { return ram.RelationKey{Rel: rel, Src: ast.IDB, Version: v} }
		loopBody = append(loopBody, ram.Merge{From: key(ram.New), Into: key(ram.Total)})
	}
	loopBody = append(loopBody, ram.Exit{Keys: newKeys})
	for i := range stratum.Relations {
		loopBody = append(loopBody, ram.Swap{Left: newKeys[i], Right: deltaKeys[i]})
	}

	stmts = append(stmts, ram.Loop{Body: loopBody})
	return stmts
}

// partitionRules splits a recursive stratum's rules into those with no
// body dependency on one of relSet's own relations (static — need run
// only once) and those with such a dependency (dynamic — rerun every
// iteration of the fixpoint loop).
func partitionRules(rules []*ast.Rule, relSet map[id.RelationId]bool) (static, dynamic []*ast.Rule) {
	for _, r := range rules {
		selfRef := false
		for _, dep := range r.Dependencies() {
			if relSet[dep.Rel] {
				selfRef = true
				break
			}
		}
		if selfRef {
			dynamic = append(dynamic, r)
		} else {
			static = append(static, r)
		}
	}
	return static, dynamic
}
