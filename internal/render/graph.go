package render

import (
	"fmt"

	"github.com/zboralski/lattice"

	"ppcextab/internal/extab"
)

// ActionCFG builds a control-flow view of a table's action chain: one basic
// block per action record, fallthrough edges between consecutive records
// (cut by the end bit), branch edges for Branch records, and destructor
// names attached as call sites.
func ActionCFG(name string, t *extab.Table, names []string) (*lattice.FuncCFG, error) {
	// Branch targets name records by table offset; build the reverse map.
	// Targets may be absolute or relative to the start of the action region.
	byOffset := make(map[uint32]int, len(t.Actions))
	regionStart := uint32(0)
	if len(t.Actions) > 0 {
		regionStart = t.Actions[0].TableOffset
	}
	for i := range t.Actions {
		byOffset[t.Actions[i].TableOffset] = i
	}

	cfg := &lattice.FuncCFG{Name: name}
	nameIndex := 0

	for i := range t.Actions {
		rec := &t.Actions[i]
		blk := &lattice.BasicBlock{
			ID:    i,
			Start: i,
			End:   i + 1,
			Term:  rec.HasEndBit,
		}

		if !rec.HasEndBit && i+1 < len(t.Actions) {
			blk.Succs = append(blk.Succs, lattice.Successor{BlockID: i + 1})
		}

		if rec.Kind == extab.Branch {
			data, err := rec.Data()
			if err != nil {
				return nil, fmt.Errorf("graph: action at 0x%X: %w", rec.TableOffset, err)
			}
			target := uint32(data.(extab.BranchData).TargetOffset)
			idx, ok := byOffset[target]
			if !ok {
				idx, ok = byOffset[regionStart+target]
			}
			if ok {
				blk.Succs = append(blk.Succs, lattice.Successor{BlockID: idx, Cond: "T"})
			}
		}

		if rec.Kind.HasDtorRef() {
			callee := "?"
			if nameIndex < len(names) && names[nameIndex] != "" {
				callee = names[nameIndex]
			}
			nameIndex++
			blk.Calls = append(blk.Calls, lattice.CallSite{Offset: i, Callee: callee})
		}

		cfg.Blocks = append(cfg.Blocks, blk)
	}
	return cfg, nil
}

// DtorGraph builds a call graph from a function to the destructors its
// exception table invokes during unwinding.
func DtorGraph(funcName string, t *extab.Table, names []string) *lattice.Graph {
	g := &lattice.Graph{}
	g.Nodes = append(g.Nodes, funcName)

	nameIndex := 0
	for i := range t.Actions {
		if !t.Actions[i].Kind.HasDtorRef() {
			continue
		}
		callee := ""
		if nameIndex < len(names) {
			callee = names[nameIndex]
		}
		nameIndex++
		if callee == "" {
			continue
		}
		g.Nodes = append(g.Nodes, callee)
		g.Edges = append(g.Edges, lattice.Edge{Caller: funcName, Callee: callee})
	}
	g.Dedup()
	return g
}
