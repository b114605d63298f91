package engine

import (
	"context"
	"slices"

	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// Par explores every branch of every choice at once. Live configurations
// advance one goal per round, round-robin, and a choice forks one
// configuration per branch. Each configuration carries the branch indexes
// that led to it; among those that match, the smallest path in
// lexicographic order wins, which is the parse a backtracking engine finds
// first.
type Par struct {
	core
}

func NewPar(sc scanner.Scanner, opts ...Option) *Par {
	return &Par{core: newCore(sc, false, opts)}
}

type parConfig struct {
	config
	path []int
}

func (e *Par) Parse(ctx context.Context, src []byte, root string) (result tree.Tree, err error) {
	m, ref, err := e.begin(ctx, src, root)
	if err != nil {
		return tree.Tree{}, err
	}
	defer recoverAbort(&err)

	mc := machine{m}
	live := []parConfig{{config: mc.start(ref)}}
	var best *parConfig
	for len(live) > 0 {
		next := live[:0:0]
		for _, p := range live {
			// Whatever p becomes, it sorts after the best match found so far.
			if best != nil && slices.Compare(p.path, best.path) > 0 {
				continue
			}
			branches, ok := mc.step(&p.config)
			switch {
			case !ok:
			case branches != nil:
				for i, b := range branches {
					next = append(next, parConfig{config: b.cfg, path: append(slices.Clip(p.path), i)})
				}
			case p.done:
				if best == nil || slices.Compare(p.path, best.path) < 0 {
					done := p
					best = &done
				}
			default:
				next = append(next, p)
			}
		}
		if e.debug.Parse {
			e.log.Debugf("par: %d live configurations", len(next))
		}
		live = next
	}

	if best == nil {
		return tree.Tree{}, m.failure()
	}
	return best.st.result(), nil
}
