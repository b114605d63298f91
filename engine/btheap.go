package engine

import (
	"context"
	"fmt"

	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// Status is the outcome of one step of a Continuation.
type Status int

const (
	Progressed Status = iota
	Matched
	Failed
)

var statusNames = map[Status]string{
	Progressed: "Progressed",
	Matched:    "Matched",
	Failed:     "Failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// BTHeap is the backtracking engine on an explicit goal stack. Its parses
// can be driven one step at a time through Start.
type BTHeap struct {
	core
}

func NewBTHeap(sc scanner.Scanner, opts ...Option) *BTHeap {
	return &BTHeap{core: newCore(sc, false, opts)}
}

// Continuation is a suspended backtracking parse. The scanner of the engine
// that started it must not be used for anything else until the
// continuation is finished.
type Continuation struct {
	m       machine
	cur     config
	choices []config
	steps   int

	status Status
	result tree.Tree
	err    error
}

// Start begins parsing src at root without running any step.
func (e *BTHeap) Start(ctx context.Context, src []byte, root string) (*Continuation, error) {
	m, ref, err := e.begin(ctx, src, root)
	if err != nil {
		return nil, err
	}
	k := &Continuation{m: machine{m}}
	k.cur = k.m.start(ref)
	return k, nil
}

// Step runs one goal. Once it reports Matched or Failed, further calls
// return the same status.
func (k *Continuation) Step() (status Status) {
	if k.status != Progressed {
		return k.status
	}
	defer func() {
		if k.err != nil {
			k.status = Failed
			status = Failed
		}
	}()
	defer recoverAbort(&k.err)

	k.steps++
	branches, ok := k.m.step(&k.cur)
	switch {
	case !ok:
		if len(k.choices) == 0 {
			k.err = k.m.failure()
			return Failed
		}
		k.cur = k.choices[len(k.choices)-1]
		k.choices = k.choices[:len(k.choices)-1]
	case branches != nil:
		for i := len(branches) - 1; i > 0; i-- {
			k.choices = append(k.choices, branches[i].cfg)
		}
		k.cur = branches[0].cfg
	case k.cur.done:
		k.result = k.cur.st.result()
		k.status = Matched
	}
	return k.status
}

// Steps returns how many steps ran.
func (k *Continuation) Steps() int {
	return k.steps
}

// Result returns the tree once Step reported Matched.
func (k *Continuation) Result() tree.Tree {
	return k.result
}

// Err returns why the parse failed once Step reported Failed.
func (k *Continuation) Err() error {
	return k.err
}

func (e *BTHeap) Parse(ctx context.Context, src []byte, root string) (tree.Tree, error) {
	k, err := e.Start(ctx, src, root)
	if err != nil {
		return tree.Tree{}, err
	}
	for {
		switch k.Step() {
		case Matched:
			return k.Result(), nil
		case Failed:
			return tree.Tree{}, k.Err()
		}
	}
}
