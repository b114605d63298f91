package grammar

import (
	"fmt"

	"github.com/dhamidi/iparse/ident"
	"github.com/dhamidi/iparse/tree"
)

// Tree types of the meta-grammar.
var (
	idNtDef        = ident.New("nt_def")
	idRule         = ident.New("rule")
	idLiteral      = ident.New("literal")
	idLocal        = ident.New("local")
	idOpt          = ident.New("opt")
	idAvoid        = ident.New("avoid")
	idNonGreedy    = ident.New("nongreedy")
	idSeq          = ident.New("seq")
	idList         = ident.New("list")
	idChain        = ident.New("chain")
	idIdentDefAdd  = ident.New("identdefadd")
	idIdentDef     = ident.New("identdef")
	idIdentUse     = ident.New("identuse")
	idIdentField   = ident.New("identfield")
	idIdentAlone   = ident.New("identalone")
	idOpenContext  = ident.New("opencontext")
	idCloseContext = ident.New("closecontext")
	idWSTerminal   = ident.New("wsterminal")
	idIdent        = ident.New(TermIdent)
)

type LoadOption func(*loader)

// WithTerminals sets the predicate deciding which undefined names are
// scanner terminals. The default accepts the built-in terminals.
func WithTerminals(isTerminal func(name string) bool) LoadOption {
	return func(l *loader) {
		l.isTerminal = isTerminal
	}
}

type loader struct {
	g          *Grammar
	isTerminal func(string) bool
	path       []string
	refs       []refSite
	literals   map[Literal]bool
}

type refSite struct {
	ref  *Ref
	path []string
}

// Load builds the grammar model for the grammar tree t.
func Load(t tree.Tree, opts ...LoadOption) (*Grammar, error) {
	l := &loader{
		g: &Grammar{
			tree: t,
			nts:  make(map[ident.Ident]*NonTerminal),
		},
		isTerminal: IsBuiltinTerminal,
		literals:   make(map[Literal]bool),
	}
	for _, opt := range opts {
		opt(l)
	}

	if !t.IsList() {
		return nil, l.errorf("grammar must be a list of nt_def, got %s", t.Kind())
	}

	// Declare every non-terminal first so rules can refer forward.
	i := 0
	for def := range t.Children() {
		l.push(fmt.Sprintf("nt_def %d", i))
		if !def.IsTreeOf(idNtDef) || def.NrParts() != 2 || !def.Child(0).IsIdent() {
			return nil, l.errorf("expected nt_def(ident, rules), got %s", describe(def))
		}
		name := def.Child(0).Ident()
		if l.g.nts[name] == nil {
			nt := &NonTerminal{Name: name}
			l.g.nts[name] = nt
			l.g.order = append(l.g.order, nt)
		}
		l.pop()
		i++
	}

	for def := range t.Children() {
		nt := l.g.nts[def.Child(0).Ident()]
		l.push(nt.Name.String())
		rules, err := l.rules(def.Child(1), nt)
		if err != nil {
			return nil, err
		}
		nt.Rules = append(nt.Rules, rules...)
		l.pop()
	}

	for _, site := range l.refs {
		if nt, ok := l.g.nts[site.ref.Name]; ok {
			site.ref.Def = nt
			continue
		}
		if !l.isTerminal(site.ref.Name.String()) {
			return nil, &MalformedGrammarError{Path: site.path, Msg: fmt.Sprintf("undefined non-terminal %s", site.ref.Name)}
		}
	}

	return l.g, nil
}

func (l *loader) push(step string) {
	l.path = append(l.path, step)
}

func (l *loader) pop() {
	l.path = l.path[:len(l.path)-1]
}

func (l *loader) errorf(format string, args ...any) error {
	return &MalformedGrammarError{
		Path: append([]string(nil), l.path...),
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (l *loader) rules(t tree.Tree, owner *NonTerminal) ([]*Rule, error) {
	if !t.IsList() {
		return nil, l.errorf("expected list of rules, got %s", describe(t))
	}
	var rules []*Rule
	i := 0
	for rt := range t.Children() {
		l.push(fmt.Sprintf("rule %d", i))
		r, err := l.rule(rt, owner)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
		l.pop()
		i++
	}
	return rules, nil
}

func (l *loader) rule(t tree.Tree, owner *NonTerminal) (*Rule, error) {
	if !t.IsTreeOf(idRule) || t.NrParts() > 2 {
		return nil, l.errorf("expected rule(elements, type), got %s", describe(t))
	}
	r := &Rule{Owner: owner}

	elems := t.Child(0)
	switch {
	case elems.IsEmpty():
	case elems.IsList():
		i := 0
		for et := range elems.Children() {
			l.push(fmt.Sprintf("element %d", i))
			e, err := l.element(et, owner)
			if err != nil {
				return nil, err
			}
			r.Elements = append(r.Elements, e)
			l.pop()
			i++
		}
	default:
		return nil, l.errorf("rule elements must be a list, got %s", describe(elems))
	}

	typ := t.Child(1)
	switch {
	case typ.IsEmpty():
	case typ.IsIdent():
		r.Type = typ.Ident()
	default:
		return nil, l.errorf("rule type must be an identifier, got %s", describe(typ))
	}
	return r, nil
}

func (l *loader) element(t tree.Tree, owner *NonTerminal) (Element, error) {
	switch {
	case t.IsIdent():
		return l.ref(t.Ident(), Plain, ident.Ident{}), nil
	case t.IsList():
		rules, err := l.rules(t, owner)
		if err != nil {
			return nil, err
		}
		if len(rules) == 0 {
			return nil, l.errorf("empty group")
		}
		return &Group{Rules: rules}, nil
	case !t.IsTree():
		return nil, l.errorf("unexpected %s in rule", describe(t))
	}

	switch typ := t.Type(); typ {
	case idLiteral:
		if err := l.arity(t, 2); err != nil {
			return nil, err
		}
		if !t.Child(0).IsString() {
			return nil, l.errorf("literal text must be a string, got %s", describe(t.Child(0)))
		}
		flag, err := l.flag(t.Child(1), idLocal)
		if err != nil {
			return nil, err
		}
		lit := &Literal{Text: t.Child(0).Str(), Local: flag == idLocal}
		if lit.Text == "" {
			return nil, l.errorf("empty literal")
		}
		l.addLiteral(lit)
		return lit, nil

	case idOpt:
		if err := l.arity(t, 2); err != nil {
			return nil, err
		}
		body, err := l.body(t.Child(0), owner)
		if err != nil {
			return nil, err
		}
		flag, err := l.flag(t.Child(1), idAvoid, idNonGreedy)
		if err != nil {
			return nil, err
		}
		return &Opt{Body: body, Avoid: flag == idAvoid, NonGreedy: flag == idNonGreedy}, nil

	case idSeq, idList:
		if err := l.arity(t, 2); err != nil {
			return nil, err
		}
		body, err := l.body(t.Child(0), owner)
		if err != nil {
			return nil, err
		}
		flag, err := l.flag(t.Child(1), idAvoid)
		if err != nil {
			return nil, err
		}
		if typ == idSeq {
			return &Seq{Body: body, Avoid: flag == idAvoid}, nil
		}
		return &List{Body: body, Avoid: flag == idAvoid}, nil

	case idChain:
		if err := l.arity(t, 3); err != nil {
			return nil, err
		}
		body, err := l.body(t.Child(0), owner)
		if err != nil {
			return nil, err
		}
		flag, err := l.flag(t.Child(1), idAvoid)
		if err != nil {
			return nil, err
		}
		sep := t.Child(2)
		if !sep.IsString() || sep.Str() == "" {
			return nil, l.errorf("chain separator must be a non-empty string, got %s", describe(sep))
		}
		lit := &Literal{Text: sep.Str()}
		l.addLiteral(lit)
		return &Chain{Body: body, Sep: lit, Avoid: flag == idAvoid}, nil

	case idIdentDefAdd, idIdentDef, idIdentUse, idIdentField:
		if err := l.arity(t, 1); err != nil {
			return nil, err
		}
		field := t.Child(0)
		if !field.IsIdent() {
			return nil, l.errorf("%s needs a field name, got %s", typ, describe(field))
		}
		binding := map[ident.Ident]Binding{
			idIdentDefAdd: DefineAppend,
			idIdentDef:    DefineSingle,
			idIdentUse:    Use,
			idIdentField:  AsField,
		}[typ]
		return l.ref(idIdent, binding, field.Ident()), nil

	case idIdentAlone:
		if err := l.arity(t, 0); err != nil {
			return nil, err
		}
		return l.ref(idIdent, AsLeaf, ident.Ident{}), nil

	case idOpenContext, idCloseContext:
		if err := l.arity(t, 0); err != nil {
			return nil, err
		}
		return &Context{Open: typ == idOpenContext}, nil

	case idWSTerminal:
		if err := l.arity(t, 1); err != nil {
			return nil, err
		}
		name := t.Child(0)
		if !name.IsIdent() || !l.isTerminal(name.Ident().String()) {
			return nil, l.errorf("wsterminal needs a terminal name, got %s", describe(name))
		}
		return &WSTerminal{Name: name.Ident()}, nil
	}

	return nil, l.errorf("unknown element type %s", t.Type())
}

// body loads the operand of OPT, SEQ, LIST and CHAIN.
func (l *loader) body(t tree.Tree, owner *NonTerminal) (Element, error) {
	l.push("body")
	defer l.pop()
	if t.IsEmpty() {
		return nil, l.errorf("missing operand")
	}
	return l.element(t, owner)
}

func (l *loader) arity(t tree.Tree, max int) error {
	if t.NrParts() > max {
		return l.errorf("%s takes at most %d children, got %d", t.Type(), max, t.NrParts())
	}
	return nil
}

// flag accepts Empty or an empty Tree of one of the allowed types and
// returns that type.
func (l *loader) flag(t tree.Tree, allowed ...ident.Ident) (ident.Ident, error) {
	if t.IsEmpty() {
		return ident.Ident{}, nil
	}
	if t.IsTree() && t.NrParts() == 0 {
		for _, a := range allowed {
			if t.Type() == a {
				return a, nil
			}
		}
	}
	return ident.Ident{}, l.errorf("unexpected modifier %s", describe(t))
}

func (l *loader) ref(name ident.Ident, binding Binding, field ident.Ident) *Ref {
	r := &Ref{Name: name, Binding: binding, Field: field}
	l.refs = append(l.refs, refSite{ref: r, path: append([]string(nil), l.path...)})
	return r
}

func (l *loader) addLiteral(lit *Literal) {
	if l.literals[*lit] {
		return
	}
	l.literals[*lit] = true
	l.g.literals = append(l.g.literals, *lit)
}

func describe(t tree.Tree) string {
	if t.IsTree() {
		return "tree " + t.Type().String()
	}
	if t.IsIdent() || t.IsString() {
		return fmt.Sprintf("%s %s", t.Kind(), t)
	}
	return t.Kind().String()
}
