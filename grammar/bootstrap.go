package grammar

import "github.com/dhamidi/iparse/tree"

// Bootstrap returns the grammar tree of the meta-grammar, the grammar that
// grammar texts are written in:
//
//	root : nt_def SEQ eof .
//	nt_def : ident ":" or_rule "." [nt_def] .
//	or_rule : rule CHAIN "|" .
//	rule : opt_elem SEQ OPT ( "[" ident "]" ) OPT [rule] .
//	opt_elem : list_elem "OPT" ( "AVOID" [avoid] | "NONGREEDY" [nongreedy] | ) [opt]
//	         | list_elem .
//	list_elem : prim_elem "SEQ" ( "AVOID" [avoid] | ) [seq]
//	          | prim_elem "LIST" ( "AVOID" [avoid] | ) [list]
//	          | prim_elem "CHAIN" ( "AVOID" [avoid] | ) string [chain]
//	          | prim_elem .
//	prim_elem : string ( "*" [local] ) OPT [literal]
//	          | ident
//	          | "ident"* ">+" ident [identdefadd]
//	          | "ident"* ">" ident [identdef]
//	          | "ident"* "<" ident [identuse]
//	          | "ident"* "!" ident [identfield]
//	          | "ident"* [identalone]
//	          | "{" [opencontext]
//	          | "}" [closecontext]
//	          | "\\" ident [wsterminal]
//	          | "(" or_rule ")" .
//
// Each call returns a fresh tree.
func Bootstrap() tree.Tree {
	var b tree.Builder

	lit := func(s string) {
		b.Tree("literal").Val(s).None().Close()
	}
	localLit := func(s string) {
		b.Tree("literal").Val(s).Tree("local").Close().Close()
	}
	rule := func(typ string, elems func()) {
		b.Tree("rule").List()
		elems()
		b.Close()
		if typ == "" {
			b.None()
		} else {
			b.ID(typ)
		}
		b.Close()
	}
	emptyRule := func() {
		b.Tree("rule").None().None().Close()
	}
	ntDef := func(name string, rules func()) {
		b.Tree("nt_def").ID(name).List()
		rules()
		b.Close().Close()
	}
	// ( "AVOID" [avoid] | )
	avoidGroup := func() {
		b.List()
		rule("avoid", func() { lit("AVOID") })
		emptyRule()
		b.Close()
	}
	// "ident"* keyword ident [typ]
	bindingRule := func(keyword, typ string) {
		rule(typ, func() {
			localLit("ident")
			lit(keyword)
			b.ID("ident")
		})
	}

	b.List()

	ntDef("root", func() {
		rule("", func() {
			b.Tree("seq").ID("nt_def").None().Close()
			b.ID("eof")
		})
	})

	ntDef("nt_def", func() {
		rule("nt_def", func() {
			b.ID("ident")
			lit(":")
			b.ID("or_rule")
			lit(".")
		})
	})

	ntDef("or_rule", func() {
		rule("", func() {
			b.Tree("chain").ID("rule").None().Val("|").Close()
		})
	})

	ntDef("rule", func() {
		rule("rule", func() {
			b.Tree("opt")
			b.Tree("seq").ID("opt_elem").None().Close()
			b.None()
			b.Close()

			b.Tree("opt")
			b.List()
			rule("", func() {
				lit("[")
				b.ID("ident")
				lit("]")
			})
			b.Close()
			b.None()
			b.Close()
		})
	})

	ntDef("opt_elem", func() {
		rule("opt", func() {
			b.ID("list_elem")
			lit("OPT")
			b.List()
			rule("avoid", func() { lit("AVOID") })
			rule("nongreedy", func() { lit("NONGREEDY") })
			emptyRule()
			b.Close()
		})
		rule("", func() {
			b.ID("list_elem")
		})
	})

	ntDef("list_elem", func() {
		rule("seq", func() {
			b.ID("prim_elem")
			lit("SEQ")
			avoidGroup()
		})
		rule("list", func() {
			b.ID("prim_elem")
			lit("LIST")
			avoidGroup()
		})
		rule("chain", func() {
			b.ID("prim_elem")
			lit("CHAIN")
			avoidGroup()
			b.ID("string")
		})
		rule("", func() {
			b.ID("prim_elem")
		})
	})

	ntDef("prim_elem", func() {
		rule("literal", func() {
			b.ID("string")
			b.Tree("opt")
			b.List()
			rule("local", func() { lit("*") })
			b.Close()
			b.None()
			b.Close()
		})
		rule("", func() {
			b.ID("ident")
		})
		bindingRule(">+", "identdefadd")
		bindingRule(">", "identdef")
		bindingRule("<", "identuse")
		bindingRule("!", "identfield")
		rule("identalone", func() {
			localLit("ident")
		})
		rule("opencontext", func() {
			lit("{")
		})
		rule("closecontext", func() {
			lit("}")
		})
		rule("wsterminal", func() {
			lit(`\`)
			b.ID("ident")
		})
		rule("", func() {
			lit("(")
			b.ID("or_rule")
			lit(")")
		})
	})

	b.Close()
	return b.Root()
}
