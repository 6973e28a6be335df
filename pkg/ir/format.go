// Koopa IR text form
package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Fprint writes prog in Koopa IR text form
func Fprint(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)

	global := map[string]bool{}
	for _, fn := range prog.Functions {
		global[fn.Name] = true
	}
	for _, g := range prog.Globals {
		global[g.Name] = true
	}

	for _, fn := range prog.Functions {
		if !fn.IsDecl() {
			continue
		}
		params := make([]string, len(fn.ParamTypes))
		for i, t := range fn.ParamTypes {
			params[i] = t.String()
		}
		fmt.Fprintf(bw, "decl @%s(%s)%s\n", fn.Name, strings.Join(params, ", "), retSuffix(fn))
	}

	if len(prog.Globals) > 0 {
		bw.WriteString("\n")
	}
	for _, g := range prog.Globals {
		init := "zeroinit"
		if g.Init != 0 {
			init = fmt.Sprint(g.Init)
		}
		fmt.Fprintf(bw, "global @%s = alloc i32, %s\n", g.Name, init)
	}

	for _, fn := range prog.Functions {
		if fn.IsDecl() {
			continue
		}
		bw.WriteString("\n")
		newFuncPrinter(fn, global).print(bw)
	}

	return bw.Flush()
}

func (p *Program) String() string {
	var sb strings.Builder
	Fprint(&sb, p)
	return sb.String()
}

func retSuffix(fn *Function) string {
	if IsUnit(fn.ReturnType) {
		return ""
	}
	return ": " + fn.ReturnType.String()
}

type funcPrinter struct {
	fn    *Function
	names map[Value]string
	used  map[string]bool
	temp  int
}

func newFuncPrinter(fn *Function, global map[string]bool) *funcPrinter {
	used := make(map[string]bool, len(global))
	for n := range global {
		used[n] = true
	}
	return &funcPrinter{fn: fn, names: map[Value]string{}, used: used}
}

// unique returns name, or name_N when name is taken in this function
func (fp *funcPrinter) unique(name string) string {
	cand := name
	for i := 1; fp.used[cand]; i++ {
		cand = fmt.Sprintf("%s_%d", name, i)
	}
	fp.used[cand] = true
	return cand
}

// define names the result of v on first definition
func (fp *funcPrinter) define(v Value) string {
	data := fp.fn.Value(v)
	switch {
	case strings.HasPrefix(data.Name, "%"):
		fp.names[v] = data.Name
	case data.Name != "":
		fp.names[v] = "@" + fp.unique(data.Name)
	default:
		fp.names[v] = fmt.Sprintf("%%%d", fp.temp)
		fp.temp++
	}
	return fp.names[v]
}

func (fp *funcPrinter) ref(v Value) string {
	if name, ok := fp.names[v]; ok {
		return name
	}
	switch k := fp.fn.Value(v).Kind.(type) {
	case Integer:
		return fmt.Sprint(k.Val)
	case GlobalRef:
		return "@" + k.Global.Name
	}
	return fmt.Sprintf("%%?%d", int(v))
}

func (fp *funcPrinter) print(w *bufio.Writer) {
	fn := fp.fn
	params := make([]string, len(fn.Params))
	for i, v := range fn.Params {
		name := fn.Value(v).Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		fp.names[v] = "@" + fp.unique(name)
		params[i] = fmt.Sprintf("%s: %s", fp.names[v], fn.ParamTypes[i])
	}
	fmt.Fprintf(w, "fun @%s(%s)%s {\n", fn.Name, strings.Join(params, ", "), retSuffix(fn))

	for i, bb := range fn.Blocks {
		if i > 0 {
			w.WriteString("\n")
		}
		fmt.Fprintf(w, "%%%s:\n", bb.Label)
		for _, v := range bb.Insts {
			fmt.Fprintf(w, "  %s\n", fp.inst(v))
		}
		if bb.Terminated() {
			fmt.Fprintf(w, "  %s\n", fp.inst(bb.Term))
		}
	}
	w.WriteString("}\n")
}

func (fp *funcPrinter) inst(v Value) string {
	data := fp.fn.Value(v)
	switch k := data.Kind.(type) {
	case Alloc:
		return fmt.Sprintf("%s = alloc %s", fp.define(v), k.Elem)
	case Load:
		src := fp.ref(k.Src)
		return fmt.Sprintf("%s = load %s", fp.define(v), src)
	case Store:
		return fmt.Sprintf("store %s, %s", fp.ref(k.Val), fp.ref(k.Dest))
	case Binary:
		l, r := fp.ref(k.L), fp.ref(k.R)
		return fmt.Sprintf("%s = %s %s, %s", fp.define(v), k.Op, l, r)
	case Call:
		args := make([]string, len(k.Args))
		for i, a := range k.Args {
			args[i] = fp.ref(a)
		}
		call := fmt.Sprintf("call @%s(%s)", k.Callee.Name, strings.Join(args, ", "))
		if IsUnit(data.Type) {
			return call
		}
		return fmt.Sprintf("%s = %s", fp.define(v), call)
	case Branch:
		return fmt.Sprintf("br %s, %%%s, %%%s", fp.ref(k.Cond), k.True.Label, k.False.Label)
	case Jump:
		return fmt.Sprintf("jump %%%s", k.Target.Label)
	case Return:
		if k.Val == NoValue {
			return "ret"
		}
		return "ret " + fp.ref(k.Val)
	default:
		return fmt.Sprintf("<unexpected %T>", k)
	}
}
