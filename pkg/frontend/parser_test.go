package frontend

import (
	"fmt"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *CompUnit {
	t.Helper()
	unit, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v\nsource:\n%s", err, src)
	}
	return unit
}

func TestParseFunction(t *testing.T) {
	unit := mustParse(t, `int add(int a, int b) { return a + b; }`)
	if len(unit.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(unit.Items))
	}
	fn, ok := unit.Items[0].(*FuncDef)
	if !ok {
		t.Fatalf("item is %T, want *FuncDef", unit.Items[0])
	}
	if fn.Name != "add" || fn.RetType != TypeInt || len(fn.Params) != 2 {
		t.Errorf("unexpected function header: %+v", fn)
	}
	if fn.Params[1].Name != "b" || fn.Params[1].Type != TypeInt {
		t.Errorf("param 1 = %+v", fn.Params[1])
	}
	ret, ok := fn.Body.Items[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("body[0] is %T, want *ReturnStmt", fn.Body.Items[0])
	}
	bin, ok := ret.Value.(*BinaryExpr)
	if !ok || bin.Op != Add {
		t.Errorf("return value = %#v, want a + b", ret.Value)
	}
}

func TestParseGlobals(t *testing.T) {
	unit := mustParse(t, `
const int N = 10, M = N * 2;
int g = 3, h;
void f() {}
`)
	if len(unit.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(unit.Items))
	}
	cd := unit.Items[0].(*ConstDecl)
	if len(cd.Defs) != 2 || cd.Defs[1].Name != "M" {
		t.Errorf("const decl = %+v", cd)
	}
	vd := unit.Items[1].(*VarDecl)
	if len(vd.Defs) != 2 || vd.Defs[0].Init == nil || vd.Defs[1].Init != nil {
		t.Errorf("var decl = %+v", vd)
	}
	fn := unit.Items[2].(*FuncDef)
	if fn.RetType != TypeVoid || len(fn.Body.Items) != 0 {
		t.Errorf("void function = %+v", fn)
	}
}

func TestParsePrecedence(t *testing.T) {
	unit := mustParse(t, `int main() { return 1 + 2 * 3 < 4 || !5 && -6 == 7; }`)
	ret := unit.Items[0].(*FuncDef).Body.Items[0].(*ReturnStmt)

	or, ok := ret.Value.(*BinaryExpr)
	if !ok || or.Op != LOr {
		t.Fatalf("top = %#v, want ||", ret.Value)
	}
	lt := or.L.(*BinaryExpr)
	if lt.Op != Lt {
		t.Errorf("left of || is %v, want <", lt.Op)
	}
	add := lt.L.(*BinaryExpr)
	if add.Op != Add || add.R.(*BinaryExpr).Op != Mul {
		t.Errorf("1 + 2 * 3 parsed as %#v", add)
	}
	and := or.R.(*BinaryExpr)
	if and.Op != LAnd {
		t.Errorf("right of || is %v, want &&", and.Op)
	}
	if u, ok := and.L.(*UnaryExpr); !ok || u.Op != Not {
		t.Errorf("!5 parsed as %#v", and.L)
	}
	eq := and.R.(*BinaryExpr)
	if eq.Op != Eq || eq.L.(*UnaryExpr).Op != Minus {
		t.Errorf("-6 == 7 parsed as %#v", eq)
	}
}

func TestParseLeftAssociative(t *testing.T) {
	unit := mustParse(t, `int main() { return 10 - 3 - 2; }`)
	ret := unit.Items[0].(*FuncDef).Body.Items[0].(*ReturnStmt)
	outer := ret.Value.(*BinaryExpr)
	if _, ok := outer.L.(*BinaryExpr); !ok {
		t.Errorf("10 - 3 - 2 should group as (10 - 3) - 2, got %#v", outer)
	}
}

func TestParseStatements(t *testing.T) {
	unit := mustParse(t, `
int main() {
	int a = 0;
	const int b = 1;
	;
	a = a + b;
	getint();
	{ int a; }
	while (a < 5) {
		if (a == 3) break; else continue;
	}
	if (a) if (b) return 1; else return 2;
	return;
}`)
	items := unit.Items[0].(*FuncDef).Body.Items

	wantTypes := []string{"*frontend.VarDecl", "*frontend.ConstDecl", "*frontend.ExprStmt",
		"*frontend.AssignStmt", "*frontend.ExprStmt", "*frontend.Block", "*frontend.WhileStmt",
		"*frontend.IfStmt", "*frontend.ReturnStmt"}
	if len(items) != len(wantTypes) {
		t.Fatalf("got %d items, want %d", len(items), len(wantTypes))
	}
	for i, want := range wantTypes {
		if got := fmt.Sprintf("%T", items[i]); got != want {
			t.Errorf("item %d is %s, want %s", i, got, want)
		}
	}

	if items[2].(*ExprStmt).X != nil {
		t.Error("empty statement should have nil expression")
	}
	if _, ok := items[4].(*ExprStmt).X.(*CallExpr); !ok {
		t.Error("getint(); should be a call statement")
	}

	// Dangling else binds to the inner if.
	outer := items[7].(*IfStmt)
	if outer.Else != nil {
		t.Error("outer if should have no else")
	}
	inner := outer.Then.(*IfStmt)
	if inner.Else == nil {
		t.Error("inner if should own the else")
	}

	if items[8].(*ReturnStmt).Value != nil {
		t.Error("bare return should have nil value")
	}
}

func TestParseCallArgs(t *testing.T) {
	unit := mustParse(t, `int main() { return f(1, g(), x + 2); }`)
	call := unit.Items[0].(*FuncDef).Body.Items[0].(*ReturnStmt).Value.(*CallExpr)
	if call.Func != "f" || len(call.Args) != 3 {
		t.Fatalf("call = %#v", call)
	}
	if inner, ok := call.Args[1].(*CallExpr); !ok || len(inner.Args) != 0 {
		t.Errorf("arg 1 = %#v, want g()", call.Args[1])
	}
}

func TestParseIntLiteral(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"017", 15, false},
		{"0x1f", 31, false},
		{"0XFF", 255, false},
		{"2147483647", 2147483647, false},
		{"2147483648", -2147483648, false},
		{"4294967295", -1, false},
		{"4294967296", 0, true},
		{"08", 0, true},
		{"0x", 0, true},
		{"12ab", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntLiteral(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIntLiteral(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseIntLiteral(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing semicolon", "int main() { return 1 }", "line 1, col 23: expected ';' after return"},
		{"missing paren", "int main( { }", "expected parameter type"},
		{"bad top level", "return 1;", "expected declaration or function definition"},
		{"bad expression", "int main() { return +; }", "unexpected token"},
		{"lex error", "int main() { return 1 & 2; }", "unexpected character"},
		{"unclosed block", "int main() { return 0;", "expected '}'"},
		{"const without init", "const int a;", "expected '=' in constant definition"},
		{"literal out of range", "int main() { return 99999999999; }", "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatalf("expected parse error for %q", tt.src)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func BenchmarkParse(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "int f%d(int a) { int b = a * 2; while (b > 0) { b = b - 1; } return b; }\n", i)
	}
	src := sb.String()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(src); err != nil {
			b.Fatal(err)
		}
	}
}
