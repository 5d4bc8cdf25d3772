package generators

import (
	"fmt"
	"math/rand"
	"strings"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 255.0
}

const (
	MaxDepth      = 4
	MaxStatements = 5
	MaxExprDepth  = 3
	MaxLoopCount  = 4
)

// function is a callable the generator has declared.
type function struct {
	name  string
	arity int
}

// class is a declared class. Every generated class takes one init argument.
type class struct {
	name string
}

// Generator generates random Lox programs that always compile and always
// terminate: names are unique, loops are bounded and functions only call
// functions declared before them.
type Generator struct {
	src   RandomSource
	depth int

	// scopes holds the assignable variables visible at each nesting level;
	// scopes[0] is the globals.
	scopes   [][]string
	readOnly []string // loop counters
	funcs    []function
	classes  []class

	inFunction int
	next       int
}

func New(seed int64) *Generator {
	return newGenerator(&RandSource{rand.New(rand.NewSource(seed))})
}

func NewFromData(data []byte) *Generator {
	return newGenerator(&ByteSource{data: data})
}

func newGenerator(src RandomSource) *Generator {
	return &Generator{src: src, scopes: [][]string{nil}}
}

// Intn exposes the random source's Intn method for embedded structs.
func (g *Generator) Intn(n int) int {
	return g.src.Intn(n)
}

// Src returns the random source of the generator.
func (g *Generator) Src() RandomSource {
	return g.src
}

func (g *Generator) fresh(prefix string) string {
	g.next++
	return fmt.Sprintf("%s%d", prefix, g.next)
}

func (g *Generator) declare(name string) {
	g.scopes[len(g.scopes)-1] = append(g.scopes[len(g.scopes)-1], name)
}

func (g *Generator) pushScope() { g.scopes = append(g.scopes, nil) }
func (g *Generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *Generator) variables() []string {
	var names []string
	for _, s := range g.scopes {
		names = append(names, s...)
	}
	return names
}

// GenerateProgram returns a complete program. It always declares one global
// and ends by printing it so every program produces output.
func (g *Generator) GenerateProgram() string {
	var sb strings.Builder
	first := g.fresh("g")
	sb.WriteString(fmt.Sprintf("var %s = %s;\n", first, g.GenerateExpression()))
	g.declare(first)

	count := g.src.Intn(MaxStatements) + 1
	for i := 0; i < count; i++ {
		sb.WriteString(g.GenerateStatement())
		sb.WriteString("\n")
		sb.WriteString(g.GenerateNoise())
	}
	sb.WriteString(fmt.Sprintf("print %s;\n", first))
	return sb.String()
}

func (g *Generator) GenerateNoise() string {
	// 10% chance to generate noise
	if g.src.Intn(10) != 0 {
		return ""
	}

	var sb strings.Builder
	count := g.src.Intn(3) + 1
	for i := 0; i < count; i++ {
		switch g.src.Intn(4) {
		case 0:
			sb.WriteString(" ")
		case 1:
			sb.WriteString("\t")
		case 2:
			sb.WriteString("\n")
		case 3:
			sb.WriteString("// noise\n")
		}
	}
	return sb.String()
}

func (g *Generator) GenerateStatement() string {
	if g.depth > MaxDepth {
		return fmt.Sprintf("print %s;", g.GenerateLiteral())
	}
	g.depth++
	defer func() { g.depth-- }()

	choice := g.src.Intn(16)
	switch {
	case choice < 3:
		return g.GenerateVarDecl()
	case choice < 5:
		return g.GeneratePrint()
	case choice < 7:
		return g.GenerateAssignment()
	case choice < 9:
		return g.GenerateFunctionDecl()
	case choice < 10:
		return g.GenerateClassDecl()
	case choice < 12:
		return g.GenerateIf()
	case choice < 13:
		return g.GenerateFor()
	case choice < 14:
		return g.GenerateWhile()
	case choice < 15:
		return g.GenerateBlock()
	default:
		return g.GenerateExpression() + ";"
	}
}

func (g *Generator) GenerateVarDecl() string {
	name := g.fresh("v")
	var decl string
	if g.src.Intn(4) == 0 {
		decl = fmt.Sprintf("var %s;", name)
	} else {
		decl = fmt.Sprintf("var %s = %s;", name, g.GenerateExpression())
	}
	g.declare(name)
	return decl
}

func (g *Generator) GeneratePrint() string {
	return fmt.Sprintf("print %s;", g.GenerateExpression())
}

func (g *Generator) GenerateAssignment() string {
	vars := g.variables()
	if len(vars) == 0 {
		return g.GeneratePrint()
	}
	name := vars[g.src.Intn(len(vars))]
	return fmt.Sprintf("%s = %s;", name, g.GenerateExpression())
}

func (g *Generator) GenerateBlock() string {
	g.pushScope()
	defer g.popScope()
	return "{ " + g.generateStatements() + " }"
}

func (g *Generator) generateStatements() string {
	count := g.src.Intn(3) + 1
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, g.GenerateStatement())
	}
	return strings.Join(parts, " ")
}

func (g *Generator) GenerateIf() string {
	cond := g.GenerateExpression()
	then := g.GenerateBlock()
	if g.src.Intn(2) == 0 {
		return fmt.Sprintf("if (%s) %s", cond, then)
	}
	return fmt.Sprintf("if (%s) %s else %s", cond, then, g.GenerateBlock())
}

// GenerateFor emits a counted loop. The counter is never assigned by the
// body, so the loop always ends.
func (g *Generator) GenerateFor() string {
	counter := g.fresh("i")
	limit := g.src.Intn(MaxLoopCount) + 1

	g.pushScope()
	g.readOnly = append(g.readOnly, counter)
	body := g.GenerateBlock()
	g.readOnly = g.readOnly[:len(g.readOnly)-1]
	g.popScope()

	return fmt.Sprintf("for (var %s = 0; %s < %d; %s = %s + 1) %s", counter, counter, limit, counter, counter, body)
}

// GenerateWhile emits a while loop over a fresh counter declared in an
// enclosing block.
func (g *Generator) GenerateWhile() string {
	counter := g.fresh("w")
	limit := g.src.Intn(MaxLoopCount) + 1

	g.pushScope()
	g.readOnly = append(g.readOnly, counter)
	body := g.generateStatements()
	g.readOnly = g.readOnly[:len(g.readOnly)-1]
	g.popScope()

	return fmt.Sprintf("{ var %s = 0; while (%s < %d) { %s = %s + 1; { %s } } }", counter, counter, limit, counter, counter, body)
}

// GenerateFunctionDecl declares a function whose body may capture any
// variable in scope. Only functions declared earlier are callable from it.
func (g *Generator) GenerateFunctionDecl() string {
	name := g.fresh("f")
	arity := g.src.Intn(3)
	params := make([]string, arity)
	for i := range params {
		params[i] = g.fresh("p")
	}

	g.pushScope()
	for _, p := range params {
		g.declare(p)
	}
	g.inFunction++
	body := g.generateStatements()
	ret := g.GenerateExpression()
	g.inFunction--
	g.popScope()

	// Registered after the body so it cannot call itself.
	g.funcs = append(g.funcs, function{name: name, arity: arity})
	return fmt.Sprintf("fun %s(%s) { %s return %s; }", name, strings.Join(params, ", "), body, ret)
}

// GenerateClassDecl declares a class holding one field, optionally
// inheriting from an earlier class.
func (g *Generator) GenerateClassDecl() string {
	name := g.fresh("C")
	field := g.fresh("field")

	if len(g.classes) > 0 && g.src.Intn(2) == 0 {
		super := g.classes[g.src.Intn(len(g.classes))].name
		g.classes = append(g.classes, class{name: name})
		return fmt.Sprintf("class %s < %s { get() { return super.get(); } %s() { return this; } }", name, super, field)
	}

	g.classes = append(g.classes, class{name: name})
	return fmt.Sprintf("class %s { init(x) { this.value = x; } get() { return this.value; } %s() { return this; } }", name, field)
}

func (g *Generator) GenerateExpression() string {
	if g.depth > MaxDepth+MaxExprDepth {
		return g.GenerateLiteral()
	}
	g.depth++
	defer func() { g.depth-- }()

	choice := g.src.Intn(12)
	switch {
	case choice < 3:
		return g.GenerateLiteral()
	case choice < 5:
		return g.GenerateVariable()
	case choice < 7:
		return g.GenerateBinary()
	case choice < 8:
		return g.GenerateLogical()
	case choice < 9:
		return g.GenerateUnary()
	case choice < 11:
		return g.GenerateCall()
	default:
		return "(" + g.GenerateExpression() + ")"
	}
}

func (g *Generator) GenerateLiteral() string {
	switch g.src.Intn(6) {
	case 0, 1:
		return fmt.Sprintf("%d", g.src.Intn(100))
	case 2:
		return fmt.Sprintf("%d.%d", g.src.Intn(10), g.src.Intn(10)+1)
	case 3:
		words := []string{"a", "lox", "str", "", "xyz"}
		return `"` + words[g.src.Intn(len(words))] + `"`
	case 4:
		if g.src.Intn(2) == 0 {
			return "true"
		}
		return "false"
	default:
		return "nil"
	}
}

func (g *Generator) GenerateVariable() string {
	names := append(g.variables(), g.readOnly...)
	if len(names) == 0 {
		return g.GenerateLiteral()
	}
	return names[g.src.Intn(len(names))]
}

func (g *Generator) GenerateBinary() string {
	ops := []string{"+", "-", "*", "/", "==", "!=", "<", ">", "<=", ">="}
	op := ops[g.src.Intn(len(ops))]
	return fmt.Sprintf("%s %s %s", g.GenerateExpression(), op, g.GenerateExpression())
}

func (g *Generator) GenerateLogical() string {
	op := "and"
	if g.src.Intn(2) == 0 {
		op = "or"
	}
	return fmt.Sprintf("%s %s %s", g.GenerateExpression(), op, g.GenerateExpression())
}

func (g *Generator) GenerateUnary() string {
	if g.src.Intn(2) == 0 {
		return "!" + g.GenerateExpression()
	}
	return "-" + g.GenerateExpression()
}

// GenerateCall calls a declared function, constructs an instance or uses
// the clock native.
func (g *Generator) GenerateCall() string {
	choice := g.src.Intn(3)
	switch {
	case choice == 0 && len(g.funcs) > 0:
		fn := g.funcs[g.src.Intn(len(g.funcs))]
		args := make([]string, fn.arity)
		for i := range args {
			args[i] = g.GenerateExpression()
		}
		return fmt.Sprintf("%s(%s)", fn.name, strings.Join(args, ", "))
	case choice == 1 && len(g.classes) > 0:
		c := g.classes[g.src.Intn(len(g.classes))]
		return fmt.Sprintf("%s(%s).get()", c.name, g.GenerateExpression())
	default:
		return "(clock() >= 0)"
	}
}
