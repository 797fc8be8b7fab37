package qir

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Parse reads the textual form of a QIR module (the LLVM-IR subset emitted
// for the base profile). path is used for diagnostics only.
//
// Supported surface: comments, source_filename/target headers, opaque type
// declarations, declare lines, zero-argument define blocks with attribute
// group references, labels, call/br/ret instructions, and attributes groups.
// Anything else is a LoadError naming the offending line.
func Parse(r io.Reader, path string) (*Module, error) {
	p := &parser{path: path, module: &Module{Name: path}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line++
		if err := p.consume(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: "read module", Err: err}
	}
	if p.current != nil {
		return nil, p.errorf("unterminated function definition %q", p.current.Name)
	}

	p.applyEntryPointAttrs()
	return p.module, nil
}

type parser struct {
	path   string
	line   int
	module *Module

	current   *Function // function being parsed, nil at top level
	block     *Block
	attrRefs  map[string]string // function name -> attribute group id
	entryAttr map[string]bool   // attribute group id -> carries entry-point marker
}

var (
	sourceFilenameRe = regexp.MustCompile(`^source_filename\s*=\s*"(.*)"$`)
	attributesRe     = regexp.MustCompile(`^attributes\s+#(\d+)\s*=\s*\{(.*)\}$`)
	labelRe          = regexp.MustCompile(`^([A-Za-z$._][A-Za-z0-9$._-]*):$`)
	attrGroupRefRe   = regexp.MustCompile(`#(\d+)`)
	inttoptrRe       = regexp.MustCompile(`^inttoptr\s*\(\s*i64\s+(\d+)\s+to\s+%(Qubit|Result)\s*\*\s*\)$`)
)

func (p *parser) errorf(format string, args ...any) error {
	return &LoadError{Path: p.path, Line: p.line, Message: fmt.Sprintf(format, args...)}
}

// consume dispatches one raw source line.
func (p *parser) consume(raw string) error {
	line := stripComment(raw)
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if p.current != nil {
		return p.consumeBody(line)
	}
	return p.consumeTopLevel(line)
}

func (p *parser) consumeTopLevel(line string) error {
	switch {
	case sourceFilenameRe.MatchString(line):
		p.module.Name = sourceFilenameRe.FindStringSubmatch(line)[1]
		return nil

	case strings.HasPrefix(line, "target "):
		return nil // datalayout/triple carry no evaluation semantics

	case strings.HasPrefix(line, "%") && strings.Contains(line, "= type"):
		return nil // %Qubit = type opaque, %Result = type opaque

	case strings.HasPrefix(line, "declare "):
		name, err := calleeName(line)
		if err != nil {
			return p.errorf("malformed declare: %v", err)
		}
		p.module.Declared = append(p.module.Declared, name)
		return nil

	case strings.HasPrefix(line, "define "):
		return p.beginFunction(line)

	case strings.HasPrefix(line, "attributes "):
		return p.consumeAttributes(line)

	case strings.HasPrefix(line, "!"): // metadata
		return nil

	default:
		return p.errorf("unsupported top-level construct: %s", line)
	}
}

// beginFunction parses a define header of the shape
//
//	define void @name() #0 {
//
// Parameters are rejected: base-profile entry points take none, and the
// executor has no value-passing convention for local calls.
func (p *parser) beginFunction(line string) error {
	if !strings.HasSuffix(line, "{") {
		return p.errorf("define must open its body on the same line")
	}
	header := strings.TrimSpace(strings.TrimSuffix(line, "{"))

	at := strings.IndexByte(header, '@')
	if at < 0 {
		return p.errorf("define is missing a function name")
	}
	name, rest, err := symbolName(header[at+1:])
	if err != nil {
		return p.errorf("malformed define: %v", err)
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") {
		return p.errorf("define %q is missing a parameter list", name)
	}
	closing := strings.IndexByte(rest, ')')
	if closing < 0 {
		return p.errorf("define %q has an unterminated parameter list", name)
	}
	if params := strings.TrimSpace(rest[1:closing]); params != "" {
		return p.errorf("define %q: function parameters are not supported", name)
	}

	if p.module.Function(name) != nil {
		return p.errorf("duplicate definition of %q", name)
	}

	p.current = &Function{Name: name}
	p.block = nil

	if m := attrGroupRefRe.FindStringSubmatch(rest[closing+1:]); m != nil {
		if p.attrRefs == nil {
			p.attrRefs = make(map[string]string)
		}
		p.attrRefs[name] = m[1]
	}
	return nil
}

func (p *parser) consumeAttributes(line string) error {
	m := attributesRe.FindStringSubmatch(line)
	if m == nil {
		return p.errorf("malformed attributes group")
	}
	if p.entryAttr == nil {
		p.entryAttr = make(map[string]bool)
	}
	body := m[2]
	p.entryAttr[m[1]] = strings.Contains(body, `"entry_point"`) ||
		strings.Contains(body, `"EntryPoint"`)
	return nil
}

// applyEntryPointAttrs marks definitions whose attribute group carries the
// entry-point marker. Runs after the whole file is read because attributes
// groups trail the definitions that reference them.
func (p *parser) applyEntryPointAttrs() {
	for i := range p.module.Functions {
		fn := &p.module.Functions[i]
		if group, ok := p.attrRefs[fn.Name]; ok && p.entryAttr[group] {
			fn.EntryPoint = true
		}
	}
}

func (p *parser) consumeBody(line string) error {
	if line == "}" {
		p.endBlock()
		p.module.Functions = append(p.module.Functions, *p.current)
		p.current = nil
		return nil
	}

	if m := labelRe.FindStringSubmatch(line); m != nil {
		p.endBlock()
		p.block = &Block{Label: m[1]}
		return nil
	}

	instr, err := p.parseInstruction(line)
	if err != nil {
		return err
	}
	if p.block == nil {
		// Instructions before any label form the implicit entry block.
		p.block = &Block{Label: "entry"}
	}
	instr.Line = p.line
	p.block.Instructions = append(p.block.Instructions, instr)
	return nil
}

func (p *parser) endBlock() {
	if p.block != nil {
		p.current.Blocks = append(p.current.Blocks, *p.block)
		p.block = nil
	}
}

func (p *parser) parseInstruction(line string) (Instruction, error) {
	switch {
	case strings.HasPrefix(line, "ret "), line == "ret":
		return Instruction{Op: OpRet}, nil

	case strings.HasPrefix(line, "br "):
		return p.parseBranch(line)

	case strings.Contains(line, "call "):
		return p.parseCall(line)

	default:
		return Instruction{}, p.errorf("unsupported instruction: %s", line)
	}
}

// parseBranch handles the two supported forms:
//
//	br label %dest
//	br i1 <cond>, label %then, label %else
func (p *parser) parseBranch(line string) (Instruction, error) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "br "))

	if strings.HasPrefix(body, "label ") {
		dest, err := blockRef(strings.TrimPrefix(body, "label "))
		if err != nil {
			return Instruction{}, p.errorf("malformed branch: %v", err)
		}
		return Instruction{Op: OpBr, Then: dest}, nil
	}

	if !strings.HasPrefix(body, "i1 ") {
		return Instruction{}, p.errorf("unsupported branch condition type: %s", line)
	}
	parts := splitTopLevel(body)
	if len(parts) != 3 {
		return Instruction{}, p.errorf("malformed conditional branch: %s", line)
	}
	cond, err := p.parseOperand(parts[0])
	if err != nil {
		return Instruction{}, err
	}
	thenDest, err := blockRef(strings.TrimPrefix(strings.TrimSpace(parts[1]), "label "))
	if err != nil {
		return Instruction{}, p.errorf("malformed branch target: %v", err)
	}
	elseDest, err := blockRef(strings.TrimPrefix(strings.TrimSpace(parts[2]), "label "))
	if err != nil {
		return Instruction{}, p.errorf("malformed branch target: %v", err)
	}
	return Instruction{Op: OpCondBr, Cond: cond, Then: thenDest, Else: elseDest}, nil
}

// parseCall handles void and i1-producing calls:
//
//	call void @callee(<args>)
//	%x = call i1 @callee(<args>)
func (p *parser) parseCall(line string) (Instruction, error) {
	instr := Instruction{Op: OpCall}

	rest := line
	if strings.HasPrefix(rest, "%") {
		eq := strings.Index(rest, "=")
		if eq < 0 {
			return Instruction{}, p.errorf("malformed call: %s", line)
		}
		instr.Dest = strings.TrimSpace(strings.TrimPrefix(rest[:eq], "%"))
		rest = strings.TrimSpace(rest[eq+1:])
	}
	for _, prefix := range []string{"tail ", "musttail ", "notail "} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if !strings.HasPrefix(rest, "call ") {
		return Instruction{}, p.errorf("unsupported instruction: %s", line)
	}

	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return Instruction{}, p.errorf("call without a direct callee: %s", line)
	}
	name, tail, err := symbolName(rest[at+1:])
	if err != nil {
		return Instruction{}, p.errorf("malformed call: %v", err)
	}
	instr.Callee = name

	tail = strings.TrimSpace(tail)
	open := strings.IndexByte(tail, '(')
	if open < 0 {
		return Instruction{}, p.errorf("call %q is missing an argument list", name)
	}
	closing := matchParen(tail, open)
	if closing < 0 {
		return Instruction{}, p.errorf("call %q has an unterminated argument list", name)
	}

	argsText := strings.TrimSpace(tail[open+1 : closing])
	if argsText != "" {
		for _, part := range splitTopLevel(argsText) {
			op, err := p.parseOperand(part)
			if err != nil {
				return Instruction{}, err
			}
			instr.Args = append(instr.Args, op)
		}
	}
	return instr, nil
}

// parseOperand parses a single typed argument.
func (p *parser) parseOperand(text string) (Operand, error) {
	text = strings.TrimSpace(text)
	ty, value, found := strings.Cut(text, " ")
	if !found {
		return Operand{}, p.errorf("malformed operand: %s", text)
	}
	value = strings.TrimSpace(value)

	switch ty {
	case "%Qubit*", "%Result*":
		kind := OperandQubit
		want := "Qubit"
		if ty == "%Result*" {
			kind = OperandResult
			want = "Result"
		}
		if value == "null" {
			return Operand{Kind: kind}, nil
		}
		if m := inttoptrRe.FindStringSubmatch(value); m != nil && m[2] == want {
			id, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				return Operand{}, p.errorf("handle out of range: %s", text)
			}
			return Operand{Kind: kind, ID: id}, nil
		}
		return Operand{}, p.errorf("unsupported %s operand: %s", want, value)

	case "double":
		d, err := parseDouble(value)
		if err != nil {
			return Operand{}, p.errorf("malformed double literal %q", value)
		}
		return Operand{Kind: OperandDouble, Double: d}, nil

	case "i1":
		switch {
		case value == "true":
			return Operand{Kind: OperandBool, Bool: true}, nil
		case value == "false":
			return Operand{Kind: OperandBool, Bool: false}, nil
		case strings.HasPrefix(value, "%"):
			return Operand{Kind: OperandLocal, Local: value[1:]}, nil
		}
		return Operand{}, p.errorf("malformed i1 operand %q", value)

	case "i64", "i32", "i8":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Operand{}, p.errorf("malformed integer operand %q", value)
		}
		return Operand{Kind: OperandInt, Int: n}, nil

	case "i8*":
		// Label pointers on rt output-recording calls; the executor treats
		// those calls as no-ops, so the payload is irrelevant.
		return Operand{Kind: OperandInt}, nil

	default:
		return Operand{}, p.errorf("unsupported operand type %q", ty)
	}
}

// parseDouble accepts decimal/scientific literals plus LLVM's raw-bits form
// (0x followed by 16 hex digits).
func parseDouble(s string) (float64, error) {
	if strings.HasPrefix(s, "0x") && len(s) == 18 {
		bits, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(bits), nil
	}
	return strconv.ParseFloat(s, 64)
}

// symbolName reads an optionally quoted symbol, returning the name and the
// unconsumed tail. The leading '@' must already be stripped.
func symbolName(s string) (name, tail string, err error) {
	if strings.HasPrefix(s, `"`) {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quoted symbol")
		}
		return s[1 : 1+end], s[end+2:], nil
	}
	end := strings.IndexAny(s, "( \t")
	if end < 0 {
		return s, "", nil
	}
	return s[:end], s[end:], nil
}

// calleeName extracts the @symbol from a declare line.
func calleeName(line string) (string, error) {
	at := strings.IndexByte(line, '@')
	if at < 0 {
		return "", fmt.Errorf("missing symbol")
	}
	name, _, err := symbolName(line[at+1:])
	return name, err
}

// blockRef strips the % sigil from a branch target.
func blockRef(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "%") || len(s) == 1 {
		return "", fmt.Errorf("expected %%label, got %q", s)
	}
	return s[1:], nil
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1 if unbalanced.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits on commas that are not nested inside parentheses,
// which keeps inttoptr constant expressions intact.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}

// stripComment removes a trailing ; comment, respecting string literals.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}
