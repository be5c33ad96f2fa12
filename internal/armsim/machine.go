package armsim

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	regSP = 13
	regLR = 14

	// returnAddress is loaded into lr before main runs; "bx lr" to it halts.
	returnAddress = -1
	ctxCheckEvery = 4096
)

type machine struct {
	prog     *Program
	mem      []byte
	regs     [16]int32
	pc       int
	n, z     bool
	c, v     bool
	heap     uint32
	halted   bool
	out      strings.Builder
	tee      io.Writer
	maxSteps int
	trapDiv  bool
	res      *Result
}

func newMachine(p *Program, cfg Config) (*machine, error) {
	size := cfg.MemorySize
	if size == 0 {
		size = DefaultMemorySize
	}
	if size < dataBase+len(p.data)+1024 {
		return nil, fmt.Errorf("%w: %d bytes of memory cannot hold the program", ErrMemoryFault, size)
	}
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	m := &machine{
		prog:     p,
		mem:      make([]byte, size),
		tee:      cfg.Stdout,
		maxSteps: maxSteps,
		trapDiv:  cfg.TrapDivideByZero,
		res:      &Result{LabelHits: make(map[string]int), StackTop: uint32(size)},
	}
	copy(m.mem[dataBase:], p.data)
	m.heap = align(dataBase+uint32(len(p.data)), 8)
	m.regs[regSP] = int32(size)
	m.regs[regLR] = returnAddress
	m.pc = p.codeLabels[entryLabel]
	return m, nil
}

func align(v, to uint32) uint32 { return (v + to - 1) &^ (to - 1) }

func (m *machine) run(ctx context.Context) (*Result, error) {
	steps := 0
	for !m.halted {
		if m.pc == len(m.prog.instrs) {
			m.hit()
			break
		}
		if m.pc < 0 || m.pc > len(m.prog.instrs) {
			return nil, fmt.Errorf("%w: jump to instruction %d", ErrMemoryFault, m.pc)
		}
		if steps >= m.maxSteps {
			return nil, fmt.Errorf("%w (%d)", ErrStepLimit, m.maxSteps)
		}
		if steps%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		steps++
		m.hit()
		in := m.prog.instrs[m.pc]
		m.pc++
		if err := m.exec(in); err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", in.line, in.op, err)
		}
	}
	m.res.Stdout = m.out.String()
	m.res.Registers = m.regs
	m.res.Steps = steps
	return m.res, nil
}

// hit counts arrival at the labels bound to the current instruction.
func (m *machine) hit() {
	for _, l := range m.prog.labelsAt[m.pc] {
		m.res.LabelHits[l]++
	}
}

func (m *machine) exec(in instr) error {
	a := in.args
	switch in.op {
	case "nop":
		return nil
	case "mov":
		if len(a) != 2 || a[0].kind != opReg {
			return ErrBadOperands
		}
		v, err := m.value(a[1])
		if err != nil {
			return err
		}
		m.regs[a[0].reg] = v
	case "ldr", "ldrb", "str", "strb":
		return m.memOp(in.op, a)
	case "add", "sub", "eor", "mul", "sdiv":
		return m.arith(in.op, a)
	case "cmp":
		if len(a) != 2 || a[0].kind != opReg {
			return ErrBadOperands
		}
		rhs, err := m.value(a[1])
		if err != nil {
			return err
		}
		m.setFlags(m.regs[a[0].reg], rhs)
	case "b", "bl", "beq", "bne", "blt", "ble", "bgt", "bge":
		if len(a) != 1 || a[0].kind != opLabel {
			return ErrBadOperands
		}
		if !m.cond(in.op) {
			return nil
		}
		if in.op == "bl" {
			m.regs[regLR] = int32(m.pc)
		}
		m.pc = m.prog.codeLabels[a[0].label]
	case "cbz", "cbnz":
		if len(a) != 2 || a[0].kind != opReg || a[1].kind != opLabel {
			return ErrBadOperands
		}
		if (m.regs[a[0].reg] == 0) == (in.op == "cbz") {
			m.pc = m.prog.codeLabels[a[1].label]
		}
	case "bx":
		if len(a) != 1 || a[0].kind != opReg {
			return ErrBadOperands
		}
		target := m.regs[a[0].reg]
		if target == returnAddress {
			m.halted = true
			return nil
		}
		m.pc = int(target)
	case "bkpt":
		m.halted = true
	case "syscall":
		return m.syscall()
	default:
		return fmt.Errorf("%w %q", ErrUnknownInstruction, in.op)
	}
	return nil
}

// cond evaluates a branch condition against the flags.
func (m *machine) cond(op string) bool {
	switch op {
	case "beq":
		return m.z
	case "bne":
		return !m.z
	case "blt":
		return m.n != m.v
	case "ble":
		return m.z || m.n != m.v
	case "bgt":
		return !m.z && m.n == m.v
	case "bge":
		return m.n == m.v
	}
	return true
}

// setFlags sets NZCV as for lhs - rhs.
func (m *machine) setFlags(lhs, rhs int32) {
	res := lhs - rhs
	m.n = res < 0
	m.z = res == 0
	m.c = uint32(lhs) >= uint32(rhs)
	m.v = (lhs < 0) != (rhs < 0) && (res < 0) != (lhs < 0)
}

// value resolves a register, immediate or literal operand.
func (m *machine) value(a operand) (int32, error) {
	switch a.kind {
	case opReg:
		return m.regs[a.reg], nil
	case opImm:
		return a.imm, nil
	case opLiteral:
		if a.label == "" {
			return a.imm, nil
		}
		return int32(m.prog.dataLabels[a.label]), nil
	}
	return 0, ErrBadOperands
}

func (m *machine) arith(op string, a []operand) error {
	if len(a) == 2 {
		// two-operand form: "add rd, op2" means "add rd, rd, op2"
		a = []operand{a[0], a[0], a[1]}
	}
	if len(a) != 3 || a[0].kind != opReg || a[1].kind != opReg {
		return ErrBadOperands
	}
	lhs := m.regs[a[1].reg]
	rhs, err := m.value(a[2])
	if err != nil {
		return err
	}
	var res int32
	switch op {
	case "add":
		res = lhs + rhs
	case "sub":
		res = lhs - rhs
	case "eor":
		res = lhs ^ rhs
	case "mul":
		res = lhs * rhs
	case "sdiv":
		// the core writes 0 for a zero divisor unless divide traps are enabled
		if rhs == 0 {
			if m.trapDiv {
				return ErrDivideByZero
			}
			break
		}
		res = lhs / rhs
	}
	m.regs[a[0].reg] = res
	return nil
}

// memOp handles offset ([rn, #off]), pre-indexed ([rn, #off]!) and
// post-indexed ([rn], #off) addressing, plus "ldr rd, =x".
func (m *machine) memOp(op string, a []operand) error {
	if len(a) < 2 || a[0].kind != opReg {
		return ErrBadOperands
	}
	rd := a[0].reg
	if a[1].kind == opLiteral {
		if op != "ldr" || len(a) != 2 {
			return ErrBadOperands
		}
		v, err := m.value(a[1])
		if err != nil {
			return err
		}
		m.regs[rd] = v
		return nil
	}
	if a[1].kind != opMem {
		return ErrBadOperands
	}
	base := a[1].reg
	addr := uint32(m.regs[base] + a[1].offset)
	var post int32
	switch len(a) {
	case 2:
	case 3:
		if a[2].kind != opImm || a[1].offset != 0 || a[1].writeback {
			return ErrBadOperands
		}
		post = a[2].imm
	default:
		return ErrBadOperands
	}

	size := uint32(4)
	if strings.HasSuffix(op, "b") {
		size = 1
	}
	if err := m.check(addr, size); err != nil {
		return err
	}
	switch op {
	case "ldr":
		m.regs[rd] = int32(binary.LittleEndian.Uint32(m.mem[addr:]))
	case "ldrb":
		m.regs[rd] = int32(m.mem[addr])
	case "str":
		binary.LittleEndian.PutUint32(m.mem[addr:], uint32(m.regs[rd]))
	case "strb":
		m.mem[addr] = byte(m.regs[rd])
	}
	if a[1].writeback {
		m.regs[base] = int32(addr)
	}
	if post != 0 {
		m.regs[base] += post
	}
	return nil
}

func (m *machine) check(addr, size uint32) error {
	if addr < dataBase || uint64(addr)+uint64(size) > uint64(len(m.mem)) {
		return fmt.Errorf("%w: access of %d bytes at %#x", ErrMemoryFault, size, addr)
	}
	return nil
}

func (m *machine) syscall() error {
	switch service := m.regs[0]; service {
	case 0:
		s, err := m.cString(uint32(m.regs[1]))
		if err != nil {
			return err
		}
		m.print(s)
	case 1:
		m.print(strconv.FormatInt(int64(m.regs[1]), 10))
	case 2:
		size := uint32(m.regs[1])
		addr := m.heap
		next := align(addr+size, 8)
		if next < addr || next >= uint32(m.regs[regSP]) {
			return fmt.Errorf("%w: heap exhausted allocating %d bytes", ErrMemoryFault, size)
		}
		m.heap = next
		m.res.Allocations = append(m.res.Allocations, size)
		m.regs[0] = int32(addr)
	default:
		return fmt.Errorf("%w %d", ErrUnknownService, service)
	}
	return nil
}

func (m *machine) print(s string) {
	m.out.WriteString(s)
	m.out.WriteByte('\n')
	if m.tee != nil {
		_, _ = io.WriteString(m.tee, s+"\n")
	}
}

func (m *machine) cString(addr uint32) (string, error) {
	for end := addr; ; end++ {
		if err := m.check(end, 1); err != nil {
			return "", err
		}
		if m.mem[end] == 0 {
			return string(m.mem[addr:end]), nil
		}
	}
}
