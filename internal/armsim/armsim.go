// Package armsim executes the subset of ARM Thumb-2 assembly the generator
// emits. It exists to check generated programs end to end: it models the
// general registers, NZCV flags, a flat little-endian byte memory holding
// the data section, heap and a downward-growing stack, and the runtime's
// syscall services.
//
// Services, selected by r0 at a syscall:
//
//	0  print the NUL-terminated string at r1, then a newline
//	1  print r1 as a signed integer, then a newline
//	2  allocate r1 bytes from the heap; the address is returned in r0
package armsim

import (
	"context"
	"errors"
	"io"
)

const (
	DefaultMaxSteps   = 1_000_000
	DefaultMemorySize = 1 << 20

	// dataBase is where the data section is loaded; addresses below it fault.
	dataBase   = 0x1000
	entryLabel = "main"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrUndefinedLabel     = errors.New("undefined label")
	ErrMemoryFault        = errors.New("memory fault")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrDivideByZero       = errors.New("division by zero")
	ErrUnknownService     = errors.New("unknown service")
	ErrBadOperands        = errors.New("bad operands")
)

// Config controls a run.
type Config struct {
	MaxSteps   int       // 0 means DefaultMaxSteps
	MemorySize int       // 0 means DefaultMemorySize
	Stdout     io.Writer // receives printed output as it happens; may be nil

	// TrapDivideByZero makes sdiv by zero fail with ErrDivideByZero instead
	// of producing 0 as the hardware does.
	TrapDivideByZero bool
}

// Result describes a finished run.
type Result struct {
	Stdout      string
	Registers   [16]int32
	Allocations []uint32       // sizes passed to the allocation service, in order
	LabelHits   map[string]int // how often control reached each code label
	Steps       int
	StackTop    uint32 // initial stack pointer
}

// SP returns the final stack pointer.
func (r *Result) SP() uint32 { return uint32(r.Registers[13]) }

// Run parses and executes source starting at main, until bkpt, a return from
// main, or falling off the end of the program.
func Run(ctx context.Context, source string, cfg Config) (*Result, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return prog.Run(ctx, cfg)
}

// Run executes a parsed program on a fresh machine.
func (p *Program) Run(ctx context.Context, cfg Config) (*Result, error) {
	m, err := newMachine(p, cfg)
	if err != nil {
		return nil, err
	}
	return m.run(ctx)
}
