package armsim

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runSource(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Run(context.Background(), src, Config{})
	require.NoError(t, err)
	return res
}

func TestRun(t *testing.T) {
	t.Run("prints integers and strings", func(t *testing.T) {
		res := runSource(t, `
.section .rodata
greeting: .asciz "hi \"there\"\n"
.section .text
main:
mov r1, #42
mov r0, #1
syscall
ldr r1, =greeting
mov r0, #0
syscall
bkpt #1
`)
		require.Equal(t, "42\nhi \"there\"\n\n", res.Stdout)
	})

	t.Run("arithmetic uses signed 32-bit semantics", func(t *testing.T) {
		res := runSource(t, `
main:
mov r1, #7
mov r0, #3
sub r0, r1, r0
mov r2, #0
sub r2, r2, r1
ldr r3, =-20
mov r4, #3
sdiv r3, r3, r4
mul r5, r1, r4
eor r6, r1, #1
add r7, r1, #1
add r7, #2
bkpt #1
`)
		require.Equal(t, int32(4), res.Registers[0])
		require.Equal(t, int32(-7), res.Registers[2])
		require.Equal(t, int32(-6), res.Registers[3])
		require.Equal(t, int32(21), res.Registers[5])
		require.Equal(t, int32(6), res.Registers[6])
		require.Equal(t, int32(10), res.Registers[7])
	})

	t.Run("pre and post indexed stack access", func(t *testing.T) {
		res := runSource(t, `
main:
mov fp, sp
mov r0, #5
str r0, [sp, #-4]!
mov r0, #9
str r0, [sp, #-4]!
ldr r2, [fp, #-4]
ldr r3, [sp]
ldr r4, [sp, #4]
ldr r0, [sp], #4
bkpt #1
`)
		require.Equal(t, int32(5), res.Registers[2])
		require.Equal(t, int32(9), res.Registers[3])
		require.Equal(t, int32(5), res.Registers[4])
		require.Equal(t, int32(9), res.Registers[0])
		require.Equal(t, res.StackTop-4, res.SP())
	})

	t.Run("sdiv by zero yields zero", func(t *testing.T) {
		res := runSource(t, "main:\nmov r1, #7\nmov r0, #0\nmov r2, #9\nsdiv r2, r1, r0\nldr r3, =-2147483648\nldr r4, =-1\nsdiv r3, r3, r4\nbkpt #1\n")
		require.Zero(t, res.Registers[2])
		require.Equal(t, int32(-2147483648), res.Registers[3])
	})

	t.Run("bl and bx lr return to the caller", func(t *testing.T) {
		res := runSource(t, `
double:
add r0, r0, r0
bx lr
main:
mov r0, #21
bl double
mov r1, r0
mov r0, #1
syscall
bkpt #1
`)
		require.Equal(t, "42\n", res.Stdout)
	})

	t.Run("returning from main halts", func(t *testing.T) {
		res := runSource(t, "main:\nmov r0, #3\nbx lr\nmov r0, #4\n")
		require.Equal(t, int32(3), res.Registers[0])
	})

	t.Run("conditional branches follow signed comparison", func(t *testing.T) {
		cases := []struct {
			branch string
			l, r   string
			taken  bool
		}{
			{"blt", "#3", "#5", true},
			{"blt", "#5", "#3", false},
			{"blt", "#5", "#5", false},
			{"ble", "#5", "#5", true},
			{"ble", "#6", "#5", false},
			{"beq", "#5", "#5", true},
			{"beq", "#3", "#5", false},
			{"bne", "#3", "#5", true},
			{"bgt", "#6", "#5", true},
			{"bge", "#5", "#5", true},
		}
		for _, c := range cases {
			src := "main:\nmov r1, " + c.l + "\nmov r0, " + c.r + "\nldr r2, =-1\ncmp r1, r0\n" +
				c.branch + " yes\nb no\nyes:\nmov r0, #1\nb done\nno:\nmov r0, #0\ndone:\nbkpt #1\n"
			res := runSource(t, src)
			want := int32(0)
			if c.taken {
				want = 1
			}
			require.Equal(t, want, res.Registers[0], "%s %s, %s", c.branch, c.l, c.r)
		}
	})

	t.Run("negative values compare below positive ones", func(t *testing.T) {
		res := runSource(t, "main:\nldr r1, =-3\nmov r0, #2\ncmp r1, r0\nblt yes\nmov r0, #0\nbkpt #1\nyes:\nmov r0, #1\nbkpt #1\n")
		require.Equal(t, int32(1), res.Registers[0])
	})

	t.Run("allocation service returns distinct heap blocks", func(t *testing.T) {
		res := runSource(t, `
main:
mov r1, #5
mov r0, #2
syscall
mov r4, r0
mov r1, #3
mov r0, #2
syscall
mov r5, r0
bkpt #1
`)
		require.Equal(t, []uint32{5, 3}, res.Allocations)
		require.GreaterOrEqual(t, res.Registers[5]-res.Registers[4], int32(5))
	})

	t.Run("byte loads and stores", func(t *testing.T) {
		res := runSource(t, `
src: .asciz "ab"
main:
ldr r0, =src
ldrb r1, [r0], #1
ldrb r2, [r0]
mov r3, #2
mov r0, #2
mov r1, #4
syscall
mov r6, #99
strb r6, [r0]
mov r7, #0
strb r7, [r0, #1]
mov r1, r0
mov r0, #0
syscall
bkpt #1
`)
		require.Equal(t, int32('b'), res.Registers[2])
		require.Equal(t, "c\n", res.Stdout)
	})

	t.Run("label hits count arrivals", func(t *testing.T) {
		res := runSource(t, `
main:
mov r0, #0
loop:
add r0, r0, #1
cmp r0, #3
blt loop
skipped:
bkpt #1
never:
nop
`)
		require.Equal(t, 3, res.LabelHits["loop"])
		require.Equal(t, 1, res.LabelHits["skipped"])
		require.Zero(t, res.LabelHits["never"])
	})

	t.Run("cbz and cbnz", func(t *testing.T) {
		res := runSource(t, "main:\nmov r0, #0\ncbz r0, a\nmov r1, #1\na:\nmov r0, #1\ncbnz r0, c\nmov r2, #1\nc:\nbkpt #1\n")
		require.Zero(t, res.Registers[1])
		require.Zero(t, res.Registers[2])
	})

	t.Run("output is teed to the configured writer", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := Run(context.Background(), "main:\nmov r1, #7\nmov r0, #1\nsyscall\n", Config{Stdout: &buf})
		require.NoError(t, err)
		require.Equal(t, "7\n", buf.String())
	})
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		err  error
	}{
		{"unknown instruction", "main:\nfrobnicate r0\n", ErrUnknownInstruction},
		{"undefined branch target", "main:\nb nowhere\n", ErrUndefinedLabel},
		{"undefined literal label", "main:\nldr r0, =nowhere\n", ErrUndefinedLabel},
		{"missing entry point", "start:\nbkpt #1\n", ErrUndefinedLabel},
		{"null page access", "main:\nmov r1, #0\nldr r0, [r1]\n", ErrMemoryFault},
		{"unknown service", "main:\nmov r0, #9\nsyscall\n", ErrUnknownService},
		{"infinite loop", "main:\nb main\n", ErrStepLimit},
		{"bad operands", "main:\nmov #1, r0\n", ErrBadOperands},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Run(context.Background(), c.src, Config{MaxSteps: 1000})
			require.ErrorIs(t, err, c.err)
		})
	}

	t.Run("division by zero when trapping", func(t *testing.T) {
		_, err := Run(context.Background(), "main:\nmov r1, #1\nmov r0, #0\nsdiv r0, r1, r0\n", Config{TrapDivideByZero: true})
		require.ErrorIs(t, err, ErrDivideByZero)
	})

	t.Run("duplicate label", func(t *testing.T) {
		_, err := Parse("main:\nmain:\n")
		require.ErrorContains(t, err, "duplicate label")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, "main:\nb main\n", Config{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestParse(t *testing.T) {
	t.Run("comments are stripped outside strings", func(t *testing.T) {
		p, err := Parse(strings.Join([]string{
			"/* block",
			"   comment */",
			`s: .asciz "a // b /* c */ @d"`,
			"main: mov r0, #1 // trailing",
			"bkpt #1 @ arm style",
		}, "\n"))
		require.NoError(t, err)
		require.Len(t, p.instrs, 2)
		require.Equal(t, "a // b /* c */ @d\x00", string(p.data))
	})

	t.Run("octal escapes", func(t *testing.T) {
		b, err := unquote(`"\303\251\0"`)
		require.NoError(t, err)
		require.Equal(t, []byte{0xc3, 0xa9, 0}, b)
	})

	t.Run("labels on their own line bind to the next item", func(t *testing.T) {
		p, err := Parse("msg:\n.asciz \"x\"\nmain:\n\nmov r0, #1\nend:\n")
		require.NoError(t, err)
		require.Equal(t, uint32(dataBase), p.dataLabels["msg"])
		require.Equal(t, 0, p.codeLabels["main"])
		require.Equal(t, 1, p.codeLabels["end"])
	})

	t.Run("words are little endian", func(t *testing.T) {
		p, err := Parse("w: .word 1, 0x01020304\nmain:\n")
		require.NoError(t, err)
		require.Equal(t, []byte{1, 0, 0, 0, 4, 3, 2, 1}, p.data)
	})
}
