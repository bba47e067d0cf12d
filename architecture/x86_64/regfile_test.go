package x86_64_test

import (
	"testing"

	"github.com/keurnel/mttn/architecture/x86_64"
)

func sampleRegisterFile() x86_64.RegisterFile {
	return x86_64.RegisterFile{
		Rax: 0x1122334455667788,
		Rbx: 0x2233445566778899,
		Rcx: 0x33445566778899aa,
		Rdx: 0x445566778899aabb,
		Rsi: 0x5566778899aabbcc,
		Rdi: 0x66778899aabbccdd,
		Rsp: 0x778899aabbccddee,
		Rbp: 0x8899aabbccddeeff,
		R8:  1, R9: 2, R10: 3, R11: 4, R12: 5, R13: 6, R14: 7, R15: 8,
		Rip:    0x400000,
		Rflags: 0x246,
		FsBase: 0xdeadbeef,
		GsBase: 0xcafef00d,
	}
}

func TestValueOf_AliasFamilies(t *testing.T) {
	r := sampleRegisterFile()

	tests := []struct {
		name string
		want uint64
	}{
		{"al", r.Rax & 0xff},
		{"ah", (r.Rax >> 8) & 0xff},
		{"ax", r.Rax & 0xffff},
		{"eax", r.Rax & 0xffffffff},
		{"rax", r.Rax},

		{"bl", r.Rbx & 0xff},
		{"bh", (r.Rbx >> 8) & 0xff},
		{"bx", r.Rbx & 0xffff},
		{"ebx", r.Rbx & 0xffffffff},
		{"rbx", r.Rbx},

		{"cl", r.Rcx & 0xff},
		{"ch", (r.Rcx >> 8) & 0xff},
		{"cx", r.Rcx & 0xffff},
		{"ecx", r.Rcx & 0xffffffff},
		{"rcx", r.Rcx},

		{"dl", r.Rdx & 0xff},
		{"dh", (r.Rdx >> 8) & 0xff},
		{"dx", r.Rdx & 0xffff},
		{"edx", r.Rdx & 0xffffffff},
		{"rdx", r.Rdx},

		{"sil", r.Rsi & 0xff},
		{"si", r.Rsi & 0xffff},
		{"esi", r.Rsi & 0xffffffff},
		{"rsi", r.Rsi},

		{"dil", r.Rdi & 0xff},
		{"di", r.Rdi & 0xffff},
		{"edi", r.Rdi & 0xffffffff},
		{"rdi", r.Rdi},

		{"spl", r.Rsp & 0xff},
		{"sp", r.Rsp & 0xffff},
		{"esp", r.Rsp & 0xffffffff},
		{"rsp", r.Rsp},

		{"bpl", r.Rbp & 0xff},
		{"bp", r.Rbp & 0xffff},
		{"ebp", r.Rbp & 0xffffffff},
		{"rbp", r.Rbp},

		{"r8b", r.R8 & 0xff}, {"r8w", r.R8 & 0xffff}, {"r8d", r.R8 & 0xffffffff}, {"r8", r.R8},
		{"r15b", r.R15 & 0xff}, {"r15w", r.R15 & 0xffff}, {"r15d", r.R15 & 0xffffffff}, {"r15", r.R15},

		{"rip", r.Rip}, {"eip", r.Rip & 0xffffffff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ValueOf(tt.name)
			if err != nil {
				t.Fatalf("ValueOf(%s) returned error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ValueOf(%s) = %#x, want %#x", tt.name, got, tt.want)
			}
		})
	}
}

func TestValueOf_SegmentsAreFlat(t *testing.T) {
	r := sampleRegisterFile()

	for _, name := range []string{"ss", "cs", "ds", "es"} {
		got, err := r.ValueOf(name)
		if err != nil {
			t.Fatalf("ValueOf(%s) returned error: %v", name, err)
		}
		if got != 0 {
			t.Errorf("ValueOf(%s) = %#x, want 0", name, got)
		}
	}
}

func TestValueOf_FsGsReturnSegmentBase(t *testing.T) {
	r := sampleRegisterFile()

	if got, err := r.ValueOf("fs"); err != nil || got != r.FsBase {
		t.Errorf("ValueOf(fs) = %#x, %v; want %#x, nil", got, err, r.FsBase)
	}
	if got, err := r.ValueOf("gs"); err != nil || got != r.GsBase {
		t.Errorf("ValueOf(gs) = %#x, %v; want %#x, nil", got, err, r.GsBase)
	}
}

func TestValueOf_UntrackedRegisterFails(t *testing.T) {
	r := sampleRegisterFile()

	for _, name := range []string{"st0", "xmm0", "ymm0", "cr0", "dr0", "mm0"} {
		if _, err := r.ValueOf(name); err == nil {
			t.Errorf("ValueOf(%s) succeeded, want untracked-register error", name)
		}
	}
}
