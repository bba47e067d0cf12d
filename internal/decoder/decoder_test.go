package decoder_test

import (
	"testing"

	"github.com/keurnel/mttn/internal/decoder"
)

func fakeValueOf(regs map[string]uint64) decoder.ValueOf {
	return func(name string) (uint64, error) {
		return regs[name], nil
	}
}

func TestDecode_MovRegFromMem(t *testing.T) {
	// mov eax, [rbx]
	raw := []byte{0x8b, 0x03}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if inst.Mnemonic != "MOV" {
		t.Errorf("Mnemonic = %q, want MOV", inst.Mnemonic)
	}
	if inst.Len != 2 {
		t.Errorf("Len = %d, want 2", inst.Len)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 1 || dirs[0] != decoder.DirRead {
		t.Errorf("Uses[0].Access = %v, want a single Read", inst.Uses[0].Access)
	}

	addr, err := inst.Uses[0].Address(fakeValueOf(map[string]uint64{"rbx": 0x2000}), 64, 0x1000, inst.Len)
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	if addr != 0x2000 {
		t.Errorf("Address = %#x, want 0x2000", addr)
	}
}

func TestDecode_MovMemFromReg(t *testing.T) {
	// mov [rbx], eax
	raw := []byte{0x89, 0x03}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 1 || dirs[0] != decoder.DirWrite {
		t.Errorf("Uses[0].Access = %v, want a single Write", inst.Uses[0].Access)
	}
}

func TestDecode_CmpAlwaysReads(t *testing.T) {
	// cmp eax, [rbx]
	raw := []byte{0x3b, 0x03}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 1 || dirs[0] != decoder.DirRead {
		t.Errorf("CMP memory operand must be Read-only, got %v", inst.Uses[0].Access)
	}
}

func TestDecode_AddIsReadWrite(t *testing.T) {
	// add [rbx], eax
	raw := []byte{0x01, 0x03}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 2 || dirs[0] != decoder.DirRead || dirs[1] != decoder.DirWrite {
		t.Errorf("ADD memory operand must be ReadWrite, got %v", inst.Uses[0].Access)
	}
}

func TestDecode_Lea_NoMemoryUse(t *testing.T) {
	// lea rax, [rbx]
	raw := []byte{0x48, 0x8d, 0x03}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 0 {
		t.Errorf("LEA must declare no memory uses, got %v", inst.Uses)
	}
}

func TestDecode_Push_ReadWriteAtPostDecrementAddress(t *testing.T) {
	// push rax
	raw := []byte{0x50}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if inst.Mnemonic != "PUSH" {
		t.Fatalf("Mnemonic = %q, want PUSH", inst.Mnemonic)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 2 || dirs[0] != decoder.DirRead || dirs[1] != decoder.DirWrite {
		t.Fatalf("PUSH must be ReadWrite, got %v", inst.Uses[0].Access)
	}

	width, err := inst.Uses[0].Width()
	if err != nil || width != 8 {
		t.Fatalf("Width = %d, %v; want 8, nil", width, err)
	}

	addr, err := inst.Uses[0].Address(fakeValueOf(map[string]uint64{"rsp": 0x7fff0000}), 64, 0x1000, inst.Len)
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	if addr != 0x7fff0000-8 {
		t.Errorf("Address = %#x, want %#x (post-decrement)", addr, 0x7fff0000-8)
	}
}

func TestDecode_Pop_ReadAtPreIncrementAddress(t *testing.T) {
	// pop rax
	raw := []byte{0x58}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	dirs, err := inst.Uses[0].Access.Directions()
	if err != nil || len(dirs) != 1 || dirs[0] != decoder.DirRead {
		t.Fatalf("POP must be Read-only, got %v", inst.Uses[0].Access)
	}

	addr, err := inst.Uses[0].Address(fakeValueOf(map[string]uint64{"rsp": 0x7fff0000}), 64, 0x1000, inst.Len)
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	if addr != 0x7fff0000 {
		t.Errorf("Address = %#x, want 0x7fff0000", addr)
	}
}

func TestDecode_Lodsb_ImplicitRsi(t *testing.T) {
	raw := []byte{0xac}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}
	width, err := inst.Uses[0].Width()
	if err != nil || width != 1 {
		t.Fatalf("Width = %d, %v; want 1, nil", width, err)
	}

	addr, err := inst.Uses[0].Address(fakeValueOf(map[string]uint64{"rsi": 0x3000}), 64, 0x1000, inst.Len)
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	if addr != 0x3000 {
		t.Errorf("Address = %#x, want 0x3000", addr)
	}
}

func TestDecode_Movsb_TwoImplicitOperands(t *testing.T) {
	raw := []byte{0xa4}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 2 {
		t.Fatalf("Uses = %v, want 2 entries", inst.Uses)
	}
}

func TestDecode_Nop_NoMemoryUse(t *testing.T) {
	raw := []byte{0x90}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 0 {
		t.Errorf("NOP must declare no memory uses, got %v", inst.Uses)
	}
}

func TestDecode_InvalidOpcode(t *testing.T) {
	raw := []byte{0x0f, 0xff, 0xff, 0xff}
	if _, err := decoder.Decode(raw, 64, 0x1000); err == nil {
		t.Fatal("expected an error decoding an invalid opcode")
	}
}

func TestDecode_RipRelativeAddressing(t *testing.T) {
	// mov eax, [rip+0x10]
	raw := []byte{0x8b, 0x05, 0x10, 0x00, 0x00, 0x00}
	inst, err := decoder.Decode(raw, 64, 0x1000)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(inst.Uses) != 1 {
		t.Fatalf("Uses = %v, want 1 entry", inst.Uses)
	}

	addr, err := inst.Uses[0].Address(fakeValueOf(nil), 64, 0x1000, inst.Len)
	if err != nil {
		t.Fatalf("Address returned error: %v", err)
	}
	want := uint64(0x1000) + uint64(inst.Len) + 0x10
	if addr != want {
		t.Errorf("Address = %#x, want %#x (rip + instrLen + disp)", addr, want)
	}
}
