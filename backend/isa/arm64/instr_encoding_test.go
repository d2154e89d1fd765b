package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joelreymont/hoist/backend/regalloc"
)

// The golden words below are cross-checked against the ARM architecture
// reference; the case name is the assembly the word disassembles to.

func TestEncodeAluRRR(t *testing.T) {
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"add w0, w0, w1", 0x0b010000, encodeAluRRR(aluOpAdd, 0, 0, 1, false, false)},
		{"add x3, x4, x5", 0x8b050083, encodeAluRRR(aluOpAdd, 3, 4, 5, true, false)},
		{"sub x0, x1, x2", 0xcb020020, encodeAluRRR(aluOpSub, 0, 1, 2, true, false)},
		{"subs xzr, x0, x1", 0xeb01001f, encodeAluRRR(aluOpSubS, 31, 0, 1, true, false)},
		{"and x0, x1, x2", 0x8a020020, encodeAluRRR(aluOpAnd, 0, 1, 2, true, false)},
		{"orr x0, x1, x2", 0xaa020020, encodeAluRRR(aluOpOrr, 0, 1, 2, true, false)},
		{"eor x0, x1, x2", 0xca020020, encodeAluRRR(aluOpEor, 0, 1, 2, true, false)},
		{"lslv x0, x1, x2", 0x9ac22020, encodeAluRRR(aluOpLsl, 0, 1, 2, true, false)},
		{"lsrv x0, x1, x2", 0x9ac22420, encodeAluRRR(aluOpLsr, 0, 1, 2, true, false)},
		{"asrv x0, x1, x2", 0x9ac22820, encodeAluRRR(aluOpAsr, 0, 1, 2, true, false)},
		{"rorv x0, x1, x2", 0x9ac22c20, encodeAluRRR(aluOpRor, 0, 1, 2, true, false)},
		{"udiv x0, x1, x2", 0x9ac20820, encodeAluRRR(aluOpUDiv, 0, 1, 2, true, false)},
		{"sdiv x0, x1, x2", 0x9ac20c20, encodeAluRRR(aluOpSDiv, 0, 1, 2, true, false)},
		{"umulh x0, x1, x2", 0x9bc27c20, encodeAluRRR(aluOpUMulH, 0, 1, 2, true, false)},
		{"smulh x0, x1, x2", 0x9b427c20, encodeAluRRR(aluOpSMulH, 0, 1, 2, true, false)},
		{"adc x0, x1, x2", 0x9a020020, encodeAluRRR(aluOpAdc, 0, 1, 2, true, false)},
		{"sbc x0, x1, x2", 0xda020020, encodeAluRRR(aluOpSbc, 0, 1, 2, true, false)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}

func TestEncodeAluForms(t *testing.T) {
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"add x0, x1, #42", 0x9100a820, encodeAluRRImm12(aluOpAdd, 0, 1, 42, 0, true)},
		{"add x0, x1, #1, lsl #12", 0x91400420, encodeAluRRImm12(aluOpAdd, 0, 1, 1, 1, true)},
		{"sub sp, sp, #16", 0xd10043ff, encodeAluRRImm12(aluOpSub, 31, 31, 16, 0, true)},
		{"add x0, x1, x2, lsl #3", 0x8b020c20, encodeAluRRRShifted(aluOpAdd, 0, 1, 2, 3, shiftOpLSL, true)},
		{"add x0, x1, w2, uxtw", 0x8b224020, encodeAluRRRExtended(aluOpAdd, 0, 1, 2, extendOpUXTW, true)},
		{"madd x0, x1, x2, xzr", 0x9b027c20, encodeAluRRRR(aluOpMAdd, 0, 1, 2, 31, true)},
		{"msub x0, x1, x2, x3", 0x9b028c20, encodeAluRRRR(aluOpMSub, 0, 1, 2, 3, true)},
		{"and x0, x1, #0xff", 0x92401c20, mustLogicalImm(t, aluOpAnd, 0, 1, 0xff, true)},
		{"lsl x0, x1, #4", 0xd37cec20, encodeAluRRImmShift(aluOpLsl, 0, 1, 4, true)},
		{"lsr x0, x1, #4", 0xd344fc20, encodeAluRRImmShift(aluOpLsr, 0, 1, 4, true)},
		{"clz x0, x1", 0xdac01020, encodeBitRR(bitOpClz, 0, 1, true)},
		{"rbit x0, x1", 0xdac00020, encodeBitRR(bitOpRbit, 0, 1, true)},
		{"movz w0, #42", 0x52800540, encodeMoveWideImmediate(0b10, 0, 42, 0, 0)},
		{"movz x0, #42", 0xd2800540, encodeMoveWideImmediate(0b10, 0, 42, 0, 1)},
		{"movk x0, #1, lsl #16", 0xf2a00020, encodeMoveWideImmediate(0b11, 0, 1, 1, 1)},
		{"movn x0, #0", 0x92800000, encodeMoveWideImmediate(0b00, 0, 0, 0, 1)},
		{"csel x0, x1, x2, eq", 0x9a820020, encodeConditionalSelect(cSel, 0, 1, 2, eq, true)},
		{"sxtb x0, w1", 0x93401c20, encodeExtend(true, 8, 64, 0, 1)},
		{"uxth w0, w1", 0x53003c20, encodeExtend(false, 16, 32, 0, 1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}

func mustLogicalImm(t *testing.T, op aluOp, rd, rn uint32, v uint64, is64 bool) uint32 {
	n, immr, imms, ok := asBitmaskImmediate(v, is64)
	require.True(t, ok)
	return encodeAluBitmaskImmediate(op, rd, rn, n, immr, imms, is64)
}

func TestAsBitmaskImmediate(t *testing.T) {
	for _, tc := range []struct {
		v  uint64
		ok bool
	}{
		{0xff, true},
		{0x8000000000000000, true},
		{0x7fffffffffffffff, true},
		{0x5555555555555555, true},
		{0x0f0f0f0f0f0f0f0f, true},
		{0xffff0000ffff0000, true},
		{0, false},
		{^uint64(0), false},
		{0x123456789abcdef0, false},
	} {
		_, _, _, ok := asBitmaskImmediate(tc.v, true)
		require.Equal(t, tc.ok, ok, "value %#x", tc.v)
	}
}

func TestEncodeFpu(t *testing.T) {
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"fadd s0, s1, s2", 0x1e222820, encodeFpuRRR(fpuBinOpAdd, 0, 1, 2, false)},
		{"fadd d0, d1, d2", 0x1e622820, encodeFpuRRR(fpuBinOpAdd, 0, 1, 2, true)},
		{"fsub d0, d1, d2", 0x1e623820, encodeFpuRRR(fpuBinOpSub, 0, 1, 2, true)},
		{"fmul d0, d1, d2", 0x1e620820, encodeFpuRRR(fpuBinOpMul, 0, 1, 2, true)},
		{"fdiv d0, d1, d2", 0x1e621820, encodeFpuRRR(fpuBinOpDiv, 0, 1, 2, true)},
		{"fneg d0, d1", 0x1e614020, encodeFloatDataOneSource(fpuUniOpNeg, 0, 1, true)},
		{"fsqrt d0, d1", 0x1e61c020, encodeFloatDataOneSource(fpuUniOpSqrt, 0, 1, true)},
		{"fcvt d0, s1", 0x1e22c020, encodeFloatDataOneSource(fpuUniOpCvt32To64, 0, 1, false)},
		{"fmov d0, x1", 0x9e670020, encodeFMovGprFpr(0, 1, true, true)},
		{"fmov x0, d1", 0x9e660020, encodeFMovGprFpr(0, 1, true, false)},
		{"fcsel d0, d1, d2, eq", 0x1e620c20, encodeFpuCSel(0, 1, 2, eq, true)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}

func TestEncodeLoadStore(t *testing.T) {
	x1op := addressModeUnsigned(regFromEnc(1), 0)
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"ldr x0, [x1]", 0xf9400020, encodeLoadOrStore(uLoad64, 0, x1op)},
		{"ldr x0, [x1, #16]", 0xf9400820, encodeLoadOrStore(uLoad64, 0, addressModeUnsigned(regFromEnc(1), 16))},
		{"ldrb w0, [x1]", 0x39400020, encodeLoadOrStore(uLoad8, 0, x1op)},
		{"ldrsw x0, [x1]", 0xb9800020, encodeLoadOrStore(sLoad32, 0, x1op)},
		{"str x0, [x1]", 0xf9000020, encodeLoadOrStore(store64, 0, x1op)},
		{"str w0, [x1]", 0xb9000020, encodeLoadOrStore(store32, 0, x1op)},
		{"ldr d0, [x1]", 0xfd400020, encodeLoadOrStore(fpuLoad64, 0, x1op)},
		{"ldr q0, [x1]", 0x3dc00020, encodeLoadOrStore(fpuLoad128, 0, x1op)},
		{"str q0, [x1]", 0x3d800020, encodeLoadOrStore(fpuStore128, 0, x1op)},
		{
			"ldr x0, [x1, x2]", 0xf8626820,
			encodeLoadOrStore(uLoad64, 0, addressMode{kind: addressModeKindRegReg, rn: regFromEnc(1), rm: regFromEnc(2)}),
		},
		{
			"ldur x0, [x1, #-8]", 0xf85f8020,
			encodeLoadOrStore(uLoad64, 0, addressMode{kind: addressModeKindRegSignedImm9, rn: regFromEnc(1), imm: -8}),
		},
		{"stp x29, x30, [sp, #-16]!", 0xa9bf7bfd, encodePreOrPostIndexLoadStorePair64(true, false, 31, 29, 30, -16)},
		{"ldp x29, x30, [sp], #16", 0xa8c17bfd, encodePreOrPostIndexLoadStorePair64(false, true, 31, 29, 30, 16)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}

func regFromEnc(enc byte) regalloc.Reg {
	return regalloc.RegFromReal(regalloc.NewRealReg(regalloc.RegClassInt, enc))
}

func TestEncodeBranchesAndSystem(t *testing.T) {
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"ret", 0xd65f03c0, encodeRet()},
		{"b #0", 0x14000000, encodeUnconditionalBranch(false, 0)},
		{"bl #0", 0x94000000, encodeUnconditionalBranch(true, 0)},
		{"br x1", 0xd61f0020, encodeUnconditionalBranchReg(1, false)},
		{"blr x1", 0xd63f0020, encodeUnconditionalBranchReg(1, true)},
		{"cbz x0, #8", 0xb4000040, encodeCBZCBNZ(0, false, 2, true)},
		{"cbnz w0, #8", 0x35000040, encodeCBZCBNZ(0, true, 2, false)},
		{"brk #1", 0xd4200020, encodeBrk(1)},
		{"adr x0, #16", 0x10000080, encodeAdr(0, 16)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}

func TestEncodeVec(t *testing.T) {
	for _, tc := range []struct {
		name string
		want uint32
		got  uint32
	}{
		{"add v0.16b, v1.16b, v2.16b", 0x4e228420, encodeVecRRR(vecOpAdd, 0, 1, 2, vecArrangement16B)},
		{"sub v0.4s, v1.4s, v2.4s", 0x6ea28420, encodeVecRRR(vecOpSub, 0, 1, 2, vecArrangement4S)},
		{"and v0.16b, v1.16b, v2.16b", 0x4e221c20, encodeVecRRR(vecOpAnd, 0, 1, 2, vecArrangement16B)},
		{"eor v0.16b, v1.16b, v2.16b", 0x6e221c20, encodeVecRRR(vecOpEor, 0, 1, 2, vecArrangement16B)},
		{"cnt v0.8b, v1.8b", 0x0e205820, encodeAdvancedSIMDTwoMisc(vecOpCnt, 0, 1, vecArrangement8B)},
		{"addv b0, v1.8b", 0x0e31b820, encodeVecLanes(vecOpAddv, 0, 1, vecArrangement8B)},
		{"dup v0.16b, w1", 0x4e010c20, encodeVecDup(0, 1, vecArrangement16B)},
		{"ins v0.s[1], w1", 0x4e0c1c20, encodeMoveToVec(0, 1, vecArrangementS, 1)},
		{"umov w0, v1.s[1]", 0x0e0c3c20, encodeMoveFromVec(0, 1, vecArrangementS, 1, false)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.got)
		})
	}
}
