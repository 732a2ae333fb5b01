package wasmtest

import (
	"bytes"
	"testing"

	"github.com/wippyai/view-bridge/abi"
)

func TestBytesHeader(t *testing.T) {
	b := New().Bytes()
	if !bytes.HasPrefix(b, []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("header = %x", b[:8])
	}
	if !bytes.Equal(b, New().Bytes()) {
		t.Error("encoding is not deterministic")
	}
}

func TestOmit(t *testing.T) {
	full := New().Bytes()
	omitted := New().Omit(abi.FnWriteBinding).Bytes()
	if !bytes.Contains(full, []byte(abi.ChecksumPrefix+abi.FnWriteBinding)) {
		t.Fatal("full module lacks write_binding checksum export")
	}
	if bytes.Contains(omitted, []byte(abi.FnWriteBinding)) {
		t.Error("omitted export still present")
	}
}

func TestLEB(t *testing.T) {
	tests := []struct {
		want []byte
		v    int64
	}{
		{v: 0, want: []byte{0x00}},
		{v: 63, want: []byte{0x3f}},
		{v: 64, want: []byte{0xc0, 0x00}},
		{v: -1, want: []byte{0x7f}},
		{v: -8, want: []byte{0x78}},
		{v: -129, want: []byte{0xff, 0x7e}},
	}
	for _, tt := range tests {
		var w writer
		w.s64(tt.v)
		if !bytes.Equal(w.Bytes(), tt.want) {
			t.Errorf("s64(%d) = %x, want %x", tt.v, w.Bytes(), tt.want)
		}
	}

	var w writer
	w.u32(624485)
	if !bytes.Equal(w.Bytes(), []byte{0xe5, 0x8e, 0x26}) {
		t.Errorf("u32(624485) = %x", w.Bytes())
	}
}
