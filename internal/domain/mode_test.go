package domain

import (
	"errors"
	"testing"
)

func TestParseAccessMode(t *testing.T) {
	tests := []struct {
		in      string
		want    AccessMode
		wantErr bool
	}{
		{"", ModeReadWrite, false},
		{"wr", ModeReadWrite, false},
		{"read", ModeRead, false},
		{"write", ModeWrite, false},
		{"rw", "", true},
		{"READ", "", true},
	}
	for _, tt := range tests {
		t.Run("mode="+tt.in, func(t *testing.T) {
			got, err := ParseAccessMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessMode_RequireWrite(t *testing.T) {
	if err := ModeRead.RequireWrite(); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("read mode: expected ErrReadOnly, got %v", err)
	}
	for _, m := range []AccessMode{ModeWrite, ModeReadWrite} {
		if err := m.RequireWrite(); err != nil {
			t.Fatalf("%s: unexpected error %v", m, err)
		}
	}
}
