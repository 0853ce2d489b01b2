package live

import (
	"errors"
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType string
		wantErr  bool
	}{
		{"create with code", `{"type":"create_session","code":"abc123","setlist":[]}`, TypeCreateSession, false},
		{"create without code", `{"type":"create_session","setlist":[{"id":"s1"}]}`, TypeCreateSession, false},
		{"create short code", `{"type":"create_session","code":"AB","setlist":[]}`, "", true},
		{"create negative song index", `{"type":"create_session","code":"ABC123","songIndex":-1}`, "", true},
		{"join", `{"type":"join_session","code":"ABC123"}`, TypeJoinSession, false},
		{"join missing code", `{"type":"join_session"}`, "", true},
		{"join blank code", `{"type":"join_session","code":"   "}`, "", true},
		{"sync", `{"type":"sync_state","code":"ABC123","senderId":"u1","scrollPosition":12.5}`, TypeSyncState, false},
		{"sync missing sender", `{"type":"sync_state","code":"ABC123","songIndex":1}`, "", true},
		{"sync wrong field type", `{"type":"sync_state","code":"ABC123","senderId":"u1","songIndex":"two"}`, "", true},
		{"leave", `{"type":"leave_session","code":"ABC123"}`, TypeLeaveSession, false},
		{"end", `{"type":"end_session","code":"ABC123"}`, TypeEndSession, false},
		{"unknown type", `{"type":"dance","code":"ABC123"}`, "", true},
		{"missing type", `{"code":"ABC123"}`, "", true},
		{"not json", `hello`, "", true},
		{"json array", `[1,2,3]`, "", true},
		{"json null", `null`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.frame))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %T", cmd)
				}
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("error %v does not wrap ErrInvalidCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", cmd.Type(), tt.wantType)
			}
		})
	}
}

func TestDecodeCommandNormalizesCode(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"join_session","code":"  abc123 "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	join := cmd.(*JoinSession)
	if join.Code != "ABC123" {
		t.Errorf("Code = %q, want ABC123", join.Code)
	}
}

func TestDecodeSyncStateOptionalFields(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"sync_state","code":"ABC123","senderId":"u1","songIndex":2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sync := cmd.(*SyncState)
	if sync.SongIndex == nil || *sync.SongIndex != 2 {
		t.Errorf("SongIndex = %v, want 2", sync.SongIndex)
	}
	if sync.ScrollPosition != nil {
		t.Errorf("ScrollPosition = %v, want nil", *sync.ScrollPosition)
	}
	if present(sync.Setlist) {
		t.Errorf("Setlist should be absent, got %s", sync.Setlist)
	}
}

func TestRandomCode(t *testing.T) {
	for range 100 {
		code := randomCode()
		if len(code) != CodeLength {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), CodeLength)
		}
		for _, r := range code {
			if !containsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		if NormalizeCode(code) != code {
			t.Fatalf("generated code %q is not normalized", code)
		}
	}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
