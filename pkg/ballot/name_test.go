package ballot

import (
	"errors"
	"strings"
	"testing"
)

func TestNameFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"short", "Alice", false},
		{"empty", "", false},
		{"exactly 32 bytes", strings.Repeat("x", NameLength), false},
		{"too long", strings.Repeat("x", NameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := NameFromString(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NameFromString should have failed")
				}
				return
			}
			if err != nil {
				t.Fatalf("NameFromString failed: %v", err)
			}
			if name.String() != tt.input {
				t.Errorf("String() = %q, want %q", name.String(), tt.input)
			}
		})
	}
}

func TestNamesFromStrings(t *testing.T) {
	names, err := NamesFromStrings([]string{"A", "B"})
	if err != nil {
		t.Fatalf("NamesFromStrings failed: %v", err)
	}
	if len(names) != 2 || names[1].String() != "B" {
		t.Errorf("NamesFromStrings = %v", names)
	}

	if _, err := NamesFromStrings([]string{"ok", strings.Repeat("y", 40)}); err == nil {
		t.Error("NamesFromStrings should reject an oversized name")
	}
}

func TestRevertErrorTags(t *testing.T) {
	for tag, kind := range map[string]error{
		"Unauthorized":        ErrUnauthorized,
		"AlreadyVoted":        ErrAlreadyVoted,
		"AlreadyHasRights":    ErrAlreadyHasRights,
		"InvalidDelegate":     ErrInvalidDelegate,
		"SelfDelegationCycle": ErrSelfDelegationCycle,
		"OutOfRange":          ErrOutOfRange,
	} {
		err := revert(kind, "because")
		if got := TagOf(err); got != tag {
			t.Errorf("TagOf(%v) = %q, want %q", kind, got, tag)
		}

		back, err2 := ErrorByTag(tag, "because")
		if err2 != nil {
			t.Fatalf("ErrorByTag(%q) failed: %v", tag, err2)
		}
		if !errors.Is(back, kind) || back.Reason != "because" {
			t.Errorf("ErrorByTag(%q) = %v", tag, back)
		}
	}

	if _, err := ErrorByTag("Bogus", ""); err == nil {
		t.Error("ErrorByTag should reject an unknown tag")
	}
	if TagOf(errors.New("plain")) != "" {
		t.Error("TagOf should be empty for a plain error")
	}
}
