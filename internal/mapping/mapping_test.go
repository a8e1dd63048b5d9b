package mapping

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Record
		found   bool
	}{
		{
			name:    "canonical",
			content: "BACKCHANNEL_HOST=workstation\nBACKCHANNEL_USER=alice\n",
			want:    Record{Host: "workstation", User: "alice"},
			found:   true,
		},
		{
			name:    "legacy_colon",
			content: "workstation:alice\n",
			want:    Record{Host: "workstation", User: "alice"},
			found:   true,
		},
		{
			name:    "legacy_last_wins",
			content: "old-host:bob\nworkstation:alice\n",
			want:    Record{Host: "workstation", User: "alice"},
			found:   true,
		},
		{
			name:    "canonical_overrides_legacy",
			content: "old-host:bob\nBACKCHANNEL_HOST=workstation\nBACKCHANNEL_USER=alice\n",
			want:    Record{Host: "workstation", User: "alice"},
			found:   true,
		},
		{
			name:    "comments_and_blanks_ignored",
			content: "# provisioned by backchannel\n\nBACKCHANNEL_HOST=ws\nBACKCHANNEL_USER=carol\n",
			want:    Record{Host: "ws", User: "carol"},
			found:   true,
		},
		{
			name:    "empty",
			content: "",
			found:   false,
		},
		{
			name:    "unrelated_content",
			content: "some note\nanother note\n",
			found:   false,
		},
		{
			name:    "missing_user",
			content: "BACKCHANNEL_HOST=ws\n",
			found:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found, err := Parse(tc.content)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if found != tc.found {
				t.Fatalf("expected found=%v, got %v", tc.found, found)
			}
			if found && got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	rec := Record{Host: "workstation.local", User: "alice"}
	got, found, err := Parse(Format(rec))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if got != rec {
		t.Fatalf("expected %+v, got %+v", rec, got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Record{Host: "ws", User: "alice"}); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if err := Validate(Record{Host: "ws", User: "alice; rm -rf /"}); err == nil {
		t.Fatal("expected invalid user to be rejected")
	}
	if err := Validate(Record{Host: "", User: "alice"}); err == nil {
		t.Fatal("expected empty host to be rejected")
	}
}
