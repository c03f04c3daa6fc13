package cli

import "testing"

func TestParseMode(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		mode    string
		rest    []string
		wantErr bool
	}{
		{
			name: "mode flag",
			args: []string{"--mode=dashboard", "--poll=5"},
			mode: ModeDashboard,
			rest: []string{"--poll=5"},
		},
		{
			name: "subcommand shorthand",
			args: []string{"login", "--username=driver42"},
			mode: ModeLogin,
			rest: []string{"--username=driver42"},
		},
		{
			name: "short alias",
			args: []string{"d"},
			mode: ModeDashboard,
		},
		{
			name:    "no mode",
			args:    []string{"--poll=5"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, rest, err := ParseMode(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode: %v", err)
			}
			if mode != tc.mode {
				t.Errorf("mode = %q, want %q", mode, tc.mode)
			}
			if len(rest) != len(tc.rest) {
				t.Fatalf("rest = %v, want %v", rest, tc.rest)
			}
			for i := range rest {
				if rest[i] != tc.rest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tc.rest[i])
				}
			}
		})
	}
}

func TestParseModeUnknownValue(t *testing.T) {
	// an unknown --mode value is passed through and rejected by the caller's switch
	mode, _, err := ParseMode([]string{"--mode=teleport"})
	if err != nil {
		t.Fatalf("ParseMode: %v", err)
	}
	if mode != "teleport" {
		t.Errorf("mode = %q, want raw value", mode)
	}
}
