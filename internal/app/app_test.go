package app

import "testing"

func TestRunUnknownCommand(t *testing.T) {
	if code := Run([]string{"bogus"}); code != 2 {
		t.Fatalf("unknown command exit = %d, want 2", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("no command exit = %d, want 2", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("help exit = %d, want 0", code)
	}
}

func TestParseOutputFormat(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"table", outputFormatTable, false},
		{"JSON", outputFormatJSON, false},
		{"", outputFormatTable, false},
		{"yaml", "", true},
	}
	for _, tc := range cases {
		got, err := parseOutputFormat(tc.raw, outputFormatTable)
		if tc.wantErr != (err != nil) {
			t.Fatalf("parseOutputFormat(%q) err = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseOutputFormat(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestRunPipelineRequiresInput(t *testing.T) {
	if code := runPipeline(nil); code != 2 {
		t.Fatalf("missing --input exit = %d, want 2", code)
	}
}

func TestRunAllocateRequiresInput(t *testing.T) {
	if code := runAllocate(nil); code != 2 {
		t.Fatalf("missing --input exit = %d, want 2", code)
	}
}
