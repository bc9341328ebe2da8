package notifier

import "testing"

func TestNormalizeCommand(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain command", "/round", "/round", true},
		{"trims whitespace", "  /degen  ", "/degen", true},
		{"strips bot mention", "/round@WheelBot", "/round", true},
		{"mention with argument", "/bet@WheelBot 0.5", "/bet 0.5", true},
		{"collapses spacing", "/bet   0.5", "/bet 0.5", true},
		{"chatter ignored", "nice spin", "", false},
		{"mention mid-text ignored", "hey @WheelBot", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeCommand(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("normalizeCommand(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
