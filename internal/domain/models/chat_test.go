package models

import (
	"strings"
	"testing"
)

func TestParseChatCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantType ChatCommandType
		wantArgs []string
	}{
		{"Fechamento", ChatClosing, nil},
		{"/relatorio", ChatClosing, nil},
		{"  resumo   João Silva ", ChatSummary, []string{"joão", "silva"}},
		{"AGENDA", ChatAgenda, nil},
		{"help", ChatHelp, nil},
		{"", ChatUnknown, nil},
		{"/estoque 3", ChatUnknown, []string{"3"}},
	}
	for _, tt := range tests {
		got := ParseChatCommand(tt.in)
		if got.Type != tt.wantType {
			t.Errorf("ParseChatCommand(%q).Type = %q, want %q", tt.in, got.Type, tt.wantType)
		}
		if strings.Join(got.Args, ",") != strings.Join(tt.wantArgs, ",") {
			t.Errorf("ParseChatCommand(%q).Args = %v, want %v", tt.in, got.Args, tt.wantArgs)
		}
		if got.Raw != tt.in {
			t.Errorf("ParseChatCommand(%q).Raw = %q", tt.in, got.Raw)
		}
	}
}
