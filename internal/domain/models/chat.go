package models

import "strings"

// ChatCommandType enumerates what an operator can ask over WhatsApp.
type ChatCommandType string

const (
	ChatClosing ChatCommandType = "fechamento"
	ChatSummary ChatCommandType = "resumo"
	ChatAgenda  ChatCommandType = "agenda"
	ChatHelp    ChatCommandType = "ajuda"
	ChatUnknown ChatCommandType = "unknown"
)

// chatAliases maps accepted first words to commands.
var chatAliases = map[string]ChatCommandType{
	"fechamento": ChatClosing,
	"relatorio":  ChatClosing,
	"relatório":  ChatClosing,
	"caixa":      ChatClosing,
	"resumo":     ChatSummary,
	"agenda":     ChatAgenda,
	"agendados":  ChatAgenda,
	"ajuda":      ChatHelp,
	"help":       ChatHelp,
	"menu":       ChatHelp,
}

// ChatCommand is an operator message parsed into a command and its arguments.
type ChatCommand struct {
	Type ChatCommandType
	Raw  string
	Args []string
}

// ParseChatCommand reads the first word of message, with or without a
// leading slash, as the command.
func ParseChatCommand(message string) ChatCommand {
	cmd := ChatCommand{Type: ChatUnknown, Raw: message}

	tokens := strings.Fields(strings.ToLower(message))
	if len(tokens) == 0 {
		return cmd
	}
	if t, ok := chatAliases[strings.TrimPrefix(tokens[0], "/")]; ok {
		cmd.Type = t
	}
	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
