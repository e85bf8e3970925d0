package models

import "strings"

// CommandType enumerates the instructions farm workers can send by message.
type CommandType string

const (
	CommandMilk      CommandType = "milk"
	CommandEggs      CommandType = "eggs"
	CommandMortality CommandType = "mortality"
	CommandSale      CommandType = "sale"
	CommandExpense   CommandType = "expense"
	CommandSummary   CommandType = "summary"
	CommandHelp      CommandType = "help"
	CommandUnknown   CommandType = "unknown"
)

var commandAliases = map[string]CommandType{
	"milk":      CommandMilk,
	"lait":      CommandMilk,
	"eggs":      CommandEggs,
	"oeufs":     CommandEggs,
	"mortality": CommandMortality,
	"deaths":    CommandMortality,
	"sale":      CommandSale,
	"sales":     CommandSale,
	"expense":   CommandExpense,
	"expenses":  CommandExpense,
	"summary":   CommandSummary,
	"report":    CommandSummary,
	"help":      CommandHelp,
}

// Command is a parsed worker instruction.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form text. The leading word selects the
// command, optionally prefixed with a slash; the remaining words are its arguments.
func ParseCommand(message string) Command {
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(strings.TrimSpace(message))
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	if t, ok := commandAliases[head]; ok {
		cmd.Type = t
	}
	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}

// CommandUsage documents the accepted grammar, one line per command.
var CommandUsage = []string{
	"milk <tag> <morning|afternoon|evening> <liters>",
	"eggs <batch> <collected> [broken]",
	"mortality <batch> <count> [reason]",
	"sale <liters> <price_per_liter> [buyer]",
	"expense <amount> <category> [description]",
	"summary",
}
