package session

import (
	"strings"

	"modelbridge/pkg/types"
)

const (
	imStart = "<|im_start|>"
	imEnd   = "<|im_end|>"
)

// RenderChatML renders turns in ChatML and leaves the assistant turn open.
// A non-empty tools block is appended to the first system turn, or becomes
// its own system turn when there is none.
func RenderChatML(turns []types.ChatTurn, tools string) string {
	var b strings.Builder
	toolsDone := tools == ""
	writeTurn := func(role, content string) {
		b.WriteString(imStart)
		b.WriteString(role)
		b.WriteByte('\n')
		b.WriteString(content)
		b.WriteString(imEnd)
		b.WriteByte('\n')
	}
	if !toolsDone && (len(turns) == 0 || turns[0].Role != types.RoleSystem) {
		writeTurn(string(types.RoleSystem), toolsBlock(tools))
		toolsDone = true
	}
	for _, t := range turns {
		content := t.Content
		if !toolsDone && t.Role == types.RoleSystem {
			content += "\n\n" + toolsBlock(tools)
			toolsDone = true
		}
		writeTurn(string(t.Role), content)
	}
	b.WriteString(imStart)
	b.WriteString(string(types.RoleAssistant))
	b.WriteByte('\n')
	return b.String()
}

func toolsBlock(tools string) string {
	return "You have access to the following functions:\n[\n" + tools + "\n]\n" +
		"To call a function, reply with a JSON object of the form " +
		`{"function_call": {"name": "<name>", "arguments": {...}}}`
}
