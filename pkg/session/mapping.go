package session

import (
	"github.com/openai/openai-go/v3"
)

// ToParam converts a persisted message into its chat-completion param form.
func (m Message) ToParam() openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "assistant":
		param := openai.AssistantMessage(m.Content)
		param.OfAssistant.ToolCalls = toolCallParams(m.ToolCalls)
		return param
	case "system":
		return openai.SystemMessage(m.Content)
	case "developer":
		return openai.DeveloperMessage(m.Content)
	case "tool":
		return openai.ToolMessage(m.Content, m.ToolCallID)
	default:
		return openai.UserMessage(m.Content)
	}
}

// Params converts a slice of persisted messages for a model call.
func Params(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToParam())
	}
	return out
}

// FromCompletion converts a model response message into the persisted form.
func FromCompletion(msg openai.ChatCompletionMessage) Message {
	out := Message{Role: "assistant", Content: msg.Content}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}

// ToolResult builds the tool-result message for a dispatched call.
func ToolResult(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}

func toolCallParams(calls []ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	var out []openai.ChatCompletionMessageToolCallUnionParam
	for _, call := range calls {
		out = append(out, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			},
		})
	}
	return out
}
