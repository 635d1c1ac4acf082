package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/taskflow/assistant/config"
	"github.com/taskflow/assistant/llm"
	"github.com/taskflow/assistant/policy"
)

// roundLimitNotice is streamed as the final assistant content when the tool
// round cap is reached while the model is still requesting tools.
const roundLimitNotice = "I reached the step limit for this request before finishing. Here is where things stand - feel free to ask me to continue."

// Agent drives the chat orchestration loop: rounds of streaming model calls,
// tool dispatch and result re-injection, until the model produces a final
// answer or the round limit is hit.
type Agent struct {
	cfg      *config.Config
	client   llm.StreamClient
	sessions *SessionStore
	registry *Registry
	policy   *policy.Engine
}

// NewAgent creates the chat agent.
func NewAgent(cfg *config.Config, client llm.StreamClient, sessions *SessionStore, registry *Registry, policyEngine *policy.Engine) *Agent {
	return &Agent{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		registry: registry,
		policy:   policyEngine,
	}
}

// Run processes one chat turn for the authenticated user and streams events
// to the emitter. It always emits exactly one done frame, last.
func (a *Agent) Run(ctx context.Context, userID, message, sessionID string, em *Emitter) {
	defer em.Emit(DoneEvent())

	if a.cfg.LLMAPIKey == "" {
		em.Emit(ErrorEvent("AI features not available: LLM_API_KEY is not set"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()

	session := a.sessions.GetOrCreate(userID, sessionID)
	session.Append(llm.ChatMessage{Role: "user", Content: message})

	// The first frame carries the session id so the caller can resume.
	first := ContentEvent("")
	first.SessionID = session.SessionID
	em.Emit(first)

	messages := session.Messages()
	schemas := a.registry.Schemas()
	finalized := false

	for round := 0; round < a.cfg.MaxToolRounds; round++ {
		var content strings.Builder
		collector := newToolCallCollector()

		req := &llm.ChatCompletionRequest{
			Model:      a.cfg.LLMModel,
			Messages:   messages,
			Tools:      schemas,
			ToolChoice: "auto",
		}

		err := a.client.StreamChatCompletion(ctx, req, func(chunk *llm.StreamChunk) error {
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
				return nil
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				content.WriteString(delta.Content)
				em.Emit(ContentEvent(delta.Content))
			}
			for _, tc := range delta.ToolCalls {
				collector.add(tc)
			}
			return nil
		})
		if err != nil {
			// Transport/model failure: abort the turn without appending a
			// partial assistant message.
			log.Printf("ERROR: chat stream failed: %v", err)
			em.Emit(ErrorEvent(err.Error()))
			return
		}

		calls := collector.finalize()
		log.Printf("INFO: round %d: content=%d bytes, tool_calls=%d", round, content.Len(), len(calls))

		if len(calls) == 0 {
			session.Append(llm.ChatMessage{Role: "assistant", Content: content.String()})
			finalized = true
			break
		}

		assistantMsg := llm.ChatMessage{
			Role:      "assistant",
			Content:   content.String(),
			ToolCalls: calls,
		}
		messages = append(messages, assistantMsg)

		toolMsgs := make([]llm.ChatMessage, 0, len(calls))
		for _, call := range calls {
			em.Emit(toolCallEvent(call))
			result := a.executeTool(ctx, userID, call)
			toolMsgs = append(toolMsgs, llm.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
		messages = append(messages, toolMsgs...)

		// Mirror the exact protocol ordering into the session before the
		// next round: assistant-with-tool-calls, then one tool message per
		// call, in call order.
		session.Append(assistantMsg)
		for _, msg := range toolMsgs {
			session.Append(msg)
		}
	}

	if !finalized {
		em.Emit(ContentEvent(roundLimitNotice))
		session.Append(llm.ChatMessage{Role: "assistant", Content: roundLimitNotice})
	}
}

// executeTool runs one tool call and always produces result text; failures
// become error text the model can recover from conversationally.
func (a *Agent) executeTool(ctx context.Context, userID string, call llm.ToolCall) (result string) {
	name := call.Function.Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: tool %s panicked: %v", name, r)
			result = fmt.Sprintf("Tool execution error: %v", r)
		}
	}()

	def, ok := a.registry.Lookup(name)
	if !ok {
		log.Printf("ERROR: unknown tool requested: %s", name)
		return fmt.Sprintf("Unknown tool: %s", name)
	}

	args := parsedArguments(call.Function.Arguments)
	decision, reason, err := a.policy.Evaluate(ctx, map[string]interface{}{
		"tool_name": name,
		"user_id":   userID,
		"args":      args,
	})
	if err != nil {
		log.Printf("ERROR: policy evaluation failed for %s: %v", name, err)
		return fmt.Sprintf("Tool execution error: %v", err)
	}
	if decision == "block" {
		log.Printf("WARN: tool %s blocked by policy: %s", name, reason)
		if reason != "" {
			return fmt.Sprintf("Tool call blocked by policy: %s", reason)
		}
		return "Tool call blocked by policy."
	}

	log.Printf("INFO: executing tool %s for user %s", name, userID)
	result, err = def.Handler(ctx, userID, json.RawMessage(call.Function.Arguments))
	if err != nil {
		log.Printf("ERROR: tool %s failed: %v", name, err)
		return fmt.Sprintf("Tool execution error: %v", err)
	}
	return result
}

func toolCallEvent(call llm.ToolCall) StreamEvent {
	return StreamEvent{
		Type: "tool_call",
		ToolCall: &ToolCallEvent{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: parsedArguments(call.Function.Arguments),
		},
	}
}

// parsedArguments decodes the accumulated argument text for event payloads
// and policy input; malformed JSON is passed through as the raw string so a
// bad model response never kills the stream.
func parsedArguments(raw string) interface{} {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return parsed
}

// toolCallCollector reassembles tool calls that arrive as fragments keyed by
// a small integer index; a call is only complete once the stream ends.
type toolCallCollector struct {
	order []int
	calls map[int]*llm.ToolCall
}

func newToolCallCollector() *toolCallCollector {
	return &toolCallCollector{calls: make(map[int]*llm.ToolCall)}
}

func (c *toolCallCollector) add(delta llm.ToolCallDelta) {
	call, ok := c.calls[delta.Index]
	if !ok {
		call = &llm.ToolCall{Type: "function"}
		c.calls[delta.Index] = call
		c.order = append(c.order, delta.Index)
	}
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Function.Name != "" {
		call.Function.Name = delta.Function.Name
	}
	call.Function.Arguments += delta.Function.Arguments
}

func (c *toolCallCollector) finalize() []llm.ToolCall {
	sort.Ints(c.order)
	calls := make([]llm.ToolCall, 0, len(c.order))
	for _, idx := range c.order {
		calls = append(calls, *c.calls[idx])
	}
	return calls
}
