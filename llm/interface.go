package llm

import "context"

// StreamClient defines the interface for streaming chat completion calls.
type StreamClient interface {
	// StreamChatCompletion sends a streaming chat completion request.
	// The callback is called for each chunk received.
	StreamChatCompletion(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) error
}

// Ensure Client implements StreamClient interface.
var _ StreamClient = (*Client)(nil)
