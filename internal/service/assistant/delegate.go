package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Delegate is the external function-calling language model. The returned
// stream yields content deltas and tool-call deltas.
type Delegate interface {
	StreamComplete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.StreamReader[*schema.Message], error)
}

// ChatModelDelegate adapts an eino chat model to Delegate.
type ChatModelDelegate struct {
	model model.ChatModel
}

// NewChatModelDelegate binds tools to m once. The action set is closed, so
// the tools passed to StreamComplete are the ones bound here.
func NewChatModelDelegate(m model.ChatModel, tools []*schema.ToolInfo) (*ChatModelDelegate, error) {
	if m == nil {
		return nil, errors.New("chat model is required")
	}
	if err := m.BindTools(tools); err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	return &ChatModelDelegate{model: m}, nil
}

// StreamComplete streams the model's answer to messages.
func (d *ChatModelDelegate) StreamComplete(ctx context.Context, messages []*schema.Message, _ []*schema.ToolInfo) (*schema.StreamReader[*schema.Message], error) {
	if d == nil || d.model == nil {
		return nil, ErrDelegateUnavailable
	}
	stream, err := d.model.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDelegateUnavailable, err)
	}
	return stream, nil
}
