package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

// EinoProvider Eino 封装的文本生成提供者（默认使用）
// 使用 ai/component 封装的 ChatModel（openai / azure / ark 均可）
// 实现了 narration.Generator 接口
type EinoProvider struct {
	chatModel model.ChatModel
}

// NewEinoProvider 创建基于 Eino 的文本生成提供者
func NewEinoProvider(chatModel model.ChatModel) *EinoProvider {
	return &EinoProvider{
		chatModel: chatModel,
	}
}

// Generate 根据提示词生成文本并回报 Token 用量
func (p *EinoProvider) Generate(ctx context.Context, prompt string) (string, narration.Usage, error) {
	var usage narration.Usage

	if p.chatModel == nil {
		return "", usage, fmt.Errorf("chatModel is required")
	}

	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}

	response, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", usage, fmt.Errorf("failed to generate text: %w", err)
	}

	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		usage.PromptTokens = response.ResponseMeta.Usage.PromptTokens
		usage.CompletionTokens = response.ResponseMeta.Usage.CompletionTokens
		usage.TotalTokens = response.ResponseMeta.Usage.TotalTokens
	}

	if response.Content == "" {
		return "", usage, fmt.Errorf("empty response from chat model")
	}

	return response.Content, usage, nil
}
