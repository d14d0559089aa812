package providers

import (
	"context"
	"fmt"

	"github.com/weizhangcs/vss-cloud/internal/pkg/ark"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

// ArkProvider 直连火山引擎 Ark API 的文本生成提供者
// 绕过 Eino 抽象层，使用官方 volcengine-go-sdk
// 实现了 narration.Generator 接口
type ArkProvider struct {
	client *ark.Client
}

// NewArkProvider 创建基于 Ark 官方 SDK 的文本生成提供者
func NewArkProvider(client *ark.Client) *ArkProvider {
	return &ArkProvider{
		client: client,
	}
}

// Generate 根据提示词生成文本并回报 Token 用量
func (p *ArkProvider) Generate(ctx context.Context, prompt string) (string, narration.Usage, error) {
	var usage narration.Usage

	if p.client == nil {
		return "", usage, fmt.Errorf("ark client is required")
	}

	resp, err := p.client.CreateChatCompletion(ctx, &ark.ChatCompletionRequest{
		Messages: []ark.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", usage, err
	}

	if resp.Usage != nil {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	}

	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", usage, fmt.Errorf("empty response from ark")
	}

	return content, usage, nil
}
