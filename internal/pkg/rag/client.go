package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
)

// Client 检索服务客户端
// 调用外部 RAG 服务执行相似度检索，返回带来源引用的文本片段
type Client struct {
	baseURL    string
	apiKey     string
	corpus     string
	httpClient *http.Client
}

// NewClient 创建检索服务客户端
func NewClient(cfg config.RAGConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("RAG base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		corpus:     cfg.Corpus,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// queryRequest 检索请求体
type queryRequest struct {
	Corpus string `json:"corpus,omitempty"`
	Query  string `json:"query"`
	TopK   int    `json:"top_k"`
}

// queryResponse 检索响应体
type queryResponse struct {
	Contexts []struct {
		SourceDisplayName string  `json:"source_display_name"`
		Text              string  `json:"text"`
		Score             float64 `json:"score"`
	} `json:"contexts"`
}

// Retrieve 执行相似度检索
// 实现了 narration.Retriever 接口
func (c *Client) Retrieve(ctx context.Context, query string, topK int) ([]narration.RetrievalChunk, error) {
	reqBody, err := json.Marshal(queryRequest{
		Corpus: c.corpus,
		Query:  query,
		TopK:   topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query request: %w", err)
	}

	url := c.baseURL + "/api/v1/retrieval/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Debug().Int("top_k", topK).Msg("发送检索请求")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send retrieval request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var queryResp queryResponse
	if err := json.Unmarshal(respBody, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to parse retrieval response: %w", err)
	}

	chunks := make([]narration.RetrievalChunk, 0, len(queryResp.Contexts))
	for _, item := range queryResp.Contexts {
		chunks = append(chunks, narration.RetrievalChunk{
			SourceRef: item.SourceDisplayName,
			RawText:   item.Text,
			Score:     item.Score,
		})
	}

	log.Info().Int("count", len(chunks)).Msg("检索完成")
	return chunks, nil
}
