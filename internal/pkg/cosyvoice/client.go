package cosyvoice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

// 默认合成参数
const (
	DefaultModel    = "CosyVoice2-0.5B"
	DefaultMode     = "natural_language_replication"
	DefaultInstruct = "用讲故事的语气，声音自然清晰"
)

// Client PAI-EAS 部署的 CosyVoice 服务客户端
// 语音复刻：先上传参考音频拿到 reference_audio_id，再携带该 id 合成
type Client struct {
	serviceURL string
	token      string
	model      string
	httpClient *http.Client
}

// NewClient 创建 CosyVoice 客户端
func NewClient(cfg config.CosyVoiceConfig) (*Client, error) {
	if cfg.ServiceURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("CosyVoice service URL and token are required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
		token:      cfg.Token,
		model:      model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// UploadReferenceAudio 上传参考音频及其转写文本，返回服务端分配的 reference_audio_id
func (c *Client) UploadReferenceAudio(ctx context.Context, audioPath, text string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open reference audio %s: %w", audioPath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read reference audio: %w", err)
	}
	if err := writer.WriteField("text", text); err != nil {
		return "", fmt.Errorf("failed to write text field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	uploadURL := c.serviceURL + "/api/v1/audio/reference_audio"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload reference audio: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reference audio upload failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if uploadResp.ID == "" {
		return "", fmt.Errorf("upload response missing reference audio id")
	}

	log.Info().Str("reference_audio_id", uploadResp.ID).Msg("参考音频上传完成")
	return uploadResp.ID, nil
}

// SynthesizeRequest 复刻合成请求
type SynthesizeRequest struct {
	Text             string
	ReferenceAudioID string
	Instruct         string  // 风格指令，空则使用默认
	Speed            float64 // 语速，默认 1.0
	Mode             string  // 合成模式，默认 natural_language_replication
}

// Result 合成结果，音频为 WAV 编码
type Result struct {
	AudioData []byte
	Duration  float64
}

// Synthesize 以参考音色合成一段语音
func (c *Client) Synthesize(ctx context.Context, req *SynthesizeRequest) (*Result, error) {
	if req.ReferenceAudioID == "" {
		return nil, fmt.Errorf("reference audio id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	instruct := req.Instruct
	if instruct == "" {
		instruct = DefaultInstruct
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	mode := req.Mode
	if mode == "" {
		mode = DefaultMode
	}

	payload := map[string]interface{}{
		"model": c.model,
		"input": map[string]interface{}{
			"mode":               mode,
			"reference_audio_id": req.ReferenceAudioID,
			"text":               req.Text,
			"instruct":           instruct,
			"speed":              speed,
		},
		"stream": false,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	synthesisURL := c.serviceURL + "/api/v1/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, synthesisURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("reference_audio_id", req.ReferenceAudioID).
		Int("text_len", len([]rune(req.Text))).
		Msg("发送 CosyVoice 合成请求")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send synthesis request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CosyVoice synthesis failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var synthResp struct {
		Output struct {
			Audio struct {
				Data string `json:"data"`
			} `json:"audio"`
		} `json:"output"`
	}
	if err := json.Unmarshal(respBody, &synthResp); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis response: %w", err)
	}
	if synthResp.Output.Audio.Data == "" {
		return nil, fmt.Errorf("synthesis response missing audio data")
	}

	audioData, err := base64.StdEncoding.DecodeString(synthResp.Output.Audio.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	return &Result{
		AudioData: audioData,
		Duration:  WAVDuration(audioData),
	}, nil
}

// WAVDuration 从 WAV 头计算音频时长（秒），解析失败返回 0
func WAVDuration(data []byte) float64 {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}

	var byteRate uint32
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

		switch chunkID {
		case "fmt ":
			if offset+24 <= len(data) {
				byteRate = binary.LittleEndian.Uint32(data[offset+16 : offset+20])
			}
		case "data":
			if byteRate == 0 {
				return 0
			}
			duration := float64(chunkSize) / float64(byteRate)
			return float64(int(duration*1000)) / 1000
		}

		offset += 8 + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}
	return 0
}
