package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/weizhangcs/vss-cloud/internal/config"
	"github.com/weizhangcs/vss-cloud/internal/pkg/id"
)

// Client 火山引擎 TTS 客户端封装
// 用于调用火山引擎的 TTS API（文本转语音）
// 参考: https://openspeech.bytedance.com/api/v1/tts
type Client struct {
	apiURL      string
	accessToken string
	appID       string
	cluster     string
	voiceType   string
	sampleRate  int
	httpClient  *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg config.TTSConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("TTS access token is required")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://openspeech.bytedance.com/api/v1/tts"
	}

	cluster := cfg.Cluster
	if cluster == "" {
		cluster = "volcano_tts"
	}

	voiceType := cfg.VoiceType
	if voiceType == "" {
		voiceType = "BV115_streaming"
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}

	return &Client{
		apiURL:      apiURL,
		accessToken: cfg.AccessToken,
		appID:       cfg.AppID,
		cluster:     cluster,
		voiceType:   voiceType,
		sampleRate:  sampleRate,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// SynthesizeRequest 单段合成请求
// VoiceType / Encoding 为空时使用客户端默认值，Params 原样透传到 audio 配置
type SynthesizeRequest struct {
	Text       string
	VoiceType  string
	Encoding   string // mp3 / wav / pcm，默认 mp3
	SpeedRatio float64
	Params     map[string]interface{}
}

// Result 合成结果
type Result struct {
	AudioData     []byte         `json:"-"`              // 音频数据（二进制，不序列化到 JSON）
	Duration      float64        `json:"duration"`       // 音频时长（秒）
	TimestampData *TimestampData `json:"timestamp_data"` // 字符级时间戳
}

// TimestampData 时间戳数据
type TimestampData struct {
	Text                string          `json:"text"`
	Duration            float64         `json:"duration"`
	CharacterTimestamps []CharTimestamp `json:"character_timestamps"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// CharTimestamp 字符时间戳
type CharTimestamp struct {
	Character string  `json:"character"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Synthesize 合成单段语音
// 返回音频二进制、时长和字符级时间戳，不落盘
func (c *Client) Synthesize(ctx context.Context, req *SynthesizeRequest) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	requestID := id.New()
	reqBody, err := json.Marshal(c.buildRequestConfig(req, requestID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer; %s", c.accessToken))
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("request_id", requestID).
		Int("text_len", len([]rune(req.Text))).
		Msg("发送 TTS 请求")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS API request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var apiResp map[string]interface{}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		// 服务端偶发返回缺逗号的畸形 JSON，先修复再解析
		if err := json.Unmarshal([]byte(fixJSON(string(respBody))), &apiResp); err != nil {
			return nil, fmt.Errorf("failed to parse TTS response: %w", err)
		}
	}

	code, _ := apiResp["code"].(float64)
	if code != 3000 {
		message, _ := apiResp["message"].(string)
		if message == "" {
			message = "unknown error"
		}
		return nil, fmt.Errorf("TTS API error: %s (code: %.0f)", message, code)
	}

	audioDataBase64, ok := apiResp["data"].(string)
	if !ok {
		return nil, fmt.Errorf("audio data not found in response")
	}

	audioData, err := base64.StdEncoding.DecodeString(audioDataBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	timestampData, duration := parseTimestampData(apiResp, req.Text)

	return &Result{
		AudioData:     audioData,
		Duration:      duration,
		TimestampData: timestampData,
	}, nil
}

// buildRequestConfig 构建请求配置
// 参考官方文档: https://openspeech.bytedance.com/api/v1/tts
func (c *Client) buildRequestConfig(req *SynthesizeRequest, requestID string) map[string]interface{} {
	appConfig := map[string]interface{}{
		"token":   c.accessToken,
		"cluster": c.cluster,
	}
	if c.appID != "" {
		appConfig["appid"] = c.appID
	}

	voiceType := req.VoiceType
	if voiceType == "" {
		voiceType = c.voiceType
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = "mp3"
	}
	speedRatio := req.SpeedRatio
	if speedRatio <= 0 {
		speedRatio = 1.0
	}

	audioConfig := map[string]interface{}{
		"voice_type":       voiceType,
		"encoding":         encoding,
		"compression_rate": 1,
		"rate":             c.sampleRate,
		"speed_ratio":      speedRatio,
		"volume_ratio":     1.0,
		"pitch_ratio":      1.0,
		"language":         "cn",
	}
	for k, v := range req.Params {
		audioConfig[k] = v
	}

	requestConfig := map[string]interface{}{
		"reqid":            requestID,
		"text":             req.Text,
		"text_type":        "plain",
		"operation":        "query",
		"silence_duration": "125",
		"with_frontend":    "1",
		"frontend_type":    "unitTson",
		"pure_english_opt": "1",
	}

	return map[string]interface{}{
		"app":     appConfig,
		"user":    map[string]interface{}{"uid": requestID},
		"audio":   audioConfig,
		"request": requestConfig,
	}
}

// parseTimestampData 解析时间戳数据和音频时长
func parseTimestampData(apiResp map[string]interface{}, text string) (*TimestampData, float64) {
	timestampData := &TimestampData{
		Text:                text,
		CharacterTimestamps: []CharTimestamp{},
		GeneratedAt:         time.Now(),
	}

	var duration float64

	addition, ok := apiResp["addition"].(map[string]interface{})
	if !ok {
		return timestampData, duration
	}

	// duration 单位为毫秒，可能是字符串或数字
	if durationStr, ok := addition["duration"].(string); ok {
		if parsed, err := strconv.ParseFloat(durationStr, 64); err == nil {
			duration = parsed / 1000.0
			timestampData.Duration = duration
		}
	} else if durationNum, ok := addition["duration"].(float64); ok {
		duration = durationNum / 1000.0
		timestampData.Duration = duration
	}

	frontendStr, ok := addition["frontend"].(string)
	if !ok {
		if frontendObj, ok := addition["frontend"].(map[string]interface{}); ok {
			parseFrontendData(frontendObj, timestampData)
		}
		return timestampData, duration
	}

	var frontendData map[string]interface{}
	if err := json.Unmarshal([]byte(frontendStr), &frontendData); err != nil {
		log.Warn().Err(err).Msg("解析时间戳数据失败")
		return timestampData, duration
	}

	parseFrontendData(frontendData, timestampData)
	return timestampData, duration
}

// parseFrontendData 解析前端数据中的词级时间戳，展开为字符级
func parseFrontendData(frontendData map[string]interface{}, timestampData *TimestampData) {
	words, ok := frontendData["words"].([]interface{})
	if !ok {
		return
	}

	var charTimestamps []CharTimestamp
	for _, wordItem := range words {
		wordInfo, ok := wordItem.(map[string]interface{})
		if !ok {
			continue
		}

		word, _ := wordInfo["word"].(string)
		startTime, _ := wordInfo["start_time"].(float64)
		endTime, _ := wordInfo["end_time"].(float64)

		if word == "" {
			continue
		}

		chars := []rune(word)
		charDuration := (endTime - startTime) / float64(len(chars))
		for i, char := range chars {
			charTimestamps = append(charTimestamps, CharTimestamp{
				Character: string(char),
				StartTime: startTime + float64(i)*charDuration,
				EndTime:   startTime + float64(i+1)*charDuration,
			})
		}
	}

	timestampData.CharacterTimestamps = charTimestamps
}

// fixJSON 修复服务端返回的畸形 JSON
func fixJSON(jsonStr string) string {
	fixed := strings.ReplaceAll(jsonStr, "}{", "},{")
	fixed = strings.ReplaceAll(fixed, "\"}{\"", "\"},{\"")
	fixed = strings.ReplaceAll(fixed, "}{\"phone", "},{\"phone")
	fixed = strings.ReplaceAll(fixed, "}{\"word", "},{\"word")
	return fixed
}
