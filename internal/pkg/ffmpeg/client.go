package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Client FFmpeg 客户端
// 封装音频装配需要的 ffmpeg / ffprobe 命令调用
type Client struct {
	ffmpegPath  string // FFmpeg 可执行文件路径（默认: ffmpeg）
	ffprobePath string // FFprobe 可执行文件路径（默认: ffprobe）
}

// NewClient 创建 FFmpeg 客户端
func NewClient() *Client {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := os.Getenv("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration   float64 // 时长（秒）
	SampleRate int     // 采样率
	Channels   int     // 声道数
	CodecName  string  // 编码格式
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &AudioInfo{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	if len(probe.Streams) > 0 {
		info.CodecName = probe.Streams[0].CodecName
		info.Channels = probe.Streams[0].Channels
		if sr, err := strconv.Atoi(probe.Streams[0].SampleRate); err == nil {
			info.SampleRate = sr
		}
	}

	return info, nil
}

// ConcatAudio 无损拼接多个音频文件
// 使用 concat demuxer 加 -c copy，不重新编码
// 要求所有分段同编码同采样率（同一合成批次天然满足）
func (c *Client) ConcatAudio(ctx context.Context, audioPaths []string, outputPath string) error {
	if len(audioPaths) == 0 {
		return fmt.Errorf("no audio files to concat")
	}

	tempDir := filepath.Dir(outputPath)
	concatListFile := filepath.Join(tempDir, fmt.Sprintf("concat_list_%d.txt", time.Now().UnixNano()))

	file, err := os.Create(concatListFile)
	if err != nil {
		return fmt.Errorf("create concat list file: %w", err)
	}
	defer os.Remove(concatListFile)

	for _, audioPath := range audioPaths {
		absPath, err := filepath.Abs(audioPath)
		if err != nil {
			file.Close()
			return fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(file, "file '%s'\n", absPath)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close concat list file: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatListFile,
		"-c", "copy",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	log.Info().
		Int("count", len(audioPaths)).
		Str("output", outputPath).
		Msg("音频拼接完成")

	return nil
}

// ConvertAudio 转换音频编码格式
// 仅在分段格式与交付格式不一致时使用（如 wav -> mp3）
func (c *Client) ConvertAudio(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
	}

	switch filepath.Ext(outputPath) {
	case ".mp3":
		args = append(args, "-c:a", "libmp3lame", "-b:a", "160k")
	case ".wav":
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg convert failed: %w", err)
	}

	return nil
}
