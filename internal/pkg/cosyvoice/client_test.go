package cosyvoice

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

// buildWAV 构造带标准 44 字节头的 PCM WAV
func buildWAV(sampleRate uint32, channels, bitsPerSample uint16, dataLen uint32) []byte {
	byteRate := sampleRate * uint32(channels) * uint32(bitsPerSample) / 8

	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataLen)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], uint16(uint32(channels)*uint32(bitsPerSample)/8))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataLen)
	return buf
}

func TestWAVDuration(t *testing.T) {
	Convey("WAVDuration 从 RIFF 头解析时长", t, func() {
		Convey("24kHz 单声道 16bit：1 秒音频 48000 字节", func() {
			wav := buildWAV(24000, 1, 16, 48000)
			So(WAVDuration(wav), ShouldAlmostEqual, 1.0, 0.001)
		})

		Convey("半秒音频", func() {
			wav := buildWAV(24000, 1, 16, 24000)
			So(WAVDuration(wav), ShouldAlmostEqual, 0.5, 0.001)
		})

		Convey("44.1kHz 双声道", func() {
			wav := buildWAV(44100, 2, 16, 176400)
			So(WAVDuration(wav), ShouldAlmostEqual, 1.0, 0.001)
		})

		Convey("时长截断到毫秒", func() {
			// 48001 字节 / 48000 字节每秒 = 1.0000208... -> 1.000
			wav := buildWAV(24000, 1, 16, 48001)
			So(WAVDuration(wav), ShouldEqual, 1.0)
		})

		Convey("非 WAV 数据返回 0", func() {
			So(WAVDuration([]byte("ID3 mp3 data")), ShouldEqual, 0)
			So(WAVDuration(nil), ShouldEqual, 0)
			So(WAVDuration([]byte("RIFF")), ShouldEqual, 0)
		})

		Convey("缺少 fmt 块时返回 0", func() {
			buf := make([]byte, 52)
			copy(buf[0:4], "RIFF")
			copy(buf[8:12], "WAVE")
			copy(buf[12:16], "data")
			binary.LittleEndian.PutUint32(buf[16:20], 4)
			So(WAVDuration(buf), ShouldEqual, 0)
		})
	})
}

func TestNewClient(t *testing.T) {
	Convey("NewClient 校验必填配置", t, func() {
		Convey("缺少服务地址或令牌时拒绝", func() {
			_, err := NewClient(config.CosyVoiceConfig{})
			So(err, ShouldNotBeNil)

			_, err = NewClient(config.CosyVoiceConfig{ServiceURL: "http://eas.example.com"})
			So(err, ShouldNotBeNil)
		})

		Convey("缺省模型名回退到默认值", func() {
			c, err := NewClient(config.CosyVoiceConfig{
				ServiceURL: "http://eas.example.com/",
				Token:      "token",
			})
			So(err, ShouldBeNil)
			So(c.model, ShouldEqual, DefaultModel)
			So(c.serviceURL, ShouldEqual, "http://eas.example.com")
		})
	})
}
