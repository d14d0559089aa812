package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

func newTestServer(handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)
	client, err := NewClient(config.TTSConfig{
		APIURL:      server.URL,
		AccessToken: "test-token",
		AppID:       "test-app",
		Cluster:     "volcano_tts",
		VoiceType:   "BV115_streaming",
		SampleRate:  24000,
	})
	if err != nil {
		panic(err)
	}
	return server, client
}

func TestSynthesize(t *testing.T) {
	Convey("Synthesize 调用 TTS API", t, func() {
		audioData := []byte("fake mp3 bytes")
		audioBase64 := base64.StdEncoding.EncodeToString(audioData)

		Convey("成功响应返回音频与时长", func() {
			var gotRequest map[string]interface{}
			var gotAuth string
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &gotRequest)

				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"code": 3000,
					"data": audioBase64,
					"addition": map[string]interface{}{
						"duration": "2500",
						"frontend": `{"words":[{"word":"你好","start_time":0.0,"end_time":1.0}]}`,
					},
				})
			})
			defer server.Close()

			result, err := client.Synthesize(context.Background(), &SynthesizeRequest{Text: "你好"})
			So(err, ShouldBeNil)
			So(gotAuth, ShouldEqual, "Bearer; test-token")
			So(result.AudioData, ShouldResemble, audioData)
			So(result.Duration, ShouldAlmostEqual, 2.5, 0.001)

			Convey("词级时间戳展开为字符级", func() {
				So(result.TimestampData.CharacterTimestamps, ShouldHaveLength, 2)
				So(result.TimestampData.CharacterTimestamps[0].Character, ShouldEqual, "你")
				So(result.TimestampData.CharacterTimestamps[0].EndTime, ShouldAlmostEqual, 0.5, 0.001)
				So(result.TimestampData.CharacterTimestamps[1].StartTime, ShouldAlmostEqual, 0.5, 0.001)
			})

			Convey("请求携带 app/audio/request 配置", func() {
				app := gotRequest["app"].(map[string]interface{})
				So(app["token"], ShouldEqual, "test-token")
				So(app["cluster"], ShouldEqual, "volcano_tts")

				audio := gotRequest["audio"].(map[string]interface{})
				So(audio["voice_type"], ShouldEqual, "BV115_streaming")
				So(audio["encoding"], ShouldEqual, "mp3")

				request := gotRequest["request"].(map[string]interface{})
				So(request["operation"], ShouldEqual, "query")
				So(request["text"], ShouldEqual, "你好")
				So(request["reqid"], ShouldNotBeEmpty)
			})
		})

		Convey("额外参数透传到 audio 配置", func() {
			var gotRequest map[string]interface{}
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &gotRequest)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 3000, "data": audioBase64})
			})
			defer server.Close()

			_, err := client.Synthesize(context.Background(), &SynthesizeRequest{
				Text:   "你好",
				Params: map[string]interface{}{"style": "悬疑"},
			})
			So(err, ShouldBeNil)
			audio := gotRequest["audio"].(map[string]interface{})
			So(audio["style"], ShouldEqual, "悬疑")
		})

		Convey("业务错误码转为错误", func() {
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"code":    3001,
					"message": "invalid voice type",
				})
			})
			defer server.Close()

			_, err := client.Synthesize(context.Background(), &SynthesizeRequest{Text: "你好"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid voice type")
		})

		Convey("HTTP 错误转为错误", func() {
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})
			defer server.Close()

			_, err := client.Synthesize(context.Background(), &SynthesizeRequest{Text: "你好"})
			So(err, ShouldNotBeNil)
		})

		Convey("空文本直接拒绝", func() {
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {})
			defer server.Close()

			_, err := client.Synthesize(context.Background(), &SynthesizeRequest{Text: "   "})
			So(err, ShouldNotBeNil)
		})

		Convey("畸形 JSON 先修复再解析", func() {
			server, client := newTestServer(func(w http.ResponseWriter, r *http.Request) {
				// addition.frontend 内部缺逗号的已知畸形格式，外层 JSON 仍合法
				_, _ = w.Write([]byte(`{"code": 3000 "data": "` + audioBase64 + `"}`))
			})
			defer server.Close()

			// 外层 JSON 本身损坏且 fixJSON 无法修复时报错而不崩溃
			_, err := client.Synthesize(context.Background(), &SynthesizeRequest{Text: "你好"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFixJSON(t *testing.T) {
	Convey("fixJSON 修复缺逗号的相邻对象", t, func() {
		broken := `{"words":[{"word":"你"}{"word":"好"}]}`
		var parsed map[string]interface{}
		So(json.Unmarshal([]byte(fixJSON(broken)), &parsed), ShouldBeNil)
		words := parsed["words"].([]interface{})
		So(words, ShouldHaveLength, 2)
	})
}

func TestNewClientDefaults(t *testing.T) {
	Convey("NewClient 的默认值", t, func() {
		Convey("缺少 access token 时拒绝", func() {
			_, err := NewClient(config.TTSConfig{})
			So(err, ShouldNotBeNil)
		})

		Convey("缺省字段回退到默认值", func() {
			c, err := NewClient(config.TTSConfig{AccessToken: "token"})
			So(err, ShouldBeNil)
			So(c.apiURL, ShouldEqual, "https://openspeech.bytedance.com/api/v1/tts")
			So(c.cluster, ShouldEqual, "volcano_tts")
			So(c.sampleRate, ShouldEqual, 44100)
		})
	})
}
