package ark

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"

	"github.com/weizhangcs/vss-cloud/internal/config"
)

func TestArkConfigFromEnv(t *testing.T) {
	Convey("从环境变量加载 Ark 配置", t, func() {
		Convey("读取 ARK_* 变量", func() {
			t.Setenv("ARK_API_KEY", "env-key")
			t.Setenv("ARK_MODEL", "doubao-pro")
			t.Setenv("ARK_BASE_URL", "https://ark.example.com/api/v3")

			cfg := ArkConfigFromEnv()
			So(cfg.APIKey, ShouldEqual, "env-key")
			So(cfg.Model, ShouldEqual, "doubao-pro")
			So(cfg.BaseURL, ShouldEqual, "https://ark.example.com/api/v3")
		})

		Convey("模型和 URL 缺省时使用默认值", func() {
			t.Setenv("ARK_API_KEY", "env-key")
			t.Setenv("ARK_MODEL", "")
			t.Setenv("ARK_BASE_URL", "")

			cfg := ArkConfigFromEnv()
			So(cfg.Model, ShouldEqual, "doubao-seed-1-6-flash-250615")
			So(cfg.BaseURL, ShouldEqual, "https://ark.cn-beijing.volces.com/api/v3")
		})
	})
}

func TestNewClient(t *testing.T) {
	Convey("创建 Ark 客户端", t, func() {
		Convey("缺少 API Key 时报错", func() {
			_, err := NewClient(&config.AIConfig{})
			So(err, ShouldNotBeNil)
		})

		Convey("模型缺省时使用默认模型", func() {
			client, err := NewClient(&config.AIConfig{APIKey: "test-key"})
			So(err, ShouldBeNil)
			So(client.model, ShouldEqual, "doubao-seed-1-6-flash-250615")
		})
	})
}

func TestConvertMessages(t *testing.T) {
	Convey("请求消息转换为 SDK 格式", t, func() {
		messages := convertMessages([]Message{
			{Role: "system", Content: "你是解说员"},
			{Role: "user", Content: "生成解说"},
		})

		So(len(messages), ShouldEqual, 2)
		So(messages[0].Role, ShouldEqual, "system")
		So(*messages[0].Content.StringValue, ShouldEqual, "你是解说员")
		So(messages[1].Role, ShouldEqual, "user")
		So(*messages[1].Content.StringValue, ShouldEqual, "生成解说")
	})
}

func TestConvertChatCompletionResponse(t *testing.T) {
	Convey("SDK 响应转换为内部格式", t, func() {
		content := "旁白文本"
		output := &model.ChatCompletionResponse{
			ID: "req-001",
			Choices: []*model.ChatCompletionChoice{
				{
					Index: 0,
					Message: model.ChatCompletionMessage{
						Role:    "assistant",
						Content: &model.ChatCompletionMessageContent{StringValue: &content},
					},
					FinishReason: "stop",
				},
			},
			Usage: model.Usage{
				PromptTokens:     100,
				CompletionTokens: 50,
				TotalTokens:      150,
			},
		}

		resp := convertChatCompletionResponse(output)
		So(resp.ID, ShouldEqual, "req-001")
		So(len(resp.Choices), ShouldEqual, 1)
		So(resp.Choices[0].Message.Content, ShouldEqual, "旁白文本")
		So(resp.Choices[0].FinishReason, ShouldEqual, "stop")
		So(resp.Usage.TotalTokens, ShouldEqual, 150)
	})
}
