package dubbing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httputil "github.com/weizhangcs/vss-cloud/internal/pkg/http"
	"github.com/weizhangcs/vss-cloud/internal/service"
)

// Generate 生成配音音轨
// @Summary      生成配音音轨
// @Description  按 input_narration_ref 加载解说脚本，逐条合成语音并装配整轨，返回配音脚本和整轨存储 key
// @Tags         配音管理
// @Accept       json
// @Produce      json
// @Param        request  body      service.GenerateDubbingRequest  true  "配音请求"
// @Success      200      {object}  httputil.SuccessResponse  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      404      {object}  ErrorResponse  "解说脚本不存在"
// @Failure      500      {object}  ErrorResponse  "音轨装配失败"
// @Router       /api/v1/dubbings [post]
func (h *Handler) Generate(c *gin.Context) {
	var req service.GenerateDubbingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	resp, err := h.dubbingService.Generate(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse("配音生成成功", resp))
}

// Get 查询配音音轨
// @Summary      查询配音音轨
// @Description  按 dubbing_id 查询已持久化的配音音轨
// @Tags         配音管理
// @Produce      json
// @Param        dubbing_id  path      string  true  "配音音轨ID"
// @Success      200         {object}  httputil.SuccessResponse  "成功响应"
// @Failure      404         {object}  ErrorResponse  "音轨不存在"
// @Router       /api/v1/dubbings/{dubbing_id} [get]
func (h *Handler) Get(c *gin.Context) {
	dubbingID := c.Param("dubbing_id")
	if dubbingID == "" {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "dubbing_id is required"))
		return
	}

	track, err := h.dubbingService.Get(c.Request.Context(), dubbingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse("查询成功", track))
}
