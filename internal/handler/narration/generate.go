package narration

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httputil "github.com/weizhangcs/vss-cloud/internal/pkg/http"
	"github.com/weizhangcs/vss-cloud/internal/service"
)

// Generate 生成解说脚本
// @Summary      生成解说脚本
// @Description  基于场景蓝图和创作控制参数生成受时长预算约束的解说脚本，结果持久化并返回 narration_id
// @Tags         解说管理
// @Accept       json
// @Produce      json
// @Param        request  body      service.GenerateNarrationRequest  true  "生成请求"
// @Success      200      {object}  httputil.SuccessResponse  "成功响应"
// @Failure      400      {object}  ErrorResponse  "控制参数错误"
// @Failure      422      {object}  ErrorResponse  "过滤后无可用场景"
// @Failure      502      {object}  ErrorResponse  "生成服务调用失败"
// @Router       /api/v1/narrations [post]
func (h *Handler) Generate(c *gin.Context) {
	var req service.GenerateNarrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid request body", err.Error()))
		return
	}

	resp, err := h.narrationService.Generate(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse("解说生成成功", resp))
}
