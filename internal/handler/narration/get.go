package narration

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httputil "github.com/weizhangcs/vss-cloud/internal/pkg/http"
)

// Get 查询解说脚本
// @Summary      查询解说脚本
// @Description  按 narration_id 查询已持久化的解说脚本
// @Tags         解说管理
// @Produce      json
// @Param        narration_id  path      string  true  "解说脚本ID"
// @Success      200           {object}  httputil.SuccessResponse  "成功响应"
// @Failure      404           {object}  ErrorResponse  "脚本不存在"
// @Router       /api/v1/narrations/{narration_id} [get]
func (h *Handler) Get(c *gin.Context) {
	narrationID := c.Param("narration_id")
	if narrationID == "" {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "narration_id is required"))
		return
	}

	script, err := h.narrationService.Get(c.Request.Context(), narrationID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse("查询成功", script))
}

// GetLatestByAsset 查询作品最新的解说脚本
// @Summary      查询作品最新的解说脚本
// @Description  按 asset_id 查询最近一次生成的解说脚本
// @Tags         解说管理
// @Produce      json
// @Param        asset_id  query     string  true  "作品ID"
// @Success      200       {object}  httputil.SuccessResponse  "成功响应"
// @Failure      404       {object}  ErrorResponse  "作品没有解说脚本"
// @Router       /api/v1/narrations [get]
func (h *Handler) GetLatestByAsset(c *gin.Context) {
	assetID := c.Query("asset_id")
	if assetID == "" {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "asset_id is required"))
		return
	}

	script, err := h.narrationService.GetLatestByAsset(c.Request.Context(), assetID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httputil.NewSuccessResponse("查询成功", script))
}
