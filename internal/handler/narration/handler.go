package narration

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "github.com/weizhangcs/vss-cloud/internal/pkg/http"
	pkgnarration "github.com/weizhangcs/vss-cloud/internal/pkg/narration"
	"github.com/weizhangcs/vss-cloud/internal/service"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 解说生成处理器
type Handler struct {
	narrationService *service.NarrationService
}

// NewHandler 创建解说生成处理器
func NewHandler(narrationService *service.NarrationService) *Handler {
	return &Handler{narrationService: narrationService}
}

// writeError 按错误类型映射 HTTP 状态码和业务错误码
func writeError(c *gin.Context, err error) {
	var validationErr *pkgnarration.ValidationError
	var generationErr *pkgnarration.GenerationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(40001, "Invalid control params", err.Error()))
	case errors.Is(err, pkgnarration.ErrEmptyContext):
		c.JSON(http.StatusUnprocessableEntity, httputil.NewErrorResponse(42201, "No scenes survive context filtering", err.Error()))
	case errors.As(err, &generationErr):
		c.JSON(http.StatusBadGateway, httputil.NewErrorResponse(50201, "Generation service failed", err.Error()))
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, httputil.NewErrorResponse(40401, "Narration not found"))
	default:
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal error", err.Error()))
	}
}
