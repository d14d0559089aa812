package dubbing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	pkgdubbing "github.com/weizhangcs/vss-cloud/internal/pkg/dubbing"
	httputil "github.com/weizhangcs/vss-cloud/internal/pkg/http"
	"github.com/weizhangcs/vss-cloud/internal/service"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Handler 配音渲染处理器
type Handler struct {
	dubbingService *service.DubbingService
}

// NewHandler 创建配音渲染处理器
func NewHandler(dubbingService *service.DubbingService) *Handler {
	return &Handler{dubbingService: dubbingService}
}

// writeError 按错误类型映射 HTTP 状态码和业务错误码
func writeError(c *gin.Context, err error) {
	var assemblyErr *pkgdubbing.AssemblyError

	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, httputil.NewErrorResponse(40402, "Referenced narration not found"))
	case errors.As(err, &assemblyErr):
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50002, "Audio assembly failed", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, httputil.NewErrorResponse(50001, "Internal error", err.Error()))
	}
}
