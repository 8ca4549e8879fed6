package router

import (
	"context"

	"conversion-store-go/internal/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由。
// 手动对账和手动重驱是运维入口，配置了API Key时要求 X-API-Key 头。
func RegisterRoutes(h *server.Hertz, apiHandler *handler.APIHandler, apiKey string) {
	api := h.Group("/api/v1")

	// 健康检查不鉴权
	api.GET("/health", apiHandler.HandleHealth)

	auth := apiKeyMiddleware(apiKey)
	api.POST("/sweep", auth, apiHandler.HandleSweep)
	api.POST("/conversions/:name/process", auth, apiHandler.HandleProcessObject)
}

// apiKeyMiddleware 校验 X-API-Key 请求头。未配置Key时放行所有请求。
func apiKeyMiddleware(apiKey string) app.HandlerFunc {
	if apiKey == "" {
		return func(c context.Context, ctx *app.RequestContext) {
			ctx.Next(c)
		}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
			return key == apiKey, nil
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "未授权访问"})
		}),
	)
}
