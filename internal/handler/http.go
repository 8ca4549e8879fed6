package handler

import (
	"context"
	"log"
	"os"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// APIHandler 提供运维入口：健康检查、手动对账、手动重驱单个对象
type APIHandler struct {
	sweeper   *Sweeper
	processor *ConversionProcessor
	logger    *log.Logger
}

// NewAPIHandler 创建API处理器
func NewAPIHandler(sweeper *Sweeper, processor *ConversionProcessor) *APIHandler {
	return &APIHandler{
		sweeper:   sweeper,
		processor: processor,
		logger:    log.New(os.Stdout, "[API] ", log.LstdFlags),
	}
}

// HandleHealth 健康检查
func (h *APIHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// HandleSweep 手动触发一次对账，同步返回统计结果
func (h *APIHandler) HandleSweep(ctx context.Context, c *app.RequestContext) {
	h.logger.Println("收到手动对账请求")

	result, err := h.sweeper.RunSweep(ctx)
	if err != nil {
		h.logger.Printf("手动对账失败: %v", err)
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"error": "对账执行失败",
		})
		return
	}
	c.JSON(consts.StatusOK, result)
}

// HandleProcessObject 手动重驱单个转换对象
func (h *APIHandler) HandleProcessObject(ctx context.Context, c *app.RequestContext) {
	objectName := c.Param("name")
	if objectName == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error": "缺少对象名",
		})
		return
	}

	h.logger.Printf("收到手动重驱请求: %s", objectName)

	outcome, err := h.processor.ProcessConversion(ctx, objectName)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{
			"object": objectName,
			"error":  err.Error(),
		})
		return
	}

	status := "processed"
	if outcome == OutcomeDuplicate {
		status = "duplicate"
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"object": objectName,
		"status": status,
	})
}
