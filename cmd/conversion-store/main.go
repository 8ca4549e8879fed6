package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conversion-store-go/internal/api/router"
	"conversion-store-go/internal/config"
	"conversion-store-go/internal/handler"
	"conversion-store-go/internal/kintone"
	appCoreLogger "conversion-store-go/internal/logger"
	"conversion-store-go/internal/notify"
	"conversion-store-go/internal/storage"
	"conversion-store-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(&cfg.Logger)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	kintoneClient, err := kintone.NewClient(&cfg.Kintone)
	if err != nil {
		glog.Fatalf("初始化kintone客户端失败: %v", err)
	}
	glog.Info("kintone客户端初始化成功")

	notifier := notify.NewWebhookNotifier(&cfg.Notify)

	var recordCreator kintone.RecordCreator = kintoneClient
	if cfg.Kintone.RequestsPerMinute > 0 {
		recordCreator = ratelimit.NewRateLimitedRecordCreator(kintoneClient, cfg.Kintone.RequestsPerMinute)
		glog.Infof("kintone记录创建限流已启用: %d次/分钟", cfg.Kintone.RequestsPerMinute)
	}

	processor := handler.NewConversionProcessor(storageManager.MinIO, recordCreator, notifier)
	sweeper := handler.NewSweeper(storageManager.MinIO, processor, &cfg.Sweep)
	apiHandler := handler.NewAPIHandler(sweeper, processor)

	// 启动finalize事件消费者（配置了RabbitMQ时）
	if storageManager.RabbitMQ != nil {
		consumer := handler.NewFinalizeConsumer(storageManager.RabbitMQ, processor, &cfg.RabbitMQ, cfg.MinIO.SourceBucket)
		go func() {
			if err := consumer.Start(ctx); err != nil && err != context.Canceled {
				glog.Errorf("finalize事件消费者退出: %v", err)
			}
		}()
		glog.Info("finalize事件消费者已启动")
	} else {
		glog.Warn("未配置RabbitMQ，仅依赖定时对账和手动触发")
	}

	// 定时对账
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(cfg.Sweep.Schedule, func() {
		if _, err := sweeper.RunSweep(context.Background()); err != nil {
			glog.Errorf("定时对账失败: %v", err)
		}
	}); err != nil {
		glog.Fatalf("注册对账定时任务失败 (schedule=%s): %v", cfg.Sweep.Schedule, err)
	}
	cronRunner.Start()
	glog.Infof("对账定时任务已注册: %s", cfg.Sweep.Schedule)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, apiHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	// 先停定时任务，等待进行中的对账跑完
	cronCtx := cronRunner.Stop()
	<-cronCtx.Done()
	glog.Info("对账定时任务已停止")

	cancel() // 通知消费循环退出

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化全局zerolog并接管Hertz的日志输出
func initLogger(cfg *config.LoggerConfig) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		TimeFormat:   cfg.TimeFormat,
		ReportCaller: cfg.ReportCaller,
	})

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	if cfg.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	}
}
