package cmd

import (
	"errors"
	"os"

	"tweet-verify/config"
	"tweet-verify/pkg/logger"
	"tweet-verify/pkg/server"
	"tweet-verify/pkg/service"
	"tweet-verify/pkg/signals"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动推文分析 HTTP 服务",
		Long:  "启动时加载一次模型，提供 /api/tweets/analyze 和 /api/tweets/history 接口，分析结果写入历史存储",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				zap.S().Debug("未找到 .env 文件, 使用默认环境变量")
			}

			cfg, err := config.LoadWithEnv(opts.configFilePath)
			if err != nil {
				zap.S().Errorf("读取本地配置文件错误:%s", err.Error())
				return err
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				err := errors.Join(errs...)
				zap.S().Errorf("本地配置文件验证错误:%s", err)
				return err
			}
			level := cfg.Log.Level
			if level == "" {
				level = "info"
			}
			if err := logger.Init(level, cfg.Log.Development); err != nil {
				zap.S().Warnf("%v", err)
			}
			defer logger.Sync()

			switch {
			case addr != "":
				cfg.Server.Addr = addr
			case os.Getenv("PORT") != "":
				cfg.Server.Addr = ":" + os.Getenv("PORT")
			}

			ctx := signals.SetupSignalHandler()

			analyzer := service.NewLazyAnalyzer(cfg.Model)
			if !analyzer.Ready() && !cfg.Server.MockFallback {
				zap.S().Warn("模型不可用且未开启启发式兜底, 分析请求将返回错误")
			}
			history := service.NewHistoryService(cfg)
			defer func() {
				if err := history.Close(); err != nil {
					zap.S().Warnf("关闭历史存储失败:%s", err.Error())
				}
			}()

			srv := server.NewServer(analyzer, history, cfg.Server)
			if err := srv.Run(ctx); err != nil {
				zap.S().Errorf("服务异常退出:%s", err.Error())
				return err
			}
			zap.S().Info("服务已关闭")
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "监听地址，覆盖 server.addr 和 PORT 环境变量")
	return cmd
}
