package cmd

import (
	"errors"

	"tweet-verify/config"
	"tweet-verify/pkg/logger"
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type historyOutput struct {
	Tweets []model.AnalysisRecord `json:"tweets"`
}

func NewHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看最近的分析记录",
		Long:  "从配置的历史存储（DuckDB / MySQL）中按时间倒序读取分析记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFilePath)
			if err != nil {
				zap.S().Errorf("读取本地配置文件错误:%s", err.Error())
				return err
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				err := errors.Join(errs...)
				zap.S().Errorf("本地配置文件验证错误:%s", err)
				return err
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
				zap.S().Warnf("%v", err)
			}

			history := service.NewHistoryService(cfg)
			defer func() {
				if err := history.Close(); err != nil {
					zap.S().Warnf("关闭历史存储失败:%s", err.Error())
				}
			}()
			records, err := history.Recent(cmd.Context(), limit)
			if err != nil {
				zap.S().Errorf("查询分析记录失败:%s", err.Error())
				return err
			}
			if records == nil {
				records = []model.AnalysisRecord{}
			}
			zap.S().Infof("共查询到 %d 条分析记录", len(records))
			return writeJSON(cmd.OutOrStdout(), historyOutput{Tweets: records})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "返回条数，默认使用 history.limit")
	return cmd
}
