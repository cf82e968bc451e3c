package cmd

import (
	"context"
	"errors"
	"io"
	"strings"

	"tweet-verify/config"
	"tweet-verify/pkg/bert"
	"tweet-verify/pkg/logger"
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/service"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	msgNoText        = "No tweet text provided"
	msgModelNotFound = "Fake news model not found. Please download and place it in the correct location."
	msgAnalysisError = "Error analyzing tweet: "
)

var (
	errUsage    = errors.New("no tweet text provided")
	errAnalysis = errors.New("analysis failed")
)

func NewAnalyzeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "分析一条推文是否为虚假新闻",
		Long: "加载预训练的 BERT 分类模型，对输入文本做一次前向计算，输出 {\"isFakeNews\", \"confidenceScore\"} 或 {\"error\"}。\n" +
			"文本原样读取，以 - 开头的文本同样被分析；只识别文本之前的 -c/--config 和 --。",
		Args: cobra.ArbitraryArgs,
		// 推文可能以 - 开头，不交给 cobra 解析
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, rest := splitAnalyzeArgs(args)
			if configPath == "" {
				configPath = opts.configFilePath
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), &rootOptions{configFilePath: configPath}, rest)
		},
	}
	return cmd
}

// splitAnalyzeArgs 取出文本之前的 -c/--config，其余参数原样返回
func splitAnalyzeArgs(args []string) (configPath string, rest []string) {
	for len(args) > 0 {
		switch arg := args[0]; {
		case arg == "--":
			return configPath, args[1:]
		case (arg == "-c" || arg == "--config") && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
			args = args[1:]
		default:
			return configPath, args
		}
	}
	return configPath, args
}

// runAnalyze 只向 out 写一个 JSON 对象；失败时返回非 nil 错误，进程以 1 退出
func runAnalyze(ctx context.Context, out io.Writer, opts *rootOptions, args []string) error {
	if len(args) < 1 {
		writeJSON(out, model.ErrorResult{Error: msgNoText})
		return errUsage
	}
	text := args[0]
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.configFilePath)
	if err != nil {
		zap.S().Errorf("读取本地配置文件错误:%s", err.Error())
		writeJSON(out, model.ErrorResult{Error: err.Error()})
		return errAnalysis
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		zap.S().Errorf("本地配置文件验证错误:%s", err)
		writeJSON(out, model.ErrorResult{Error: err.Error()})
		return errAnalysis
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		zap.S().Warnf("%v", err)
	}

	verdict, err := service.AnalyzeOnce(ctx, cfg.Model, text)
	if err != nil {
		if pkgerrors.Is(err, bert.ErrModelNotFound) {
			zap.S().Errorf("模型文件不存在: %s", cfg.Model.Path)
			writeJSON(out, model.ErrorResult{Error: msgModelNotFound})
			return errAnalysis
		}
		zap.S().Errorf("分析推文失败: %v", err)
		writeJSON(out, model.ErrorResult{Error: msgAnalysisError + err.Error()})
		return errAnalysis
	}

	if cfg.History.Enabled {
		history := service.NewHistoryService(cfg)
		if err := history.Save(ctx, model.NewAnalysisRecord(text, verdict)); err != nil {
			zap.S().Warnf("保存分析记录失败: %v", err)
		}
		if err := history.Close(); err != nil {
			zap.S().Warnf("关闭历史存储失败: %v", err)
		}
	}
	return writeJSON(out, verdict)
}
