package cmd

import (
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions 是所有子命令共享的参数
type rootOptions struct {
	configFilePath string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "tweet-verify",
		Short: "推文虚假新闻检测工具",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableNoDescFlag:   true,
			DisableDescriptions: true,
			HiddenDefaultCmd:    true,
		},
		// 错误已经以 JSON 或日志形式输出，cobra 不再重复打印
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	// 参数错误同样以 JSON 输出，stdout 不会为空
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		writeJSON(cmd.OutOrStdout(), model.ErrorResult{Error: err.Error()})
		return err
	})
	rootCmd.PersistentFlags().StringVarP(&opts.configFilePath, "config", "c", "", "配置文件路径，默认读取 ./etc/config.yaml（不存在时使用默认配置）")

	rootCmd.AddCommand(NewAnalyzeCommand(opts))
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewHistoryCommand(opts))

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		zap.S().Info("使用 'analyze' 子命令分析推文")
		cmd.Help()
	}
	rootCmd.Version = util.GetVersion().Version
	return rootCmd
}
