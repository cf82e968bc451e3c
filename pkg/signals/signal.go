// Package signals 将 SIGINT/SIGTERM 转换为 context 取消
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var onlyOneSignalHandler = make(chan struct{})

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler 收到第一个信号时取消 context，第二个信号直接退出进程。
// 只能调用一次。
func SetupSignalHandler() context.Context {
	close(onlyOneSignalHandler) // 重复调用时 panic

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, shutdownSignals...)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
