package logger

import (
	"go.uber.org/zap"
)

// New 根据运行模式创建 zap logger
func New(mode string) (*zap.Logger, error) {
	if mode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Nop 测试和未配置场景使用
func Nop() *zap.Logger {
	return zap.NewNop()
}
