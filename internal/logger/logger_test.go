package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.Require().NoError(err)
	suite.NotNil(logger.Logger)
	suite.True(logger.Core().Enabled(zapcore.InfoLevel))
	suite.False(logger.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevel() {
	logger, err := NewLoggerWithLevel(zapcore.DebugLevel)
	suite.Require().NoError(err)
	suite.True(logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLoggerWithLevel(zapcore.WarnLevel)
	suite.Require().NoError(err)
	suite.False(logger.Core().Enabled(zapcore.InfoLevel))
}

func (suite *LoggerTestSuite) TestSyncWithoutInnerLogger() {
	suite.NoError((&Logger{}).Sync())
}

func (suite *LoggerTestSuite) TestNopLogger() {
	logger := NewNopLogger()

	logger.Info("discarded", zap.String("node", "root"))
	suite.False(logger.Core().Enabled(zapcore.ErrorLevel))
}

func (suite *LoggerTestSuite) TestOrNop() {
	suite.NotNil(OrNop(nil).Logger)
	suite.NotNil(OrNop(&Logger{}).Logger)

	logger := NewNopLogger()
	suite.Same(logger, OrNop(logger))
}

func (suite *LoggerTestSuite) TestWith() {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.With(zap.String("run_id", "r1")).Info("Rebalance finished", zap.String("action", "risk_on"))

	entries := logs.All()
	suite.Require().Len(entries, 1)
	suite.Equal("Rebalance finished", entries[0].Message)
	suite.Equal(map[string]any{"run_id": "r1", "action": "risk_on"}, entries[0].ContextMap())

	var nilLogger *Logger
	suite.NotPanics(func() { nilLogger.With(zap.Int("n", 1)).Info("discarded") })
}
