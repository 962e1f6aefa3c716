package logger_test

import (
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rsocket/rx-engine/logger"
	"github.com/stretchr/testify/assert"
)

var (
	fakeFormat = "fake format: %v"
	fakeArgs   = []interface{}{"fake args"}
)

func TestSetLogger(t *testing.T) {
	logger.SetLevel(logger.LevelDebug)
	defer logger.SetLevel(logger.LevelInfo)

	call := func() {
		logger.Debugf(fakeFormat, fakeArgs...)
		logger.Infof(fakeFormat, fakeArgs...)
		logger.Warnf(fakeFormat, fakeArgs...)
		logger.Errorf(fakeFormat, fakeArgs...)
	}

	call()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	l := NewMockLogger(ctrl)
	l.EXPECT().Debugf(gomock.Any(), gomock.Any()).Times(1)
	l.EXPECT().Infof(gomock.Any(), gomock.Any()).Times(2)
	l.EXPECT().Warnf(gomock.Any(), gomock.Any()).Times(2)
	l.EXPECT().Errorf(gomock.Any(), gomock.Any()).Times(2)

	logger.SetLogger(l)
	assert.Equal(t, logger.LevelDebug, logger.GetLevel(), "wrong logger level")
	assert.True(t, logger.IsDebugEnabled(), "should be enabled")

	call()

	logger.SetLevel(logger.LevelInfo)
	assert.False(t, logger.IsDebugEnabled())
	call()

	logger.SetLevel(logger.LevelDebug)
	logger.SetLogger(nil)
	call()
}

func TestSetFunc(t *testing.T) {
	var lines []string
	logger.SetFunc(logger.LevelWarn, func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	logger.SetFunc(logger.LevelWarn, nil)
	logger.Warnf("dropped %d values", 3)
	assert.Equal(t, []string{"[WARN] dropped 3 values"}, lines)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", logger.LevelDebug.String())
	assert.Equal(t, "ERROR", logger.LevelError.String())
	assert.Equal(t, "UNKNOWN", logger.Level(42).String())
}
