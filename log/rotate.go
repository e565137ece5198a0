package log

import (
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// SetLogFile set log file path and rotation/retention in hours.
// The current log is always reachable through a symlink at logFile.
func SetLogFile(logFile string, rotation, maxAge uint64) {
	if logFile == "" {
		return
	}
	absPath, err := filepath.Abs(logFile)
	if err != nil {
		logrus.Fatalf("wrong log file path '%v': %v", logFile, err)
	}
	writer, err := rotatelogs.New(
		absPath+".%Y%m%d%H",
		rotatelogs.WithLinkName(absPath),
		rotatelogs.WithRotationTime(time.Duration(rotation)*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*time.Hour),
	)
	if err != nil {
		logrus.Fatalf("create rotate logs for '%v' failed: %v", absPath, err)
	}
	logrus.SetOutput(writer)
	if !JSONFormat {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			ForceQuote:      true,
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			DisableSorting:  true,
		})
	}
}
