package log

import (
	"path"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/pkg/env"
)

// FIELDS:
//   - reqid: request / ingest-call id
//   - module: package name

func Init() {
	logrus.SetReportCaller(true)
	logrus.SetFormatter(&logrus.JSONFormatter{
		CallerPrettyfier: func(f *runtime.Frame) (function string, file string) {
			function = path.Base(f.Function)
			file = path.Base(f.File) + ":" + strconv.Itoa(f.Line)
			return
		},
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	logrus.SetLevel(Level())

	// LOG_FILE switches output to a rotating file; stderr otherwise
	if file := env.String("LOG_FILE", ""); file != "" {
		logrus.SetOutput(NewLogWriter(file))
	}
}

func Level() logrus.Level {
	switch env.String("LOG_LEVEL", "info") {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	}
	return logrus.InfoLevel
}
