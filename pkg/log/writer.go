package log

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogWriter(filepath string) io.Writer {
	return &lumberjack.Logger{
		Filename:  filepath,
		MaxSize:   20, // MB per file
		Compress:  true,
		LocalTime: true,
	}
}
