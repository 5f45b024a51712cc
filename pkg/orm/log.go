package orm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"xorm.io/xorm/log"
)

type contextKey string

const reqIDKey = contextKey("reqid")

func WithReqID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, reqIDKey, reqID)
}

func GetReqID(ctx context.Context) string {
	if v, ok := ctx.Value(reqIDKey).(string); ok {
		return v
	}
	return ""
}

// XormLogrus adapts xorm logging onto logrus.
type XormLogrus struct {
	logger *logrus.Entry
}

var _ log.ContextLogger = &XormLogrus{}

func NewXormLogrus(logger *logrus.Entry) *XormLogrus {
	return &XormLogrus{logger: logger}
}

func (x *XormLogrus) BeforeSQL(context log.LogContext) {}

// only invoked when IsShowSQL is true
func (x *XormLogrus) AfterSQL(context log.LogContext) {
	reqid := GetReqID(context.Ctx)

	const maxContentLength = 100
	truncatedArgs := make([]any, len(context.Args))
	for i, arg := range context.Args {
		argStr := fmt.Sprintf("%v", arg)
		if len(argStr) > maxContentLength {
			truncatedArgs[i] = argStr[:maxContentLength] + "..."
		} else {
			truncatedArgs[i] = argStr
		}
	}

	x.logger.WithField("reqid", reqid).Debugf("[SQL] %v %v - %v", context.SQL, truncatedArgs, context.ExecuteTime)
}

func (x *XormLogrus) Debug(v ...any)                 { x.logger.Debug(v...) }
func (x *XormLogrus) Debugf(format string, v ...any) { x.logger.Debugf(format, v...) }
func (x *XormLogrus) Error(v ...any)                 { x.logger.Error(v...) }
func (x *XormLogrus) Errorf(format string, v ...any) { x.logger.Errorf(format, v...) }
func (x *XormLogrus) Info(v ...any)                  { x.logger.Info(v...) }
func (x *XormLogrus) Infof(format string, v ...any)  { x.logger.Infof(format, v...) }
func (x *XormLogrus) Warn(v ...any)                  { x.logger.Warn(v...) }
func (x *XormLogrus) Warnf(format string, v ...any)  { x.logger.Warnf(format, v...) }

func (x *XormLogrus) Level() log.LogLevel {
	switch x.logger.Logger.GetLevel() {
	case logrus.DebugLevel:
		return log.LOG_DEBUG
	case logrus.InfoLevel:
		return log.LOG_INFO
	case logrus.WarnLevel:
		return log.LOG_WARNING
	case logrus.ErrorLevel:
		return log.LOG_ERR
	default:
		return log.LOG_OFF
	}
}

func (x *XormLogrus) SetLevel(l log.LogLevel) {
	switch l {
	case log.LOG_DEBUG:
		x.logger.Logger.SetLevel(logrus.DebugLevel)
	case log.LOG_INFO:
		x.logger.Logger.SetLevel(logrus.InfoLevel)
	case log.LOG_WARNING:
		x.logger.Logger.SetLevel(logrus.WarnLevel)
	case log.LOG_ERR:
		x.logger.Logger.SetLevel(logrus.ErrorLevel)
	case log.LOG_OFF:
		x.logger.Logger.SetLevel(logrus.PanicLevel)
	}
}

func (x *XormLogrus) ShowSQL(show ...bool) {}

func (x *XormLogrus) IsShowSQL() bool { return true }
