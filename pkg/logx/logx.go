package logx

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/pkg/orm"
)

// attach reqid
func LoggerWith(ctx context.Context, logger *logrus.Entry) *logrus.Entry {
	return logger.WithField("reqid", orm.GetReqID(ctx))
}

func Logger(ctx context.Context) *logrus.Entry {
	return logrus.WithField("reqid", orm.GetReqID(ctx))
}
