package application

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
)

// asAppError keeps *apperr.Error values and wraps anything else as Internal.
func asAppError(msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(msg, err)
}

// logFailure logs infrastructure failures at error level and rejections at debug level.
func logFailure(logger *logrus.Logger, fields logrus.Fields, msg string, err error) {
	if logger == nil {
		return
	}
	entry := logger.WithFields(fields).WithError(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		entry.Error(msg)
		return
	}
	entry.WithField("kind", apperr.KindOf(err).String()).Debug(msg)
}
