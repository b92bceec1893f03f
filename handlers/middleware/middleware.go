// Package middleware holds the handler wrappers shared by every route.
package middleware

import (
	tele "gopkg.in/telebot.v3"
	"go.uber.org/zap"
)

// Recover keeps a panicking handler from killing the poller loop.
func Recover(log *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.WithOptions(zap.AddCallerSkip(3)).Error("panic in handler", zap.Any("panicObj", r))
				}
			}()
			return next(c)
		}
	}
}

// AutoRespondCallback acknowledges every callback query so buttons never
// show a stuck spinner.
func AutoRespondCallback(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		err := next(c)
		if c.Callback() != nil {
			_ = c.Respond(&tele.CallbackResponse{})
		}
		return err
	}
}
