// Package observers provides observers for monitoring state machine events
package observers

import (
	"context"
	"log/slog"

	"github.com/anggasct/crossing/pkg/fsm"
)

// LoggingObserver logs state machine events through slog. Lifecycle and
// transitions go out at Info, guards and actions at Debug, rejections at
// Warn and errors at Error.
type LoggingObserver struct {
	fsm.BaseObserver
	logger *slog.Logger
}

// NewLoggingObserver creates a logging observer. Every record carries
// machine=name.
func NewLoggingObserver(logger *slog.Logger, name string) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	if name != "" {
		logger = logger.With("machine", name)
	}
	return &LoggingObserver{logger: logger}
}

// Logger returns the observer's logger.
func (o *LoggingObserver) Logger() *slog.Logger {
	return o.logger
}

func (o *LoggingObserver) OnStateEnter(state string, _ fsm.Context) {
	o.logger.Info("state entered", "state", state)
}

func (o *LoggingObserver) OnStateExit(state string, _ fsm.Context) {
	o.logger.Info("state exited", "state", state)
}

func (o *LoggingObserver) OnTransition(from, to string, event fsm.Event, _ fsm.Context) {
	o.logger.Info("transition", "from", from, "to", to, "event", eventName(event))
}

func (o *LoggingObserver) OnGuardEvaluation(from, to string, event fsm.Event, result bool, _ fsm.Context) {
	o.logger.Debug("guard evaluated", "from", from, "to", to, "event", eventName(event), "result", result)
}

func (o *LoggingObserver) OnActionExecution(actionType, state string, event fsm.Event, _ fsm.Context) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	o.logger.Debug("action", "type", actionType, "state", state, "event", eventName(event))
}

func (o *LoggingObserver) OnEventRejected(event fsm.Event, reason string, ctx fsm.Context) {
	o.logger.Warn("event rejected", "event", eventName(event), "state", currentState(ctx), "reason", reason)
}

func (o *LoggingObserver) OnError(err error, ctx fsm.Context) {
	o.logger.Error("state machine error", "state", currentState(ctx), "code", fsm.GetErrorCode(err).String(), "error", err)
}

func (o *LoggingObserver) OnMachineStarted(ctx fsm.Context) {
	o.logger.Info("machine started", "state", currentState(ctx))
}

func (o *LoggingObserver) OnMachineStopped(ctx fsm.Context) {
	o.logger.Info("machine stopped", "state", currentState(ctx))
}

func eventName(event fsm.Event) string {
	if event == nil {
		return ""
	}
	return event.GetName()
}

func currentState(ctx fsm.Context) string {
	if ctx == nil {
		return ""
	}
	return ctx.GetCurrentState()
}
