package queue

import "github.com/rs/zerolog"

type (
	// Logger is the logging surface the queue writes connection and delivery problems to.
	Logger interface {
		Info() LogEvent
		Warn() LogEvent
		Error() LogEvent
		Debug() LogEvent
	}

	// LogEvent is one structured line under construction.
	LogEvent interface {
		Msg(string)
		Err(error) LogEvent
		Str(string, string) LogEvent
		Int(string, int) LogEvent
	}

	// ZerologAdapter exposes a zerolog.Logger as a queue Logger.
	ZerologAdapter struct {
		logger zerolog.Logger
	}

	// zerologEvent tolerates disabled levels, zerolog hands out a nil event that ignores every call.
	zerologEvent struct {
		event *zerolog.Event
	}
)

func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

func (a *ZerologAdapter) Info() LogEvent  { return zerologEvent{event: a.logger.Info()} }
func (a *ZerologAdapter) Warn() LogEvent  { return zerologEvent{event: a.logger.Warn()} }
func (a *ZerologAdapter) Error() LogEvent { return zerologEvent{event: a.logger.Error()} }
func (a *ZerologAdapter) Debug() LogEvent { return zerologEvent{event: a.logger.Debug()} }

func (e zerologEvent) Msg(msg string) {
	e.event.Msg(msg)
}

func (e zerologEvent) Err(err error) LogEvent {
	return zerologEvent{event: e.event.Err(err)}
}

func (e zerologEvent) Str(key, value string) LogEvent {
	return zerologEvent{event: e.event.Str(key, value)}
}

func (e zerologEvent) Int(key string, value int) LogEvent {
	return zerologEvent{event: e.event.Int(key, value)}
}
