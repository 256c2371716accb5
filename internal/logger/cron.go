package logger

import "fmt"

// CronLogger adapts Logger to the robfig/cron Logger interface so the cron
// run loop and its job wrappers log through the same handler.
type CronLogger struct {
	log *Logger
}

// NewCronLogger returns a cron.Logger backed by log.
func NewCronLogger(log *Logger) CronLogger {
	return CronLogger{log: log}
}

// Info is used by cron for schedule/wake/run chatter; it is demoted to debug.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, pairsToFields(keysAndValues)...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, err, pairsToFields(keysAndValues)...)
}

func pairsToFields(kv []interface{}) []Field {
	fields := make([]Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}
