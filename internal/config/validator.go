package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shaiso/Mosaic/internal/scheduler"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

// ValidationError — ошибка одного поля конфигурации.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors — все ошибки конфигурации разом.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d config errors:", len(e)))
	for _, err := range e {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// BrokerKinds возвращает допустимые значения broker.kind.
func BrokerKinds() []string {
	return []string{BrokerRedis, BrokerAMQP, BrokerPostgres, BrokerMemory}
}

// Validate проверяет конфигурацию. Пустой результат — всё в порядке.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if !slices.Contains(BrokerKinds(), c.Broker.Kind) {
		add("broker.kind", c.Broker.Kind, "must be one of "+strings.Join(BrokerKinds(), ", "))
	}
	if c.Broker.Visibility <= 0 {
		add("broker.visibility", c.Broker.Visibility, "must be positive")
	}
	if c.Broker.PollInterval <= 0 {
		add("broker.poll_interval", c.Broker.PollInterval, "must be positive")
	}

	if c.Streams.Work == "" {
		add("streams.work", c.Streams.Work, "must not be empty")
	}
	if c.Streams.Results == "" {
		add("streams.results", c.Streams.Results, "must not be empty")
	}
	if c.Streams.Work != "" && c.Streams.Work == c.Streams.Results {
		add("streams.results", c.Streams.Results, "must differ from streams.work")
	}
	if c.Streams.Group == "" {
		add("streams.group", c.Streams.Group, "must not be empty")
	}

	if c.Canvas.Width < 2 {
		add("canvas.width", c.Canvas.Width, "must be at least 2")
	}
	if c.Canvas.Height < 2 {
		add("canvas.height", c.Canvas.Height, "must be at least 2")
	}

	if c.Worker.Concurrency < 1 {
		add("worker.concurrency", c.Worker.Concurrency, "must be at least 1")
	}
	if c.Worker.PollTimeout <= 0 {
		add("worker.poll_timeout", c.Worker.PollTimeout, "must be positive")
	}

	if c.Collector.BatchSize < 1 {
		add("collector.batch_size", c.Collector.BatchSize, "must be at least 1")
	}
	if c.Collector.Block <= 0 {
		add("collector.block", c.Collector.Block, "must be positive")
	}
	if c.Collector.ExportSchedule != "" {
		if err := scheduler.ValidateSpec(c.Collector.ExportSchedule); err != nil {
			add("collector.export_schedule", c.Collector.ExportSchedule, err.Error())
		}
	}
	if c.Collector.ExportSchedule != "" && c.Collector.OutputPath == "" {
		add("collector.output_path", c.Collector.OutputPath, "required when export_schedule is set")
	}

	if c.Display.FPS < 1 || c.Display.FPS > 120 {
		add("display.fps", c.Display.FPS, "must be between 1 and 120")
	}

	if _, ok := telemetry.ParseLevel(c.Logging.Level); !ok {
		add("logging.level", c.Logging.Level, "must be one of DEBUG, INFO, WARN, ERROR")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		add("logging.format", c.Logging.Format, "must be json or text")
	}

	return errs
}
