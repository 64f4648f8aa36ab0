package cmd

import (
	"time"

	"github.com/dukex/autoflow/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

// RuntimeFlags are the flags shared by every binary that runs workflows.
func RuntimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Persistence URL: postgres://... or file://<dir>",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka brokers, required for the kafka event bus",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "delay-queue",
			Usage:   "Delay queue type (ledger, redis)",
			Value:   "ledger",
			Sources: cli.EnvVars("DELAY_QUEUE_TYPE"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the redis delay queue",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "resume-schedule",
			Usage:   "Cron schedule polling for elapsed delays",
			Value:   scheduler.DefaultSchedule,
			Sources: cli.EnvVars("RESUME_SCHEDULE"),
		},
		&cli.DurationFlag{
			Name:    "short-delay-threshold",
			Usage:   "Delays shorter than this are waited inline; negative suspends every delay",
			Sources: cli.EnvVars("SHORT_DELAY_THRESHOLD"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to an autoflow.yaml with engine tuning",
			Sources: cli.EnvVars("AUTOFLOW_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// LogFlags select the log level and format.
func LogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json, pretty)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// OptionsFromCommand reads RuntimeFlags. Explicit flags win over the
// config file.
func OptionsFromCommand(command *cli.Command, serviceName string) RuntimeOptions {
	opts := RuntimeOptions{
		ServiceName:    serviceName,
		DatabaseURL:    command.String("database-url"),
		EventBus:       command.String("event-bus"),
		KafkaBrokers:   command.StringSlice("kafka-brokers"),
		DelayQueue:     command.String("delay-queue"),
		RedisURL:       command.String("redis-url"),
		ResumeSchedule: command.String("resume-schedule"),
		ConfigPath:     command.String("config"),
		Tracing:        command.Bool("tracing"),
	}

	if command.IsSet("short-delay-threshold") {
		threshold := command.Duration("short-delay-threshold")
		opts.ShortDelayThreshold = &threshold
	}

	return opts
}

const defaultHTTPTimeout = 30 * time.Second
