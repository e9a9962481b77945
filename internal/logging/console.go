package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// ConsolePublisher writes events as single log lines. It is the default sink
// for the cmd binaries.
type ConsolePublisher struct {
	logger *log.Logger
}

func NewConsolePublisher(w io.Writer) *ConsolePublisher {
	return &ConsolePublisher{logger: log.New(w, "", log.LstdFlags)}
}

func (p *ConsolePublisher) Publish(_ context.Context, event Event) {
	if p == nil || p.logger == nil {
		return
	}
	p.logger.Printf("[%s] tick=%d actor=%s severity=%s%s%s",
		event.Type, event.Tick, formatEntity(event.Actor), formatSeverity(event.Severity),
		formatTargets(event.Targets), formatPayload(event.Payload))
}

// JSONPublisher writes events as JSON lines, one per event.
type JSONPublisher struct {
	logger *log.Logger
}

func NewJSONPublisher(w io.Writer) *JSONPublisher {
	return &JSONPublisher{logger: log.New(w, "", 0)}
}

func (p *JSONPublisher) Publish(_ context.Context, event Event) {
	if p == nil || p.logger == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Printf(`{"type":"logging.encode_failure","error":%q}`, err.Error())
		return
	}
	p.logger.Print(string(data))
}

func formatSeverity(sev Severity) string {
	switch sev {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatEntity(ref EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatTargets(targets []EntityRef) string {
	if len(targets) == 0 {
		return ""
	}
	out := " targets="
	for i, target := range targets {
		if i > 0 {
			out += ","
		}
		out += formatEntity(target)
	}
	return out
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return " payload=" + string(data)
}
