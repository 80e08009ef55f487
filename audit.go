package goCaptcha

import (
	"io"

	internalaudit "github.com/MrEthical07/goCaptcha/internal/audit"
)

// AuditEvent is one audit record. It never carries the challenge answer.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// AuditSinkFunc adapts a function to [AuditSink].
type AuditSinkFunc = internalaudit.SinkFunc

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

// DiscardAuditSink drops every event.
var DiscardAuditSink AuditSink = internalaudit.Discard

// TeeAuditSinks fans each event out to every sink in order.
func TeeAuditSinks(sinks ...AuditSink) AuditSink {
	return internalaudit.Tee(sinks...)
}

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
