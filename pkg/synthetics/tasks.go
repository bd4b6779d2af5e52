package synthetics

import (
	"github.com/creasty/defaults"
)

// monitoringTask is a per-probe settings sub-object (ping, traceroute). Task
// settings are only meaningful while the task's logical name is listed in the
// owning settings' task list.
type monitoringTask interface {
	Element
	TaskName() string
}

// PingTask holds the ping sub-probe parameters. Expiry is the probe timeout
// in milliseconds.
type PingTask struct {
	Count    int      `default:"5"`
	Expiry   int      `default:"3000"`
	Delay    int      `default:"0"`
	Protocol Protocol `default:"icmp"`
	Port     int      `default:"0"`
}

func NewPingTask() *PingTask {
	t := &PingTask{}
	defaults.MustSet(t)
	return t
}

func (t *PingTask) TaskName() string {
	return "ping"
}

func (t *PingTask) Schema() Schema {
	return Schema{
		{Key: "count", Get: func() any { return t.Count }, Set: setInt(&t.Count)},
		{Key: "expiry", Get: func() any { return t.Expiry }, Set: setInt(&t.Expiry)},
		{Key: "delay", Get: func() any { return t.Delay }, Set: setInt(&t.Delay)},
		{Key: "protocol", Get: func() any { return string(t.Protocol) }, Set: setEnum(&t.Protocol, ParseProtocol)},
		{Key: "port", Get: func() any { return t.Port }, Set: setInt(&t.Port)},
	}
}

// TraceTask holds the traceroute sub-probe parameters. Limit is the maximum
// hop count, Expiry the timeout in milliseconds.
type TraceTask struct {
	Count    int      `default:"3"`
	Expiry   int      `default:"22500"`
	Limit    int      `default:"30"`
	Delay    int      `default:"0"`
	Protocol Protocol `default:"icmp"`
	Port     int      `default:"33434"`
}

func NewTraceTask() *TraceTask {
	t := &TraceTask{}
	defaults.MustSet(t)
	return t
}

func (t *TraceTask) TaskName() string {
	return "traceroute"
}

func (t *TraceTask) Schema() Schema {
	return Schema{
		{Key: "count", Get: func() any { return t.Count }, Set: setInt(&t.Count)},
		{Key: "expiry", Get: func() any { return t.Expiry }, Set: setInt(&t.Expiry)},
		{Key: "limit", Get: func() any { return t.Limit }, Set: setInt(&t.Limit)},
		{Key: "delay", Get: func() any { return t.Delay }, Set: setInt(&t.Delay)},
		{Key: "protocol", Get: func() any { return string(t.Protocol) }, Set: setEnum(&t.Protocol, ParseProtocol)},
		{Key: "port", Get: func() any { return t.Port }, Set: setInt(&t.Port)},
	}
}
