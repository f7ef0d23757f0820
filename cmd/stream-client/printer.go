package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"y3sh-bybit-sdk-go/client/websocket"
	"y3sh-bybit-sdk-go/common"
)

var familyColors = map[string]*color.Color{
	common.FamilyOrderbook:   color.New(color.FgBlue),
	common.FamilyTrade:       color.New(color.FgGreen),
	common.FamilyTicker:      color.New(color.FgYellow),
	common.FamilyKline:       color.New(color.FgCyan),
	common.FamilyLiquidation: color.New(color.FgRed, color.Bold),
	common.FamilyLTKline:     color.New(color.FgCyan, color.Faint),
	common.FamilyLTTicker:    color.New(color.FgYellow, color.Faint),
	common.FamilyLTNav:       color.New(color.FgWhite),
}

// Private topics have no family of their own.
var privateColor = color.New(color.FgMagenta)

var (
	red   = color.RedString
	green = color.GreenString
)

// printer writes events and acks to out, one per line.
type printer struct {
	out    io.Writer
	format string
}

func newPrinter(out io.Writer, format string) *printer {
	return &printer{out: out, format: format}
}

func (p *printer) printEvent(ev common.TopicEvent) {
	c, ok := familyColors[ev.Family()]
	if !ok {
		c = privateColor
	}

	if p.format == formatJSON {
		fmt.Fprintln(p.out, c.Sprint(ev.String()))
		return
	}

	ts := "-"
	if t := ev.Time(); !t.IsZero() {
		ts = t.UTC().Format(time.RFC3339Nano)
	}

	fmt.Fprintf(p.out, "%s %s %s %s\n", ts, c.Sprint(ev.Topic), ev.Type, ev.Data)
}

func (p *printer) printAck(ack websocket.Ack) {
	status := green("ok")
	if !ack.Success {
		status = red("failed: %s", ack.RetMsg)
	}

	fmt.Fprintf(p.out, "%s result (req %s): %s\n", ack.Op, ack.ReqID, status)
}
