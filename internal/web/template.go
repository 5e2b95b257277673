package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/render"
	"github.com/sweeney/inkdash/internal/status"
	"github.com/sweeney/inkdash/internal/telemetry"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"codes": func(cs []errcode.Code) string {
		parts := make([]string, len(cs))
		for i, c := range cs {
			parts[i] = string(c)
		}
		return strings.Join(parts, ", ")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Ink Dashboard</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
.errors { color: orange; }
img.frame { width: 100%; border: 1px solid #888; image-rendering: pixelated; }
</style>
</head>
<body>
<h1>Ink Dashboard</h1>

{{if .HasFrame}}<p><img class="frame" src="/frame.png" alt="panel"></p>{{end}}

<h2>Display</h2>
<table>
{{range .Lines}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{else}}<tr><td>No wake recorded yet</td></tr>
{{end}}</table>

{{with .Last}}
<h2>Last Wake</h2>
<table>
<tr><th>Started</th><td>{{.Start.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Wake</th><td>{{.Reason}}</td></tr>
<tr><th>Action</th><td>{{.Action}} ({{.RefreshCount}})</td></tr>
<tr><th>Fetched</th><td>{{if .Fetched}}yes{{else}}no{{end}}</td></tr>
<tr><th>Clock</th><td>{{.TimeText}}</td></tr>
<tr><th>Sleep</th><td>{{.SleepSeconds}}s</td></tr>
<tr><th>Battery</th><td>{{printf "%.2f" .BatteryVoltage}}V</td></tr>
{{if .Errors}}<tr><th>Errors</th><td class="errors">{{codes .Errors}}</td></tr>{{end}}
</table>
{{end}}

<h2>Cycle Counts</h2>
<table>
<tr><th>Full</th><td>{{.Counts.Full}}</td></tr>
<tr><th>Partial</th><td>{{.Counts.Partial}}</td></tr>
<tr><th>Fetched</th><td>{{.Counts.Fetched}}</td></tr>
<tr><th>Fetch failures</th><td>{{.Counts.FetchFailures}}</td></tr>
<tr><th>Button</th><td>{{.Counts.Button}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Server</th><td>{{.Config.ServerURL}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Interface}} {{if .Network.Connected}}up{{else}}down{{end}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Refresh period</th><td>{{.Config.RefreshPeriod}}</td></tr>
<tr><th>Store</th><td>{{.Config.Store}}</td></tr>
<tr><th>Panel</th><td>{{.Config.Panel}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/state.json">State</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Lines  []render.Line
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if snap.Last != nil {
		r := snap.Retained
		data.Lines = render.Lines(r.State, telemetry.Reading{
			StorageOK:         r.Cycle.SDCardOK,
			NetworkConnected:  r.Cycle.WiFiConnected,
			BatteryVoltage:    r.Cycle.BatteryVoltage,
			InsideTemperature: r.Cycle.InsideTemperature,
		})
	}
	indexTmpl.Execute(w, data)
}
