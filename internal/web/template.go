package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/glosa-predictor/internal/phase"
	"github.com/sweeney/glosa-predictor/internal/status"
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
	"lower": func(s phase.Status) string {
		return strings.ToLower(string(s))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if .Config.Junction}}<meta http-equiv="refresh" content="1">{{end}}
<title>GLOSA Signal Predictor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.green { color: green; font-weight: bold; }
.red { color: red; font-weight: bold; }
.amber { color: #e69500; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>GLOSA Signal Predictor</h1>

{{if .Config.Junction}}
<h2>Signal</h2>
<table>
<tr><th>Junction</th><td>{{.Config.Junction}}</td></tr>
{{if .SignalReady}}<tr><th>Phase</th><td id="phase" class="{{lower .Signal.Status}}">{{.Signal.Status}}</td></tr>
<tr><th>Next change</th><td>{{printf "%.1f" .Signal.SecondsToChange}}s</td></tr>{{else}}<tr><th>Phase</th><td id="phase" class="unknown">UNKNOWN</td></tr>{{end}}
<tr><th>Lamp</th><td>{{if .Config.Lamp}}enabled{{else}}disabled{{end}}</td></tr>
</table>
{{end}}

<h2>Predictions</h2>
<table>
<tr><th>Provider</th><td>{{.Config.Provider}}</td></tr>
<tr><th>Served</th><td>{{.Counts.Predictions}}</td></tr>
<tr><th>GREEN</th><td>{{.Counts.Green}}</td></tr>
<tr><th>RED</th><td>{{.Counts.Red}}</td></tr>
<tr><th>AMBER</th><td>{{.Counts.Amber}}</td></tr>
<tr><th>Advisories</th><td>{{.Counts.Advisories}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{else}}<tr><th>MQTT</th><td>disabled</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
