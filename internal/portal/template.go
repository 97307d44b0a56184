package portal

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/wjvent/gate-controller/internal/creds"
	"github.com/wjvent/gate-controller/internal/status"
)

type pageData struct {
	Message  string
	WiFi     creds.WiFi
	MQTT     creds.MQTT
	Mode     string
	Snapshot status.Snapshot
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"yesNo": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

func renderHTML(w io.Writer, data pageData) error {
	return indexTmpl.Execute(w, data)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Gate Controller</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
fieldset { margin: 1em 0; }
input[type=text], input[type=password] { width: 100%; box-sizing: border-box; }
.err { color: red; font-weight: bold; }
.ok { color: green; }
.wipe { background: #c00; color: #fff; padding: 8px 12px; border: 0; border-radius: 6px; }
</style>
</head>
<body>
<h1>Gate Controller</h1>

<p><b>Message:</b> {{.Message}}</p>

<h2>Gate</h2>
<table>
<tr><th>State</th><td{{if eq (printf "%s" .Snapshot.Gate.State) "ERROR"}} class="err"{{end}}>{{.Snapshot.Gate.State}}</td></tr>
<tr><th>Error code</th><td>{{.Snapshot.Gate.Err}}</td></tr>
<tr><th>Limit switch (open)</th><td>{{onOff .Snapshot.Gate.Sensors.OpenActive}}</td></tr>
<tr><th>Limit switch (closed)</th><td>{{onOff .Snapshot.Gate.Sensors.ClosedActive}}</td></tr>
<tr><th>Motor open / close</th><td>{{onOff .Snapshot.Gate.MotorOpen}} / {{onOff .Snapshot.Gate.MotorClose}}</td></tr>
<tr><th>Lamp</th><td>{{onOff .Snapshot.Gate.Lamp}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Snapshot.Uptime}}</td></tr>
</table>

<h2>Network</h2>
<table>
<tr><th>Mode</th><td>{{.Mode}}</td></tr>
<tr><th>Connectivity</th><td>{{.Snapshot.Connectivity}}</td></tr>
<tr><th>MQTT connected</th><td class="{{if .Snapshot.MQTTConnected}}ok{{else}}err{{end}}">{{yesNo .Snapshot.MQTTConnected}}</td></tr>
</table>

<h2>WiFi (station)</h2>
<form action="/" method="POST">
<input type="hidden" name="act" value="wifi">
<fieldset><legend>Network</legend>
<p>SSID: <input type="text" name="ssid" value="{{.WiFi.SSID}}" required></p>
<p>Password: <input type="password" name="pass"></p>
</fieldset>
<button type="submit">Save WiFi</button>
</form>

<h2>MQTT</h2>
<form action="/" method="POST">
<input type="hidden" name="act" value="mqtt">
<fieldset><legend>Broker</legend>
<p>Broker (URI): <input type="text" name="broker" value="{{.MQTT.Broker}}" placeholder="tcp://host:1883"></p>
<p>Command topic (subscription): <input type="text" name="t1" value="{{.MQTT.CommandTopic}}"></p>
<p>Status topic (publication): <input type="text" name="t2" value="{{.MQTT.StatusTopic}}"></p>
<p>Telemetry topic (publication): <input type="text" name="t3" value="{{.MQTT.TelemetryTopic}}"></p>
</fieldset>
<button type="submit">Save MQTT</button>
</form>

<hr>
<form action="/" method="GET">
<input type="hidden" name="wipe" value="1">
<button type="submit" class="wipe">Erase credentials and return to config mode</button>
</form>

<p><a href="/status.json">status.json</a></p>
</body>
</html>
`
