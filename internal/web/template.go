package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ces-device/internal/logic"
	"github.com/sweeney/ces-device/internal/status"
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
	"countdown": logic.FormatCountdown,
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>CES Device</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; font-weight: bold; }
.crit { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
#countdown { font-size: 2em; }
</style>
</head>
<body>
<h1>CES Device{{if .Device.Disabled}} <span class="crit">DISABLED</span>{{end}}</h1>

<h2>Device</h2>
<table>
<tr><th>Power</th><td id="powered" class="{{onOff .Device.Powered}}">{{onOff .Device.Powered}}</td></tr>
<tr><th>Battery</th><td id="battery" class="{{if le .Device.Battery 2}}crit{{else if le .Device.Battery 5}}warn{{end}}">{{.Device.Battery}}%</td></tr>
<tr><th>Drain</th><td>1% / {{.Device.DrainPeriod}}s</td></tr>
<tr><th>Skin contact</th><td id="contact" class="{{onOff .Device.SkinContact}}">{{onOff .Device.SkinContact}}</td></tr>
<tr><th>Recording</th><td id="recording">{{onOff .Device.Recording}}</td></tr>
<tr><th>Inactive</th><td>{{.Device.InactiveSeconds}}s</td></tr>
</table>

<h2>Session</h2>
<table>
<tr><th>Countdown</th><td id="countdown">{{countdown .Device.Remaining}}</td></tr>
<tr><th>State</th><td id="session-state">{{if .Device.InTherapy}}{{if .Device.Running}}running{{else}}paused{{if .Device.GracePending}} (waiting for contact){{end}}{{end}}{{else}}idle{{end}}</td></tr>
<tr><th>Waveform</th><td>{{.Device.Waveform}}</td></tr>
<tr><th>Frequency</th><td>{{.Device.Frequency}}</td></tr>
<tr><th>Power level</th><td id="power-level">{{.Device.PowerLevel}}</td></tr>
<tr><th>Duration</th><td>{{countdown .Device.LastDuration}}</td></tr>
</table>

<h2>Command</h2>
<form id="command-form">
<input id="command" name="command" placeholder="waveform 1" autocomplete="off">
<button type="submit">Send</button>
<span id="command-result"></span>
</form>

<h2>Records</h2>
{{if .Records}}<table>
{{range .Records}}<tr><td>{{.String}}</td></tr>
{{end}}</table>{{else}}<p>No records.</p>{{end}}

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/records">Records JSON</a></p>
<script>
(function() {
  var form = document.getElementById("command-form");
  var input = document.getElementById("command");
  var result = document.getElementById("command-result");

  form.addEventListener("submit", function(e) {
    e.preventDefault();
    fetch("/commands", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ command: input.value })
    }).then(function(resp) {
      if (resp.status === 204) {
        result.textContent = "ok";
        setTimeout(function() { location.reload(); }, 200);
        return;
      }
      return resp.json().then(function(body) {
        result.textContent = body.error ? body.error.message : resp.status;
      });
    });
  });

  setInterval(function() {
    fetch("/index.json").then(function(resp) { return resp.json(); }).then(function(body) {
      var s = body.status;
      document.getElementById("countdown").textContent = s.session.remaining;
      document.getElementById("battery").textContent = s.battery.percent + "%";
      document.getElementById("power-level").textContent = s.session.power_level;
    }).catch(function() {});
  }, 1000);
})();
</script>
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
