// Package generate projects a compiled registry into systemd unit/timer
// text and a Caddy-flavored gateway configuration. Every template input is
// a resolved value from a DeployedComponent (or, for the sideband systemd
// options the registry doesn't carry, the catalog's ManageSpec) — never a
// source-tree path (spec.md §4.3).
package generate

import (
	"strings"
	"text/template"
)

var funcMaps = template.FuncMap{
	"join": strings.Join,
}

const unitTemplateSrc = `[Unit]
Description=Castle: {{.Description}}
After={{.After}}

[Service]
Type={{.Type}}
ExecStart={{.ExecStart}}
{{- range $k, $v := .Env }}
Environment={{$k}}={{$v}}
{{- end }}
Environment="PATH=~/.local/bin:/usr/local/bin:/usr/bin:/bin"
{{- if not .Scheduled }}
Restart={{.Restart}}
RestartSec={{.RestartSec}}
SuccessExitStatus=143
{{- end }}
{{- if .ExecReload }}
ExecReload={{.ExecReload}}
{{- end }}
{{- if .NoNewPrivileges }}
NoNewPrivileges=true
{{- end }}

[Install]
WantedBy={{.WantedBy}}
`

var unitTemplate = template.Must(template.New("unit").Funcs(funcMaps).Parse(unitTemplateSrc))

const timerTemplateSrc = `[Unit]
Description=Castle timer: {{.Description}}

[Timer]
{{- if .OnCalendar }}
OnCalendar={{.OnCalendar}}
{{- else }}
OnBootSec=60
OnUnitActiveSec={{.OnUnitActiveSec}}s
{{- end }}
Persistent=false

[Install]
WantedBy=timers.target
`

var timerTemplate = template.Must(template.New("timer").Funcs(funcMaps).Parse(timerTemplateSrc))

const caddyfileTemplateSrc = `:{{.GatewayPort}} {
{{- range .Routes }}
  handle_path {{.ProxyPath}}/* {
    reverse_proxy {{.Host}}:{{.Port}}
  }
{{- end }}
  handle {
    root * ~/.castle/static/castle-app
    try_files {path} /index.html
    file_server
  }
}
`

var caddyfileTemplate = template.Must(template.New("caddyfile").Funcs(funcMaps).Parse(caddyfileTemplateSrc))
