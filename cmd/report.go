package cmd

import (
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/vsariola/mixseq"
	"github.com/vsariola/mixseq/instrument"
	"github.com/vsariola/mixseq/tracker"
)

// Report is what the session report template gets as its data.
type Report struct {
	Graph   *mixseq.Graph
	Status  tracker.TransportStatus
	Samples []instrument.BankEntry
	Frames  int
	Rate    int
}

const reportTemplate = `{{- $g := .Graph -}}
session: {{ len $g.Tracks }} tracks, {{ $g.NumSteps }} steps, {{ .Status.BPM }} bpm in {{ .Status.TimeSignature }}
{{- if .Frames }}
rendered: {{ div (mul .Frames 1000) .Rate }} ms
{{- end }}
{{ range $g.Tracks -}}
{{ printf "%-3d" .Order }} {{ .Name | trunc 16 | printf "%-16s" }} {{ .Kind | toString | upper | printf "%-7s" }}
{{- if .Steps }} {{ template "steps" .Steps }}{{ end }}
{{- if .Control.Mute }} muted{{ end }}
{{- if .Control.Solo }} solo{{ end }}
{{- range .Chain }} [{{ .Kind.DisplayName }}]{{ end }}
{{ end -}}
{{ range $g.Sends -}}
send {{ .Name | quote }} {{ .Source }} -> {{ .Destination }} {{ printf "%.2f" .Amount }}
{{ end -}}
{{ range .Samples -}}
sample {{ .ID }} {{ base .Handle }} {{ printf "%.2f" .Duration }}s peak {{ printf "%.2f" .Peak }}
{{ end -}}
{{ define "steps" }}{{ range . }}{{ if .Active }}x{{ else }}.{{ end }}{{ end }}{{ end }}`

var reportTmpl = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))

// WriteReport writes a plain text summary of the session to w.
func WriteReport(w io.Writer, r Report) error {
	return reportTmpl.Execute(w, r)
}
