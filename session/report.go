package session

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/minileebee/leebee/engine"
)

const reportTemplate = `{{ define "report" -}}
{{ printf "%.1f" .Metronome.BPM }} bpm, metronome volume {{ .Metronome.Volume }}, position {{ add1 .Time.Measure }}.{{ add1 .Time.Beat }}
output peak {{ printf "%.3f" (index .Peaks 0) }} {{ printf "%.3f" (index .Peaks 1) }}
{{- range .Tracks }}
{{ if .Armed }}*{{ else }} {{ end }}{{ printf "%3d" .ID }} {{ trunc 24 .Name | printf "%-24s" }} vol {{ printf "%.2f" .Volume }}{{ if .Disabled }} DISABLED{{ end }} [{{ join ", " .Plugins | default "empty" }}]
{{- else }}
no tracks
{{- end }}
{{ end }}`

var report = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))

type reportData struct {
	Metronome Metronome
	Time      engine.SampleTimeInfo
	Peaks     [2]float32
	Tracks    []TrackInfo
}

// Report writes a human readable summary of the state to w.
func (s *State) Report(w io.Writer) error {
	data := reportData{
		Metronome: s.Metronome(),
		Time:      s.TimeInfo(),
		Peaks:     s.Peaks(),
		Tracks:    s.Tracks(),
	}
	if err := report.ExecuteTemplate(w, "report", data); err != nil {
		return fmt.Errorf("could not render report: %w", err)
	}
	return nil
}
