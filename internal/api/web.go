package api

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/kalambet/talkscope/internal/analysis"
	"github.com/kalambet/talkscope/internal/transcript"
)

//go:embed web/index.html web/static
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	Models        []string
	APIConfigured bool
	MinLength     int
	MinLines      int
	Provider      string
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := indexData{
			Models:        deps.Config.Analysis.Models,
			APIConfigured: deps.Config.APIConfigured(),
			MinLength:     analysis.MinTranscriptLength,
			MinLines:      transcript.MinMessageLines,
			Provider:      deps.Config.LLM.Provider,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, data); err != nil {
			slog.Error("rendering index", "error", err)
		}
	}
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
