package provision

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tpodg/backchannel/internal/strutil"
)

//go:embed scripts/*.sh.tmpl
var scriptsFS embed.FS

var scriptTemplates = template.Must(template.New("provision").Funcs(template.FuncMap{
	"shellEscape": strutil.ShellEscape,
}).ParseFS(scriptsFS, "scripts/*.sh.tmpl"))

type writeScriptData struct {
	Dir  string
	Path string
}

func renderWriteScript(dir, path string) (string, error) {
	var buf strings.Builder
	data := writeScriptData{Dir: dir, Path: path}
	if err := scriptTemplates.ExecuteTemplate(&buf, "write_file.sh.tmpl", data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
