package minify

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"cssmin/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	Name    string // source file name without extension
	Ext     string // source file extension including dot
	Dir     string // source directory relative to the processed root, "." when none
	Kind    string // css, html or xml
}

func newValues(name config.TemplateFieldName, src string, kind srcKind) Values {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return Values{
		Context: string(name),
		Name:    strings.TrimSuffix(base, ext),
		Ext:     ext,
		Dir:     filepath.ToSlash(filepath.Dir(src)),
		Kind:    kind.String(),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
