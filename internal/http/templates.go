package httpapp

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// truncate shortens s to at most n runes. Cutting on runes keeps
// multibyte text intact.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

type Templates struct {
	Home      *template.Template
	Post      *template.Template
	About     *template.Template
	Search    *template.Template
	Login     *template.Template
	Register  *template.Template
	Dashboard *template.Template
	AddPost   *template.Template
	EditPost  *template.Template
	NotFound  *template.Template
	Error     *template.Template
}

func loadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("January 2, 2006") },
		"truncate":   truncate,
	}

	layoutContent, err := templateFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, err
	}

	// Each page defines a "content" template rendered inside the
	// shared layout.
	makePage := func(pageName string) (*template.Template, error) {
		pageContent, err := templateFS.ReadFile("templates/" + pageName + ".html")
		if err != nil {
			return nil, err
		}
		t := template.New("layout").Funcs(funcs)
		t, err = t.Parse(string(layoutContent))
		if err != nil {
			return nil, err
		}
		return t.Parse(string(pageContent))
	}

	tpls := &Templates{}
	pages := []struct {
		name string
		dst  **template.Template
	}{
		{"home", &tpls.Home},
		{"post", &tpls.Post},
		{"about", &tpls.About},
		{"search", &tpls.Search},
		{"login", &tpls.Login},
		{"register", &tpls.Register},
		{"dashboard", &tpls.Dashboard},
		{"add_post", &tpls.AddPost},
		{"edit_post", &tpls.EditPost},
		{"notfound", &tpls.NotFound},
		{"error", &tpls.Error},
	}
	for _, p := range pages {
		t, err := makePage(p.name)
		if err != nil {
			return nil, err
		}
		*p.dst = t
	}
	return tpls, nil
}
