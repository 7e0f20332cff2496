// Package views renders the HTML pages of the hub.
package views

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
)

const (
	PageLanding   = "landing"
	PageSignIn    = "sign-in"
	PageAccount   = "account"
	PageLinks     = "links"
	PageLinkGroup = "link-group"
	PageError     = "error"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{
	PageLanding,
	PageSignIn,
	PageAccount,
	PageLinks,
	PageLinkGroup,
	PageError,
	PublicPage(models.TemplateBasic),
	PublicPage(models.TemplatePunk),
}

var funcs = template.FuncMap{
	"label": func(s string) string {
		return models.Template(s).Label()
	},
	"first": func(messages []string) string {
		if len(messages) == 0 {
			return ""
		}
		return messages[0]
	},
	"pathEscape": url.PathEscape,
}

type (
	// Page is the value every template is executed with.
	Page struct {
		Title    string
		SignedIn bool
		Notice   string
		Data     interface{}
	}

	SignIn struct {
		FieldErrors        map[string][]string
		InvalidCredentials bool
		UnknownError       bool
	}

	Account struct {
		User         models.UserResp
		FieldErrors  map[string][]string
		UnknownError bool
		Updated      bool
	}

	LinkGroups struct {
		Groups       []models.LinkGroupResp
		Error        string
		UnknownError bool
	}

	LinkGroup struct {
		Detail       models.LinkGroupDetailResp
		Templates    []models.Template
		Error        string
		UnknownError bool
		Saved        bool
	}

	Public struct {
		Owner  string
		Detail models.LinkGroupDetailResp
	}

	Renderer struct {
		templates map[string]*template.Template
	}
)

// PublicPage names the page a group is published with.
func PublicPage(t models.Template) string {
	return "public-" + string(t)
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse layout")
	}

	r := Renderer{
		templates: make(map[string]*template.Template, len(pages)),
	}
	for _, name := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, errors.Wrapf(err, "clone layout for %s", name)
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		r.templates[name] = t
	}
	return &r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return errors.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
