package models

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Template string

const (
	TemplateBasic Template = "basic"
	TemplatePunk  Template = "punk"

	DefaultTemplate = TemplateBasic
)

var Templates = []Template{TemplateBasic, TemplatePunk}

func ParseTemplate(s string) (Template, bool) {
	for _, t := range Templates {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Label is the display name, e.g. "Punk".
func (t Template) Label() string {
	return cases.Title(language.English).String(string(t))
}

type (
	// LinkGroup is derived from link rows, never stored.
	LinkGroup struct {
		Name  string
		Count int
	}

	LinkGroupDetail struct {
		Owner    string
		Name     string
		Links    []Link
		Template Template
	}
)

// GroupLinks counts links per group, keeping the order in which groups first
// appear.
func GroupLinks(links []Link) []LinkGroup {
	groups := make([]LinkGroup, 0)
	index := make(map[string]int)
	for i := range links {
		name := links[i].LinkGroup
		pos, ok := index[name]
		if !ok {
			index[name] = len(groups)
			groups = append(groups, LinkGroup{Name: name, Count: 1})
			continue
		}
		groups[pos].Count++
	}
	return groups
}

func (d *LinkGroupDetail) Resp() LinkGroupDetailResp {
	resp := LinkGroupDetailResp{
		Group:    d.Name,
		Links:    make([]LinkResp, len(d.Links)),
		Template: string(d.Template),
	}
	for i := range d.Links {
		resp.Links[i] = LinkResp{
			ID:   strconv.FormatUint(d.Links[i].ID, 10),
			Link: d.Links[i].Link,
		}
	}
	return resp
}

func (d *LinkGroupDetail) Values() []string {
	values := make([]string, len(d.Links))
	for i := range d.Links {
		values[i] = d.Links[i].Link
	}
	return values
}
