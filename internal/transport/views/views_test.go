package views

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
)

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	detail := models.LinkGroupDetailResp{
		Group:    "travel",
		Template: "punk",
		Links:    []models.LinkResp{{ID: "1", Link: "https://a.com"}},
	}

	for _, tc := range []struct {
		name string
		data interface{}
	}{
		{name: PageLanding},
		{name: PageSignIn, data: SignIn{}},
		{name: PageAccount, data: Account{User: models.UserResp{Email: "a@b.com"}}},
		{name: PageLinks, data: LinkGroups{Groups: []models.LinkGroupResp{{Group: "travel", Count: 1}}}},
		{name: PageLinkGroup, data: LinkGroup{Detail: detail, Templates: models.Templates}},
		{name: PageError, data: "broken"},
		{name: PublicPage(models.TemplateBasic), data: Public{Owner: "a@b.com", Detail: detail}},
		{name: PublicPage(models.TemplatePunk), data: Public{Owner: "a@b.com", Detail: detail}},
	} {
		buf := bytes.Buffer{}
		err := r.Render(&buf, tc.name, Page{Title: tc.name, Data: tc.data}, nil)
		require.NoError(t, err, tc.name)
		assert.Contains(t, buf.String(), "<title>personal-hub | "+tc.name+"</title>", tc.name)
	}

	buf := bytes.Buffer{}
	err = r.Render(&buf, PageSignIn, Page{Data: SignIn{FieldErrors: map[string][]string{"email": {"Email is required."}}}}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Email is required.")

	buf.Reset()
	err = r.Render(&buf, PageLinkGroup, Page{Data: LinkGroup{Detail: detail, Templates: models.Templates}}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `<option value="punk" selected>Punk</option>`)

	assert.Error(t, r.Render(&buf, "missing", Page{}, nil))
}
