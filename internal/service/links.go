package service

import (
	"context"
	"strconv"

	"go.uber.org/multierr"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/reconcile"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/supabase"
)

func (s *Hub) LinkGroups(ctx context.Context, sb Backend, user *supabase.User) ([]models.LinkGroup, error) {
	links := make([]models.Link, 0)
	err := sb.From(models.TableLinks).
		Select("id", "link_group").
		Eq("user_email", user.Email).
		Order("id", true).
		Execute(ctx, &links)
	if err != nil {
		return nil, s.unknown(err, "list link groups", "email", user.Email)
	}
	return models.GroupLinks(links), nil
}

// CreateLinkGroup seeds a new group with a placeholder link and the default
// template.
func (s *Hub) CreateLinkGroup(ctx context.Context, sb Backend, user *supabase.User, group string) error {
	if group == "" {
		return ErrLinkGroupRequired
	}

	existing := make([]models.Link, 0)
	err := sb.From(models.TableLinks).
		Select("id").
		Eq("user_email", user.Email).
		Eq("link_group", group).
		Limit(1).
		Execute(ctx, &existing)
	if err != nil {
		return s.unknown(err, "check link group", "email", user.Email, "group", group)
	}
	if len(existing) > 0 {
		return ErrLinkGroupExists
	}

	err = sb.From(models.TableLinks).
		Insert([]models.Link{{UserEmail: user.Email, LinkGroup: group, Link: models.PlaceholderLink}}).
		Execute(ctx, nil)
	if err != nil {
		return s.unknown(err, "seed link group", "email", user.Email, "group", group)
	}

	if err := s.upsertTemplate(ctx, sb, user, group, models.DefaultTemplate); err != nil {
		return s.unknown(err, "seed link group template", "email", user.Email, "group", group)
	}
	return nil
}

// DeleteLinkGroup removes the caller's links and template row for group. Both
// deletes are attempted; they are not atomic with each other.
func (s *Hub) DeleteLinkGroup(ctx context.Context, sb Backend, user *supabase.User, group string) error {
	if group == "" {
		return ErrLinkGroupRequired
	}
	if err := s.deleteGroup(ctx, sb, user, group); err != nil {
		return s.unknown(err, "delete link group", "email", user.Email, "group", group)
	}
	return nil
}

func (s *Hub) deleteGroup(ctx context.Context, sb Backend, user *supabase.User, group string) error {
	linksErr := sb.From(models.TableLinks).
		Delete().
		Eq("user_email", user.Email).
		Eq("link_group", group).
		Execute(ctx, nil)
	templateErr := sb.From(models.TableLinkTemplates).
		Delete().
		Eq("user_email", user.Email).
		Eq("link_group", group).
		Execute(ctx, nil)
	return multierr.Append(linksErr, templateErr)
}

// LinkGroup loads the links and template of one of the caller's groups. An
// unknown group is an empty detail.
func (s *Hub) LinkGroup(ctx context.Context, sb Backend, user *supabase.User, group string) (*models.LinkGroupDetail, error) {
	detail, err := s.loadGroup(ctx, sb, user.Email, group)
	if err != nil {
		return nil, s.unknown(err, "get link group", "email", user.Email, "group", group)
	}
	return detail, nil
}

// PublicLinkGroup loads a group for its public page.
func (s *Hub) PublicLinkGroup(ctx context.Context, sb Backend, email, group string) (*models.LinkGroupDetail, error) {
	detail, err := s.loadGroup(ctx, sb, email, group)
	if err != nil {
		return nil, s.unknown(err, "get public link group", "email", email, "group", group)
	}
	if len(detail.Links) == 0 {
		return nil, ErrLinkGroupNotFound
	}
	// stored tags are not constrained by the data service
	tpl, ok := models.ParseTemplate(string(detail.Template))
	if !ok {
		tpl = models.DefaultTemplate
	}
	detail.Template = tpl
	return detail, nil
}

// SaveLinkGroup replaces the group's links with values, in order, and stores
// the template when it is not empty. Writes are skipped when nothing differs
// from the stored group. Saving no links deletes the group.
func (s *Hub) SaveLinkGroup(ctx context.Context, sb Backend, user *supabase.User, group string, values []string, template string) (*models.LinkGroupDetail, error) {
	for _, v := range values {
		if v == "" {
			return nil, ErrEmptyLink
		}
	}
	if template != "" {
		if _, ok := models.ParseTemplate(template); !ok {
			return nil, ErrUnknownTemplate
		}
	}

	current, err := s.loadGroup(ctx, sb, user.Email, group)
	if err != nil {
		return nil, s.unknown(err, "load link group", "email", user.Email, "group", group)
	}

	editor := newGroupEditor(current)
	editor.Replace(values)
	if template != "" {
		editor.SetTemplate(template)
	}
	if err := editor.Validate(); err != nil {
		return nil, err
	}
	if !editor.IsDirty() {
		return current, nil
	}

	if len(values) == 0 {
		if err := s.deleteGroup(ctx, sb, user, group); err != nil {
			return nil, s.unknown(err, "delete emptied link group", "email", user.Email, "group", group)
		}
		return &models.LinkGroupDetail{Owner: user.Email, Name: group, Links: []models.Link{}}, nil
	}

	err = sb.From(models.TableLinks).
		Delete().
		Eq("user_email", user.Email).
		Eq("link_group", group).
		Execute(ctx, nil)
	if err != nil {
		return nil, s.unknown(err, "clear link group", "email", user.Email, "group", group)
	}

	rows := make([]models.Link, len(values))
	for i, v := range editor.Values() {
		rows[i] = models.Link{UserEmail: user.Email, LinkGroup: group, Link: v}
	}
	inserted := make([]models.Link, 0)
	if err := sb.From(models.TableLinks).Insert(rows).Execute(ctx, &inserted); err != nil {
		return nil, s.unknown(err, "insert links", "email", user.Email, "group", group)
	}

	tpl, ok := models.ParseTemplate(editor.Template())
	if !ok {
		tpl = models.DefaultTemplate
	}
	if err := s.upsertTemplate(ctx, sb, user, group, tpl); err != nil {
		return nil, s.unknown(err, "store template", "email", user.Email, "group", group)
	}

	return &models.LinkGroupDetail{Owner: user.Email, Name: group, Links: inserted, Template: tpl}, nil
}

func (s *Hub) loadGroup(ctx context.Context, sb Backend, email, group string) (*models.LinkGroupDetail, error) {
	links := make([]models.Link, 0)
	err := sb.From(models.TableLinks).
		Select("id", "link").
		Eq("user_email", email).
		Eq("link_group", group).
		Order("id", true).
		Execute(ctx, &links)
	if err != nil {
		return nil, err
	}

	templates := make([]models.LinkTemplate, 0)
	err = sb.From(models.TableLinkTemplates).
		Select("template").
		Eq("user_email", email).
		Eq("link_group", group).
		Limit(1).
		Execute(ctx, &templates)
	if err != nil {
		return nil, err
	}

	detail := &models.LinkGroupDetail{Owner: email, Name: group, Links: links}
	if len(templates) > 0 {
		detail.Template = models.Template(templates[0].Template)
	}
	return detail, nil
}

func (s *Hub) upsertTemplate(ctx context.Context, sb Backend, user *supabase.User, group string, tpl models.Template) error {
	return sb.From(models.TableLinkTemplates).
		Upsert([]models.LinkTemplate{{UserEmail: user.Email, LinkGroup: group, Template: string(tpl)}}, "user_email", "link_group").
		Execute(ctx, nil)
}

func newGroupEditor(detail *models.LinkGroupDetail) *reconcile.Editor {
	return reconcile.New(groupItems(detail), map[string]string{
		reconcile.FieldTemplate: string(detail.Template),
	})
}

func groupItems(detail *models.LinkGroupDetail) []reconcile.Item {
	items := make([]reconcile.Item, len(detail.Links))
	for i := range detail.Links {
		items[i] = reconcile.Item{
			ID:    strconv.FormatUint(detail.Links[i].ID, 10),
			Value: detail.Links[i].Link,
		}
	}
	return items
}
