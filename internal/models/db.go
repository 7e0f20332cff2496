package models

// Rows as stored by the data service. JSON names are the column names.
type (
	User struct {
		ID        string  `json:"id,omitempty"`
		Email     string  `json:"email"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}

	Link struct {
		ID        uint64 `json:"id,omitempty"`
		UserEmail string `json:"user_email,omitempty"`
		LinkGroup string `json:"link_group,omitempty"`
		Link      string `json:"link"`
	}

	LinkTemplate struct {
		ID        uint64 `json:"id,omitempty"`
		UserEmail string `json:"user_email,omitempty"`
		LinkGroup string `json:"link_group,omitempty"`
		Template  string `json:"template"`
	}
)

const (
	TableUsers         = "users"
	TableLinks         = "links"
	TableLinkTemplates = "link_templates"
)

const PlaceholderLink = "https://your-link.com"

func (u *User) First() string {
	if u.FirstName == nil {
		return ""
	}
	return *u.FirstName
}

func (u *User) Last() string {
	if u.LastName == nil {
		return ""
	}
	return *u.LastName
}
