package models

type (
	SignInReq struct {
		Email    string `form:"email" json:"email" validate:"required"`
		Password string `form:"password" json:"password" validate:"required"`
	}

	NameReq struct {
		FirstName string `form:"first-name" json:"firstName" validate:"omitempty,alpha"`
		LastName  string `form:"last-name" json:"lastName" validate:"omitempty,alpha"`
	}

	SignInResp struct {
		FieldErrors        map[string][]string `json:"fieldErrors"`
		InvalidCredentials bool                `json:"invalidCredentials"`
		UnknownError       bool                `json:"unknownError"`
	}

	UserResp struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}

	UpdatedUserResp struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}

	UpdateUserResp struct {
		FieldErrors  map[string][]string `json:"fieldErrors"`
		UnknownError bool                `json:"unknownError"`
		UpdatedUser  *UpdatedUserResp    `json:"updatedUser"`
	}

	LinkGroupResp struct {
		Group string `json:"group"`
		Count int    `json:"count"`
	}

	LinkGroupsResp struct {
		LinkGroups []LinkGroupResp `json:"linkGroups"`
	}

	LinkResp struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	}

	LinkGroupDetailResp struct {
		Group    string     `json:"group"`
		Links    []LinkResp `json:"links"`
		Template string     `json:"template"`
	}

	SaveLinkGroupResp struct {
		Error    *string    `json:"error"`
		Success  bool       `json:"success"`
		Links    []LinkResp `json:"links,omitempty"`
		Template string     `json:"template,omitempty"`
	}

	ErrorResp struct {
		Error        string `json:"error,omitempty"`
		UnknownError bool   `json:"unknownError"`
	}
)
