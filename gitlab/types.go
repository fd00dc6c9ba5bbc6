package gitlab

import "time"

// SortOrder is the sort direction accepted by list endpoints.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Visibility is the visibility level of a project or snippet.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// BasicUser is the short user representation embedded in other resources.
type BasicUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	State     string `json:"state"`
	AvatarURL string `json:"avatar_url"`
	WebURL    string `json:"web_url"`
}

// User is a GitLab user account.
type User struct {
	BasicUser
	Email          string     `json:"email,omitempty"`
	PublicEmail    string     `json:"public_email,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	Location       string     `json:"location,omitempty"`
	Organization   string     `json:"organization,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	LastActivityOn string     `json:"last_activity_on,omitempty"`
	IsAdmin        bool       `json:"is_admin,omitempty"`
	Bot            bool       `json:"bot,omitempty"`
}

// Commit is a repository commit.
type Commit struct {
	ID             string     `json:"id"`
	ShortID        string     `json:"short_id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	AuthorName     string     `json:"author_name"`
	AuthorEmail    string     `json:"author_email"`
	AuthoredDate   *time.Time `json:"authored_date,omitempty"`
	CommitterName  string     `json:"committer_name"`
	CommitterEmail string     `json:"committer_email"`
	CommittedDate  *time.Time `json:"committed_date,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	ParentIDs      []string   `json:"parent_ids,omitempty"`
	WebURL         string     `json:"web_url,omitempty"`
}

// Milestone is a project or group milestone.
type Milestone struct {
	ID          int64      `json:"id"`
	IID         int64      `json:"iid"`
	ProjectID   int64      `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	State       string     `json:"state"`
	DueDate     string     `json:"due_date,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	WebURL      string     `json:"web_url,omitempty"`
}

// Ptr returns a pointer to v, for optional fields in option structs.
func Ptr[T any](v T) *T {
	return &v
}
