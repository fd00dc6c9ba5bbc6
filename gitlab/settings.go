package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// ApplicationSettings is the instance-wide configuration. GitLab adds settings
// with every release, so the values are kept by name rather than as fields.
type ApplicationSettings struct {
	ID        int64
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Settings  map[string]any
}

// UnmarshalJSON splits the fixed fields from the named settings.
func (a *ApplicationSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var fixed struct {
		ID        int64      `json:"id"`
		CreatedAt *time.Time `json:"created_at"`
		UpdatedAt *time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	a.ID, a.CreatedAt, a.UpdatedAt = fixed.ID, fixed.CreatedAt, fixed.UpdatedAt

	a.Settings = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "id", "created_at", "updated_at":
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		a.Settings[k] = value
	}
	return nil
}

// MarshalJSON renders the settings flat, the way GitLab sends them.
func (a ApplicationSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Settings)+3)
	for k, v := range a.Settings {
		out[k] = v
	}
	out["id"] = a.ID
	if a.CreatedAt != nil {
		out["created_at"] = a.CreatedAt
	}
	if a.UpdatedAt != nil {
		out["updated_at"] = a.UpdatedAt
	}
	return json.Marshal(out)
}

// Setting returns the value of a named setting.
func (a *ApplicationSettings) Setting(name string) (any, bool) {
	v, ok := a.Settings[name]
	return v, ok
}

// Names returns the setting names in sorted order.
func (a *ApplicationSettings) Names() []string {
	names := make([]string, 0, len(a.Settings))
	for k := range a.Settings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SettingsService handles /application/settings. It requires an administrator token.
type SettingsService struct {
	client *Client
}

// GetSettings returns the current application settings.
func (s *SettingsService) GetSettings(ctx context.Context) (*ApplicationSettings, *Response, error) {
	settings := new(ApplicationSettings)
	resp, err := s.client.call(ctx, http.MethodGet, "application/settings", nil, settings)
	if err != nil {
		return nil, resp, err
	}
	return settings, resp, nil
}

// UpdateSettings changes the named settings and returns the full result.
func (s *SettingsService) UpdateSettings(ctx context.Context, changes map[string]any) (*ApplicationSettings, *Response, error) {
	names := make([]string, 0, len(changes))
	for k := range changes {
		names = append(names, k)
	}
	sort.Strings(names)

	form := NewForm()
	for _, name := range names {
		form.WithParam(name, changes[name])
	}
	if form.Empty() {
		return nil, nil, NewForm().WithRequiredParam("settings", nil).Err()
	}

	settings := new(ApplicationSettings)
	resp, err := s.client.call(ctx, http.MethodPut, "application/settings", form, settings)
	if err != nil {
		return nil, resp, err
	}
	return settings, resp, nil
}
