package auth

import "fmt"

type DashboardCard struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

type AccountInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
}

// Dashboard is the view model of the signed-in landing page.
type Dashboard struct {
	Brand   string          `json:"brand"`
	Welcome string          `json:"welcome"`
	Message string          `json:"message"`
	Cards   []DashboardCard `json:"cards"`
	Account AccountInfo     `json:"account"`
}

var dashboardCards = []DashboardCard{
	{Icon: "👤", Title: "Profile", Description: "View and manage your profile information", Action: "View Profile"},
	{Icon: "🔒", Title: "Security", Description: "Manage your password and security settings", Action: "Change Password"},
	{Icon: "⚙️", Title: "Settings", Description: "Customize your account preferences", Action: "Go to Settings"},
	{Icon: "🎨", Title: "Preferences", Description: "Adjust your display and notification settings", Action: "Preferences"},
}

// Dashboard returns ErrNotAuthenticated for anonymous sessions.
func (s *Service) Dashboard() (Dashboard, error) {
	u, ok := s.session.Current()
	if !ok {
		return Dashboard{}, ErrNotAuthenticated
	}
	return Dashboard{
		Brand:   "AuthApp",
		Welcome: fmt.Sprintf("Welcome, %s!", u.Username),
		Message: "You have successfully logged in to your account.",
		Cards:   append([]DashboardCard(nil), dashboardCards...),
		Account: AccountInfo{
			Username: u.Username,
			Email:    u.Email,
			UserID:   u.ID,
			Status:   "Active",
		},
	}, nil
}
