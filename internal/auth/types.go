package auth

// Account is a registered user record as persisted under AccountsKey.
// The password is kept in clear text to stay compatible with data written by
// the browser build of the demo; it must never be carried into a real system.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the password-free projection of an Account that represents the
// signed-in session. It is a copy taken at authentication time.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a Account) User() User {
	return User{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
	}
}

// Storage keys shared with the browser build.
const (
	AccountsKey = "authUsers"
	SessionKey  = "authUser"
)

// DemoAccount is seeded on first run so the login form has something to accept.
var DemoAccount = Account{
	ID:       "1",
	Username: "demo",
	Email:    "demo@example.com",
	Password: "demo123",
}
