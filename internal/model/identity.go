package model

import "fmt"

// Identity is the generated, collision-resistant identity of a test entity.
type Identity struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName is "First Last", the form confirmation messages echo.
func (i Identity) FullName() string {
	return fmt.Sprintf("%s %s", i.FirstName, i.LastName)
}

// Matches reports an exact match on (first name, last name, email).
func (i Identity) Matches(firstName, lastName, email string) bool {
	return i.FirstName == firstName && i.LastName == lastName && i.Email == email
}
