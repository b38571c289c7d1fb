package domain

// Actor is the caller on whose behalf an operation runs.
type Actor struct {
	// ID is the account id. Empty for anonymous callers.
	ID string
	// Admin grants the review and fulfillment operations.
	Admin bool
}

// Authenticated reports whether the actor carries an account id.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}
