package domain

// User is an account holding a token balance.
type User struct {
	ID         string
	Balance    int
	RemixCount int
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Balance    *int
	RemixCount *int
}

// ContestEntry is a submission that remixes can be attributed to.
type ContestEntry struct {
	ID         string
	RemixCount int
}
