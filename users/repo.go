package users

// Account is a user record together with its credential hash, as held by a
// user directory. Hashes never leave the directory.
type Account struct {
	User
	PasswordHash []byte
}

// UserRepo is a directory of accounts addressable by id, username or email.
type UserRepo interface {
	// Upsert stores the account, assigning an id when it has none. Another
	// account already using the username or email is an ErrAlreadyExists.
	Upsert(account *Account) error
	// GetByLogin resolves a username or an email address.
	GetByLogin(usernameOrEmail string) (*Account, error)
	GetByID(id int64) (*Account, error)
	List(offset, limit int) ([]*Account, error)
}
