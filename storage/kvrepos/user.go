package kvrepos

import (
	"github.com/google/uuid"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/user"
)

// userRow is the stored form of a user.User, password hash included.
type userRow struct {
	user.User
	PasswordHash []byte `json:"password_hash"`
}

func (row userRow) toUser() user.User {
	usr := row.User
	usr.PasswordHash = row.PasswordHash
	return usr
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) load() []userRow {
	rows := make([]userRow, 0)
	repo.db.store.Load(core.KeyUsers, &rows)
	return rows
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.load()
	for _, row := range rows {
		if row.Username == usr.Username {
			return user.User{}, user.ErrUsernameExists
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	rows = append(rows, userRow{User: usr, PasswordHash: usr.PasswordHash})
	if err := repo.db.store.Save(core.KeyUsers, rows); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.load()
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.load() {
		if row.ID == id {
			return row.toUser(), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.load() {
		if row.Username == username {
			return row.toUser(), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.load()
	for i := range rows {
		if rows[i].ID == usr.ID {
			rows[i] = userRow{User: usr, PasswordHash: usr.PasswordHash}
			if err := repo.db.store.Save(core.KeyUsers, rows); err != nil {
				return user.User{}, err
			}
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}
