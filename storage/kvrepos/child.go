package kvrepos

import (
	"github.com/google/uuid"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/child"
)

type childRepository struct {
	db *DB
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *DB) child.Repository {
	return &childRepository{db: db}
}

func (repo *childRepository) load() []child.Child {
	children := make([]child.Child, 0)
	repo.db.store.Load(core.KeyChildren, &children)
	return children
}

func (repo *childRepository) CreateChild(c child.Child) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	children := append(repo.load(), c)
	if err := repo.db.store.Save(core.KeyChildren, children); err != nil {
		return child.Child{}, err
	}
	return c, nil
}

func (repo *childRepository) QueryAllChildren() ([]child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.load(), nil
}

func (repo *childRepository) GetChildByID(id string) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.load() {
		if c.ID == id {
			return c, nil
		}
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) UpdateChild(c child.Child) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	children := repo.load()
	for i := range children {
		if children[i].ID == c.ID {
			children[i] = c
			if err := repo.db.store.Save(core.KeyChildren, children); err != nil {
				return child.Child{}, err
			}
			return c, nil
		}
	}
	return child.Child{}, child.ErrNotFound
}
