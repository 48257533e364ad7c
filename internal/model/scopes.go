package model

import "gorm.io/gorm"

// The visibility predicate lives here, once, and every read path goes
// through it. A tree's soft delete does not mark its persons deleted, so
// person lookups must always carry the join-time parent check; a direct
// person-by-id query that skipped it would leak rows of deleted trees.

// ActiveTrees limits a query to trees that have not been soft-deleted.
func ActiveTrees(db *gorm.DB) *gorm.DB {
	return db.Where("family_trees.is_deleted = ?", false)
}

// ActivePersons limits a query to persons that are not soft-deleted and
// whose owning tree is not soft-deleted.
func ActivePersons(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN family_trees ON family_trees.id = persons.tree_id").
		Where("persons.is_deleted = ? AND family_trees.is_deleted = ?", false, false)
}
