package models

import "time"

// User represents a user in the database. Tokens is the consumable
// generation balance; it is only ever changed through the store's
// conditional decrement.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Tokens    int       `db:"tokens"`
	RSSUUID   string    `db:"rss_uuid"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
