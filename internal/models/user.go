package models

type User struct {
	ID              int64  `db:"id" json:"id"`
	FirstName       string `db:"first_name" json:"firstName"`
	LastName        string `db:"last_name" json:"lastName"`
	Email           string `db:"email" json:"email"`
	Password        string `db:"password" json:"-"`
	ProfileImageURL string `db:"profile_image_url" json:"profileImageUrl"`
}
