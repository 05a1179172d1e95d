package models

import "time"

// User - модель пользователя в системе.
// PasswordHash хранит только bcrypt-хэш, открытый пароль не сохраняется.
type User struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile — публичная часть пользователя, которую можно отдавать наружу.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileOf возвращает публичные поля пользователя.
func ProfileOf(u *User) *Profile {
	return &Profile{Username: u.Username, Email: u.Email}
}

// RegisterInput — данные регистрации (схема createUser).
type RegisterInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
}

// LoginInput — данные входа (схема loginUser).
// Достаточно одного из Email/Username.
type LoginInput struct {
	Username string `json:"username" validate:"required_without=Email,max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,bcryptlen"`
}
