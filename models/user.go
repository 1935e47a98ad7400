package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Product is a catalog row. PriceRef is the payment provider's price identifier.
type Product struct {
	ID        int64
	Name      string
	PriceRef  string
	UnitPrice int64
	Currency  string
}
