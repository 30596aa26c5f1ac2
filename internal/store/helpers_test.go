package store

import "github.com/kooshamoradpour/G5-TechStore/types"

func typesUser(username, email string) types.User {
	return types.User{Username: username, Email: email, PasswordHash: "hash"}
}

func typesProduct(name string) types.Product {
	return types.Product{Name: name, Description: "d", Price: 10, Stock: 1}
}
