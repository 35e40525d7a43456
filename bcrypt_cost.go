//go:build !race

package bookstore

func passwordHashCost() int {
	return DefaultPasswordHashCost
}
