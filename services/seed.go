package services

import (
	"context"

	"bvstock/models"
	"bvstock/store"
	"bvstock/utils"
)

// SeedUsers creates the admin and staff accounts when no user exists yet.
func SeedUsers(ctx context.Context, st store.Store, adminPassword, staffPassword string) (bool, error) {
	n, err := st.CountUsers(ctx)
	if err != nil || n > 0 {
		return false, err
	}
	for _, seed := range []struct{ username, fullName, password, role string }{
		{"admin", "Administrator", adminPassword, models.RoleAdmin},
		{"agent", "Sales Agent", staffPassword, models.RoleStaff},
	} {
		hashed, err := utils.HashPassword(seed.password)
		if err != nil {
			return false, err
		}
		u := models.User{Username: seed.username, FullName: seed.fullName, Password: hashed, Role: seed.role}
		if err := st.CreateUser(ctx, &u); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SeedCatalog restocks every catalog product with qty units at its listed BV.
func SeedCatalog(ctx context.Context, st store.Store, qty int) (int, error) {
	created := 0
	for _, entry := range models.Catalog() {
		bv := entry.BV
		_, isNew, err := st.RestockByName(ctx, entry.Name, qty, &bv)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
