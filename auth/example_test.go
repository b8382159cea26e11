package auth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/edgegate/auth"
)

func ExampleGuard_Validate() {
	directory := auth.NewStaticSource(
		&auth.CustomerConfig{ID: "cust_acme", Name: "Acme Corp"},
		&auth.CustomerConfig{ID: "cust_globex", Name: "Globex"},
	)

	// Only acme is allowed through this gateway.
	guard, _ := auth.NewGuard(auth.GuardConfig{
		Source:    directory,
		AllowList: []string{"cust_acme"},
	})
	ctx := context.Background()

	id, err := guard.Validate(ctx, "cust_acme")
	fmt.Println("acme:", id.Name, err)

	_, err = guard.Validate(ctx, "cust_globex")
	fmt.Println("globex denied:", errors.Is(err, auth.ErrForbiddenCustomer))

	_, err = guard.Validate(ctx, "")
	fmt.Println("missing identity:", errors.Is(err, auth.ErrIdentityRequired))
	// Output:
	// acme: Acme Corp <nil>
	// globex denied: true
	// missing identity: true
}

func ExampleGuard_Authorize() {
	directory := auth.NewStaticSource(
		&auth.CustomerConfig{
			ID:          "cust_acme",
			Permissions: []string{"dns:read"},
		},
	)
	guard, _ := auth.NewGuard(auth.GuardConfig{Source: directory})
	ctx := context.Background()

	id, _ := guard.Validate(ctx, "cust_acme")

	// Reads pass; a purge demands elevated access this customer lacks.
	err := guard.Authorize(ctx, id, auth.Requirement{Permission: "dns:read"})
	fmt.Println("read:", err)

	err = guard.Authorize(ctx, id, auth.Requirement{Elevated: true})
	fmt.Println("purge denied:", errors.Is(err, auth.ErrElevatedRequired))
	// Output:
	// read: <nil>
	// purge denied: true
}

func ExampleNewCompositeSource() {
	overrides := auth.NewStaticSource(
		&auth.CustomerConfig{ID: "cust_acme", Name: "Acme (override)"},
	)
	directory := auth.NewStaticSource(
		&auth.CustomerConfig{ID: "cust_acme", Name: "Acme Corp"},
		&auth.CustomerConfig{ID: "cust_globex", Name: "Globex"},
	)

	src := auth.NewCompositeSource(overrides, directory)
	ctx := context.Background()

	acme, _ := src.Resolve(ctx, "cust_acme")
	globex, _ := src.Resolve(ctx, "cust_globex")

	fmt.Println(acme.Name)
	fmt.Println(globex.Name)
	// Output:
	// Acme (override)
	// Globex
}
