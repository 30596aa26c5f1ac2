package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/rs/zerolog"
)

// Resolver serves both the Query and Mutation roots.
type Resolver struct {
	accounts *services.AccountService
	catalog  *services.CatalogService
	cart     *services.CartService
	logger   zerolog.Logger
}

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	user, err := r.accounts.Me(ctx)
	if err != nil {
		return nil, r.fail("me", err)
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) Product(ctx context.Context, args struct{ Name string }) (*productResolver, error) {
	product, err := r.catalog.GetByName(ctx, args.Name)
	if err != nil {
		return nil, r.fail("product", err)
	}
	return &productResolver{p: product}, nil
}

func (r *Resolver) GetAllProducts(ctx context.Context) ([]*productResolver, error) {
	products, err := r.catalog.All(ctx)
	if err != nil {
		return nil, r.fail("getAllProducts", err)
	}
	out := make([]*productResolver, 0, len(products))
	for _, p := range products {
		out = append(out, &productResolver{p: p})
	}
	return out, nil
}

func (r *Resolver) AddUser(ctx context.Context, args struct{ Input userInput }) (*authResolver, error) {
	user, token, err := r.accounts.Register(ctx, services.RegisterInput{
		Username: args.Input.Username,
		Email:    args.Input.Email,
		Password: args.Input.Password,
	})
	if err != nil {
		return nil, r.fail("addUser", err)
	}
	return &authResolver{token: token, user: user}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct {
	Email    string
	Password string
}) (*authResolver, error) {
	user, token, err := r.accounts.Login(ctx, args.Email, args.Password)
	if err != nil {
		return nil, r.fail("login", err)
	}
	return &authResolver{token: token, user: user}, nil
}

func (r *Resolver) SaveProductToCart(ctx context.Context, args struct{ Input cartLineInput }) (*userResolver, error) {
	user, err := r.cart.Add(ctx, string(args.Input.ProductID), int(args.Input.Quantity))
	if err != nil {
		return nil, r.fail("saveProductToCart", err)
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) UpdateQuantity(ctx context.Context, args struct{ Input cartLineInput }) (*userResolver, error) {
	user, err := r.cart.UpdateQuantity(ctx, string(args.Input.ProductID), int(args.Input.Quantity))
	if err != nil {
		return nil, r.fail("updateQuantity", err)
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) RemoveProductFromCart(ctx context.Context, args struct{ ProductID graphql.ID }) (*userResolver, error) {
	user, err := r.cart.Remove(ctx, string(args.ProductID))
	if err != nil {
		return nil, r.fail("removeProductFromCart", err)
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) AddProductToDB(ctx context.Context, args struct{ Input productInput }) (*productResolver, error) {
	in := services.ProductInput{
		Name:  args.Input.Name,
		Price: args.Input.Price,
	}
	if args.Input.Description != nil {
		in.Description = *args.Input.Description
	}
	if args.Input.Image != nil {
		in.Image = *args.Input.Image
	}
	if args.Input.Stock != nil {
		in.Stock = int(*args.Input.Stock)
	}

	product, err := r.catalog.Create(ctx, in)
	if err != nil {
		return nil, r.fail("addProductToDB", err)
	}
	return &productResolver{p: product}, nil
}

func (r *Resolver) ChangePassword(ctx context.Context, args struct {
	CurrentPassword string
	NewPassword     string
}) (bool, error) {
	if err := r.accounts.ChangePassword(ctx, args.CurrentPassword, args.NewPassword); err != nil {
		return false, r.fail("changePassword", err)
	}
	return true, nil
}
